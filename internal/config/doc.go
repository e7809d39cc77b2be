// Package config loads the coordinator's runtime configuration via
// Viper: environment variables prefixed MGFS_, a config file (if one is
// given), and compiled-in defaults, in that order of precedence (env
// overrides file, file overrides default).
package config
