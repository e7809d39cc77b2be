package membership

import "errors"

// ErrAlreadyRegistered is returned by Table.Register when the given server
// ID is already known.
var ErrAlreadyRegistered = errors.New("membership: server already registered")
