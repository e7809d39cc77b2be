package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCoordinatorRegistersDistinctCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCoordinator(reg)

	c.RingServers.Set(3)
	c.SetServerStatusCounts(map[string]int{"healthy": 2, "suspect": 1, "failed": 0, "initial": 0})
	c.DegradedPlacement.Inc()
	c.RebalanceInstrs.WithLabelValues("migrate", "ok").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, fam := range families {
		if fam.GetName() == "mgfs_coordinator_ring_servers" {
			found = true
			require.Len(t, fam.Metric, 1)
			assert.Equal(t, 3.0, fam.Metric[0].GetGauge().GetValue())
		}
	}
	assert.True(t, found, "ring_servers metric must be registered and gathered")
}

func TestSetServerStatusCountsSetsOnlyGivenLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCoordinator(reg)
	c.SetServerStatusCounts(map[string]int{"healthy": 1})

	families, err := reg.Gather()
	require.NoError(t, err)

	var metrics []*dto.Metric
	for _, fam := range families {
		if fam.GetName() == "mgfs_coordinator_servers_by_status" {
			metrics = fam.Metric
		}
	}
	require.Len(t, metrics, 1)
	assert.Equal(t, 1.0, metrics[0].GetGauge().GetValue())
}
