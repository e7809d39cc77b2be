package coordinator

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkyrenc/mini-gfs/internal/metrics"
)

func newTestServer(t *testing.T) (*Server, *Coordinator) {
	t.Helper()
	c := New(testConfig(), nil, nil, nil)
	return NewServer(c, nil, nil), c
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRPCRegisterAndDuplicate(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/rpc/register_chunk_server", registerRequest{Addr: "10.0.0.1:9000"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/rpc/register_chunk_server", registerRequest{Addr: "10.0.0.1:9000"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	var payload errorPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.NotEmpty(t, payload.Error)
}

func TestRPCMalformedJSONReturnsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/rpc/register_chunk_server", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRPCHeartbeatAndUnregisterAreNotErrorsWhenUnknown(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/rpc/heartbeat", heartbeatRequest{Addr: "ghost:1", Remains: 5})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/rpc/unregister_chunk_server", registerRequest{Addr: "ghost:1"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRPCWriteAndGetFile(t *testing.T) {
	srv, c := newTestServer(t)
	h := srv.Handler()

	require.NoError(t, c.RegisterChunkServer("s0:1"))
	c.Heartbeat("s0:1", 100)
	c.runSweep()

	rec := doJSON(t, h, http.MethodPost, "/rpc/write_file", writeFileRequest{
		FileStem: "f", FileSuffix: "txt", ChunkNum: 2, ReplicaCount: 1,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var written map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &written))
	assert.Len(t, written, 2)

	rec = doJSON(t, h, http.MethodPost, "/rpc/get_file", fileQuery{FileStem: "f", FileSuffix: "txt"})
	require.Equal(t, http.StatusOK, rec.Code)
	var locs []ChunkLocation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &locs))
	assert.Len(t, locs, 2)

	rec = doJSON(t, h, http.MethodPost, "/rpc/get_file", fileQuery{FileStem: "nope", FileSuffix: "txt"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null\n", rec.Body.String())
}

func TestRPCDeleteFile(t *testing.T) {
	srv, c := newTestServer(t)
	h := srv.Handler()

	require.NoError(t, c.RegisterChunkServer("s0:1"))
	c.Heartbeat("s0:1", 100)
	c.runSweep()
	c.WriteFile("f", "txt", 1, 1)

	rec := doJSON(t, h, http.MethodPost, "/rpc/delete_file", fileQuery{FileStem: "f", FileSuffix: "txt"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, c.FetchFileInfo("f", "txt"))
}

func TestRPCHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestRPCBoundaryObservesLatency confirms the boundary wrapper actually
// records into RPCDuration rather than leaving it a registered-but-dead
// collector.
func TestRPCBoundaryObservesLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	mtr := metrics.NewCoordinator(reg)
	c := New(testConfig(), nil, nil, mtr)
	srv := NewServer(c, nil, mtr)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/rpc/register_chunk_server", registerRequest{Addr: "10.0.0.1:9000"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, fam := range families {
		if fam.GetName() == "mgfs_coordinator_rpc_duration_seconds" {
			found = true
			require.Len(t, fam.Metric, 1)
			hist := fam.Metric[0].GetHistogram()
			assert.Equal(t, uint64(1), hist.GetSampleCount())
			var hasOk bool
			for _, lbl := range fam.Metric[0].GetLabel() {
				if lbl.GetName() == "outcome" && lbl.GetValue() == "ok" {
					hasOk = true
				}
			}
			assert.True(t, hasOk, "expected outcome=ok label")
		}
	}
	assert.True(t, found, "rpc_duration_seconds metric must be registered and observed")
}
