package coordinator

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kkyrenc/mini-gfs/internal/metrics"
)

// Server wraps a Coordinator with the RPC-addressable HTTP facade: one
// endpoint per operation in the RPC surface (register_chunk_server,
// unregister_chunk_server, heartbeat, write_file, get_file,
// fetch_file_info, delete_file).
//
// Every handler is wrapped in the same exception-logging boundary: a
// recovered panic or handler error is logged at error level tagged with
// the operation name and a request ID, and returned to the caller as a
// JSON error payload rather than propagating to the transport or
// crashing the process.
type Server struct {
	coord   *Coordinator
	log     logrus.FieldLogger
	metrics *metrics.Coordinator
}

// NewServer returns an HTTP facade over coord. mtr may be nil, in which
// case per-RPC latency is not recorded.
func NewServer(coord *Coordinator, log logrus.FieldLogger, mtr *metrics.Coordinator) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{coord: coord, log: log, metrics: mtr}
}

// Handler builds the *http.ServeMux routing every RPC operation to its
// handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc/register_chunk_server", s.boundary("register_chunk_server", s.handleRegister))
	mux.HandleFunc("/rpc/unregister_chunk_server", s.boundary("unregister_chunk_server", s.handleUnregister))
	mux.HandleFunc("/rpc/heartbeat", s.boundary("heartbeat", s.handleHeartbeat))
	mux.HandleFunc("/rpc/write_file", s.boundary("write_file", s.handleWriteFile))
	mux.HandleFunc("/rpc/get_file", s.boundary("get_file", s.handleGetFile))
	mux.HandleFunc("/rpc/fetch_file_info", s.boundary("fetch_file_info", s.handleFetchFileInfo))
	mux.HandleFunc("/rpc/delete_file", s.boundary("delete_file", s.handleDeleteFile))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	return mux
}

// errorPayload is the opaque string error the RPC boundary returns
// instead of letting any error type escape to the transport, per the
// coordinator's error-handling design: AlreadyExists is the one typed
// error surfaced to callers (as a 409 with this same payload shape), and
// everything else is either a logged-and-recovered condition (unknown
// heartbeat, degraded placement) or an "Internal" opaque string.
type errorPayload struct {
	Error string `json:"error"`
}

// boundary wraps handler with request-ID tagging, panic recovery, and
// uniform error-to-JSON conversion — the only place in the facade that
// turns a Go error or panic into a wire response.
func (s *Server) boundary(operation string, handler func(*http.Request) (any, int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		log := s.log.WithFields(logrus.Fields{"operation": operation, "request_id": reqID})
		start := time.Now()
		outcome := "ok"

		defer func() {
			if rec := recover(); rec != nil {
				outcome = "panic"
				log.WithField("panic", rec).Error("rpc handler panicked")
				writeJSON(w, http.StatusInternalServerError, errorPayload{Error: "internal error"})
			}
			if s.metrics != nil {
				s.metrics.RPCDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
			}
		}()

		body, status, err := handler(r)
		if err != nil {
			outcome = "error"
			log.WithError(err).Error("rpc handler returned error")
			writeJSON(w, status, errorPayload{Error: err.Error()})
			return
		}
		writeJSON(w, status, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

type registerRequest struct {
	Addr string `json:"addr"`
}

func (s *Server) handleRegister(r *http.Request) (any, int, error) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, http.StatusBadRequest, err
	}
	if err := s.coord.RegisterChunkServer(req.Addr); err != nil {
		return nil, http.StatusConflict, err
	}
	return nil, http.StatusNoContent, nil
}

func (s *Server) handleUnregister(r *http.Request) (any, int, error) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, http.StatusBadRequest, err
	}
	s.coord.UnregisterChunkServer(req.Addr)
	return nil, http.StatusNoContent, nil
}

type heartbeatRequest struct {
	Addr    string `json:"addr"`
	Remains int    `json:"remains"`
}

func (s *Server) handleHeartbeat(r *http.Request) (any, int, error) {
	var req heartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, http.StatusBadRequest, err
	}
	s.coord.Heartbeat(req.Addr, req.Remains)
	return nil, http.StatusNoContent, nil
}

type writeFileRequest struct {
	FileStem     string `json:"file_stem"`
	FileSuffix   string `json:"file_suffix"`
	ChunkNum     int    `json:"chunk_num"`
	ReplicaCount int    `json:"replica"`
}

func (s *Server) handleWriteFile(r *http.Request) (any, int, error) {
	var req writeFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, http.StatusBadRequest, err
	}
	result := s.coord.WriteFile(req.FileStem, req.FileSuffix, req.ChunkNum, req.ReplicaCount)
	return result, http.StatusOK, nil
}

type fileQuery struct {
	FileStem   string `json:"file_stem"`
	FileSuffix string `json:"file_suffix"`
}

func (s *Server) handleGetFile(r *http.Request) (any, int, error) {
	var req fileQuery
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, http.StatusBadRequest, err
	}
	locs := s.coord.GetFile(req.FileStem, req.FileSuffix)
	if locs == nil {
		// A typed nil slice encodes as JSON null for an unknown file.
		return []ChunkLocation(nil), http.StatusOK, nil
	}
	return locs, http.StatusOK, nil
}

func (s *Server) handleFetchFileInfo(r *http.Request) (any, int, error) {
	var req fileQuery
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, http.StatusBadRequest, err
	}
	info := s.coord.FetchFileInfo(req.FileStem, req.FileSuffix)
	if info == nil {
		return nil, http.StatusOK, nil
	}
	return info, http.StatusOK, nil
}

func (s *Server) handleDeleteFile(r *http.Request) (any, int, error) {
	var req fileQuery
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, http.StatusBadRequest, err
	}
	s.coord.DeleteFile(req.FileStem, req.FileSuffix)
	return nil, http.StatusNoContent, nil
}
