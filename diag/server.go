package diag

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/gorilla/mux"
)

// Server serves a Registry's snapshots as JSON over HTTP.
type Server struct {
	reg      *Registry
	log      *slog.Logger
	listener net.Listener
	http     *http.Server
}

// Option configures a Server at construction.
type Option func(*Server)

// WithLogger overrides the Server's logger. Default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// Open binds a Server to addr, exposing GET /stats (every registered
// Provider) and GET /stats/{name} (one). Listen failures are returned
// synchronously; nothing is served until Start is called.
func Open(reg *Registry, addr string, opts ...Option) (*Server, error) {
	s := &Server{reg: reg, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s.listener = ln

	r := mux.NewRouter()
	r.HandleFunc("/stats", s.listStats).Methods(http.MethodGet)
	r.HandleFunc("/stats/{name}", s.oneStat).Methods(http.MethodGet)
	s.http = &http.Server{Handler: r}
	return s, nil
}

// Addr returns the address the Server is actually listening on, useful
// when Open was called with a ":0" port.
func (s *Server) Addr() string { return s.listener.Addr().String() }

// Start serves requests in a background goroutine until Close is called.
func (s *Server) Start() {
	go func() {
		if err := s.http.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			s.log.Warn("diag: serve failed", "error", err)
		}
	}()
}

// Close stops serving and releases the listener.
func (s *Server) Close() error {
	return s.http.Close()
}

func (s *Server) listStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.reg.Snapshot())
}

func (s *Server) oneStat(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	snap, ok := s.reg.SnapshotOne(name)
	if !ok {
		http.Error(w, "unknown diagnostic: "+name, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
