package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/kabili207/vatsim-listing/pkg/listing"
	"github.com/kabili207/vatsim-listing/pkg/vatsim"
)

// Server exposes health and status endpoints for the listing service.
type Server struct {
	addr       string
	cache      *vatsim.SnapshotCache
	publishers []*listing.Publisher
}

func NewServer(addr string, cache *vatsim.SnapshotCache, publishers []*listing.Publisher) *Server {
	return &Server{
		addr:       addr,
		cache:      cache,
		publishers: publishers,
	}
}

type vatsimStatus struct {
	LastAttempt time.Time `json:"last_attempt"`
	LastSuccess time.Time `json:"last_success"`
	LastError   string    `json:"last_error,omitempty"`
	Pilots      int       `json:"pilots"`
	Controllers int       `json:"controllers"`
	LastUpdated time.Time `json:"last_updated"`
}

type guildStatus struct {
	Name           string    `json:"name"`
	MessageID      string    `json:"message_id,omitempty"`
	LastRenderedAt time.Time `json:"last_rendered_at"`
}

type statusResponse struct {
	Vatsim vatsimStatus  `json:"vatsim"`
	Guilds []guildStatus `json:"guilds"`
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           handlers.CombinedLoggingHandler(os.Stdout, r),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("status server listening", "addr", s.addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := s.cache.Status()
	if status.LastSuccess.IsZero() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, "not ready\n")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok\n")
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	refresh := s.cache.Status()
	response := statusResponse{
		Vatsim: vatsimStatus{
			LastAttempt: refresh.LastAttempt,
			LastSuccess: refresh.LastSuccess,
			LastError:   refresh.LastError,
		},
		Guilds: []guildStatus{},
	}

	if snapshot := s.cache.Get(r.Context()); snapshot != nil {
		response.Vatsim.Pilots = len(snapshot.Pilots)
		response.Vatsim.Controllers = len(snapshot.Controllers)
		response.Vatsim.LastUpdated = snapshot.Overview.LastUpdated
	}

	for _, p := range s.publishers {
		state := p.State()
		response.Guilds = append(response.Guilds, guildStatus{
			Name:           p.Name(),
			MessageID:      state.MessageID,
			LastRenderedAt: state.LastRenderedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("error writing status response", "error", err)
	}
}
