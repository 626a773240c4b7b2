// Package server exposes a Recognizer over HTTP and swaps in a rebuilt one
// when the grammar changes. In-flight requests finish on the recognizer they
// started with.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/singleflight"

	"github.com/cognicore/nertrie/internal/corpus"
	"github.com/cognicore/nertrie/internal/logger"
	"github.com/cognicore/nertrie/pkg/nertrie"
	"github.com/cognicore/nertrie/pkg/nertrie/htmldoc"
	"github.com/cognicore/nertrie/pkg/nertrie/internalerr"
	"github.com/cognicore/nertrie/pkg/nertrie/metrics"
	"github.com/cognicore/nertrie/pkg/nertrie/scan"
)

// DefaultMaxBody bounds request bodies.
const DefaultMaxBody = 8 << 20

// Loader builds a fresh recognizer, typically by recompiling the grammar.
type Loader func(ctx context.Context) (*nertrie.Recognizer, error)

// Server serves recognition requests.
type Server struct {
	current atomic.Pointer[nertrie.Recognizer]
	load    Loader
	metrics *metrics.Metrics
	reloads singleflight.Group
	maxBody int64
	logger  *slog.Logger
}

// New returns a server answering with rec. load may be nil, in which case
// Reload fails. A nil m gets a private registry.
func New(rec *nertrie.Recognizer, load Loader, m *metrics.Metrics) *Server {
	if m == nil {
		m = metrics.New(nil)
	}
	s := &Server{
		load:    load,
		metrics: m,
		maxBody: DefaultMaxBody,
		logger:  logger.WithComponent("server"),
	}
	s.current.Store(rec.WithMetrics(m))
	return s
}

// Recognizer returns the recognizer new requests use.
func (s *Server) Recognizer() *nertrie.Recognizer { return s.current.Load() }

// Reload rebuilds the recognizer and swaps it in. Concurrent calls share a
// single load. On failure the current recognizer stays in place.
func (s *Server) Reload(ctx context.Context) error {
	_, err, _ := s.reloads.Do("reload", func() (any, error) {
		if s.load == nil {
			return nil, errors.New("no grammar loader configured")
		}
		rec, err := s.load(ctx)
		if err != nil {
			s.metrics.GrammarReloads.WithLabelValues("error").Inc()
			s.logger.Error("grammar reload failed", "error", err)
			return nil, err
		}
		s.current.Store(rec.WithMetrics(s.metrics))
		s.metrics.GrammarReloads.WithLabelValues("ok").Inc()
		s.logger.Info("grammar reloaded",
			"source", rec.Source(),
			"rules", rec.Rules(),
			"keys", rec.Dictionary().Len(),
		)
		return nil, nil
	})
	return err
}

// Handler returns the routes wrapped in request-id and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /spans", s.handleSpans)
	mux.HandleFunc("POST /markup", s.handleMarkup)
	mux.HandleFunc("POST /reload", s.handleReload)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	var chain http.Handler = mux
	chain = s.instrument(chain)
	chain = requestID(chain)
	return chain
}

type spansRequest struct {
	Text string `json:"text"`
	// Unmatched includes the spans between matches.
	Unmatched bool `json:"unmatched"`
}

type spansResponse struct {
	Source string          `json:"source"`
	Spans  []corpus.Entity `json:"spans"`
}

func (s *Server) handleSpans(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req spansRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rec := s.Recognizer()
	var (
		spans []scan.Span
		err   error
	)
	if req.Unmatched {
		for sp, e := range rec.Spans(req.Text) {
			if e != nil {
				err = e
				break
			}
			spans = append(spans, sp)
		}
	} else {
		spans, err = rec.Matches(req.Text)
	}
	if err != nil {
		log.Error("scan failed", "error", err)
		s.writeError(w, scanStatus(err), "scan failed")
		return
	}

	s.writeJSON(w, http.StatusOK, spansResponse{
		Source: rec.Source(),
		Spans:  corpus.Entities(req.Text, spans),
	})
}

// handleMarkup marks up an HTML fragment, or a whole document when the
// document query parameter is set.
func (s *Server) handleMarkup(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	parse := htmldoc.ParseFragment
	if whole, _ := strconv.ParseBool(r.URL.Query().Get("document")); whole {
		parse = htmldoc.Parse
	}
	doc, err := parse(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid HTML body")
		return
	}

	out, err := s.Recognizer().Scan(doc)
	if err != nil {
		log.Error("markup failed", "error", err)
		s.writeError(w, scanStatus(err), "markup failed")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := out.(*htmldoc.Document).Render(w); err != nil {
		log.Error("failed to write response", "error", err)
	}
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.Reload(r.Context()); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.handleHealth(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	rec := s.Recognizer()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"source": rec.Source(),
		"rules":  rec.Rules(),
		"keys":   rec.Dictionary().Len(),
	})
}

func scanStatus(err error) int {
	if errors.Is(err, internalerr.ErrConfiguration) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

const requestIDHeader = "X-Request-ID"

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = ulid.Make().String()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		// The mux records the matched pattern on r; unknown paths share one label.
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(sw.status)).Inc()
		s.metrics.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.wroteHeader {
		sw.wroteHeader = true
	}
	return sw.ResponseWriter.Write(b)
}
