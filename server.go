package studyquiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const maxBodyBytes = 1 << 20

// Server is the HTTP front end: the two JSON endpoints, study progress and
// the static public directory
type Server struct {
	cfg      *Config
	tutor    *Tutor
	progress *ProgressTracker
	router   chi.Router
}

// NewServer creates a Server with all routes mounted
func NewServer(cfg *Config, tutor *Tutor) *Server {
	s := &Server{
		cfg:      cfg,
		tutor:    tutor,
		progress: NewProgressTracker(cfg.Session.Secret, cfg.Session.Name),
		router:   chi.NewRouter(),
	}
	if cfg.Session.Secret == "" {
		log.Warn("SESSION_SECRET not set, study progress is lost on restart")
	}

	r := s.router
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger, middleware.Recoverer)
	if cfg.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Group(func(mr chi.Router) {
		if cfg.Log.TranscriptDir != "" {
			mr.Use(s.transcripts)
		}
		mr.Post("/generate-questions", s.handleGenerateQuestions)
		mr.Post("/evaluate-answer", s.handleEvaluateAnswer)
	})

	r.Get("/progress", s.handleProgress)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	files := http.FileServer(http.Dir(cfg.PublicDir))
	r.Get("/*", files.ServeHTTP)
	r.Head("/*", files.ServeHTTP)

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", s.cfg.Listen).Info("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// POST /generate-questions
func (s *Server) handleGenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var req GenerationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	doc, cached, err := s.tutor.GenerateQuestions(r.Context(), req.Text)
	if err != nil {
		s.writeTutorError(w, r, err, "Failed to generate questions.")
		return
	}

	if cached {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	writeJSON(w, http.StatusOK, doc)
}

// POST /evaluate-answer
func (s *Server) handleEvaluateAnswer(w http.ResponseWriter, r *http.Request) {
	var req EvaluationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	doc, err := s.tutor.EvaluateAnswer(r.Context(), req)
	if err != nil {
		s.writeTutorError(w, r, err, "Failed to evaluate answer.")
		return
	}

	if _, err := s.progress.Record(w, r, doc); err != nil {
		log.WithError(err).WithField("request_id", middleware.GetReqID(r.Context())).Warn("failed to record progress")
	}
	writeJSON(w, http.StatusOK, doc)
}

// GET /progress
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	data, err := json.Marshal(s.progress.Load(r))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to read progress.")
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// writeTutorError shows input errors to the caller and hides everything
// else behind message
func (s *Server) writeTutorError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if IsInputError(err) {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	log.WithError(err).WithField("request_id", middleware.GetReqID(r.Context())).Error(message)
	writeJSONError(w, http.StatusInternalServerError, message)
}

// transcripts attaches a per-request LLMLogger to the request context
func (s *Server) transcripts(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetReqID(r.Context())
		ll, err := NewLLMLogger(s.cfg.Log.TranscriptDir, reqID, r.Method+" "+r.URL.Path)
		if err != nil {
			log.WithError(err).Warn("transcript logging disabled for request")
			next.ServeHTTP(w, r)
			return
		}
		defer ll.Close()
		next.ServeHTTP(w, r.WithContext(WithLLMLogger(r.Context(), ll)))
	})
}

// requestLogger writes one access log line per request
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.WithFields(log.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).Round(time.Millisecond),
		}).Info("request")
	})
}

// decodeBody reads a JSON body into v. An empty body leaves v zero so the
// field checks report what is missing.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON body: %v", err))
	return false
}

func writeJSON(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	body, _ := json.Marshal(map[string]string{"error": message})
	writeJSON(w, code, body)
}
