// Package server exposes the review service over HTTP: a form endpoint for
// uploads and sharing links, a chat endpoint that answers an activity with
// the replies a bot would send, and a health probe.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tonimelisma/planset-go/internal/acquire"
	"github.com/tonimelisma/planset-go/internal/config"
	"github.com/tonimelisma/planset-go/internal/intake"
	"github.com/tonimelisma/planset-go/internal/report"
	"github.com/tonimelisma/planset-go/internal/sharelink"
)

const (
	// shutdownTimeout is how long in-flight requests get to drain.
	shutdownTimeout = 5 * time.Second

	readHeaderTimeout = 10 * time.Second

	// formMemory is how much of a multipart form is held in memory before
	// parts spill to temporary files.
	formMemory = 32 << 20

	// formSlack covers multipart framing on top of the upload ceiling.
	formSlack = 1 << 20

	maxActivityBytes = 1 << 20
)

// Form error copy.
const (
	errNoInput      = "Please upload a PDF file or provide a OneDrive/SharePoint link."
	errNoFile       = "No file selected"
	errInvalidType  = "Invalid file type. Please upload a PDF file."
	errInvalidURL   = "Invalid URL. Please provide a OneDrive or SharePoint sharing link."
	errLinksOff     = "Sharing links are not available. Please upload the PDF directly."
	errBodyTooLarge = "Request body too large."
)

// Server serves the HTTP surfaces. The review service can be swapped at
// runtime when configuration reloads.
type Server struct {
	svc    atomic.Pointer[intake.Service]
	holder *config.Holder
	logger *slog.Logger
}

// New creates a Server. holder supplies the chat message ceiling and the
// health report; it may be nil, in which case defaults apply.
func New(svc *intake.Service, holder *config.Holder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{holder: holder, logger: logger}
	s.svc.Store(svc)

	return s
}

// SetService replaces the review service. Requests already running keep
// the service they started with.
func (s *Server) SetService(svc *intake.Service) {
	s.svc.Store(svc)
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/review", s.handleReview)
	mux.HandleFunc("POST /api/messages", s.handleMessages)
	mux.HandleFunc("GET /health", s.handleHealth)

	return s.logRequests(mux)
}

// ListenAndServe binds addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}

	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("server: binding %s: %w", addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then drains in-flight
// requests for up to shutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	s.logger.Info("http server listening", slog.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}

	return nil
}

type reviewResponse struct {
	Success   bool   `json:"success"`
	PageCount int    `json:"page_count,omitempty"`
	Report    string `json:"report,omitempty"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	svc := s.svc.Load()

	r.Body = http.MaxBytesReader(w, r.Body, svc.Limits().Attachment+formSlack)

	if err := r.ParseMultipartForm(formMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeReviewError(w, http.StatusRequestEntityTooLarge, errBodyTooLarge)
			return
		}

		writeReviewError(w, http.StatusBadRequest, "Malformed form: "+err.Error())

		return
	}

	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	var src acquire.Source

	shareURL := strings.TrimSpace(r.FormValue("url"))

	switch {
	case shareURL != "":
		if !sharelink.IsShareURL(shareURL) {
			writeReviewError(w, http.StatusBadRequest, errInvalidURL)
			return
		}

		src = acquire.ShareLink(shareURL, "")
	default:
		file, hdr, err := r.FormFile("file")
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			writeReviewError(w, http.StatusBadRequest, errNoInput)
			return
		}

		if err != nil {
			writeReviewError(w, http.StatusBadRequest, "Malformed upload: "+err.Error())
			return
		}
		defer file.Close()

		if hdr.Filename == "" {
			writeReviewError(w, http.StatusBadRequest, errNoFile)
			return
		}

		src = acquire.Upload(hdr.Filename, file)
	}

	res, err := svc.Review(r.Context(), intake.Request{Source: src})
	if err != nil {
		status, msg := reviewError(err)
		writeReviewError(w, status, msg)

		return
	}

	writeJSON(w, http.StatusOK, reviewResponse{
		Success:   true,
		PageCount: res.PageCount,
		Report:    res.Report,
		Data:      res.Summary,
	})
}

// reviewError maps a failed review to a status and message. Problems with
// the submitted input are 400; analysis and unexpected failures are 500.
func reviewError(err error) (int, string) {
	var analysisErr *intake.AnalysisError
	if errors.As(err, &analysisErr) {
		return http.StatusInternalServerError, analysisErr.Err.Error()
	}

	var acqErr *acquire.Error
	if !errors.As(err, &acqErr) {
		return http.StatusInternalServerError, err.Error()
	}

	switch acqErr.Kind {
	case acquire.ErrNotAPDF:
		return http.StatusBadRequest, errInvalidType
	case acquire.ErrInvalidLink:
		return http.StatusBadRequest, errInvalidURL
	case acquire.ErrNotConfigured:
		return http.StatusBadRequest, errLinksOff
	case acquire.ErrTooLarge:
		return http.StatusBadRequest, fmt.Sprintf("File too large: %.1f MB exceeds the %.0f MB limit.",
			float64(acqErr.Size)/(1<<20), float64(acqErr.Limit)/(1<<20))
	default:
		return http.StatusBadRequest, "Failed to download file: " + err.Error()
	}
}

func writeReviewError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, reviewResponse{Error: msg})
}

type messagesResponse struct {
	Messages []string `json:"messages"`
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	var act intake.Activity

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxActivityBytes))
	if err := dec.Decode(&act); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid activity: " + err.Error()})
		return
	}

	msgs := s.svc.Load().HandleMessage(r.Context(), act, s.messageCeiling())

	writeJSON(w, http.StatusOK, messagesResponse{Messages: msgs})
}

type healthResponse struct {
	Status        string `json:"status"`
	BotConfigured bool   `json:"bot_configured"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "healthy"}

	if s.holder != nil {
		resp.BotConfigured = s.holder.Config().Graph.Configured()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) messageCeiling() int {
	if s.holder == nil {
		return report.DefaultCeiling
	}

	return s.holder.Config().Limits.MessageCeiling
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
