// Package checkserver serves the part classifier endpoint.
//
// POST /check_piece receives a base64 frame and the class the current step
// expects. The top and bottom bands of the frame are cropped away, the rest is
// sent to a detection model, and the best detection of the expected class is
// reported with its centre in full-frame pixels. Every answer carries an
// annotated copy of the cropped frame.
//
// The centre is the mean of the detection's keypoints. A detection without
// keypoints is reported at the centre of its box instead of -1, so clients
// still score its alignment rather than falling back to correct_piece.
package checkserver

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Iron-Ham/stepcheck/internal/archive"
	"github.com/Iron-Ham/stepcheck/internal/event"
	"github.com/Iron-Ham/stepcheck/internal/inference"
	"github.com/Iron-Ham/stepcheck/internal/logging"
)

// Defaults for the detection policy.
const (
	DefaultMatchThreshold = 0.45
	DefaultCropTop        = 0.18
	DefaultCropBottom     = 0.15

	maxRequestBytes = 32 << 20
)

// Detector runs the detection model on a JPEG.
type Detector interface {
	Detect(ctx context.Context, jpeg []byte) ([]inference.Detection, error)
}

// HealthChecker is implemented by detectors that can report readiness.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// Archiver stores annotated frames.
type Archiver interface {
	Save(ctx context.Context, rec archive.Record, jpeg []byte) (archive.Record, error)
}

// Server answers classifier requests.
type Server struct {
	detector       Detector
	archive        Archiver
	bus            *event.Bus
	logger         *logging.Logger
	matchThreshold float64
	cropTop        float64
	cropBottom     float64
}

// Option configures a Server.
type Option func(*Server)

// WithMatchThreshold sets the confidence at or above which a found part
// counts as matched.
func WithMatchThreshold(t float64) Option {
	return func(s *Server) { s.matchThreshold = t }
}

// WithCrop sets the fractions of the frame height cut from the top and bottom.
func WithCrop(top, bottom float64) Option {
	return func(s *Server) {
		s.cropTop = top
		s.cropBottom = bottom
	}
}

// WithArchive stores every annotated frame.
func WithArchive(a Archiver) Option {
	return func(s *Server) { s.archive = a }
}

// WithBus publishes a DetectionArchivedEvent per stored frame.
func WithBus(b *event.Bus) Option {
	return func(s *Server) { s.bus = b }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a server backed by detector.
func New(detector Detector, opts ...Option) *Server {
	s := &Server{
		detector:       detector,
		matchThreshold: DefaultMatchThreshold,
		cropTop:        DefaultCropTop,
		cropBottom:     DefaultCropBottom,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger).WithComponent("checkserver")
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	r.Post("/check_piece", s.handleCheckPiece)
	return r
}

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("check server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	if hc, ok := s.detector.(HealthChecker); ok {
		if err := hc.CheckHealth(r.Context()); err != nil {
			status = map[string]string{"status": "degraded", "error": err.Error()}
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, status)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
