package volley

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/volleyfs/volley/transfer"
)

// Session sequences one upload or download pipeline. It owns the lifecycle
// of the in-flight parts and the manifest; the transfer client is stateless
// between calls.
//
// All steps within a session run sequentially. Run Upload or Download from
// a dedicated goroutine (or use StartUpload/StartDownload) to keep an
// interactive caller responsive; the session itself never spawns transfer
// concurrency.
type Session struct {
	cfg    Config
	client *transfer.Client
	obs    Observer
	logger *slog.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithObserver sets the log/progress sink the session reports to.
func WithObserver(obs Observer) SessionOption {
	return func(s *Session) {
		if obs != nil {
			s.obs = obs
		}
	}
}

// WithLogger sets the logger for operational details (cleanup failures,
// per-part debug data). User-facing status goes to the Observer instead.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithTransferClient replaces the transfer client built from the config.
func WithTransferClient(client *transfer.Client) SessionOption {
	return func(s *Session) {
		if client != nil {
			s.client = client
		}
	}
}

// NewSession creates a session over cfg.
func NewSession(cfg Config, opts ...SessionOption) *Session {
	s := &Session{cfg: cfg, obs: nopObserver{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = transfer.New(cfg.Endpoint,
			transfer.WithNamespace(cfg.Namespace),
			transfer.WithFolderPrefix(cfg.FolderPrefix),
			transfer.WithLogger(s.logger),
		)
	}
	return s
}

// log returns the logger, falling back to a discard logger if nil.
func (s *Session) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.logger
}

func (s *Session) maxPartSize() int64 {
	if s.cfg.MaxPartSize > 0 {
		return s.cfg.MaxPartSize
	}
	return DefaultMaxPartSize
}

// workDir creates a fresh scratch directory for one session run.
func (s *Session) workDir() (string, error) {
	return os.MkdirTemp(s.cfg.WorkDir, "volley-")
}

// cleanup removes a scratch directory. Cleanup is best-effort: the primary
// deliverable already exists when it runs, so failures are logged and never
// escalated.
func (s *Session) cleanup(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		s.log().Warn("cleanup failed", "dir", dir, "error", err)
		s.obs.Log("cleanup failed: " + err.Error())
		return
	}
	s.obs.Log("removed intermediate files")
}

// fail wraps err with the stage it occurred in.
func fail(stage Stage, err error) error {
	return &StepError{Stage: stage, Err: err}
}

// Result is the terminal outcome of an asynchronous session run.
type Result struct {
	// Manifest is the manifest written (upload) or consumed (download).
	Manifest *Manifest

	// Dir is the extraction target directory; set for downloads only.
	Dir string

	Err error
}

// StartUpload runs Upload on a dedicated goroutine and delivers the
// terminal result on the returned channel. The channel is buffered; the
// worker never blocks on delivery.
func (s *Session) StartUpload(ctx context.Context, dir string) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		m, err := s.Upload(ctx, dir)
		ch <- Result{Manifest: m, Err: err}
	}()
	return ch
}

// StartDownload runs Download on a dedicated goroutine and delivers the
// terminal result on the returned channel.
func (s *Session) StartDownload(ctx context.Context, manifestPath string) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		m, dir, err := s.Download(ctx, manifestPath)
		ch <- Result{Manifest: m, Dir: dir, Err: err}
	}()
	return ch
}
