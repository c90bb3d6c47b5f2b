package core

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/countonsheep/internal/logging"
)

// ServiceOptions configures a Service.
type ServiceOptions struct {
	MaxFileSize int64 // upload size limit in bytes, 0 for none
	PreviewRows int   // rows shown by Preview, DefaultPreviewRows if zero
	Comma       rune  // CSV delimiter, ',' if zero
}

// Service wires the pipeline together: load, execute, keep the result per
// session and export it. Web handlers and CLI commands go through it.
type Service struct {
	units    *UnitRegistry
	sessions *SessionStore
	limiter  *RunLimiter
	opts     ServiceOptions
}

// NewService creates a Service. sessions may be nil for stateless use.
func NewService(units *UnitRegistry, sessions *SessionStore, limiter *RunLimiter, opts ServiceOptions) *Service {
	if limiter == nil {
		limiter = NewRunLimiter(DefaultMaxConcurrentRuns, DefaultMaxWaitTime)
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = DefaultPreviewRows
	}
	return &Service{
		units:    units,
		sessions: sessions,
		limiter:  limiter,
		opts:     opts,
	}
}

// Units returns the registry backing the service.
func (s *Service) Units() *UnitRegistry { return s.units }

// Sessions returns the session store, nil in stateless mode.
func (s *Service) Sessions() *SessionStore { return s.sessions }

// ListUnits returns display info for every discovered unit.
func (s *Service) ListUnits() []UnitInfo { return s.units.Units() }

// Load parses an upload into a table.
func (s *Service) Load(r io.Reader) (*Table, error) {
	return LoadCSV(r, LoadOptions{MaxBytes: s.opts.MaxFileSize, Comma: s.opts.Comma})
}

// LoadInto parses an upload and makes it the session's input.
// On failure the session's input is cleared; its result is kept.
func (s *Service) LoadInto(ctx context.Context, sess *Session, fileName string, r io.Reader) (*Table, error) {
	logger := logging.FromContext(ctx)

	t, err := s.Load(r)
	if err != nil {
		sess.ClearInput()
		logger.Warn("upload rejected", "file", fileName, "error", err)
		return nil, err
	}

	sess.SetInput(fileName, t)
	logger.Info("upload loaded", "file", fileName, "rows", t.NumRows(), "columns", t.NumCols())
	return t, nil
}

// Run executes a unit against in, holding a run slot for the duration.
func (s *Service) Run(ctx context.Context, unit string, in *Table) (*Table, error) {
	logger := logging.FromContext(ctx)
	if ip := GetIPAddressFromContext(ctx); ip != "" {
		logger = logging.WithFields(ctx, "ip", ip)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	start := time.Now()
	out, err := Execute(ctx, s.units, unit, in)
	if err != nil {
		logger.Warn("transform failed", "unit", unit, "error", err, "duration", time.Since(start))
		return nil, err
	}

	logger.Info("transform completed",
		"unit", unit,
		"rows_in", in.NumRows(),
		"rows_out", out.NumRows(),
		"columns_out", out.NumCols(),
		"duration", time.Since(start),
	)
	return out, nil
}

// RunSession executes a unit against the session's input and, on success,
// overwrites the session's result. A failed run leaves the result as it was.
func (s *Service) RunSession(ctx context.Context, sess *Session, unit string) (*Table, error) {
	sess.SetSelected(unit)

	in, inputName := sess.Input()
	if in == nil {
		return nil, ErrNoInput
	}

	out, err := s.Run(ctx, unit, in)
	if err != nil {
		return nil, err
	}
	sess.SetResult(out, inputName, unit)
	return out, nil
}

// Export encodes the session's result and returns it with its download name.
func (s *Service) Export(sess *Session) ([]byte, string, error) {
	res, ok := sess.Result()
	if !ok {
		return nil, "", ErrNoResult
	}
	data, err := EncodeCSV(res.Table)
	if err != nil {
		return nil, "", err
	}
	return data, res.Filename(), nil
}

// Preview returns the first PreviewRows rows of t.
func (s *Service) Preview(t *Table) *Table {
	if t == nil {
		return nil
	}
	return t.Head(s.opts.PreviewRows)
}

// PreviewRows returns the preview size.
func (s *Service) PreviewRows() int { return s.opts.PreviewRows }

// RunStatus reports run slot usage.
func (s *Service) RunStatus() RunLimiterStatus { return s.limiter.Status() }

// WaitForRuns blocks until in-flight runs finish or ctx is done.
func (s *Service) WaitForRuns(ctx context.Context) error {
	if err := s.limiter.WaitForDrain(ctx); err != nil {
		return fmt.Errorf("waiting for runs: %w", err)
	}
	return nil
}
