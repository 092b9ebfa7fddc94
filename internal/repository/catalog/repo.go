package catalog

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Repo holds the current catalog and swaps it atomically on reload.
type Repo struct {
	path    string
	current atomic.Pointer[Catalog]
	version atomic.Uint64
	logger  *zap.Logger
}

// Open loads the catalog at path.
func Open(path string, logger *zap.Logger) (*Repo, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Repo{path: path, logger: logger}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewStatic wraps an already parsed catalog. Reload is a no-op.
func NewStatic(c *Catalog) *Repo {
	r := &Repo{logger: zap.NewNop()}
	r.current.Store(c)
	r.version.Store(1)
	return r
}

// Current returns the active catalog.
func (r *Repo) Current() *Catalog { return r.current.Load() }

// Version increases on every successful reload.
func (r *Repo) Version() uint64 { return r.version.Load() }

// Path returns the services file path.
func (r *Repo) Path() string { return r.path }

// Reload re-reads the services file. On error the previous catalog stays active.
func (r *Repo) Reload() error {
	if r.path == "" {
		return nil
	}
	c, err := LoadFile(r.path)
	if err != nil {
		r.logger.Warn("catalog reload failed", zap.String("path", r.path), zap.Error(err))
		return err
	}
	r.current.Store(c)
	v := r.version.Add(1)
	r.logger.Info("catalog loaded",
		zap.String("path", r.path),
		zap.Int("layers", c.Layers()),
		zap.Int("entries", len(c.Entries())),
		zap.Uint64("version", v),
	)
	return nil
}
