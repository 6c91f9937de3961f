package core

import "time"

// Default limits. The HTTP layer and the CLI both start from these.
const (
	DefaultMaxFileSize   = 5 << 20
	DefaultMaxRows       = 10000
	DefaultBulkMaxAssets = 500
	DefaultHistoryLimit  = 10
)

// Options tunes the limits a Service enforces.
type Options struct {
	// MaxFileSize is the largest import payload accepted, in bytes.
	MaxFileSize int64
	// MaxRows is the largest number of data rows (header excluded) in one import.
	MaxRows int
	// MaxConcurrentImports and ImportWait configure the ImportLimiter.
	MaxConcurrentImports int
	ImportWait           time.Duration
	// BulkMaxAssets caps the number of ids in one bulk update.
	BulkMaxAssets int
	// HistoryLimit is the number of history entries returned per asset.
	HistoryLimit int
	// Clock stamps history rows. Nil means time.Now.
	Clock func() time.Time
}

// DefaultOptions returns the production limits.
func DefaultOptions() Options {
	return Options{
		MaxFileSize:          DefaultMaxFileSize,
		MaxRows:              DefaultMaxRows,
		MaxConcurrentImports: DefaultMaxConcurrentImports,
		ImportWait:           DefaultImportWait,
		BulkMaxAssets:        DefaultBulkMaxAssets,
		HistoryLimit:         DefaultHistoryLimit,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = d.MaxFileSize
	}
	if o.MaxRows <= 0 {
		o.MaxRows = d.MaxRows
	}
	if o.MaxConcurrentImports <= 0 {
		o.MaxConcurrentImports = d.MaxConcurrentImports
	}
	if o.ImportWait <= 0 {
		o.ImportWait = d.ImportWait
	}
	if o.BulkMaxAssets <= 0 {
		o.BulkMaxAssets = d.BulkMaxAssets
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = d.HistoryLimit
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// Service provides the asset tracking operations: import, single-record
// create and update, bulk update, history and reference data.
//
// Service holds no per-request state. Every method takes the organization
// (or the acting user) explicitly.
type Service struct {
	repos   Repositories
	opts    Options
	limiter *ImportLimiter
	now     func() time.Time
}

// NewService creates a Service over the given storage ports.
// Zero-valued option fields take their defaults.
func NewService(repos Repositories, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		repos:   repos,
		opts:    opts,
		limiter: NewImportLimiter(opts.MaxConcurrentImports, opts.ImportWait),
		now:     opts.Clock,
	}
}

// Options returns the effective limits.
func (s *Service) Options() Options { return s.opts }

// ImportLimiter exposes the limiter so the server can drain it on shutdown.
func (s *Service) ImportLimiter() *ImportLimiter { return s.limiter }
