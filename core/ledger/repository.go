package ledger

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repository persists runs, review sessions and staged changes.
type Repository struct {
	db       *gorm.DB
	archiver Archiver
	logger   *zap.Logger
	clock    func() time.Time
}

// Option configures a Repository.
type Option func(*Repository)

// WithArchiver archives review sessions before garbage collection deletes them.
func WithArchiver(a Archiver) Option {
	return func(r *Repository) { r.archiver = a }
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(r *Repository) { r.clock = clock }
}

// NewRepository creates a ledger repository.
func NewRepository(db *gorm.DB, logger *zap.Logger, opts ...Option) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Repository{db: db, logger: logger, clock: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DB exposes the underlying handle for callers that share the transaction scope.
func (r *Repository) DB() *gorm.DB {
	return r.db
}
