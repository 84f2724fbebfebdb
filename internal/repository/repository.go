package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mr1hm/disaster-watch/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already archived")
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// ArchiveFilter narrows ListDisasters. Zero values mean "no constraint".
type ArchiveFilter struct {
	Limit       int
	Offset      int
	Since       *time.Time
	Category    *models.Category
	MinSeverity *models.Severity // >= this level (e.g., HIGH includes HIGH and CRITICAL)
	Source      string
}

// DisasterRepository archives every event the refresh job has seen.
// Events are keyed by (source, id); upstream IDs are only unique per source.
type DisasterRepository interface {
	// Add returns ErrDuplicate when (source, id) is already archived.
	Add(ctx context.Context, e *models.DisasterEvent) error
	GetByID(ctx context.Context, source, id string) (*models.DisasterEvent, error)
	Exists(ctx context.Context, source, id string) (bool, error)
	ListDisasters(ctx context.Context, opts ArchiveFilter) ([]models.DisasterEvent, error)
}
