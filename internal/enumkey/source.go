package enumkey

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Source supplies the registry with enum rows and the mutation counter. The
// registry never keeps a Source: callers hand one in per operation, so the
// underlying connection stays under caller control.
type Source interface {
	// FetchAll returns every enumkeys row in a single query.
	FetchAll(ctx context.Context) ([]EnumKey, error)
	// CurrentVersion returns the mutation counter, or 0 when the counter row
	// does not exist yet. Database errors come back unmodified.
	CurrentVersion(ctx context.Context) (int64, error)
}

// GormSource reads enum rows and the version counter through a GORM handle,
// which may be transaction scoped.
type GormSource struct {
	db *gorm.DB
}

// NewGormSource wraps db as a registry Source.
func NewGormSource(db *gorm.DB) *GormSource {
	return &GormSource{db: db}
}

// FetchAll implements Source.
func (s *GormSource) FetchAll(ctx context.Context) ([]EnumKey, error) {
	var rows []EnumKey
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CurrentVersion implements Source.
func (s *GormSource) CurrentVersion(ctx context.Context) (int64, error) {
	var counter EnumKeyVersion
	err := s.db.WithContext(ctx).Order("id").Take(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return counter.Version, nil
}
