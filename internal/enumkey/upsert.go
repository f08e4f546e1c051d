package enumkey

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Spec describes one enum row to ensure, with nested member rows. Fixture
// data is declared as Spec trees and pushed through UpsertSpecs.
type Spec struct {
	Key        string
	Desc       string
	SysKey     bool
	Data       []byte
	IsCategory *bool
	Members    []Spec
}

// isCategoryUnder decides the is_category flag: an explicit value wins, a
// node with members is a category, and so is any root.
func (s Spec) isCategoryUnder(parent *EnumKey) bool {
	if s.IsCategory != nil {
		return *s.IsCategory
	}
	if len(s.Members) > 0 {
		return true
	}
	return parent == nil
}

// UpsertSpec ensures the row described by spec exists under parent (nil for a
// root), creating it or, when update is set, refreshing its mutable columns,
// then recurses into members. Returns the persisted row.
func UpsertSpec(ctx context.Context, db *gorm.DB, spec Spec, parent *EnumKey, update bool) (*EnumKey, error) {
	isCategory := spec.isCategoryUnder(parent)

	row, err := FetchByKey(ctx, db, spec.Key, parent)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = &EnumKey{
			Key:        spec.Key,
			Desc:       spec.Desc,
			SysKey:     spec.SysKey,
			Data:       spec.Data,
			IsCategory: isCategory,
		}
		if parent != nil {
			row.CategoryID = &parent.ID
		}
		if err := db.WithContext(ctx).Create(row).Error; err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case update:
		row.Desc = spec.Desc
		row.SysKey = spec.SysKey
		row.Data = spec.Data
		row.IsCategory = isCategory
		if err := db.WithContext(ctx).Save(row).Error; err != nil {
			return nil, err
		}
	}

	for _, member := range spec.Members {
		if _, err := UpsertSpec(ctx, db, member, row, update); err != nil {
			return nil, err
		}
	}
	return row, nil
}

// UpsertSpecs runs UpsertSpec over each root spec in order.
func UpsertSpecs(ctx context.Context, db *gorm.DB, specs []Spec, update bool) error {
	for _, spec := range specs {
		if _, err := UpsertSpec(ctx, db, spec, nil, update); err != nil {
			return err
		}
	}
	return nil
}
