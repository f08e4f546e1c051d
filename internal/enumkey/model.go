package enumkey

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// EnumKey is one row of the enumkeys table: a category definition when
// IsCategory is set, otherwise a value belonging to CategoryID. A row may be
// both, so categories can nest.
type EnumKey struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Key        string    `gorm:"column:key;size:128;not null;uniqueIndex:uq_enumkeys_category_key,priority:2"`
	Desc       string    `gorm:"column:desc;size:128;not null;default:''"`
	Data       []byte    `gorm:"column:data"`
	SysKey     bool      `gorm:"column:syskey;not null;default:false"`
	CategoryID *int64    `gorm:"column:category_id;index;uniqueIndex:uq_enumkeys_category_key,priority:1"`
	IsCategory bool      `gorm:"column:is_category;not null;default:false"`
	GroupID    *int64    `gorm:"column:group_id"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

// TableName provides the explicit table binding for GORM.
func (EnumKey) TableName() string {
	return "enumkeys"
}

// Record converts the row for cache use. The caller guarantees CategoryID is
// set.
func (k *EnumKey) Record() Record {
	record := Record{ID: k.ID, Key: k.Key, Desc: k.Desc}
	if k.CategoryID != nil {
		record.CategoryID = *k.CategoryID
	}
	return record
}

// EnumKeyVersion is the single-row counter the registry polls to detect
// enumkeys mutations. Database triggers bump it on every write to enumkeys.
type EnumKeyVersion struct {
	ID      int64 `gorm:"column:id;primaryKey;autoIncrement"`
	Version int64 `gorm:"column:version;not null;default:1"`
}

// TableName provides the explicit table binding for GORM.
func (EnumKeyVersion) TableName() string {
	return "enumkey_versions"
}

// FetchByKey returns the row with the given key under parent; a nil parent
// selects root rows. Missing rows surface gorm.ErrRecordNotFound.
func FetchByKey(ctx context.Context, db *gorm.DB, key string, parent *EnumKey) (*EnumKey, error) {
	query := db.WithContext(ctx).Where("key = ?", key)
	if parent == nil {
		query = query.Where("category_id IS NULL")
	} else {
		query = query.Where("category_id = ?", parent.ID)
	}
	var row EnumKey
	if err := query.Take(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FetchRoots returns the top-level rows ordered by key.
func FetchRoots(ctx context.Context, db *gorm.DB) ([]EnumKey, error) {
	var rows []EnumKey
	if err := db.WithContext(ctx).
		Where("category_id IS NULL").
		Order("key").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
