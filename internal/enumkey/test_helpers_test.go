package enumkey

import (
	"context"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func categoryRow(id int64, key string) EnumKey {
	return EnumKey{ID: id, Key: key, IsCategory: true}
}

func valueRow(id int64, key, desc string, categoryID int64) EnumKey {
	return EnumKey{ID: id, Key: key, Desc: desc, CategoryID: &categoryID}
}

func mustLoadAll(t *testing.T, registry *Registry, source Source) {
	t.Helper()
	if err := registry.LoadAll(context.Background(), source); err != nil {
		t.Fatalf("load all failed: %v", err)
	}
}

func mustOpenDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&EnumKey{}, &EnumKeyVersion{}); err != nil {
		t.Fatalf("failed to migrate enumkey schema: %v", err)
	}
	return db
}

func mustCreate(t *testing.T, db *gorm.DB, row *EnumKey) *EnumKey {
	t.Helper()
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("failed to create enum row %q: %v", row.Key, err)
	}
	return row
}
