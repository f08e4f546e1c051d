package enumkey

import (
	"context"
	"testing"
)

func TestGormSourceCurrentVersionMissingRow(t *testing.T) {
	db := mustOpenDB(t, "source_missing_version")
	source := NewGormSource(db)

	version, err := source.CurrentVersion(context.Background())
	if err != nil {
		t.Fatalf("current version failed: %v", err)
	}
	if version != 0 {
		t.Fatalf("expected version 0 for missing counter row, got %d", version)
	}
}

func TestGormSourceCurrentVersionReadsCounter(t *testing.T) {
	db := mustOpenDB(t, "source_reads_version")
	if err := db.Create(&EnumKeyVersion{Version: 7}).Error; err != nil {
		t.Fatalf("failed to seed counter: %v", err)
	}
	source := NewGormSource(db)

	version, err := source.CurrentVersion(context.Background())
	if err != nil {
		t.Fatalf("current version failed: %v", err)
	}
	if version != 7 {
		t.Fatalf("expected version 7, got %d", version)
	}
}

func TestGormSourceFetchAllReturnsEveryRow(t *testing.T) {
	db := mustOpenDB(t, "source_fetch_all")
	root := mustCreate(t, db, &EnumKey{Key: "@ROLES", IsCategory: true})
	mustCreate(t, db, &EnumKey{Key: "admin", CategoryID: &root.ID})
	mustCreate(t, db, &EnumKey{Key: "editor", CategoryID: &root.ID})
	source := NewGormSource(db)

	rows, err := source.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("fetch all failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i-1].ID >= rows[i].ID {
			t.Fatalf("rows not ordered by id: %#v", rows)
		}
	}
}
