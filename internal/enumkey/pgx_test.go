package enumkey

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
)

func mustMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestPgxSourceCurrentVersionReadsCounter(t *testing.T) {
	mock := mustMockPool(t)
	mock.ExpectQuery(pgxSelectVersion).
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(int64(7)))

	version, err := NewPgxSource(mock).CurrentVersion(context.Background())
	if err != nil {
		t.Fatalf("current version failed: %v", err)
	}
	if version != 7 {
		t.Fatalf("expected version 7, got %d", version)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPgxSourceCurrentVersionMissingRow(t *testing.T) {
	mock := mustMockPool(t)
	mock.ExpectQuery(pgxSelectVersion).
		WillReturnRows(pgxmock.NewRows([]string{"version"}))

	version, err := NewPgxSource(mock).CurrentVersion(context.Background())
	if err != nil {
		t.Fatalf("missing counter row should read as zero: %v", err)
	}
	if version != 0 {
		t.Fatalf("expected version 0, got %d", version)
	}
}

func TestPgxSourceErrorPropagatesUnmodified(t *testing.T) {
	mock := mustMockPool(t)
	boom := errors.New("connection refused")
	mock.ExpectQuery(pgxSelectVersion).WillReturnError(boom)

	_, err := NewPgxSource(mock).CurrentVersion(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected the pool error, got %v", err)
	}
}

func TestRegistryLoadsThroughPgxSource(t *testing.T) {
	mock := mustMockPool(t)
	now := time.Now()
	categoryID := int64(1)

	mock.ExpectQuery(pgxSelectVersion).
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(int64(3)))
	mock.ExpectQuery(pgxSelectAll).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "key", "desc", "data", "syskey",
			"category_id", "is_category", "group_id", "created_at", "updated_at",
		}).
			AddRow(int64(1), "@ROLES", "Group roles", []byte(nil), true,
				(*int64)(nil), true, (*int64)(nil), now, now).
			AddRow(int64(2), "admin", "Administrator", []byte(nil), false,
				&categoryID, false, (*int64)(nil), now, now))

	registry := NewRegistry(RegistryConfig{})
	if err := registry.LoadAll(context.Background(), NewPgxSource(mock)); err != nil {
		t.Fatalf("load through pgx source failed: %v", err)
	}
	if registry.Version() != 3 {
		t.Fatalf("expected version 3, got %d", registry.Version())
	}
	record, err := registry.Get("@ROLES", "admin")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if record.ID != 2 || record.CategoryID != 1 {
		t.Fatalf("unexpected record %#v", record)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInstallVersionTriggersPgx(t *testing.T) {
	mock := mustMockPool(t)
	mock.ExpectExec(postgresBumpFunction).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(postgresDropTrigger).WillReturnResult(pgxmock.NewResult("DROP", 0))
	mock.ExpectExec(postgresCreateTrigger).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	if err := InstallVersionTriggersPgx(context.Background(), mock); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}

	mock.ExpectExec(postgresDropTrigger).WillReturnResult(pgxmock.NewResult("DROP", 0))
	if err := DropVersionTriggersPgx(context.Background(), mock); err != nil {
		t.Fatalf("drop failed: %v", err)
	}
}

func TestInstallVersionTriggersPgxSurfacesDDLFailure(t *testing.T) {
	mock := mustMockPool(t)
	boom := errors.New("permission denied")
	mock.ExpectExec(postgresBumpFunction).WillReturnError(boom)

	err := InstallVersionTriggersPgx(context.Background(), mock)
	if !errors.Is(err, boom) {
		t.Fatalf("expected the exec error, got %v", err)
	}
}
