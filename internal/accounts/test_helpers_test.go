package accounts

import (
	"context"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/torralab/pulse/internal/enumkey"
)

func mustOpenDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&enumkey.EnumKey{},
		&enumkey.EnumKeyVersion{},
		&UserDomain{},
		&Group{},
		&User{},
		&UserGroup{},
		&ActionLog{},
	); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

func seedEnums(t *testing.T, db *gorm.DB) *enumkey.Registry {
	t.Helper()
	ctx := context.Background()
	specs := []enumkey.Spec{
		{Key: CategoryUserDomainType, Desc: "UserDomain types", Members: []enumkey.Spec{
			{Key: DomainTypeInternal, Desc: "internal userdomain"},
			{Key: DomainTypeLDAP, Desc: "LDAP userdomain"},
		}},
		{Key: CategoryRoles, Desc: "Group roles", Members: []enumkey.Spec{
			{Key: RoleSysAdm, Desc: "system administrator role"},
			{Key: RoleSysView, Desc: "system viewer role"},
			{Key: RolePublic, Desc: "public role"},
			{Key: RoleUser, Desc: "authenticated user role"},
		}},
		{Key: CategoryActionLog, Desc: "ActionLog", Members: []enumkey.Spec{
			{Key: ActionUserAdd, Desc: ":: added new user %s"},
			{Key: ActionGroupAdd, Desc: ":: added new group %s"},
		}},
	}
	if err := enumkey.UpsertSpecs(ctx, db, specs, true); err != nil {
		t.Fatalf("failed to seed enum rows: %v", err)
	}

	registry := enumkey.NewRegistry(enumkey.RegistryConfig{})
	if err := registry.LoadAll(ctx, enumkey.NewGormSource(db)); err != nil {
		t.Fatalf("failed to load registry: %v", err)
	}
	return registry
}

func mustService(t *testing.T, db *gorm.DB, registry *enumkey.Registry) *Service {
	t.Helper()
	service, err := NewService(ServiceConfig{Database: db, Registry: registry})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service
}
