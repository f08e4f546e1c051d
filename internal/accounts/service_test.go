package accounts

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/torralab/pulse/internal/enumkey"
)

func TestEnsureGroupCreatesAndReplacesRoles(t *testing.T) {
	db := mustOpenDB(t, "accounts_ensure_group")
	registry := seedEnums(t, db)
	service := mustService(t, db, registry)
	ctx := context.Background()

	group, err := service.EnsureGroup(ctx, "_SysAdm_", "System administrators",
		[]string{RoleSysAdm, RoleSysView})
	if err != nil {
		t.Fatalf("ensure group failed: %v", err)
	}
	if group.ID == 0 || group.UUID == "" {
		t.Fatalf("group not persisted: %#v", group)
	}

	var loaded Group
	if err := db.Preload("Roles").Where("name = ?", "_SysAdm_").Take(&loaded).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	keys := loaded.RoleKeys()
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != RoleSysAdm || keys[1] != RoleSysView {
		t.Fatalf("unexpected role grants: %v", keys)
	}

	// A repeated call keeps a single group and swaps the grants.
	if _, err := service.EnsureGroup(ctx, "_SysAdm_", "System administrators",
		[]string{RolePublic}); err != nil {
		t.Fatalf("repeat ensure failed: %v", err)
	}
	var count int64
	if err := db.Model(&Group{}).Where("name = ?", "_SysAdm_").Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one group, got %d", count)
	}
	if err := db.Preload("Roles").Where("name = ?", "_SysAdm_").Take(&loaded).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if keys := loaded.RoleKeys(); len(keys) != 1 || keys[0] != RolePublic {
		t.Fatalf("expected replaced grants, got %v", keys)
	}
}

func TestEnsureGroupRejectsUnknownRole(t *testing.T) {
	db := mustOpenDB(t, "accounts_group_bad_role")
	registry := seedEnums(t, db)
	service := mustService(t, db, registry)

	_, err := service.EnsureGroup(context.Background(), "_Bad_", "", []string{"~r|no-such-role"})
	if !errors.Is(err, enumkey.ErrValueNotFound) {
		t.Fatalf("expected value-not-found, got %v", err)
	}
}

func TestEnsureDomainAndUserFlow(t *testing.T) {
	db := mustOpenDB(t, "accounts_domain_user")
	registry := seedEnums(t, db)
	service := mustService(t, db, registry)
	ctx := context.Background()

	domain, err := service.EnsureDomain(ctx, DomainSpec{
		Domain:  "_SYSTEM_",
		Desc:    "System domain",
		TypeKey: DomainTypeInternal,
	})
	if err != nil {
		t.Fatalf("ensure domain failed: %v", err)
	}
	if _, err := service.EnsureGroup(ctx, "_SysAdm_", "", []string{RoleSysAdm}); err != nil {
		t.Fatalf("ensure group failed: %v", err)
	}
	if _, err := service.EnsureGroup(ctx, "_User_", "", []string{RoleUser}); err != nil {
		t.Fatalf("ensure group failed: %v", err)
	}

	user, err := service.EnsureUser(ctx, UserSpec{
		Login:        "sysadm",
		Email:        "sysadm@localhost",
		LastName:     "Admin",
		FirstName:    "System",
		DomainID:     domain.ID,
		PrimaryGroup: "_SysAdm_",
		Memberships: []MembershipSpec{
			{Group: "_SysAdm_", Role: MembershipAdmin},
			{Group: "_User_"},
		},
	})
	if err != nil {
		t.Fatalf("ensure user failed: %v", err)
	}
	if user.DomainID != domain.ID {
		t.Fatalf("user not attached to domain: %#v", user)
	}
	if got := user.Name(); got != "Admin, System" {
		t.Fatalf("unexpected listing name %q", got)
	}

	var memberships []UserGroup
	if err := db.Where("user_id = ?", user.ID).Order("group_id").Find(&memberships).Error; err != nil {
		t.Fatalf("membership query failed: %v", err)
	}
	if len(memberships) != 2 {
		t.Fatalf("expected 2 memberships, got %d", len(memberships))
	}
	if memberships[0].Role != MembershipAdmin {
		t.Fatalf("expected admin membership, got %q", memberships[0].Role)
	}
	if memberships[1].Role != MembershipMember {
		t.Fatalf("expected default member role, got %q", memberships[1].Role)
	}

	// A second run creates nothing new.
	if _, err := service.EnsureUser(ctx, UserSpec{
		Login:        "sysadm",
		DomainID:     domain.ID,
		PrimaryGroup: "_SysAdm_",
		Memberships:  []MembershipSpec{{Group: "_SysAdm_", Role: MembershipAdmin}},
	}); err != nil {
		t.Fatalf("repeat ensure user failed: %v", err)
	}
	var userCount, linkCount int64
	if err := db.Model(&User{}).Count(&userCount).Error; err != nil {
		t.Fatalf("user count failed: %v", err)
	}
	if err := db.Model(&UserGroup{}).Count(&linkCount).Error; err != nil {
		t.Fatalf("link count failed: %v", err)
	}
	if userCount != 1 || linkCount != 2 {
		t.Fatalf("expected idempotent provisioning, got %d users %d links", userCount, linkCount)
	}
}

func TestEnsureDomainRejectsUnknownType(t *testing.T) {
	db := mustOpenDB(t, "accounts_domain_bad_type")
	registry := seedEnums(t, db)
	service := mustService(t, db, registry)

	_, err := service.EnsureDomain(context.Background(), DomainSpec{Domain: "_X_", TypeKey: "Bogus"})
	if !errors.Is(err, enumkey.ErrValueNotFound) {
		t.Fatalf("expected value-not-found, got %v", err)
	}
	var count int64
	if err := db.Model(&UserDomain{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("rejected domain should not be persisted, found %d rows", count)
	}
}

func TestOptionsAreOrderedByLabel(t *testing.T) {
	db := mustOpenDB(t, "accounts_options")
	registry := seedEnums(t, db)
	service := mustService(t, db, registry)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha"} {
		if _, err := service.EnsureDomain(ctx, DomainSpec{Domain: name, TypeKey: DomainTypeInternal}); err != nil {
			t.Fatalf("ensure domain %s failed: %v", name, err)
		}
	}
	for _, name := range []string{"_User_", "_DataAdm_"} {
		if _, err := service.EnsureGroup(ctx, name, "", nil); err != nil {
			t.Fatalf("ensure group %s failed: %v", name, err)
		}
	}

	domains, err := service.DomainOptions(ctx)
	if err != nil {
		t.Fatalf("domain options failed: %v", err)
	}
	if len(domains) != 2 || domains[0].Label != "alpha" || domains[1].Label != "zeta" {
		t.Fatalf("unexpected domain options: %#v", domains)
	}
	if domains[0].ID == 0 {
		t.Fatalf("option id missing: %#v", domains[0])
	}

	groups, err := service.GroupOptions(ctx)
	if err != nil {
		t.Fatalf("group options failed: %v", err)
	}
	if len(groups) != 2 || groups[0].Label != "_DataAdm_" || groups[1].Label != "_User_" {
		t.Fatalf("unexpected group options: %#v", groups)
	}
}

func TestDomainSummaries(t *testing.T) {
	db := mustOpenDB(t, "accounts_summaries")
	registry := seedEnums(t, db)
	service := mustService(t, db, registry)
	ctx := context.Background()

	domain, err := service.EnsureDomain(ctx, DomainSpec{Domain: "_SYSTEM_", TypeKey: DomainTypeInternal})
	if err != nil {
		t.Fatalf("ensure domain failed: %v", err)
	}
	if _, err := service.EnsureGroup(ctx, "_User_", "", nil); err != nil {
		t.Fatalf("ensure group failed: %v", err)
	}
	for _, login := range []string{"alice", "bob"} {
		if _, err := service.EnsureUser(ctx, UserSpec{
			Login:        login,
			Email:        login + "@localhost",
			DomainID:     domain.ID,
			PrimaryGroup: "_User_",
		}); err != nil {
			t.Fatalf("ensure user %s failed: %v", login, err)
		}
	}

	summaries, err := service.DomainSummaries(ctx)
	if err != nil {
		t.Fatalf("summaries failed: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected one summary, got %d", len(summaries))
	}
	if summaries[0].DomainType != DomainTypeInternal {
		t.Fatalf("unexpected domain type: %q", summaries[0].DomainType)
	}
	if summaries[0].UserCount != 2 {
		t.Fatalf("expected 2 users, got %d", summaries[0].UserCount)
	}
}

func TestLogActionValidatesAndLists(t *testing.T) {
	db := mustOpenDB(t, "accounts_actionlog")
	registry := seedEnums(t, db)
	clock := time.Unix(1700000000, 0)
	service, err := NewService(ServiceConfig{
		Database: db,
		Registry: registry,
		Clock:    func() time.Time { return clock },
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	ctx := context.Background()

	entry, err := service.LogAction(ctx, nil, ActionUserAdd, "sysadm")
	if err != nil {
		t.Fatalf("log action failed: %v", err)
	}
	if id, ok := entry.Action.ID(); !ok || id == 0 {
		t.Fatalf("action foreign key not set: %#v", entry)
	}
	if !entry.RecordedAt.Equal(clock.UTC()) {
		t.Fatalf("unexpected recorded time: %v", entry.RecordedAt)
	}

	// Role keys do not live in @ACTIONLOG.
	if _, err := service.LogAction(ctx, nil, RoleSysAdm, "x"); !errors.Is(err, enumkey.ErrValueNotFound) {
		t.Fatalf("expected value-not-found, got %v", err)
	}
	var count int64
	if err := db.Model(&ActionLog{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("rejected entry should not be persisted, found %d rows", count)
	}

	clock = clock.Add(time.Minute)
	if _, err := service.LogAction(ctx, nil, ActionGroupAdd, "_User_"); err != nil {
		t.Fatalf("second log action failed: %v", err)
	}
	entries, err := service.RecentActions(ctx, 10)
	if err != nil {
		t.Fatalf("recent actions failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Action != ActionGroupAdd || entries[1].Action != ActionUserAdd {
		t.Fatalf("entries not newest-first: %#v", entries)
	}
}
