// Package fixtures seeds a database with the stock enum tree, groups, the
// system domain and its accounts. Loading is idempotent so it can run on
// every boot.
package fixtures

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/torralab/pulse/internal/accounts"
	"github.com/torralab/pulse/internal/enumkey"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	errMissingRegistry = errors.New("enum key registry is required")
)

// Config carries the handles Load works against.
type Config struct {
	Database *gorm.DB
	Registry *enumkey.Registry
	Logger   *zap.Logger
}

// Result reports how many rows Load created. Zero across the board means the
// database already carried the stock data.
type Result struct {
	EnumKeys int64
	Groups   int64
	Domains  int64
	Users    int64
}

// Load ensures the stock rows exist and refreshes the registry afterwards.
// Existing rows are updated in place, never duplicated.
func Load(ctx context.Context, cfg Config) (Result, error) {
	if cfg.Database == nil {
		return Result{}, errMissingDatabase
	}
	if cfg.Registry == nil {
		return Result{}, errMissingRegistry
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := accounts.NewService(accounts.ServiceConfig{
		Database: cfg.Database,
		Registry: cfg.Registry,
		Logger:   logger,
	})
	if err != nil {
		return Result{}, err
	}

	var result Result

	enumsBefore, err := tableCount(ctx, cfg.Database, &enumkey.EnumKey{})
	if err != nil {
		return result, fmt.Errorf("count enum keys: %w", err)
	}
	specs := enumKeySpecs()
	for i := range specs {
		specs[i] = normalizeSpec(specs[i], true)
	}
	if err := enumkey.UpsertSpecs(ctx, cfg.Database, specs, true); err != nil {
		return result, fmt.Errorf("seed enum keys: %w", err)
	}
	enumsAfter, err := tableCount(ctx, cfg.Database, &enumkey.EnumKey{})
	if err != nil {
		return result, fmt.Errorf("count enum keys: %w", err)
	}
	result.EnumKeys = enumsAfter - enumsBefore

	// The group and account seeds below resolve enum keys, so the registry
	// must see the rows written above first.
	if err := cfg.Registry.EnsureCurrent(ctx, enumkey.NewGormSource(cfg.Database)); err != nil {
		return result, fmt.Errorf("refresh registry: %w", err)
	}

	groupsBefore, err := tableCount(ctx, cfg.Database, &accounts.Group{})
	if err != nil {
		return result, fmt.Errorf("count groups: %w", err)
	}
	for _, grant := range groupGrants() {
		if _, err := service.EnsureGroup(ctx, grant.name, grant.name, grant.roles); err != nil {
			return result, err
		}
	}
	groupsAfter, err := tableCount(ctx, cfg.Database, &accounts.Group{})
	if err != nil {
		return result, fmt.Errorf("count groups: %w", err)
	}
	result.Groups = groupsAfter - groupsBefore

	domainsBefore, err := tableCount(ctx, cfg.Database, &accounts.UserDomain{})
	if err != nil {
		return result, fmt.Errorf("count domains: %w", err)
	}
	usersBefore, err := tableCount(ctx, cfg.Database, &accounts.User{})
	if err != nil {
		return result, fmt.Errorf("count users: %w", err)
	}
	for _, seed := range seedDomains() {
		desc := seed.desc
		if desc == "" {
			desc = seed.domain
		}
		typeKey := seed.typeKey
		if typeKey == "" {
			typeKey = accounts.DomainTypeInternal
		}
		domain, err := service.EnsureDomain(ctx, accounts.DomainSpec{
			Domain:  seed.domain,
			Desc:    desc,
			TypeKey: typeKey,
		})
		if err != nil {
			return result, err
		}
		for _, user := range seed.users {
			if _, err := service.EnsureUser(ctx, userSpec(domain, user)); err != nil {
				return result, err
			}
		}
	}
	domainsAfter, err := tableCount(ctx, cfg.Database, &accounts.UserDomain{})
	if err != nil {
		return result, fmt.Errorf("count domains: %w", err)
	}
	usersAfter, err := tableCount(ctx, cfg.Database, &accounts.User{})
	if err != nil {
		return result, fmt.Errorf("count users: %w", err)
	}
	result.Domains = domainsAfter - domainsBefore
	result.Users = usersAfter - usersBefore

	logger.Info("seed data ensured",
		zap.Int64("enumkeys", result.EnumKeys),
		zap.Int64("groups", result.Groups),
		zap.Int64("domains", result.Domains),
		zap.Int64("users", result.Users))
	return result, nil
}

// normalizeSpec fills empty descriptions with the key itself and marks
// top-level entries as system keys.
func normalizeSpec(spec enumkey.Spec, root bool) enumkey.Spec {
	if spec.Desc == "" {
		spec.Desc = spec.Key
	}
	spec.SysKey = root
	for i := range spec.Members {
		spec.Members[i] = normalizeSpec(spec.Members[i], false)
	}
	return spec
}

// userSpec expands a fixture user: the email defaults to login@domain, the
// last name to the login, and the primary group always gets a membership.
func userSpec(domain *accounts.UserDomain, user seedUser) accounts.UserSpec {
	email := user.email
	if email == "" {
		email = fmt.Sprintf("%s@%s", user.login, strings.ToLower(domain.Domain))
	}
	lastName := user.lastName
	if lastName == "" {
		lastName = user.login
	}

	memberships := make([]accounts.MembershipSpec, 0, len(user.memberships)+1)
	seen := make(map[string]bool, len(user.memberships)+1)
	for _, membership := range user.memberships {
		if membership.group == "" || seen[membership.group] {
			continue
		}
		seen[membership.group] = true
		memberships = append(memberships, accounts.MembershipSpec{
			Group: membership.group,
			Role:  membershipRole(membership.role),
		})
	}
	if user.primaryGroup != "" && !seen[user.primaryGroup] {
		memberships = append(memberships, accounts.MembershipSpec{
			Group: user.primaryGroup,
			Role:  accounts.MembershipMember,
		})
	}

	return accounts.UserSpec{
		Login:        user.login,
		Email:        email,
		LastName:     lastName,
		FirstName:    user.firstName,
		Institution:  user.institution,
		DomainID:     domain.ID,
		PrimaryGroup: user.primaryGroup,
		Memberships:  memberships,
	}
}

func membershipRole(role string) string {
	role = strings.ToUpper(strings.TrimSpace(role))
	if role == "" {
		return accounts.MembershipMember
	}
	return role[:1]
}

func tableCount(ctx context.Context, db *gorm.DB, model any) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(model).Count(&count).Error
	return count, err
}
