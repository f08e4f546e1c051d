package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/torralab/pulse/internal/enumkey"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	errMissingRegistry = errors.New("enum key registry is required")
	noOpLogger         = zap.NewNop()
)

type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew      = "accounts.service.new"
	opEnsureGroup     = "accounts.ensure_group"
	opEnsureDomain    = "accounts.ensure_domain"
	opEnsureUser      = "accounts.ensure_user"
	opDomainSummaries = "accounts.domain_summaries"
	opDomainOptions   = "accounts.domain_options"
	opGroupOptions    = "accounts.group_options"
	opLogAction       = "accounts.log_action"
	opRecentActions   = "accounts.recent_actions"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

type ServiceConfig struct {
	Database *gorm.DB
	Registry *enumkey.Registry
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service provisions and queries the account tables. Enum-typed columns are
// validated against the injected registry on every write.
type Service struct {
	db       *gorm.DB
	registry *enumkey.Registry
	clock    func() time.Time
	logger   *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.Registry == nil {
		return nil, newServiceError(opServiceNew, "missing_registry", errMissingRegistry)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:       cfg.Database,
		registry: cfg.Registry,
		clock:    clock,
		logger:   logger,
	}, nil
}

// EnsureGroup creates the group when missing and replaces its role grants
// with the given @ROLES keys.
func (s *Service) EnsureGroup(ctx context.Context, name, desc string, roleKeys []string) (*Group, error) {
	var group Group
	err := s.db.WithContext(ctx).Where("name = ?", name).Take(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		group = Group{Name: name, Desc: desc}
		if err := s.db.WithContext(ctx).Create(&group).Error; err != nil {
			s.logError(opEnsureGroup, "group_create_failed", err, zap.String("group", name))
			return nil, newServiceError(opEnsureGroup, "group_create_failed", err)
		}
	} else if err != nil {
		s.logError(opEnsureGroup, "group_select_failed", err, zap.String("group", name))
		return nil, newServiceError(opEnsureGroup, "group_select_failed", err)
	}

	association := s.db.WithContext(ctx).Model(&group).Association("Roles")
	if len(roleKeys) == 0 {
		if err := association.Clear(); err != nil {
			s.logError(opEnsureGroup, "role_clear_failed", err, zap.String("group", name))
			return nil, newServiceError(opEnsureGroup, "role_clear_failed", err)
		}
		return &group, nil
	}

	ids := make([]int64, 0, len(roleKeys))
	for _, key := range roleKeys {
		record, err := s.registry.Get(CategoryRoles, key)
		if err != nil {
			s.logError(opEnsureGroup, "role_lookup_failed", err,
				zap.String("group", name), zap.String("role", key))
			return nil, newServiceError(opEnsureGroup, "role_lookup_failed", err)
		}
		ids = append(ids, record.ID)
	}
	var roleRows []enumkey.EnumKey
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&roleRows).Error; err != nil {
		s.logError(opEnsureGroup, "role_fetch_failed", err, zap.String("group", name))
		return nil, newServiceError(opEnsureGroup, "role_fetch_failed", err)
	}
	if err := association.Replace(roleRows); err != nil {
		s.logError(opEnsureGroup, "role_replace_failed", err, zap.String("group", name))
		return nil, newServiceError(opEnsureGroup, "role_replace_failed", err)
	}
	return &group, nil
}

// DomainSpec describes a domain to provision.
type DomainSpec struct {
	Domain  string
	Desc    string
	Referer string
	AutoAdd bool
	TypeKey string
}

// EnsureDomain returns the domain with the given name, creating it with the
// @USERDOMAIN_TYPE key from spec when missing.
func (s *Service) EnsureDomain(ctx context.Context, spec DomainSpec) (*UserDomain, error) {
	var domain UserDomain
	err := s.db.WithContext(ctx).Where("domain = ?", spec.Domain).Take(&domain).Error
	if err == nil {
		return &domain, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logError(opEnsureDomain, "domain_select_failed", err, zap.String("domain", spec.Domain))
		return nil, newServiceError(opEnsureDomain, "domain_select_failed", err)
	}

	domain = UserDomain{
		Domain:  spec.Domain,
		Desc:    spec.Desc,
		Referer: spec.Referer,
		AutoAdd: spec.AutoAdd,
	}
	if err := domain.SetDomainType(s.registry, spec.TypeKey); err != nil {
		s.logError(opEnsureDomain, "domain_type_invalid", err,
			zap.String("domain", spec.Domain), zap.String("type", spec.TypeKey))
		return nil, newServiceError(opEnsureDomain, "domain_type_invalid", err)
	}
	if err := s.db.WithContext(ctx).Create(&domain).Error; err != nil {
		s.logError(opEnsureDomain, "domain_create_failed", err, zap.String("domain", spec.Domain))
		return nil, newServiceError(opEnsureDomain, "domain_create_failed", err)
	}
	return &domain, nil
}

// MembershipSpec attaches a user to a group by name.
type MembershipSpec struct {
	Group string
	Role  string
}

// UserSpec describes a user to provision.
type UserSpec struct {
	Login        string
	Email        string
	LastName     string
	FirstName    string
	Institution  string
	DomainID     int64
	PrimaryGroup string
	Memberships  []MembershipSpec
}

// EnsureUser returns the user with the given login, creating it and its group
// memberships when missing. Memberships are ensured even for existing users.
func (s *Service) EnsureUser(ctx context.Context, spec UserSpec) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("login = ?", spec.Login).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		primary, err := s.groupByName(ctx, spec.PrimaryGroup)
		if err != nil {
			s.logError(opEnsureUser, "primary_group_missing", err,
				zap.String("login", spec.Login), zap.String("group", spec.PrimaryGroup))
			return nil, newServiceError(opEnsureUser, "primary_group_missing", err)
		}
		user = User{
			Login:          spec.Login,
			Email:          spec.Email,
			LastName:       spec.LastName,
			FirstName:      spec.FirstName,
			Institution:    spec.Institution,
			DomainID:       spec.DomainID,
			PrimaryGroupID: primary.ID,
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			s.logError(opEnsureUser, "user_create_failed", err, zap.String("login", spec.Login))
			return nil, newServiceError(opEnsureUser, "user_create_failed", err)
		}
	} else if err != nil {
		s.logError(opEnsureUser, "user_select_failed", err, zap.String("login", spec.Login))
		return nil, newServiceError(opEnsureUser, "user_select_failed", err)
	}

	for _, membership := range spec.Memberships {
		group, err := s.groupByName(ctx, membership.Group)
		if err != nil {
			s.logError(opEnsureUser, "membership_group_missing", err,
				zap.String("login", spec.Login), zap.String("group", membership.Group))
			return nil, newServiceError(opEnsureUser, "membership_group_missing", err)
		}
		role := membership.Role
		if role == "" {
			role = MembershipMember
		}
		link := UserGroup{UserID: user.ID, GroupID: group.ID, Role: role}
		if err := s.db.WithContext(ctx).
			Where("user_id = ? AND group_id = ?", user.ID, group.ID).
			FirstOrCreate(&link).Error; err != nil {
			s.logError(opEnsureUser, "membership_create_failed", err,
				zap.String("login", spec.Login), zap.String("group", membership.Group))
			return nil, newServiceError(opEnsureUser, "membership_create_failed", err)
		}
	}
	return &user, nil
}

func (s *Service) groupByName(ctx context.Context, name string) (*Group, error) {
	var group Group
	if err := s.db.WithContext(ctx).Where("name = ?", name).Take(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// Option is one (id, label) pair for selection widgets.
type Option struct {
	ID    int64  `gorm:"column:id" json:"id"`
	Label string `gorm:"column:label" json:"label"`
}

// DomainOptions lists (id, domain) pairs ordered by domain name.
func (s *Service) DomainOptions(ctx context.Context) ([]Option, error) {
	var options []Option
	if err := s.db.WithContext(ctx).Model(&UserDomain{}).
		Select("id, domain AS label").
		Order("domain").
		Scan(&options).Error; err != nil {
		s.logError(opDomainOptions, "query_failed", err)
		return nil, newServiceError(opDomainOptions, "query_failed", err)
	}
	return options, nil
}

// GroupOptions lists (id, name) pairs ordered by group name.
func (s *Service) GroupOptions(ctx context.Context) ([]Option, error) {
	var options []Option
	if err := s.db.WithContext(ctx).Model(&Group{}).
		Select("id, name AS label").
		Order("name").
		Scan(&options).Error; err != nil {
		s.logError(opGroupOptions, "query_failed", err)
		return nil, newServiceError(opGroupOptions, "query_failed", err)
	}
	return options, nil
}

// DomainSummary is the admin listing row for a domain.
type DomainSummary struct {
	Domain     UserDomain
	DomainType string
	UserCount  int64
}

// DomainSummaries lists every domain with its resolved type key and user
// count, ordered by domain name.
func (s *Service) DomainSummaries(ctx context.Context) ([]DomainSummary, error) {
	var domains []UserDomain
	if err := s.db.WithContext(ctx).Order("domain").Find(&domains).Error; err != nil {
		s.logError(opDomainSummaries, "domain_query_failed", err)
		return nil, newServiceError(opDomainSummaries, "domain_query_failed", err)
	}

	type domainCount struct {
		DomainID int64 `gorm:"column:domain_id"`
		Count    int64 `gorm:"column:count"`
	}
	var counts []domainCount
	if err := s.db.WithContext(ctx).Model(&User{}).
		Select("domain_id, COUNT(*) AS count").
		Group("domain_id").
		Scan(&counts).Error; err != nil {
		s.logError(opDomainSummaries, "count_query_failed", err)
		return nil, newServiceError(opDomainSummaries, "count_query_failed", err)
	}
	countByDomain := make(map[int64]int64, len(counts))
	for _, row := range counts {
		countByDomain[row.DomainID] = row.Count
	}

	summaries := make([]DomainSummary, 0, len(domains))
	for i := range domains {
		record, err := domains[i].DomainTypeRecord(s.registry)
		if err != nil {
			s.logError(opDomainSummaries, "domain_type_unresolved", err,
				zap.String("domain", domains[i].Domain))
			return nil, newServiceError(opDomainSummaries, "domain_type_unresolved", err)
		}
		typeKey := ""
		if record != nil {
			typeKey = record.Key
		}
		summaries = append(summaries, DomainSummary{
			Domain:     domains[i],
			DomainType: typeKey,
			UserCount:  countByDomain[domains[i].ID],
		})
	}
	return summaries, nil
}

// LogAction appends an audit entry. The action key must resolve inside
// @ACTIONLOG or the entry is rejected.
func (s *Service) LogAction(ctx context.Context, userID *int64, actionKey, detail string) (*ActionLog, error) {
	entry := ActionLog{UserID: userID, Detail: detail, RecordedAt: s.clock().UTC()}
	if err := entry.SetAction(s.registry, actionKey); err != nil {
		s.logError(opLogAction, "action_invalid", err, zap.String("action", actionKey))
		return nil, newServiceError(opLogAction, "action_invalid", err)
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.logError(opLogAction, "insert_failed", err, zap.String("action", actionKey))
		return nil, newServiceError(opLogAction, "insert_failed", err)
	}
	return &entry, nil
}

// ActionEntry pairs an audit row with its resolved action key.
type ActionEntry struct {
	Entry  ActionLog
	Action string
}

// RecentActions returns the newest audit entries, newest first.
func (s *Service) RecentActions(ctx context.Context, limit int) ([]ActionEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []ActionLog
	if err := s.db.WithContext(ctx).
		Order("recorded_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		s.logError(opRecentActions, "query_failed", err)
		return nil, newServiceError(opRecentActions, "query_failed", err)
	}

	entries := make([]ActionEntry, 0, len(rows))
	for i := range rows {
		record, err := rows[i].ActionRecord(s.registry)
		if err != nil {
			s.logError(opRecentActions, "action_unresolved", err, zap.Int64("entry", rows[i].ID))
			return nil, newServiceError(opRecentActions, "action_unresolved", err)
		}
		key := ""
		if record != nil {
			key = record.Key
		}
		entries = append(entries, ActionEntry{Entry: rows[i], Action: key})
	}
	return entries, nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("accounts service error", attrs...)
}
