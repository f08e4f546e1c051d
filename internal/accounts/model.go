package accounts

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/torralab/pulse/internal/enumkey"
)

var (
	domainTypeProxy = enumkey.NewProxy("domain_type_id", CategoryUserDomainType)
	actionProxy     = enumkey.NewProxy("action_id", CategoryActionLog)
)

func newUUID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// UserDomain is an administrative domain users belong to. Its type column
// references an @USERDOMAIN_TYPE enum row.
type UserDomain struct {
	ID         int64       `gorm:"column:id;primaryKey;autoIncrement"`
	UUID       string      `gorm:"column:uuid;size:36;not null;uniqueIndex"`
	Domain     string      `gorm:"column:domain;size:16;not null;uniqueIndex"`
	Desc       string      `gorm:"column:desc;size:64;not null;default:''"`
	Referer    string      `gorm:"column:referer;size:128;not null;default:''"`
	AutoAdd    bool        `gorm:"column:autoadd;not null;default:false"`
	Flags      int64       `gorm:"column:flags;not null;default:0"`
	DomainType enumkey.Ref `gorm:"column:domain_type_id;not null;index"`
	Users      []User      `gorm:"foreignKey:DomainID"`
	CreatedAt  time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (UserDomain) TableName() string {
	return "userdomains"
}

// BeforeCreate assigns the public UUIDv7 identifier.
func (d *UserDomain) BeforeCreate(tx *gorm.DB) error {
	if d.UUID == "" {
		value, err := newUUID()
		if err != nil {
			return err
		}
		d.UUID = value
	}
	return nil
}

// DomainTypeRecord resolves the domain type through the registry.
func (d *UserDomain) DomainTypeRecord(reg *enumkey.Registry) (*enumkey.Record, error) {
	return domainTypeProxy.Get(reg, &d.DomainType)
}

// SetDomainType assigns the domain type; value may be an enum record, a
// persisted enum row, a string key, or a row id.
func (d *UserDomain) SetDomainType(reg *enumkey.Registry, value any) error {
	return domainTypeProxy.Set(reg, &d.DomainType, value)
}

// User is one account inside a domain.
type User struct {
	ID             int64       `gorm:"column:id;primaryKey;autoIncrement"`
	UUID           string      `gorm:"column:uuid;size:36;not null;uniqueIndex"`
	Login          string      `gorm:"column:login;size:32;not null;uniqueIndex"`
	Email          string      `gorm:"column:email;size:48;not null;uniqueIndex"`
	LastName       string      `gorm:"column:lastname;size:64;not null;default:''"`
	FirstName      string      `gorm:"column:firstname;size:64;not null;default:''"`
	Institution    string      `gorm:"column:institution;size:128;not null;default:''"`
	Address        string      `gorm:"column:address;size:128;not null;default:''"`
	Contact        string      `gorm:"column:contact;size:32;not null;default:''"`
	Status         bool        `gorm:"column:status;not null;default:true"`
	Flags          int64       `gorm:"column:flags;not null;default:0"`
	DomainID       int64       `gorm:"column:domain_id;not null;index"`
	PrimaryGroupID int64       `gorm:"column:primarygroup_id;not null;index"`
	Memberships    []UserGroup `gorm:"foreignKey:UserID"`
	CreatedAt      time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns the public UUIDv7 identifier.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UUID == "" {
		value, err := newUUID()
		if err != nil {
			return err
		}
		u.UUID = value
	}
	return nil
}

// Name renders the listing form "lastname, firstname".
func (u *User) Name() string {
	return u.LastName + ", " + u.FirstName
}

// Group is a named set of users. Role grants are @ROLES enum rows attached
// through the groups_roles table.
type Group struct {
	ID        int64             `gorm:"column:id;primaryKey;autoIncrement"`
	UUID      string            `gorm:"column:uuid;size:36;not null;uniqueIndex"`
	Name      string            `gorm:"column:name;size:32;not null;uniqueIndex"`
	Desc      string            `gorm:"column:desc;size:128;not null;default:''"`
	Flags     int64             `gorm:"column:flags;not null;default:0"`
	Roles     []enumkey.EnumKey `gorm:"many2many:groups_roles;joinForeignKey:GroupID;joinReferences:RoleID"`
	Members   []UserGroup       `gorm:"foreignKey:GroupID"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Group) TableName() string {
	return "groups"
}

// BeforeCreate assigns the public UUIDv7 identifier.
func (g *Group) BeforeCreate(tx *gorm.DB) error {
	if g.UUID == "" {
		value, err := newUUID()
		if err != nil {
			return err
		}
		g.UUID = value
	}
	return nil
}

// RoleKeys returns the keys of the loaded role rows.
func (g *Group) RoleKeys() []string {
	keys := make([]string, 0, len(g.Roles))
	for _, role := range g.Roles {
		keys = append(keys, role.Key)
	}
	return keys
}

// UserGroup links a user to a group with a membership role.
type UserGroup struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    int64     `gorm:"column:user_id;not null;uniqueIndex:uq_users_groups,priority:1"`
	GroupID   int64     `gorm:"column:group_id;not null;uniqueIndex:uq_users_groups,priority:2"`
	Role      string    `gorm:"column:role;size:1;not null;default:'M'"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (UserGroup) TableName() string {
	return "users_groups"
}

// ActionLog is the append-only audit trail of administrative actions. The
// action column references an @ACTIONLOG enum row whose desc doubles as the
// message template.
type ActionLog struct {
	ID         int64       `gorm:"column:id;primaryKey;autoIncrement"`
	UserID     *int64      `gorm:"column:user_id;index"`
	Action     enumkey.Ref `gorm:"column:action_id;not null;index"`
	Detail     string      `gorm:"column:detail;size:255;not null;default:''"`
	RecordedAt time.Time   `gorm:"column:recorded_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (ActionLog) TableName() string {
	return "actionlogs"
}

// ActionRecord resolves the logged action through the registry.
func (l *ActionLog) ActionRecord(reg *enumkey.Registry) (*enumkey.Record, error) {
	return actionProxy.Get(reg, &l.Action)
}

// SetAction assigns the action; value may be an enum record, a persisted enum
// row, a string key, or a row id.
func (l *ActionLog) SetAction(reg *enumkey.Registry, value any) error {
	return actionProxy.Set(reg, &l.Action, value)
}
