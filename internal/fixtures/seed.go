package fixtures

import (
	"github.com/torralab/pulse/internal/accounts"
	"github.com/torralab/pulse/internal/enumkey"
)

// enumKeySpecs returns the stock enum tree for a fresh installation. Empty
// descriptions fall back to the key itself when loaded.
func enumKeySpecs() []enumkey.Spec {
	return []enumkey.Spec{
		{
			Key:  accounts.CategoryBasic,
			Desc: "Basic common keywords",
			Members: []enumkey.Spec{
				{Key: ""},
				{Key: "X", Desc: "undefined"},
			},
		},
		{
			Key:  accounts.CategoryUserDomainType,
			Desc: "UserDomain types",
			Members: []enumkey.Spec{
				{Key: accounts.DomainTypeInternal, Desc: "internal userdomain managed by Pulse"},
				{Key: accounts.DomainTypeLDAP, Desc: "LDAP userdomain managed by external LDAP server"},
			},
		},
		{
			Key:  accounts.CategoryRoles,
			Desc: "Group roles",
			Members: []enumkey.Spec{
				{Key: accounts.RoleSysAdm, Desc: "system administrator role"},
				{Key: accounts.RoleSysView, Desc: "system viewer role"},
				{Key: accounts.RoleDataAdm, Desc: "data administrator role"},
				{Key: accounts.RoleDataView, Desc: "data viewer role"},
				{Key: accounts.RolePublic, Desc: "public role - all visitor"},
				{Key: accounts.RoleUser, Desc: "authenticated user role"},
				{Key: accounts.RoleGuest, Desc: "guest / anonymous user role"},
				{Key: accounts.RoleEnumKeyCreate, Desc: "create new EnumKey (EK)"},
				{Key: accounts.RoleEnumKeyModify, Desc: "modify EnumKey(EK)"},
				{Key: accounts.RoleEnumKeyView, Desc: "view EnumKey(EK)"},
				{Key: accounts.RoleEnumKeyDelete, Desc: "delete EnumKey (EK)"},
				{Key: accounts.RoleUserDomainCreate, Desc: "create new userdomain"},
				{Key: accounts.RoleUserDomainModify, Desc: "modify userdomain data"},
				{Key: accounts.RoleUserDomainView, Desc: "view userdomain data"},
				{Key: accounts.RoleUserDomainDelete, Desc: "delete userdomain data"},
				{Key: accounts.RoleUserCreate, Desc: "create new user"},
				{Key: accounts.RoleUserModify, Desc: "modify user data"},
				{Key: accounts.RoleUserView, Desc: "view user data"},
				{Key: accounts.RoleUserDelete, Desc: "delete user data"},
				{Key: accounts.RoleGroupCreate, Desc: "create new group"},
				{Key: accounts.RoleGroupModify, Desc: "modify group data"},
				{Key: accounts.RoleGroupView, Desc: "view group data"},
				{Key: accounts.RoleGroupDelete, Desc: "delete group data"},
				{Key: accounts.RoleGroupAddUser, Desc: "add new user to group"},
				{Key: accounts.RoleGroupDelUser, Desc: "remove user from group"},
			},
		},
		{
			Key:  accounts.CategoryActionLog,
			Desc: "ActionLog",
			Members: []enumkey.Spec{
				{Key: accounts.ActionUserAdd, Desc: ":: added new user %s"},
				{Key: accounts.ActionUserModify, Desc: ":: modified user %s"},
				{Key: accounts.ActionUserDelete, Desc: ":: deleted user %s"},
				{Key: accounts.ActionGroupAdd, Desc: ":: added new group %s"},
				{Key: accounts.ActionGroupModify, Desc: ":: modified group %s"},
				{Key: accounts.ActionGroupDelete, Desc: ":: deleted group %s"},
				{Key: accounts.ActionGroupAddUser, Desc: ":: added to group %s user %s"},
				{Key: accounts.ActionGroupDelUser, Desc: ":: deleted from group %s user %s"},
				{Key: accounts.ActionEnumKeyAdd, Desc: ":: added new EnumKey %s"},
				{Key: accounts.ActionEnumKeyMod, Desc: ":: modified EnumKey %s"},
				{Key: accounts.ActionEnumKeyDel, Desc: ":: deleted EnumKey %s"},
				{Key: accounts.ActionUserClassAdd, Desc: ":: added new userclass %s"},
				{Key: accounts.ActionUserClassModify, Desc: ":: modified userclass %s"},
				{Key: accounts.ActionUserClassDelete, Desc: ":: deleted userclass %s"},
			},
		},
		{
			Key:  accounts.CategoryFileType,
			Desc: "File type",
			Members: []enumkey.Spec{
				{Key: "file/file"},
				{Key: "file/folder"},
				{Key: "file/link"},
				{Key: "file/content"},
			},
		},
		{
			Key:  accounts.CategoryMimeType,
			Desc: "Mime type",
			Members: []enumkey.Spec{
				{Key: "application/x-directory"},
				{Key: "application/x-url"},
				{Key: "image/png"},
				{Key: "image/jpeg"},
				{Key: "image/gif"},
				{Key: "image/svg+xml"},
				{Key: "application/pdf"},
				{Key: "application/postscript"},
				{Key: "application/xml"},
				{Key: "application/json"},
				{Key: "application/octet-stream"},
				{Key: "application/unknown"},
				{Key: "text/plain"},
				{Key: "text/html"},
				{Key: "text/xml"},
				{Key: "text/x-rst", Desc: "mimetype reStructuredText"},
				{Key: "text/x-markdown", Desc: "mimetype MarkDown"},
				{Key: "text/x-mako", Desc: "mimetype Mako template"},
			},
		},
	}
}

// groupGrant pairs a group name with the @ROLES keys it grants.
type groupGrant struct {
	name  string
	roles []string
}

func groupGrants() []groupGrant {
	return []groupGrant{
		{name: "__default__", roles: []string{accounts.RolePublic}},
		{name: "_SysAdm_", roles: []string{accounts.RoleSysAdm, accounts.RoleSysView}},
		{name: "_EnumKeyMgr_", roles: []string{
			accounts.RoleEnumKeyCreate,
			accounts.RoleEnumKeyModify,
			accounts.RoleEnumKeyDelete,
			accounts.RoleEnumKeyView,
		}},
		{name: "_UserDomainMgr_", roles: []string{
			accounts.RoleUserDomainCreate,
			accounts.RoleUserDomainModify,
			accounts.RoleUserDomainDelete,
			accounts.RoleUserDomainView,
		}},
		{name: "_UserMgr_", roles: []string{
			accounts.RoleUserCreate,
			accounts.RoleUserModify,
			accounts.RoleUserDelete,
			accounts.RoleUserView,
		}},
		{name: "_GroupMgr_", roles: []string{
			accounts.RoleGroupCreate,
			accounts.RoleGroupModify,
			accounts.RoleGroupDelete,
			accounts.RoleGroupAddUser,
			accounts.RoleGroupDelUser,
			accounts.RoleGroupView,
		}},
		{name: "_DataAdm_", roles: []string{accounts.RoleDataAdm, accounts.RoleDataView}},
		{name: "_LogViewer_"},
		{name: "_SysViewer_", roles: []string{accounts.RoleSysView}},
		{name: "_User_", roles: []string{accounts.RoleUser}},
	}
}

type seedMembership struct {
	group string
	role  string
}

type seedUser struct {
	login        string
	email        string
	lastName     string
	firstName    string
	institution  string
	primaryGroup string
	memberships  []seedMembership
}

type seedDomain struct {
	domain  string
	desc    string
	typeKey string
	users   []seedUser
}

func seedDomains() []seedDomain {
	return []seedDomain{
		{
			domain:  "_SYSTEM_",
			desc:    "Pulse System",
			typeKey: accounts.DomainTypeInternal,
			users: []seedUser{
				{
					login:        "sysadm",
					email:        "sysadm@localhost",
					primaryGroup: "_SysAdm_",
					memberships: []seedMembership{
						{group: "_SysAdm_", role: accounts.MembershipAdmin},
						{group: "_User_", role: accounts.MembershipAdmin},
					},
				},
				{
					login:        "dbadm",
					email:        "dbadm@localhost",
					primaryGroup: "_DataAdm_",
					memberships: []seedMembership{
						{group: "_DataAdm_", role: accounts.MembershipAdmin},
					},
				},
				{
					login:        "anonymous",
					email:        "anonymous@localhost",
					primaryGroup: "_User_",
					memberships: []seedMembership{
						{group: "_User_", role: accounts.MembershipMember},
					},
				},
			},
		},
	}
}
