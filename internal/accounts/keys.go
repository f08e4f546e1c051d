package accounts

// Enum category keys consumed by the account models.
const (
	CategoryBasic          = "@BASIC"
	CategoryUserDomainType = "@USERDOMAIN_TYPE"
	CategoryRoles          = "@ROLES"
	CategoryActionLog      = "@ACTIONLOG"
	CategoryFileType       = "@FILETYPE"
	CategoryMimeType       = "@MIMETYPE"
)

// Domain type keys under @USERDOMAIN_TYPE.
const (
	DomainTypeInternal = "Internal"
	DomainTypeLDAP     = "LDAP"
)

// Role keys under @ROLES. Groups grant them through the groups_roles table.
const (
	RoleSysAdm   = "~r|system-adm"
	RoleSysView  = "~r|system-viewer"
	RoleDataAdm  = "~r|data-adm"
	RoleDataView = "~r|data-viewer"
	RolePublic   = "~r|public"
	RoleUser     = "~r|user"
	RoleGuest    = "~r|guest"

	RoleEnumKeyCreate = "~r|enumkey|create"
	RoleEnumKeyModify = "~r|enumkey|modify"
	RoleEnumKeyView   = "~r|enumkey|view"
	RoleEnumKeyDelete = "~r|enumkey|delete"

	RoleUserDomainCreate = "~r|userdomain|create"
	RoleUserDomainModify = "~r|userdomain|modify"
	RoleUserDomainView   = "~r|userdomain|view"
	RoleUserDomainDelete = "~r|userdomain|delete"

	RoleUserCreate = "~r|user|create"
	RoleUserModify = "~r|user|modify"
	RoleUserView   = "~r|user|view"
	RoleUserDelete = "~r|user|delete"

	RoleGroupCreate  = "~r|group|create"
	RoleGroupModify  = "~r|group|modify"
	RoleGroupView    = "~r|group|view"
	RoleGroupDelete  = "~r|group|delete"
	RoleGroupAddUser = "~r|group|add-user"
	RoleGroupDelUser = "~r|group|del-user"
)

// Action keys under @ACTIONLOG. The enum row desc carries the message
// template for log rendering.
const (
	ActionUserAdd      = "~user/add"
	ActionUserModify   = "~user/mod"
	ActionUserDelete   = "~user/del"
	ActionGroupAdd     = "~group/add"
	ActionGroupModify  = "~group/mod"
	ActionGroupDelete  = "~group/del"
	ActionGroupAddUser = "~group/adduser"
	ActionGroupDelUser = "~group/deluser"
	ActionEnumKeyAdd   = "~ek/add"
	ActionEnumKeyMod   = "~ek/mod"
	ActionEnumKeyDel   = "~ek/del"

	ActionUserClassAdd    = "~userclass/add"
	ActionUserClassModify = "~userclass/mod"
	ActionUserClassDelete = "~userclass/del"
)

// Membership roles on the users_groups link table.
const (
	MembershipMember = "M"
	MembershipAdmin  = "A"
)
