package policy

// Role is the closed set of account roles. Authorization is a total order
// over the three values; anything else parses to RoleUnknown and fails
// every check.
type Role string

const (
	RoleUnknown    Role = ""
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// ParseRole maps stored text to a Role, RoleUnknown for anything else.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleUser, RoleAdmin, RoleSuperadmin:
		return Role(s)
	default:
		return RoleUnknown
	}
}

// Rank gives the position of a role in the order user < admin < superadmin.
// RoleUnknown ranks below everything.
func (r Role) Rank() int {
	switch r {
	case RoleUser:
		return 1
	case RoleAdmin:
		return 2
	case RoleSuperadmin:
		return 3
	default:
		return 0
	}
}

func (r Role) String() string { return string(r) }

// CanListUsers reports whether actor may list all user accounts.
func CanListUsers(actor Role) bool {
	return actor.Rank() >= RoleAdmin.Rank()
}

// CanViewAllTasks reports whether actor may list tasks beyond its own.
func CanViewAllTasks(actor Role) bool {
	return actor.Rank() >= RoleAdmin.Rank()
}

// TaskOwnerFor resolves the owner of a task being created. Plain users
// always own what they create, whatever owner they asked for. Admins and
// superadmins may create for the requested owner, defaulting to themselves.
func TaskOwnerFor(actor Role, actorID, requestedOwnerID int) int {
	if actor.Rank() < RoleAdmin.Rank() || requestedOwnerID == 0 {
		return actorID
	}
	return requestedOwnerID
}

// CanModifyTask reports whether actor may patch the task owned by ownerID.
func CanModifyTask(actor Role, actorID, ownerID int) bool {
	return actorID == ownerID || actor.Rank() >= RoleAdmin.Rank()
}

// CanDeleteTask reports whether actor may delete the task owned by ownerID.
// Own tasks are always deletable. Otherwise a superadmin may delete any
// task, and an admin only tasks whose owner ranks below admin. An orphaned
// task (owner row gone) passes ownerRole RoleUnknown, which ranks below
// admin, so admins can clean those up.
func CanDeleteTask(actor Role, actorID, ownerID int, ownerRole Role) bool {
	if actorID == ownerID {
		return true
	}
	switch actor {
	case RoleSuperadmin:
		return true
	case RoleAdmin:
		return ownerRole.Rank() < RoleAdmin.Rank()
	default:
		return false
	}
}

// CanPromote reports whether actor may promote target to admin. Only
// accounts currently holding the user role are promotable; superadmin is
// never minted through this path.
func CanPromote(actor, target Role) bool {
	return actor.Rank() >= RoleAdmin.Rank() && target == RoleUser
}

// CanDemote reports whether actor may demote target back to user. Only a
// superadmin may demote, and only accounts currently holding admin.
func CanDemote(actor, target Role) bool {
	return actor == RoleSuperadmin && target == RoleAdmin
}

// CanDeleteUser reports whether actor may delete the target account.
// Superadmin accounts are never deletable, and an admin cannot delete a
// peer admin (same-rank refusal).
func CanDeleteUser(actor, target Role) bool {
	if actor.Rank() < RoleAdmin.Rank() {
		return false
	}
	if target == RoleSuperadmin {
		return false
	}
	if actor == RoleAdmin && target == RoleAdmin {
		return false
	}
	return true
}
