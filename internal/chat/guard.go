package chat

// The guard is the single source of truth for role-based decisions.
// Every function is pure: it answers from the roles it is handed and
// never touches storage. Membership itself (is the actor in the chat
// at all) is resolved by the service before these run.
//
// All checks match role identity exactly. Rules like "admin or above"
// do not exist here; if a rule admits two roles it names both.

// CanUpdateChat returns true if the role may change chat name or
// description.
func CanUpdateChat(actor Role) bool {
	return actor == RoleOwner || actor == RoleAdmin
}

// CanDeleteChat returns true if the role may delete the chat entirely.
func CanDeleteChat(actor Role) bool {
	return actor == RoleOwner
}

// CanAddMember returns true if the role may add new members.
// Any member can invite; new members always join as DEFAULT.
func CanAddMember(actor Role) bool {
	return actor == RoleOwner || actor == RoleAdmin || actor == RoleDefault
}

// CanChangeRole returns true if the role may reassign member roles.
// Only the owner manages roles; promoting someone to OWNER transfers
// ownership and demotes the current owner to ADMIN.
func CanChangeRole(actor Role) bool {
	return actor == RoleOwner
}

// CanRemoveMember returns true if actor may remove a member holding
// target role. Nobody removes the owner. Admins are removable only by
// the owner; defaults by owner or admin.
func CanRemoveMember(actor, target Role) bool {
	if target == RoleOwner {
		return false
	}
	if target == RoleAdmin {
		return actor == RoleOwner
	}
	return actor == RoleOwner || actor == RoleAdmin
}

// CanLeave returns true if a member with this role may leave the chat
// voluntarily. The owner cannot leave; ownership must be transferred
// first.
func CanLeave(actor Role) bool {
	return actor != RoleOwner
}
