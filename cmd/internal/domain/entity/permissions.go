package entity

// Permission is a custom type for bitwise flags
type Permission int64

const (
	// PermissionAdministrator grants god-mode over platform level actions.
	// It does NOT bypass item visibility, which only follows ownership and memberships.
	PermissionAdministrator Permission = 1 << iota

	// PermissionCreateItems allows publishing items and drafts.
	PermissionCreateItems

	// PermissionCreateContainers allows opening new containers.
	PermissionCreateContainers

	// PermissionInteract allows liking, stocking and following.
	PermissionInteract
)

// DefaultPermissions is granted to every provisioned user.
const DefaultPermissions = PermissionCreateItems | PermissionCreateContainers | PermissionInteract

// Role claim values understood by PermissionsFromGroups.
const (
	GroupAdministrators = "administrators"
	GroupReadOnly       = "read-only"
)

// PermissionsFromGroups derives the platform permissions carried by the role
// claims of an identity token.
func PermissionsFromGroups(groups []string) Permission {
	perms := DefaultPermissions
	for _, g := range groups {
		switch g {
		case GroupAdministrators:
			perms = perms.Add(PermissionAdministrator)
		case GroupReadOnly:
			perms = perms.Remove(DefaultPermissions)
		}
	}
	return perms
}

// Has checks if the permission bitmask contains ALL bits
// requested in 'target'. It ignores Administrator status.
// Logic: (p & target) == target
func (p Permission) Has(target Permission) bool {
	return (p & target) == target
}

// HasAny returns true if the user has ANY of the target permissions
func (p Permission) HasAny(target Permission) bool {
	return (p & target) > 0
}

// Add appends a permission to the bitmask
func (p Permission) Add(perm Permission) Permission {
	return p | perm
}

// Remove clears a permission from the bitmask
func (p Permission) Remove(perm Permission) Permission {
	return p &^ perm
}

// HasEffective checks if the permission bitmask contains the target bits
// OR if the permission includes Administrator
func (p Permission) HasEffective(target Permission) bool {
	return p.Has(PermissionAdministrator) || p.Has(target)
}
