package utils

// Permission levels
const (
	AdminPermission     = "admin"
	ModeratorPermission = "moderator"
	GuestPermission     = "guest"
)

// contains checks if a slice of strings contains an element.
func contains(slice []string, item string) bool {
	for _, a := range slice {
		if a == item {
			return true
		}
	}
	return false
}

// CheckPermission returns the highest permission level the member's
// roles grant against the configured role lists.
func CheckPermission(memberRoleIDs, adminRoleIDs, modRoleIDs []string) string {
	for _, roleID := range memberRoleIDs {
		if contains(adminRoleIDs, roleID) {
			return AdminPermission
		}
	}
	for _, roleID := range memberRoleIDs {
		if contains(modRoleIDs, roleID) {
			return ModeratorPermission
		}
	}
	return GuestPermission
}
