package auth

import "github.com/tavola-pos/backoffice/internal/enum"

// rolePermissions is the static grant table. ADMIN is not listed: it holds
// every permission.
var rolePermissions = map[string]map[string]bool{
	enum.RoleManager: {
		enum.PermInventoryRead:  true,
		enum.PermInventoryWrite: true,
		enum.PermRecipeRead:     true,
		enum.PermRecipeWrite:    true,
		enum.PermRecipeUse:      true,
		enum.PermMenuRead:       true,
		enum.PermMenuWrite:      true,
		enum.PermTableRead:      true,
		enum.PermTableWrite:     true,
		enum.PermOrderRead:      true,
		enum.PermOrderWrite:     true,
		enum.PermOrderBill:      true,
		enum.PermCouponRead:     true,
		enum.PermCouponWrite:    true,
		enum.PermReportRead:     true,
	},
	enum.RoleCashier: {
		enum.PermMenuRead:   true,
		enum.PermTableRead:  true,
		enum.PermTableWrite: true,
		enum.PermOrderRead:  true,
		enum.PermOrderWrite: true,
		enum.PermOrderBill:  true,
		enum.PermCouponRead: true,
	},
	enum.RoleKitchen: {
		enum.PermInventoryRead: true,
		enum.PermRecipeRead:    true,
		enum.PermRecipeUse:     true,
		enum.PermMenuRead:      true,
		enum.PermOrderRead:     true,
		enum.PermOrderWrite:    true,
	},
}

// HasPermission reports whether the holder of claims may perform perm.
func HasPermission(claims *Claims, perm string) bool {
	if claims == nil {
		return false
	}
	if claims.Role == enum.RoleAdmin {
		return true
	}
	return rolePermissions[claims.Role][perm]
}

// ValidRole reports whether role is one of the known admin roles.
func ValidRole(role string) bool {
	if role == enum.RoleAdmin {
		return true
	}
	_, ok := rolePermissions[role]
	return ok
}
