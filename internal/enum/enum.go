package enum

// ── Group A: Roles (CHECK constrained in DB) ──

const (
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
	RoleCashier = "CASHIER"
	RoleKitchen = "KITCHEN"
)

// ── Group B: Permissions (checked in middleware, not stored) ──

const (
	PermInventoryRead  = "inventory:read"
	PermInventoryWrite = "inventory:write"
	PermRecipeRead     = "recipe:read"
	PermRecipeWrite    = "recipe:write"
	PermRecipeUse      = "recipe:use"
	PermMenuRead       = "menu:read"
	PermMenuWrite      = "menu:write"
	PermTableRead      = "table:read"
	PermTableWrite     = "table:write"
	PermOrderRead      = "order:read"
	PermOrderWrite     = "order:write"
	PermOrderBill      = "order:bill"
	PermCouponRead     = "coupon:read"
	PermCouponWrite    = "coupon:write"
	PermReportRead     = "report:read"
)

// ── Group C: Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash  = "cash"
	PaymentMethodCard  = "card"
	PaymentMethodUPI   = "upi"
	PaymentMethodOther = "other"
)

// Reference prefixes written onto stock transactions.
const (
	ReferenceRecipe  = "recipe"
	ReferenceOpening = "opening-stock"
)
