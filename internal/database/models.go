package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusServed    OrderStatus = "served"
	OrderStatusDone      OrderStatus = "done"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "pending"
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusPartiallyPaid PaymentStatus = "partially_paid"
	PaymentStatusRefunded      PaymentStatus = "refunded"
)

type TransactionType string

const (
	TransactionTypePurchase   TransactionType = "purchase"
	TransactionTypeUsage      TransactionType = "usage"
	TransactionTypeWaste      TransactionType = "waste"
	TransactionTypeAdjustment TransactionType = "adjustment"
	TransactionTypeReturn     TransactionType = "return"
	TransactionTypeTransfer   TransactionType = "transfer"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

type InventoryCategory string

const (
	InventoryCategoryVegetables InventoryCategory = "vegetables"
	InventoryCategoryFruits     InventoryCategory = "fruits"
	InventoryCategoryMeat       InventoryCategory = "meat"
	InventoryCategorySeafood    InventoryCategory = "seafood"
	InventoryCategoryDairy      InventoryCategory = "dairy"
	InventoryCategoryGrains     InventoryCategory = "grains"
	InventoryCategorySpices     InventoryCategory = "spices"
	InventoryCategoryBeverages  InventoryCategory = "beverages"
	InventoryCategoryOils       InventoryCategory = "oils"
	InventoryCategoryPackaging  InventoryCategory = "packaging"
	InventoryCategoryCleaning   InventoryCategory = "cleaning"
	InventoryCategoryOther      InventoryCategory = "other"
)

type InventoryUnit string

const (
	InventoryUnitKg     InventoryUnit = "kg"
	InventoryUnitG      InventoryUnit = "g"
	InventoryUnitL      InventoryUnit = "l"
	InventoryUnitMl     InventoryUnit = "ml"
	InventoryUnitPcs    InventoryUnit = "pcs"
	InventoryUnitDozen  InventoryUnit = "dozen"
	InventoryUnitPacket InventoryUnit = "packet"
	InventoryUnitBox    InventoryUnit = "box"
)

type ItemStatus string

const (
	ItemStatusActive       ItemStatus = "active"
	ItemStatusInactive     ItemStatus = "inactive"
	ItemStatusDiscontinued ItemStatus = "discontinued"
)

type TableStatus string

const (
	TableStatusAvailable TableStatus = "available"
	TableStatusOccupied  TableStatus = "occupied"
	TableStatusReserved  TableStatus = "reserved"
)

type Admin struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"hashed_password"`
	FullName       string    `json:"full_name"`
	Role           string    `json:"role"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

type Category struct {
	CategoryID  string      `json:"categoryid"`
	Name        string      `json:"name"`
	Description pgtype.Text `json:"description"`
	SortOrder   int32       `json:"sort_order"`
	IsActive    bool        `json:"is_active"`
	CreatedAt   time.Time   `json:"created_at"`
}

type MenuItem struct {
	MenuID      string          `json:"menuid"`
	CategoryID  string          `json:"categoryid"`
	Name        string          `json:"name"`
	Description pgtype.Text     `json:"description"`
	Price       decimal.Decimal `json:"price"`
	IsAvailable bool            `json:"is_available"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type RestaurantTable struct {
	TableID     string      `json:"tableid"`
	TableNumber int32       `json:"table_number"`
	Capacity    int32       `json:"capacity"`
	Status      TableStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type InventoryItem struct {
	ItemID             string              `json:"itemid"`
	Name               string              `json:"name"`
	Category           InventoryCategory   `json:"category"`
	Unit               InventoryUnit       `json:"unit"`
	CurrentStock       decimal.Decimal     `json:"current_stock"`
	MinimumStock       decimal.Decimal     `json:"minimum_stock"`
	MaximumStock       decimal.NullDecimal `json:"maximum_stock"`
	AverageCostPerUnit decimal.Decimal     `json:"average_cost_per_unit"`
	TotalValue         decimal.Decimal     `json:"total_value"`
	Status             ItemStatus          `json:"status"`
	IsPerishable       bool                `json:"is_perishable"`
	IsActive           bool                `json:"is_active"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

type StockTransaction struct {
	TransactionID      string            `json:"transactionid"`
	ItemID             string            `json:"itemid"`
	Type               TransactionType   `json:"type"`
	Quantity           decimal.Decimal   `json:"quantity"`
	UnitCost           decimal.Decimal   `json:"unit_cost"`
	TotalCost          decimal.Decimal   `json:"total_cost"`
	PreviousStock      decimal.Decimal   `json:"previous_stock"`
	NewStock           decimal.Decimal   `json:"new_stock"`
	PerformedBy        string            `json:"performed_by"`
	Reference          pgtype.Text       `json:"reference"`
	RelatedTransaction pgtype.Text       `json:"related_transaction"`
	Status             TransactionStatus `json:"status"`
	Notes              pgtype.Text       `json:"notes"`
	CreatedAt          time.Time         `json:"created_at"`
}

type Recipe struct {
	RecipeID       string             `json:"recipeid"`
	Name           string             `json:"name"`
	ServingSize    int32              `json:"serving_size"`
	Instructions   pgtype.Text        `json:"instructions"`
	EstimatedCost  decimal.Decimal    `json:"estimated_cost"`
	CostPerServing decimal.Decimal    `json:"cost_per_serving"`
	UsageCount     int32              `json:"usage_count"`
	LastUsed       pgtype.Timestamptz `json:"last_used"`
	IsActive       bool               `json:"is_active"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

type RecipeIngredient struct {
	RecipeID string          `json:"recipeid"`
	Position int32           `json:"position"`
	ItemID   string          `json:"itemid"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
}

type Coupon struct {
	CouponCode         string          `json:"couponcode"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	TotalUsageLimit    pgtype.Int4     `json:"total_usage_limit"`
	CreatedAt          time.Time       `json:"created_at"`
}

type Order struct {
	OrderID         string          `json:"orderid"`
	OrderNumber     int32           `json:"order_number"`
	TableID         string          `json:"tableid"`
	TableNumber     int32           `json:"table_number"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Sgst            decimal.Decimal `json:"sgst"`
	Cgst            decimal.Decimal `json:"cgst"`
	Discount        decimal.Decimal `json:"discount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          OrderStatus     `json:"status"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	IsGeneratedBill bool            `json:"is_generated_bill"`
	PaymentMethod   pgtype.Text     `json:"payment_method"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type OrderItem struct {
	ID       int64       `json:"id"`
	OrderID  string      `json:"orderid"`
	MenuID   string      `json:"menuid"`
	Quantity int32       `json:"quantity"`
	Notes    pgtype.Text `json:"notes"`
}
