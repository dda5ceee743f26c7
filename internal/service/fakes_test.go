package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tavola-pos/backoffice/internal/database"
)

// --- In-memory database ---

// memState is everything a transaction can roll back.
type memState struct {
	items       map[string]database.InventoryItem
	txns        map[string]database.StockTransaction
	recipes     map[string]database.Recipe
	ingredients map[string][]database.RecipeIngredient
	menu        map[string]database.MenuItem
	tables      map[string]database.RestaurantTable
	orders      map[string]database.Order
	orderItems  map[string][]database.OrderItem
	coupons     map[string]database.Coupon
	nextLineID  int64
}

func (s memState) clone() memState {
	c := memState{
		items:       make(map[string]database.InventoryItem, len(s.items)),
		txns:        make(map[string]database.StockTransaction, len(s.txns)),
		recipes:     make(map[string]database.Recipe, len(s.recipes)),
		ingredients: make(map[string][]database.RecipeIngredient, len(s.ingredients)),
		menu:        make(map[string]database.MenuItem, len(s.menu)),
		tables:      make(map[string]database.RestaurantTable, len(s.tables)),
		orders:      make(map[string]database.Order, len(s.orders)),
		orderItems:  make(map[string][]database.OrderItem, len(s.orderItems)),
		coupons:     make(map[string]database.Coupon, len(s.coupons)),
		nextLineID:  s.nextLineID,
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.txns {
		c.txns[k] = v
	}
	for k, v := range s.recipes {
		c.recipes[k] = v
	}
	for k, v := range s.ingredients {
		c.ingredients[k] = append([]database.RecipeIngredient(nil), v...)
	}
	for k, v := range s.menu {
		c.menu[k] = v
	}
	for k, v := range s.tables {
		c.tables[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.orderItems {
		c.orderItems[k] = append([]database.OrderItem(nil), v...)
	}
	for k, v := range s.coupons {
		c.coupons[k] = v
	}
	return c
}

// failure makes the at-th call (1-based) of a store method return err.
type failure struct {
	at  int
	err error
}

// memDB implements TxBeginner and every store interface. A transaction holds
// mu from Begin to Commit/Rollback, so transactions are fully serialised.
type memDB struct {
	mu        sync.Mutex
	state     memState
	commitErr error
	failures  map[string]failure
	calls     map[string]int
}

func newMemDB() *memDB {
	return &memDB{
		state:    memState{}.clone(),
		failures: map[string]failure{},
		calls:    map[string]int{},
	}
}

func (m *memDB) Begin(ctx context.Context) (pgx.Tx, error) {
	m.mu.Lock()
	return &memTx{db: m, snap: m.state.clone()}, nil
}

// failAt arranges for the n-th call of method to return err.
func (m *memDB) failAt(method string, n int, err error) {
	m.failures[method] = failure{at: n, err: err}
}

func (m *memDB) hit(method string) error {
	m.calls[method]++
	if f, ok := m.failures[method]; ok && f.at == m.calls[method] {
		return f.err
	}
	return nil
}

// snapshot reads committed state from outside a transaction.
func (m *memDB) snapshot() memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

// memTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type memTx struct {
	db   *memDB
	snap memState
	done bool
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	defer t.db.mu.Unlock()
	if err := t.db.commitErr; err != nil {
		t.db.state = t.snap
		return err
	}
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.db.state = t.snap
	t.db.mu.Unlock()
	return nil
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (t *memTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (t *memTx) Conn() *pgx.Conn { panic("not implemented") }

// --- Seeding helpers (call outside a transaction) ---

func (m *memDB) seedItem(id, name string, stock, avg string) {
	s := decimal.RequireFromString(stock)
	a := decimal.RequireFromString(avg)
	m.state.items[id] = database.InventoryItem{
		ItemID:             id,
		Name:               name,
		Category:           database.InventoryCategoryOther,
		Unit:               database.InventoryUnitKg,
		CurrentStock:       s,
		AverageCostPerUnit: a,
		TotalValue:         s.Mul(a),
		Status:             database.ItemStatusActive,
		IsActive:           true,
	}
}

func (m *memDB) seedRecipe(id string, serving int32, lines ...database.RecipeIngredient) {
	m.state.recipes[id] = database.Recipe{RecipeID: id, Name: id, ServingSize: serving, IsActive: true}
	for i := range lines {
		lines[i].RecipeID = id
		lines[i].Position = int32(i)
	}
	m.state.ingredients[id] = lines
}

func (m *memDB) seedMenu(id, price string) {
	m.state.menu[id] = database.MenuItem{MenuID: id, Name: id, Price: decimal.RequireFromString(price), IsAvailable: true, IsActive: true}
}

func (m *memDB) seedTable(id string, number int32) {
	m.state.tables[id] = database.RestaurantTable{TableID: id, TableNumber: number, Capacity: 4, Status: database.TableStatusAvailable}
}

func (m *memDB) seedOrder(id, tableID, subtotal string, status database.OrderStatus) {
	s := decimal.RequireFromString(subtotal)
	m.state.orders[id] = database.Order{
		OrderID:       id,
		TableID:       tableID,
		Subtotal:      s,
		Sgst:          decimal.RequireFromString("2.5"),
		Cgst:          decimal.RequireFromString("2.5"),
		TotalAmount:   s,
		Status:        status,
		PaymentStatus: database.PaymentStatusPending,
	}
}

func (m *memDB) seedCoupon(code, pct string, limit *int32) {
	lim := pgtype.Int4{}
	if limit != nil {
		lim = pgtype.Int4{Int32: *limit, Valid: true}
	}
	m.state.coupons[code] = database.Coupon{CouponCode: code, DiscountPercentage: decimal.RequireFromString(pct), TotalUsageLimit: lim}
}

func int32p(v int32) *int32 { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decp(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// --- Inventory ---

func (m *memDB) CreateInventoryItem(ctx context.Context, arg database.CreateInventoryItemParams) (database.InventoryItem, error) {
	if err := m.hit("CreateInventoryItem"); err != nil {
		return database.InventoryItem{}, err
	}
	if _, ok := m.state.items[arg.ItemID]; ok {
		return database.InventoryItem{}, uniqueViolation("inventory_items_pkey")
	}
	item := database.InventoryItem{
		ItemID:       arg.ItemID,
		Name:         arg.Name,
		Category:     arg.Category,
		Unit:         arg.Unit,
		MinimumStock: arg.MinimumStock,
		MaximumStock: arg.MaximumStock,
		Status:       arg.Status,
		IsPerishable: arg.IsPerishable,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.state.items[arg.ItemID] = item
	return item, nil
}

func (m *memDB) GetInventoryItem(ctx context.Context, itemID string) (database.InventoryItem, error) {
	item, ok := m.state.items[itemID]
	if !ok || !item.IsActive {
		return database.InventoryItem{}, pgx.ErrNoRows
	}
	return item, nil
}

func (m *memDB) GetInventoryItemForUpdate(ctx context.Context, itemID string) (database.InventoryItem, error) {
	return m.GetInventoryItem(ctx, itemID)
}

func (m *memDB) ApplyInventoryItemStock(ctx context.Context, arg database.ApplyInventoryItemStockParams) (database.InventoryItem, error) {
	if err := m.hit("ApplyInventoryItemStock"); err != nil {
		return database.InventoryItem{}, err
	}
	item, ok := m.state.items[arg.ItemID]
	if !ok || !item.IsActive || !item.CurrentStock.Equal(arg.PreviousStock) {
		return database.InventoryItem{}, pgx.ErrNoRows
	}
	item.CurrentStock = arg.CurrentStock
	item.AverageCostPerUnit = arg.AverageCostPerUnit
	item.TotalValue = arg.TotalValue
	item.UpdatedAt = time.Now()
	m.state.items[arg.ItemID] = item
	return item, nil
}

func (m *memDB) CreateStockTransaction(ctx context.Context, arg database.CreateStockTransactionParams) (database.StockTransaction, error) {
	if err := m.hit("CreateStockTransaction"); err != nil {
		return database.StockTransaction{}, err
	}
	if _, ok := m.state.txns[arg.TransactionID]; ok {
		return database.StockTransaction{}, uniqueViolation("stock_transactions_pkey")
	}
	t := database.StockTransaction{
		TransactionID:      arg.TransactionID,
		ItemID:             arg.ItemID,
		Type:               arg.Type,
		Quantity:           arg.Quantity,
		UnitCost:           arg.UnitCost,
		TotalCost:          arg.TotalCost,
		PreviousStock:      arg.PreviousStock,
		NewStock:           arg.NewStock,
		PerformedBy:        arg.PerformedBy,
		Reference:          arg.Reference,
		RelatedTransaction: arg.RelatedTransaction,
		Status:             database.TransactionStatusCompleted,
		Notes:              arg.Notes,
		CreatedAt:          time.Now(),
	}
	m.state.txns[arg.TransactionID] = t
	return t, nil
}

// txnsFor returns the recorded transactions of an item ordered by id.
func (s memState) txnsFor(itemID string) []database.StockTransaction {
	var out []database.StockTransaction
	for _, t := range s.txns {
		if t.ItemID == itemID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransactionID < out[j].TransactionID })
	return out
}

// --- Recipes ---

func (m *memDB) CreateRecipe(ctx context.Context, arg database.CreateRecipeParams) (database.Recipe, error) {
	if _, ok := m.state.recipes[arg.RecipeID]; ok {
		return database.Recipe{}, uniqueViolation("recipes_pkey")
	}
	r := database.Recipe{
		RecipeID:       arg.RecipeID,
		Name:           arg.Name,
		ServingSize:    arg.ServingSize,
		Instructions:   arg.Instructions,
		EstimatedCost:  arg.EstimatedCost,
		CostPerServing: arg.CostPerServing,
		IsActive:       true,
	}
	m.state.recipes[arg.RecipeID] = r
	return r, nil
}

func (m *memDB) GetRecipe(ctx context.Context, recipeID string) (database.Recipe, error) {
	r, ok := m.state.recipes[recipeID]
	if !ok || !r.IsActive {
		return database.Recipe{}, pgx.ErrNoRows
	}
	return r, nil
}

func (m *memDB) GetRecipeForUpdate(ctx context.Context, recipeID string) (database.Recipe, error) {
	return m.GetRecipe(ctx, recipeID)
}

func (m *memDB) UpdateRecipe(ctx context.Context, arg database.UpdateRecipeParams) (database.Recipe, error) {
	r, err := m.GetRecipe(ctx, arg.RecipeID)
	if err != nil {
		return r, err
	}
	r.Name = arg.Name
	r.ServingSize = arg.ServingSize
	r.Instructions = arg.Instructions
	r.EstimatedCost = arg.EstimatedCost
	r.CostPerServing = arg.CostPerServing
	m.state.recipes[arg.RecipeID] = r
	return r, nil
}

func (m *memDB) RecordRecipeUsage(ctx context.Context, arg database.RecordRecipeUsageParams) (database.Recipe, error) {
	if err := m.hit("RecordRecipeUsage"); err != nil {
		return database.Recipe{}, err
	}
	r, err := m.GetRecipe(ctx, arg.RecipeID)
	if err != nil {
		return r, err
	}
	r.UsageCount += arg.Multiplier
	r.LastUsed = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	m.state.recipes[arg.RecipeID] = r
	return r, nil
}

func (m *memDB) CreateRecipeIngredient(ctx context.Context, arg database.CreateRecipeIngredientParams) (database.RecipeIngredient, error) {
	ing := database.RecipeIngredient{
		RecipeID: arg.RecipeID,
		Position: arg.Position,
		ItemID:   arg.ItemID,
		Quantity: arg.Quantity,
		Unit:     arg.Unit,
	}
	m.state.ingredients[arg.RecipeID] = append(m.state.ingredients[arg.RecipeID], ing)
	return ing, nil
}

func (m *memDB) DeleteRecipeIngredients(ctx context.Context, recipeID string) error {
	delete(m.state.ingredients, recipeID)
	return nil
}

func (m *memDB) ListRecipeIngredients(ctx context.Context, recipeID string) ([]database.RecipeIngredient, error) {
	return append([]database.RecipeIngredient{}, m.state.ingredients[recipeID]...), nil
}

// --- Tables & menu ---

func (m *memDB) GetTable(ctx context.Context, tableID string) (database.RestaurantTable, error) {
	t, ok := m.state.tables[tableID]
	if !ok {
		return database.RestaurantTable{}, pgx.ErrNoRows
	}
	return t, nil
}

func (m *memDB) UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.RestaurantTable, error) {
	if err := m.hit("UpdateTableStatus"); err != nil {
		return database.RestaurantTable{}, err
	}
	t, ok := m.state.tables[arg.TableID]
	if !ok {
		return database.RestaurantTable{}, pgx.ErrNoRows
	}
	t.Status = arg.Status
	m.state.tables[arg.TableID] = t
	return t, nil
}

func (m *memDB) GetMenuItem(ctx context.Context, menuID string) (database.MenuItem, error) {
	mi, ok := m.state.menu[menuID]
	if !ok || !mi.IsActive {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	return mi, nil
}

// --- Orders ---

func (m *memDB) GetNextOrderNumber(ctx context.Context) (int32, error) {
	var last int32
	for _, o := range m.state.orders {
		if o.OrderNumber > last {
			last = o.OrderNumber
		}
	}
	return last + 1, nil
}

func (m *memDB) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	if err := m.hit("CreateOrder"); err != nil {
		return database.Order{}, err
	}
	if _, ok := m.state.orders[arg.OrderID]; ok {
		return database.Order{}, uniqueViolation("orders_pkey")
	}
	o := database.Order{
		OrderID:       arg.OrderID,
		OrderNumber:   arg.OrderNumber,
		TableID:       arg.TableID,
		TableNumber:   arg.TableNumber,
		Subtotal:      arg.Subtotal,
		Sgst:          arg.Sgst,
		Cgst:          arg.Cgst,
		Discount:      decimal.Zero,
		TotalAmount:   arg.TotalAmount,
		Status:        database.OrderStatusPending,
		PaymentStatus: database.PaymentStatusPending,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	m.state.orders[arg.OrderID] = o
	return o, nil
}

func (m *memDB) GetOrder(ctx context.Context, orderID string) (database.Order, error) {
	o, ok := m.state.orders[orderID]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *memDB) GetOrderForUpdate(ctx context.Context, orderID string) (database.Order, error) {
	return m.GetOrder(ctx, orderID)
}

func (m *memDB) UpdateOrderSubtotal(ctx context.Context, arg database.UpdateOrderSubtotalParams) (database.Order, error) {
	o, ok := m.state.orders[arg.OrderID]
	if !ok || o.IsGeneratedBill || IsTerminal(o.Status) {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Subtotal = arg.Subtotal
	o.TotalAmount = arg.Subtotal
	m.state.orders[arg.OrderID] = o
	return o, nil
}

func (m *memDB) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	o, ok := m.state.orders[arg.OrderID]
	if !ok || o.Status != arg.Status_2 {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = arg.Status
	m.state.orders[arg.OrderID] = o
	return o, nil
}

func (m *memDB) CancelOrder(ctx context.Context, orderID string) (database.Order, error) {
	o, ok := m.state.orders[orderID]
	if !ok || !CanTransition(o.Status, database.OrderStatusCancelled) {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = database.OrderStatusCancelled
	m.state.orders[orderID] = o
	return o, nil
}

func (m *memDB) MarkOrderBilled(ctx context.Context, arg database.MarkOrderBilledParams) (database.Order, error) {
	o, ok := m.state.orders[arg.OrderID]
	if !ok || o.IsGeneratedBill {
		return database.Order{}, pgx.ErrNoRows
	}
	o.TotalAmount = arg.TotalAmount
	o.Discount = arg.Discount
	o.Sgst = arg.Sgst
	o.Cgst = arg.Cgst
	o.IsGeneratedBill = true
	m.state.orders[arg.OrderID] = o
	return o, nil
}

func (m *memDB) CompleteOrder(ctx context.Context, arg database.CompleteOrderParams) (database.Order, error) {
	o, ok := m.state.orders[arg.OrderID]
	if !ok || IsTerminal(o.Status) {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = database.OrderStatusDone
	o.PaymentStatus = database.PaymentStatusPaid
	o.PaymentMethod = pgtype.Text{String: arg.PaymentMethod, Valid: true}
	m.state.orders[arg.OrderID] = o
	return o, nil
}

func (m *memDB) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	m.state.nextLineID++
	it := database.OrderItem{
		ID:       m.state.nextLineID,
		OrderID:  arg.OrderID,
		MenuID:   arg.MenuID,
		Quantity: arg.Quantity,
		Notes:    arg.Notes,
	}
	m.state.orderItems[arg.OrderID] = append(m.state.orderItems[arg.OrderID], it)
	return it, nil
}

func (m *memDB) DeleteOrderItems(ctx context.Context, orderID string) error {
	delete(m.state.orderItems, orderID)
	return nil
}

func (m *memDB) ListOrderItemsByOrder(ctx context.Context, orderID string) ([]database.OrderItem, error) {
	return append([]database.OrderItem{}, m.state.orderItems[orderID]...), nil
}

// --- Coupons ---

func (m *memDB) CreateCoupon(ctx context.Context, arg database.CreateCouponParams) (database.Coupon, error) {
	if _, ok := m.state.coupons[arg.CouponCode]; ok {
		return database.Coupon{}, uniqueViolation("coupons_pkey")
	}
	c := database.Coupon{
		CouponCode:         arg.CouponCode,
		DiscountPercentage: arg.DiscountPercentage,
		TotalUsageLimit:    arg.TotalUsageLimit,
	}
	m.state.coupons[arg.CouponCode] = c
	return c, nil
}

func (m *memDB) ConsumeCoupon(ctx context.Context, couponCode string) (database.Coupon, error) {
	c, ok := m.state.coupons[couponCode]
	if !ok {
		return database.Coupon{}, pgx.ErrNoRows
	}
	if c.TotalUsageLimit.Valid {
		if c.TotalUsageLimit.Int32 <= 0 {
			return database.Coupon{}, pgx.ErrNoRows
		}
		c.TotalUsageLimit.Int32--
	}
	m.state.coupons[couponCode] = c
	return c, nil
}

// --- Service constructors ---

func newTestStockService(db *memDB) *StockService {
	return NewStockService(db, func(database.DBTX) StockStore { return db })
}

func newTestRecipeService(db *memDB) *RecipeService {
	return NewRecipeService(db, func(database.DBTX) RecipeStore { return db }, nil)
}

func newTestOrderService(db *memDB) *OrderService {
	return NewOrderService(db, func(database.DBTX) OrderStore { return db }, dec("2.5"), dec("2.5"))
}

func newTestBillingService(db *memDB) *BillingService {
	return NewBillingService(db, func(database.DBTX) BillingStore { return db }, nil)
}

func newTestCouponService(db *memDB) *CouponService {
	return NewCouponService(db, func(database.DBTX) CouponStore { return db })
}
