package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/tavola-pos/backoffice/internal/database"
	"github.com/tavola-pos/backoffice/internal/enum"
	"github.com/tavola-pos/backoffice/internal/inventory"
	"github.com/tavola-pos/backoffice/internal/lock"
	"github.com/tavola-pos/backoffice/internal/logging"
)

// RecipeStore defines the DB methods needed for recipes and their depletion.
// Satisfied by *database.Queries.
type RecipeStore interface {
	StockStore
	GetInventoryItem(ctx context.Context, itemID string) (database.InventoryItem, error)
	CreateRecipe(ctx context.Context, arg database.CreateRecipeParams) (database.Recipe, error)
	GetRecipe(ctx context.Context, recipeID string) (database.Recipe, error)
	GetRecipeForUpdate(ctx context.Context, recipeID string) (database.Recipe, error)
	UpdateRecipe(ctx context.Context, arg database.UpdateRecipeParams) (database.Recipe, error)
	RecordRecipeUsage(ctx context.Context, arg database.RecordRecipeUsageParams) (database.Recipe, error)
	CreateRecipeIngredient(ctx context.Context, arg database.CreateRecipeIngredientParams) (database.RecipeIngredient, error)
	DeleteRecipeIngredients(ctx context.Context, recipeID string) error
	ListRecipeIngredients(ctx context.Context, recipeID string) ([]database.RecipeIngredient, error)
}

type NewRecipeStore func(db database.DBTX) RecipeStore

// RecipeInput is the validated input for creating or replacing a recipe.
type RecipeInput struct {
	RecipeID     string
	Name         string
	ServingSize  int32
	Instructions string
	Ingredients  []IngredientInput
}

// IngredientInput is one ingredient line; Quantity is per serving.
type IngredientInput struct {
	ItemID   string
	Quantity decimal.Decimal
	Unit     string
}

// RecipeResult is a recipe with its ordered ingredient lines.
type RecipeResult struct {
	Recipe      database.Recipe             `json:"recipe"`
	Ingredients []database.RecipeIngredient `json:"ingredients"`
}

// UseRequest asks for a recipe to be prepared Multiplier times.
type UseRequest struct {
	RecipeID    string
	Multiplier  int32
	PerformedBy string
	Notes       string
}

// UseResult lists the usage transactions written, one per ingredient line.
type UseResult struct {
	Recipe       database.Recipe             `json:"recipe"`
	Transactions []database.StockTransaction `json:"transactions"`
}

// RecipeService owns recipe costing and the all-or-nothing depletion of
// ingredients.
type RecipeService struct {
	pool     TxBeginner
	newStore NewRecipeStore
	locker   lock.Locker
}

func NewRecipeService(pool TxBeginner, newStore NewRecipeStore, locker lock.Locker) *RecipeService {
	if locker == nil {
		locker = lock.Noop{}
	}
	return &RecipeService{pool: pool, newStore: newStore, locker: locker}
}

// CreateRecipe validates the ingredients against the inventory and stores the
// recipe with its cost derived from current average costs.
func (s *RecipeService) CreateRecipe(ctx context.Context, in RecipeInput) (*RecipeResult, error) {
	if err := validateRecipeInput(in); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	lines, units, err := resolveIngredients(ctx, store, in.Ingredients)
	if err != nil {
		return nil, err
	}
	perServing, estimated := inventory.RecipeCost(lines, in.ServingSize)

	recipe, err := store.CreateRecipe(ctx, database.CreateRecipeParams{
		RecipeID:       in.RecipeID,
		Name:           in.Name,
		ServingSize:    in.ServingSize,
		Instructions:   optionalText(in.Instructions),
		EstimatedCost:  estimated,
		CostPerServing: perServing,
	})
	if err != nil {
		if isUniqueViolation(err, "") {
			return nil, fmt.Errorf("recipeid %q: %w", in.RecipeID, ErrDuplicateID)
		}
		return nil, fmt.Errorf("create recipe: %w", err)
	}

	ings, err := insertIngredients(ctx, store, recipe.RecipeID, in.Ingredients, units)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &RecipeResult{Recipe: recipe, Ingredients: ings}, nil
}

// UpdateRecipe replaces the recipe's fields and ingredient list and recomputes
// its cost. Usage counters are untouched.
func (s *RecipeService) UpdateRecipe(ctx context.Context, in RecipeInput) (*RecipeResult, error) {
	if err := validateRecipeInput(in); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.GetRecipeForUpdate(ctx, in.RecipeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%q: %w", in.RecipeID, ErrRecipeNotFound)
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}

	lines, units, err := resolveIngredients(ctx, store, in.Ingredients)
	if err != nil {
		return nil, err
	}
	perServing, estimated := inventory.RecipeCost(lines, in.ServingSize)

	recipe, err := store.UpdateRecipe(ctx, database.UpdateRecipeParams{
		RecipeID:       in.RecipeID,
		Name:           in.Name,
		ServingSize:    in.ServingSize,
		Instructions:   optionalText(in.Instructions),
		EstimatedCost:  estimated,
		CostPerServing: perServing,
	})
	if err != nil {
		return nil, fmt.Errorf("update recipe: %w", err)
	}

	if err := store.DeleteRecipeIngredients(ctx, in.RecipeID); err != nil {
		return nil, fmt.Errorf("delete recipe ingredients: %w", err)
	}
	ings, err := insertIngredients(ctx, store, recipe.RecipeID, in.Ingredients, units)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &RecipeResult{Recipe: recipe, Ingredients: ings}, nil
}

// CheckAvailability reports whether the recipe can be made multiplier times
// with current stock. It writes nothing.
func (s *RecipeService) CheckAvailability(ctx context.Context, recipeID string, multiplier int32) (*inventory.Availability, error) {
	if multiplier <= 0 {
		return nil, ErrInvalidMultiplier
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.GetRecipe(ctx, recipeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%q: %w", recipeID, ErrRecipeNotFound)
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	ings, err := store.ListRecipeIngredients(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("list recipe ingredients: %w", err)
	}

	items := make(map[string]database.InventoryItem, len(ings))
	for _, ing := range ings {
		if _, ok := items[ing.ItemID]; ok {
			continue
		}
		item, err := store.GetInventoryItem(ctx, ing.ItemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("ingredient %q: %w", ing.ItemID, ErrItemNotFound)
			}
			return nil, fmt.Errorf("get inventory item: %w", err)
		}
		items[ing.ItemID] = item
	}

	av := inventory.CheckAvailability(aggregateLines(ings, items), multiplier)
	return &av, nil
}

// Use deducts every ingredient for multiplier batches, or nothing. Stock is
// re-checked under row locks inside the transaction; an earlier
// CheckAvailability result is never trusted.
func (s *RecipeService) Use(ctx context.Context, req UseRequest) (*UseResult, error) {
	if req.Multiplier <= 0 {
		return nil, ErrInvalidMultiplier
	}
	if req.PerformedBy == "" {
		return nil, fmt.Errorf("%w: performed_by is required", ErrValidation)
	}

	release := s.locker.Acquire(ctx, "recipe:"+req.RecipeID)
	defer release()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.GetRecipeForUpdate(ctx, req.RecipeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%q: %w", req.RecipeID, ErrRecipeNotFound)
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	ings, err := store.ListRecipeIngredients(ctx, req.RecipeID)
	if err != nil {
		return nil, fmt.Errorf("list recipe ingredients: %w", err)
	}

	// Lock ingredient rows in item id order so two recipes sharing items
	// cannot deadlock.
	ids := make([]string, 0, len(ings))
	seen := make(map[string]bool, len(ings))
	for _, ing := range ings {
		if !seen[ing.ItemID] {
			seen[ing.ItemID] = true
			ids = append(ids, ing.ItemID)
		}
	}
	sort.Strings(ids)

	items := make(map[string]database.InventoryItem, len(ids))
	for _, id := range ids {
		item, err := store.GetInventoryItemForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("ingredient %q: %w", id, ErrItemNotFound)
			}
			return nil, fmt.Errorf("lock inventory item: %w", err)
		}
		items[id] = item
	}

	av := inventory.CheckAvailability(aggregateLines(ings, items), req.Multiplier)
	if !av.CanMake {
		return nil, &ShortageError{Shortages: av.Shortages}
	}

	m := decimal.NewFromInt32(req.Multiplier)
	ref := fmt.Sprintf("%s:%s x%d", enum.ReferenceRecipe, req.RecipeID, req.Multiplier)
	txns := make([]database.StockTransaction, 0, len(ings))
	for _, ing := range ings {
		res, err := recordTx(ctx, store, RecordRequest{
			ItemID:      ing.ItemID,
			Type:        database.TransactionTypeUsage,
			Quantity:    ing.Quantity.Mul(m),
			UnitCost:    items[ing.ItemID].AverageCostPerUnit,
			PerformedBy: req.PerformedBy,
			Reference:   ref,
			Notes:       req.Notes,
		})
		if err != nil {
			return nil, fmt.Errorf("ingredient %q: %w", ing.ItemID, err)
		}
		items[ing.ItemID] = res.Item
		txns = append(txns, res.Transaction)
	}

	recipe, err := store.RecordRecipeUsage(ctx, database.RecordRecipeUsageParams{
		RecipeID:   req.RecipeID,
		Multiplier: req.Multiplier,
	})
	if err != nil {
		return nil, fmt.Errorf("record recipe usage: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		logging.Alert(logging.FromContext(ctx), "service", "Use", "commit recipe depletion", req.RecipeID, err)
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	logging.FromContext(ctx).WithFields(logrus.Fields{
		"recipeid":     req.RecipeID,
		"multiplier":   req.Multiplier,
		"transactions": len(txns),
	}).Info("recipe used")

	return &UseResult{Recipe: recipe, Transactions: txns}, nil
}

// --- Helpers ---

func validateRecipeInput(in RecipeInput) error {
	if in.ServingSize <= 0 {
		return ErrInvalidServing
	}
	if len(in.Ingredients) == 0 {
		return ErrNoIngredients
	}
	for i, ing := range in.Ingredients {
		if !ing.Quantity.IsPositive() {
			return fmt.Errorf("ingredients[%d]: %w", i, ErrInvalidQuantity)
		}
		if !inventory.FitsScale(ing.Quantity) {
			return fmt.Errorf("%w: ingredients[%d]: %w", ErrValidation, i, inventory.ErrTooPrecise)
		}
	}
	return nil
}

// resolveIngredients loads each referenced item and returns costing lines
// plus the unit recorded for each ingredient (the item's unit when omitted).
func resolveIngredients(ctx context.Context, store RecipeStore, in []IngredientInput) ([]inventory.Line, []string, error) {
	lines := make([]inventory.Line, 0, len(in))
	units := make([]string, 0, len(in))
	for i, ing := range in {
		item, err := store.GetInventoryItem(ctx, ing.ItemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil, fmt.Errorf("ingredients[%d] %q: %w", i, ing.ItemID, ErrItemNotFound)
			}
			return nil, nil, fmt.Errorf("ingredients[%d]: get inventory item: %w", i, err)
		}
		unit := ing.Unit
		if unit == "" {
			unit = string(item.Unit)
		}
		lines = append(lines, inventory.Line{
			ItemID:     item.ItemID,
			Name:       item.Name,
			Unit:       unit,
			PerServing: ing.Quantity,
			Available:  item.CurrentStock,
			UnitCost:   item.AverageCostPerUnit,
		})
		units = append(units, unit)
	}
	return lines, units, nil
}

func insertIngredients(ctx context.Context, store RecipeStore, recipeID string, in []IngredientInput, units []string) ([]database.RecipeIngredient, error) {
	out := make([]database.RecipeIngredient, 0, len(in))
	for i, ing := range in {
		row, err := store.CreateRecipeIngredient(ctx, database.CreateRecipeIngredientParams{
			RecipeID: recipeID,
			Position: int32(i),
			ItemID:   ing.ItemID,
			Quantity: ing.Quantity,
			Unit:     units[i],
		})
		if err != nil {
			return nil, fmt.Errorf("ingredients[%d]: create: %w", i, err)
		}
		out = append(out, row)
	}
	return out, nil
}

// aggregateLines folds ingredient rows into one line per item, so an item
// listed twice is checked against its combined requirement.
func aggregateLines(ings []database.RecipeIngredient, items map[string]database.InventoryItem) []inventory.Line {
	idx := make(map[string]int, len(ings))
	lines := make([]inventory.Line, 0, len(ings))
	for _, ing := range ings {
		if i, ok := idx[ing.ItemID]; ok {
			lines[i].PerServing = lines[i].PerServing.Add(ing.Quantity)
			continue
		}
		item := items[ing.ItemID]
		idx[ing.ItemID] = len(lines)
		lines = append(lines, inventory.Line{
			ItemID:     ing.ItemID,
			Name:       item.Name,
			Unit:       string(item.Unit),
			PerServing: ing.Quantity,
			Available:  item.CurrentStock,
			UnitCost:   item.AverageCostPerUnit,
		})
	}
	return lines
}
