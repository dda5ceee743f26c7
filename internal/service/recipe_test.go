package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tavola-pos/backoffice/internal/database"
	"github.com/tavola-pos/backoffice/internal/inventory"
)

func ingLine(itemID, qty string) database.RecipeIngredient {
	return database.RecipeIngredient{ItemID: itemID, Quantity: dec(qty), Unit: "kg"}
}

func TestCreateRecipe_ComputesCost(t *testing.T) {
	db := newMemDB()
	db.seedItem("CHICKEN", "Chicken", "10", "50")
	db.seedItem("ONION", "Onion", "20", "1.5")
	svc := newTestRecipeService(db)

	res, err := svc.CreateRecipe(context.Background(), RecipeInput{
		RecipeID:    "R-CURRY",
		Name:        "Chicken Curry",
		ServingSize: 4,
		Ingredients: []IngredientInput{
			{ItemID: "CHICKEN", Quantity: dec("0.2")},
			{ItemID: "ONION", Quantity: dec("3"), Unit: "pcs"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.Recipe.CostPerServing.Equal(dec("14.5")) {
		t.Errorf("cost per serving: got %s, want 14.5", res.Recipe.CostPerServing)
	}
	if !res.Recipe.EstimatedCost.Equal(dec("58")) {
		t.Errorf("estimated cost: got %s, want 58", res.Recipe.EstimatedCost)
	}
	if len(res.Ingredients) != 2 {
		t.Fatalf("ingredients: got %d, want 2", len(res.Ingredients))
	}
	if res.Ingredients[0].Unit != "kg" {
		t.Errorf("default unit: got %q, want item unit kg", res.Ingredients[0].Unit)
	}
	if res.Ingredients[1].Unit != "pcs" {
		t.Errorf("explicit unit: got %q, want pcs", res.Ingredients[1].Unit)
	}
}

func TestCreateRecipe_Errors(t *testing.T) {
	db := newMemDB()
	db.seedItem("A", "A", "1", "1")
	db.seedRecipe("R-EXISTS", 1, ingLine("A", "1"))
	svc := newTestRecipeService(db)

	tests := []struct {
		name    string
		in      RecipeInput
		wantErr error
	}{
		{
			name:    "zero serving size",
			in:      RecipeInput{RecipeID: "R1", ServingSize: 0, Ingredients: []IngredientInput{{ItemID: "A", Quantity: dec("1")}}},
			wantErr: ErrInvalidServing,
		},
		{
			name:    "no ingredients",
			in:      RecipeInput{RecipeID: "R1", ServingSize: 1},
			wantErr: ErrNoIngredients,
		},
		{
			name:    "non-positive quantity",
			in:      RecipeInput{RecipeID: "R1", ServingSize: 1, Ingredients: []IngredientInput{{ItemID: "A", Quantity: dec("0")}}},
			wantErr: ErrInvalidQuantity,
		},
		{
			name:    "quantity finer than stock scale",
			in:      RecipeInput{RecipeID: "R1", ServingSize: 1, Ingredients: []IngredientInput{{ItemID: "A", Quantity: dec("0.00005")}}},
			wantErr: inventory.ErrTooPrecise,
		},
		{
			name:    "unknown item",
			in:      RecipeInput{RecipeID: "R1", ServingSize: 1, Ingredients: []IngredientInput{{ItemID: "GHOST", Quantity: dec("1")}}},
			wantErr: ErrItemNotFound,
		},
		{
			name:    "duplicate id",
			in:      RecipeInput{RecipeID: "R-EXISTS", ServingSize: 1, Ingredients: []IngredientInput{{ItemID: "A", Quantity: dec("1")}}},
			wantErr: ErrDuplicateID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateRecipe(context.Background(), tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestUpdateRecipe_ReplacesIngredients(t *testing.T) {
	db := newMemDB()
	db.seedItem("A", "A", "10", "2")
	db.seedItem("B", "B", "10", "3")
	db.seedRecipe("R1", 1, ingLine("A", "1"))
	svc := newTestRecipeService(db)

	res, err := svc.UpdateRecipe(context.Background(), RecipeInput{
		RecipeID:    "R1",
		Name:        "Renamed",
		ServingSize: 2,
		Ingredients: []IngredientInput{{ItemID: "B", Quantity: dec("2")}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Recipe.Name != "Renamed" || !res.Recipe.CostPerServing.Equal(dec("6")) || !res.Recipe.EstimatedCost.Equal(dec("12")) {
		t.Errorf("recipe: %+v", res.Recipe)
	}

	got := db.snapshot().ingredients["R1"]
	if len(got) != 1 || got[0].ItemID != "B" {
		t.Errorf("ingredients not replaced: %+v", got)
	}
}

func TestUpdateRecipe_NotFound(t *testing.T) {
	db := newMemDB()
	db.seedItem("A", "A", "10", "2")
	svc := newTestRecipeService(db)

	_, err := svc.UpdateRecipe(context.Background(), RecipeInput{
		RecipeID:    "MISSING",
		ServingSize: 1,
		Ingredients: []IngredientInput{{ItemID: "A", Quantity: dec("1")}},
	})
	if !errors.Is(err, ErrRecipeNotFound) {
		t.Fatalf("expected ErrRecipeNotFound, got %v", err)
	}
}

func TestCheckAvailability_MaxMultiplier(t *testing.T) {
	db := newMemDB()
	db.seedItem("A", "A", "7", "1")
	db.seedItem("B", "B", "10", "1")
	db.seedRecipe("R1", 1, ingLine("A", "2"), ingLine("B", "3"))
	svc := newTestRecipeService(db)

	av, err := svc.CheckAvailability(context.Background(), "R1", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !av.CanMake {
		t.Error("expected can make")
	}
	if av.MaxMultiplier != 3 {
		t.Errorf("max multiplier: got %d, want 3", av.MaxMultiplier)
	}

	av, err = svc.CheckAvailability(context.Background(), "R1", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if av.CanMake || len(av.Shortages) != 2 {
		t.Errorf("expected two shortages at x4, got %+v", av)
	}
}

func TestCheckAvailability_DuplicateItemsAggregated(t *testing.T) {
	db := newMemDB()
	db.seedItem("A", "A", "3", "1")
	db.seedRecipe("R1", 1, ingLine("A", "2"), ingLine("A", "2"))
	svc := newTestRecipeService(db)

	av, err := svc.CheckAvailability(context.Background(), "R1", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if av.CanMake {
		t.Fatal("expected combined requirement of 4 to exceed stock of 3")
	}
	if !av.Shortages[0].Required.Equal(dec("4")) {
		t.Errorf("required: got %s, want 4", av.Shortages[0].Required)
	}
}

func TestCheckAvailability_Errors(t *testing.T) {
	db := newMemDB()
	svc := newTestRecipeService(db)

	if _, err := svc.CheckAvailability(context.Background(), "R1", 0); !errors.Is(err, ErrInvalidMultiplier) {
		t.Errorf("expected ErrInvalidMultiplier, got %v", err)
	}
	if _, err := svc.CheckAvailability(context.Background(), "R1", 1); !errors.Is(err, ErrRecipeNotFound) {
		t.Errorf("expected ErrRecipeNotFound, got %v", err)
	}
}

func TestUse_DeductsEveryIngredient(t *testing.T) {
	db := newMemDB()
	db.seedItem("A", "A", "10", "2")
	db.seedItem("B", "B", "10", "4")
	db.seedRecipe("R1", 1, ingLine("A", "1.5"), ingLine("B", "2"))
	svc := newTestRecipeService(db)

	res, err := svc.Use(context.Background(), UseRequest{RecipeID: "R1", Multiplier: 2, PerformedBy: "chef"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Transactions) != 2 {
		t.Fatalf("transactions: got %d, want 2", len(res.Transactions))
	}
	for _, txn := range res.Transactions {
		if txn.Type != database.TransactionTypeUsage {
			t.Errorf("type: got %s, want usage", txn.Type)
		}
		if !strings.HasPrefix(txn.Reference.String, "recipe:R1") {
			t.Errorf("reference: got %q", txn.Reference.String)
		}
	}
	if res.Recipe.UsageCount != 2 {
		t.Errorf("usage count: got %d, want 2", res.Recipe.UsageCount)
	}
	if !res.Recipe.LastUsed.Valid {
		t.Error("expected last used to be set")
	}

	state := db.snapshot()
	if got := state.items["A"].CurrentStock; !got.Equal(dec("7")) {
		t.Errorf("A stock: got %s, want 7", got)
	}
	if got := state.items["B"].CurrentStock; !got.Equal(dec("6")) {
		t.Errorf("B stock: got %s, want 6", got)
	}
	a := state.txnsFor("A")
	if len(a) != 1 || !a[0].Quantity.Equal(dec("-3")) || !a[0].TotalCost.Equal(dec("6")) {
		t.Errorf("A transaction: %+v", a)
	}
}

func TestUse_ShortageIsAllOrNothing(t *testing.T) {
	db := newMemDB()
	db.seedItem("A", "Flour", "5", "1")
	db.seedItem("B", "Butter", "3", "1")
	db.seedRecipe("R1", 1, ingLine("A", "5"), ingLine("B", "2"))
	svc := newTestRecipeService(db)

	_, err := svc.Use(context.Background(), UseRequest{RecipeID: "R1", Multiplier: 2, PerformedBy: "chef"})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	var se *ShortageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ShortageError, got %T", err)
	}
	if len(se.Shortages) != 2 {
		t.Fatalf("shortages: got %+v, want both lines", se.Shortages)
	}

	_, err = svc.Use(context.Background(), UseRequest{RecipeID: "R1", Multiplier: 1, PerformedBy: "chef"})
	if err != nil {
		t.Fatalf("x1 should fit exactly: %v", err)
	}
	_, err = svc.Use(context.Background(), UseRequest{RecipeID: "R1", Multiplier: 1, PerformedBy: "chef"})
	if !errors.As(err, &se) {
		t.Fatalf("expected *ShortageError, got %v", err)
	}
	if len(se.Shortages) != 2 || se.Shortages[0].Name != "Flour" {
		t.Errorf("shortages: %+v", se.Shortages)
	}

	state := db.snapshot()
	if !state.items["A"].CurrentStock.IsZero() || !state.items["B"].CurrentStock.Equal(dec("1")) {
		t.Errorf("stock after one batch: A=%s B=%s", state.items["A"].CurrentStock, state.items["B"].CurrentStock)
	}
	if state.recipes["R1"].UsageCount != 1 {
		t.Errorf("usage count: got %d, want 1", state.recipes["R1"].UsageCount)
	}
}

func TestUse_OnlyShortItemReported(t *testing.T) {
	db := newMemDB()
	db.seedItem("A", "Rice", "5", "1")
	db.seedItem("B", "Ghee", "3", "1")
	db.seedRecipe("R1", 1, ingLine("A", "5"), ingLine("B", "4"))
	svc := newTestRecipeService(db)

	_, err := svc.Use(context.Background(), UseRequest{RecipeID: "R1", Multiplier: 1, PerformedBy: "chef"})
	var se *ShortageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ShortageError, got %v", err)
	}
	if len(se.Shortages) != 1 || se.Shortages[0].Name != "Ghee" {
		t.Errorf("shortages: %+v", se.Shortages)
	}
	if got := db.snapshot().items["A"].CurrentStock; !got.Equal(dec("5")) {
		t.Errorf("A stock touched: %s", got)
	}
}

func TestUse_MidBatchFailureRollsBackEarlierLines(t *testing.T) {
	db := newMemDB()
	db.seedItem("A", "A", "10", "1")
	db.seedItem("B", "B", "10", "1")
	db.seedRecipe("R1", 1, ingLine("A", "1"), ingLine("B", "1"))
	db.failAt("CreateStockTransaction", 2, errors.New("disk full"))
	svc := newTestRecipeService(db)

	_, err := svc.Use(context.Background(), UseRequest{RecipeID: "R1", Multiplier: 1, PerformedBy: "chef"})
	if err == nil {
		t.Fatal("expected error")
	}

	state := db.snapshot()
	if !state.items["A"].CurrentStock.Equal(dec("10")) || !state.items["B"].CurrentStock.Equal(dec("10")) {
		t.Errorf("partial depletion: A=%s B=%s", state.items["A"].CurrentStock, state.items["B"].CurrentStock)
	}
	if len(state.txns) != 0 {
		t.Errorf("expected no transactions, got %d", len(state.txns))
	}
	if state.recipes["R1"].UsageCount != 0 {
		t.Errorf("usage count: got %d, want 0", state.recipes["R1"].UsageCount)
	}
}

func TestUse_UsageCounterFailureRollsBack(t *testing.T) {
	db := newMemDB()
	db.seedItem("A", "A", "10", "1")
	db.seedRecipe("R1", 1, ingLine("A", "1"))
	db.failAt("RecordRecipeUsage", 1, errors.New("timeout"))
	svc := newTestRecipeService(db)

	if _, err := svc.Use(context.Background(), UseRequest{RecipeID: "R1", Multiplier: 1, PerformedBy: "chef"}); err == nil {
		t.Fatal("expected error")
	}
	if got := db.snapshot().items["A"].CurrentStock; !got.Equal(dec("10")) {
		t.Errorf("stock: got %s, want 10", got)
	}
}

func TestUse_Validation(t *testing.T) {
	db := newMemDB()
	svc := newTestRecipeService(db)

	if _, err := svc.Use(context.Background(), UseRequest{RecipeID: "R1", Multiplier: 0, PerformedBy: "chef"}); !errors.Is(err, ErrInvalidMultiplier) {
		t.Errorf("expected ErrInvalidMultiplier, got %v", err)
	}
	if _, err := svc.Use(context.Background(), UseRequest{RecipeID: "R1", Multiplier: 1}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if _, err := svc.Use(context.Background(), UseRequest{RecipeID: "R1", Multiplier: 1, PerformedBy: "chef"}); !errors.Is(err, ErrRecipeNotFound) {
		t.Errorf("expected ErrRecipeNotFound, got %v", err)
	}
}

type countingLocker struct {
	acquired []string
	released int
}

func (l *countingLocker) Acquire(ctx context.Context, key string) func() {
	l.acquired = append(l.acquired, key)
	return func() { l.released++ }
}

func TestUse_TakesRecipeLock(t *testing.T) {
	db := newMemDB()
	db.seedItem("A", "A", "10", "1")
	db.seedRecipe("R1", 1, ingLine("A", "1"))
	locker := &countingLocker{}
	svc := NewRecipeService(db, func(database.DBTX) RecipeStore { return db }, locker)

	if _, err := svc.Use(context.Background(), UseRequest{RecipeID: "R1", Multiplier: 1, PerformedBy: "chef"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(locker.acquired) != 1 || locker.acquired[0] != "recipe:R1" {
		t.Errorf("acquired: %v", locker.acquired)
	}
	if locker.released != 1 {
		t.Errorf("released: got %d, want 1", locker.released)
	}
}
