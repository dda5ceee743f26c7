package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const recipeColumns = `recipeid, name, serving_size, instructions, estimated_cost, cost_per_serving,
	usage_count, last_used, is_active, created_at, updated_at`

func scanRecipe(row pgx.Row) (Recipe, error) {
	var r Recipe
	err := row.Scan(
		&r.RecipeID,
		&r.Name,
		&r.ServingSize,
		&r.Instructions,
		&r.EstimatedCost,
		&r.CostPerServing,
		&r.UsageCount,
		&r.LastUsed,
		&r.IsActive,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}

const createRecipe = `INSERT INTO recipes (
	recipeid, name, serving_size, instructions, estimated_cost, cost_per_serving
) VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + recipeColumns

type CreateRecipeParams struct {
	RecipeID       string          `json:"recipeid"`
	Name           string          `json:"name"`
	ServingSize    int32           `json:"serving_size"`
	Instructions   pgtype.Text     `json:"instructions"`
	EstimatedCost  decimal.Decimal `json:"estimated_cost"`
	CostPerServing decimal.Decimal `json:"cost_per_serving"`
}

func (q *Queries) CreateRecipe(ctx context.Context, arg CreateRecipeParams) (Recipe, error) {
	row := q.db.QueryRow(ctx, createRecipe,
		arg.RecipeID,
		arg.Name,
		arg.ServingSize,
		arg.Instructions,
		arg.EstimatedCost,
		arg.CostPerServing,
	)
	return scanRecipe(row)
}

const getRecipe = `SELECT ` + recipeColumns + `
FROM recipes
WHERE recipeid = $1 AND is_active = true`

func (q *Queries) GetRecipe(ctx context.Context, recipeID string) (Recipe, error) {
	row := q.db.QueryRow(ctx, getRecipe, recipeID)
	return scanRecipe(row)
}

const getRecipeForUpdate = `SELECT ` + recipeColumns + `
FROM recipes
WHERE recipeid = $1 AND is_active = true
FOR UPDATE`

func (q *Queries) GetRecipeForUpdate(ctx context.Context, recipeID string) (Recipe, error) {
	row := q.db.QueryRow(ctx, getRecipeForUpdate, recipeID)
	return scanRecipe(row)
}

const listRecipes = `SELECT ` + recipeColumns + `
FROM recipes
WHERE is_active = true
ORDER BY name
LIMIT $1 OFFSET $2`

type ListRecipesParams struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

func (q *Queries) ListRecipes(ctx context.Context, arg ListRecipesParams) ([]Recipe, error) {
	rows, err := q.db.Query(ctx, listRecipes, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Recipe{}
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateRecipe = `UPDATE recipes
SET name = $2, serving_size = $3, instructions = $4, estimated_cost = $5,
    cost_per_serving = $6, updated_at = now()
WHERE recipeid = $1 AND is_active = true
RETURNING ` + recipeColumns

type UpdateRecipeParams struct {
	RecipeID       string          `json:"recipeid"`
	Name           string          `json:"name"`
	ServingSize    int32           `json:"serving_size"`
	Instructions   pgtype.Text     `json:"instructions"`
	EstimatedCost  decimal.Decimal `json:"estimated_cost"`
	CostPerServing decimal.Decimal `json:"cost_per_serving"`
}

func (q *Queries) UpdateRecipe(ctx context.Context, arg UpdateRecipeParams) (Recipe, error) {
	row := q.db.QueryRow(ctx, updateRecipe,
		arg.RecipeID,
		arg.Name,
		arg.ServingSize,
		arg.Instructions,
		arg.EstimatedCost,
		arg.CostPerServing,
	)
	return scanRecipe(row)
}

const recordRecipeUsage = `UPDATE recipes
SET usage_count = usage_count + $2, last_used = now(), updated_at = now()
WHERE recipeid = $1 AND is_active = true
RETURNING ` + recipeColumns

type RecordRecipeUsageParams struct {
	RecipeID   string `json:"recipeid"`
	Multiplier int32  `json:"multiplier"`
}

func (q *Queries) RecordRecipeUsage(ctx context.Context, arg RecordRecipeUsageParams) (Recipe, error) {
	row := q.db.QueryRow(ctx, recordRecipeUsage, arg.RecipeID, arg.Multiplier)
	return scanRecipe(row)
}

const softDeleteRecipe = `UPDATE recipes
SET is_active = false, updated_at = now()
WHERE recipeid = $1 AND is_active = true
RETURNING recipeid`

func (q *Queries) SoftDeleteRecipe(ctx context.Context, recipeID string) (string, error) {
	row := q.db.QueryRow(ctx, softDeleteRecipe, recipeID)
	var id string
	err := row.Scan(&id)
	return id, err
}

const createRecipeIngredient = `INSERT INTO recipe_ingredients (recipeid, position, itemid, quantity, unit)
VALUES ($1, $2, $3, $4, $5)
RETURNING recipeid, position, itemid, quantity, unit`

type CreateRecipeIngredientParams struct {
	RecipeID string          `json:"recipeid"`
	Position int32           `json:"position"`
	ItemID   string          `json:"itemid"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
}

func (q *Queries) CreateRecipeIngredient(ctx context.Context, arg CreateRecipeIngredientParams) (RecipeIngredient, error) {
	row := q.db.QueryRow(ctx, createRecipeIngredient,
		arg.RecipeID,
		arg.Position,
		arg.ItemID,
		arg.Quantity,
		arg.Unit,
	)
	var i RecipeIngredient
	err := row.Scan(&i.RecipeID, &i.Position, &i.ItemID, &i.Quantity, &i.Unit)
	return i, err
}

const deleteRecipeIngredients = `DELETE FROM recipe_ingredients WHERE recipeid = $1`

func (q *Queries) DeleteRecipeIngredients(ctx context.Context, recipeID string) error {
	_, err := q.db.Exec(ctx, deleteRecipeIngredients, recipeID)
	return err
}

const listRecipeIngredients = `SELECT recipeid, position, itemid, quantity, unit
FROM recipe_ingredients
WHERE recipeid = $1
ORDER BY position`

func (q *Queries) ListRecipeIngredients(ctx context.Context, recipeID string) ([]RecipeIngredient, error) {
	rows, err := q.db.Query(ctx, listRecipeIngredients, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []RecipeIngredient{}
	for rows.Next() {
		var i RecipeIngredient
		if err := rows.Scan(&i.RecipeID, &i.Position, &i.ItemID, &i.Quantity, &i.Unit); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listTopRecipesByUsage = `SELECT ` + recipeColumns + `
FROM recipes
WHERE is_active = true AND usage_count > 0
ORDER BY usage_count DESC, name
LIMIT $1`

func (q *Queries) ListTopRecipesByUsage(ctx context.Context, limit int32) ([]Recipe, error) {
	rows, err := q.db.Query(ctx, listTopRecipesByUsage, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Recipe{}
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
