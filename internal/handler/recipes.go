package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/tavola-pos/backoffice/internal/database"
	"github.com/tavola-pos/backoffice/internal/enum"
	"github.com/tavola-pos/backoffice/internal/inventory"
	"github.com/tavola-pos/backoffice/internal/middleware"
	"github.com/tavola-pos/backoffice/internal/service"
)

// RecipeServicer defines the service methods needed by recipe handlers.
// Satisfied by *service.RecipeService.
type RecipeServicer interface {
	CreateRecipe(ctx context.Context, in service.RecipeInput) (*service.RecipeResult, error)
	UpdateRecipe(ctx context.Context, in service.RecipeInput) (*service.RecipeResult, error)
	CheckAvailability(ctx context.Context, recipeID string, multiplier int32) (*inventory.Availability, error)
	Use(ctx context.Context, req service.UseRequest) (*service.UseResult, error)
}

// RecipeStore defines the database methods needed by recipe read handlers.
// Satisfied by *database.Queries.
type RecipeStore interface {
	GetRecipe(ctx context.Context, recipeID string) (database.Recipe, error)
	ListRecipes(ctx context.Context, arg database.ListRecipesParams) ([]database.Recipe, error)
	ListRecipeIngredients(ctx context.Context, recipeID string) ([]database.RecipeIngredient, error)
	SoftDeleteRecipe(ctx context.Context, recipeID string) (string, error)
}

// RecipeHandler handles recipe endpoints.
type RecipeHandler struct {
	svc   RecipeServicer
	store RecipeStore
}

// NewRecipeHandler creates a new RecipeHandler.
func NewRecipeHandler(svc RecipeServicer, store RecipeStore) *RecipeHandler {
	return &RecipeHandler{svc: svc, store: store}
}

// RegisterRoutes registers recipe endpoints. Expected to be mounted at /recipes.
func (h *RecipeHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(enum.PermRecipeRead)).Get("/", h.List)
	r.With(middleware.RequirePermission(enum.PermRecipeRead)).Get("/{id}", h.Get)
	r.With(middleware.RequirePermission(enum.PermRecipeRead)).Get("/{id}/availability", h.Availability)
	r.With(middleware.RequirePermission(enum.PermRecipeWrite)).Post("/", h.Create)
	r.With(middleware.RequirePermission(enum.PermRecipeWrite)).Put("/{id}", h.Update)
	r.With(middleware.RequirePermission(enum.PermRecipeWrite)).Delete("/{id}", h.Delete)
	r.With(middleware.RequirePermission(enum.PermRecipeUse)).Post("/{id}/use", h.Use)
}

// --- Request types ---

type ingredientRequest struct {
	ItemID   string          `json:"itemid" validate:"required"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
}

type recipeRequest struct {
	RecipeID     string              `json:"recipeid" validate:"omitempty,max=64"`
	Name         string              `json:"name" validate:"required,max=200"`
	ServingSize  int32               `json:"serving_size" validate:"gt=0"`
	Instructions string              `json:"instructions"`
	Ingredients  []ingredientRequest `json:"ingredients" validate:"required,min=1,dive"`
}

type useRecipeRequest struct {
	Multiplier int32  `json:"multiplier" validate:"gt=0"`
	Notes      string `json:"notes" validate:"max=1000"`
}

func (req recipeRequest) toInput(id string) service.RecipeInput {
	in := service.RecipeInput{
		RecipeID:     id,
		Name:         req.Name,
		ServingSize:  req.ServingSize,
		Instructions: req.Instructions,
		Ingredients:  make([]service.IngredientInput, len(req.Ingredients)),
	}
	for i, ing := range req.Ingredients {
		in.Ingredients[i] = service.IngredientInput{ItemID: ing.ItemID, Quantity: ing.Quantity, Unit: ing.Unit}
	}
	return in
}

// --- Handlers ---

// List returns active recipes, most recently updated first.
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	recipes, err := h.store.ListRecipes(r.Context(), database.ListRecipesParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		writeStoreError(w, r, "ListRecipes", "recipes", err)
		return
	}
	if recipes == nil {
		recipes = []database.Recipe{}
	}

	writeJSON(w, r, http.StatusOK, listResponse[database.Recipe]{Data: recipes, Limit: limit, Offset: offset})
}

// Get returns a recipe with its ingredient lines.
func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	recipe, err := h.store.GetRecipe(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, "GetRecipe", "recipe", err)
		return
	}
	ings, err := h.store.ListRecipeIngredients(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, "GetRecipe", "recipe ingredients", err)
		return
	}
	if ings == nil {
		ings = []database.RecipeIngredient{}
	}

	writeJSON(w, r, http.StatusOK, service.RecipeResult{Recipe: recipe, Ingredients: ings})
}

// Create stores a new recipe and its computed cost.
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req recipeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.svc.CreateRecipe(r.Context(), req.toInput(req.RecipeID))
	if err != nil {
		writeServiceError(w, r, "CreateRecipe", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, res)
}

// Update replaces a recipe's fields and ingredients. The id in the path wins
// over any id in the body.
func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req recipeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.svc.UpdateRecipe(r.Context(), req.toInput(chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(w, r, "UpdateRecipe", err)
		return
	}

	writeJSON(w, r, http.StatusOK, res)
}

// Delete soft-deletes a recipe.
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.SoftDeleteRecipe(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, r, "DeleteRecipe", "recipe", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Availability reports whether the recipe can be made ?multiplier= times
// (default 1) and which ingredients are short.
func (h *RecipeHandler) Availability(w http.ResponseWriter, r *http.Request) {
	multiplier := int32(1)
	if s := r.URL.Query().Get("multiplier"); s != "" {
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil || v <= 0 {
			badRequest(w, r, "multiplier must be a positive integer")
			return
		}
		multiplier = int32(v)
	}

	av, err := h.svc.CheckAvailability(r.Context(), chi.URLParam(r, "id"), multiplier)
	if err != nil {
		writeServiceError(w, r, "Availability", err)
		return
	}
	if av.Shortages == nil {
		av.Shortages = []inventory.Shortage{}
	}

	writeJSON(w, r, http.StatusOK, av)
}

// Use deducts all ingredients for the requested batches, or none.
func (h *RecipeHandler) Use(w http.ResponseWriter, r *http.Request) {
	var req useRecipeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.svc.Use(r.Context(), service.UseRequest{
		RecipeID:    chi.URLParam(r, "id"),
		Multiplier:  req.Multiplier,
		PerformedBy: actor(r),
		Notes:       req.Notes,
	})
	if err != nil {
		writeServiceError(w, r, "UseRecipe", err)
		return
	}

	writeJSON(w, r, http.StatusOK, res)
}
