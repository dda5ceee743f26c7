package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const listCategories = `SELECT categoryid, name, description, sort_order, is_active, created_at
FROM categories
WHERE is_active = true
ORDER BY sort_order, name`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.CategoryID, &c.Name, &c.Description, &c.SortOrder, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createCategory = `INSERT INTO categories (categoryid, name, description, sort_order)
VALUES ($1, $2, $3, $4)
RETURNING categoryid, name, description, sort_order, is_active, created_at`

type CreateCategoryParams struct {
	CategoryID  string      `json:"categoryid"`
	Name        string      `json:"name"`
	Description pgtype.Text `json:"description"`
	SortOrder   int32       `json:"sort_order"`
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, createCategory, arg.CategoryID, arg.Name, arg.Description, arg.SortOrder)
	var c Category
	err := row.Scan(&c.CategoryID, &c.Name, &c.Description, &c.SortOrder, &c.IsActive, &c.CreatedAt)
	return c, err
}

const updateCategory = `UPDATE categories
SET name = $2, description = $3, sort_order = $4
WHERE categoryid = $1 AND is_active = true
RETURNING categoryid, name, description, sort_order, is_active, created_at`

type UpdateCategoryParams struct {
	CategoryID  string      `json:"categoryid"`
	Name        string      `json:"name"`
	Description pgtype.Text `json:"description"`
	SortOrder   int32       `json:"sort_order"`
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, updateCategory, arg.CategoryID, arg.Name, arg.Description, arg.SortOrder)
	var c Category
	err := row.Scan(&c.CategoryID, &c.Name, &c.Description, &c.SortOrder, &c.IsActive, &c.CreatedAt)
	return c, err
}

const softDeleteCategory = `UPDATE categories SET is_active = false
WHERE categoryid = $1 AND is_active = true
RETURNING categoryid`

func (q *Queries) SoftDeleteCategory(ctx context.Context, categoryID string) (string, error) {
	row := q.db.QueryRow(ctx, softDeleteCategory, categoryID)
	var id string
	err := row.Scan(&id)
	return id, err
}

const menuItemColumns = `menuid, categoryid, name, description, price, is_available, is_active, created_at, updated_at`

func scanMenuItem(row pgx.Row) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(
		&m.MenuID,
		&m.CategoryID,
		&m.Name,
		&m.Description,
		&m.Price,
		&m.IsAvailable,
		&m.IsActive,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

const getMenuItem = `SELECT ` + menuItemColumns + `
FROM menu_items
WHERE menuid = $1 AND is_active = true`

func (q *Queries) GetMenuItem(ctx context.Context, menuID string) (MenuItem, error) {
	row := q.db.QueryRow(ctx, getMenuItem, menuID)
	return scanMenuItem(row)
}

const listMenuItems = `SELECT ` + menuItemColumns + `
FROM menu_items
WHERE is_active = true
  AND ($1::text IS NULL OR categoryid = $1::text)
ORDER BY name`

func (q *Queries) ListMenuItems(ctx context.Context, categoryID pgtype.Text) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MenuItem{}
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createMenuItem = `INSERT INTO menu_items (menuid, categoryid, name, description, price, is_available)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + menuItemColumns

type CreateMenuItemParams struct {
	MenuID      string          `json:"menuid"`
	CategoryID  string          `json:"categoryid"`
	Name        string          `json:"name"`
	Description pgtype.Text     `json:"description"`
	Price       decimal.Decimal `json:"price"`
	IsAvailable bool            `json:"is_available"`
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, createMenuItem,
		arg.MenuID,
		arg.CategoryID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.IsAvailable,
	)
	return scanMenuItem(row)
}

const updateMenuItem = `UPDATE menu_items
SET categoryid = $2, name = $3, description = $4, price = $5, is_available = $6, updated_at = now()
WHERE menuid = $1 AND is_active = true
RETURNING ` + menuItemColumns

type UpdateMenuItemParams struct {
	MenuID      string          `json:"menuid"`
	CategoryID  string          `json:"categoryid"`
	Name        string          `json:"name"`
	Description pgtype.Text     `json:"description"`
	Price       decimal.Decimal `json:"price"`
	IsAvailable bool            `json:"is_available"`
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, updateMenuItem,
		arg.MenuID,
		arg.CategoryID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.IsAvailable,
	)
	return scanMenuItem(row)
}

const softDeleteMenuItem = `UPDATE menu_items SET is_active = false, updated_at = now()
WHERE menuid = $1 AND is_active = true
RETURNING menuid`

func (q *Queries) SoftDeleteMenuItem(ctx context.Context, menuID string) (string, error) {
	row := q.db.QueryRow(ctx, softDeleteMenuItem, menuID)
	var id string
	err := row.Scan(&id)
	return id, err
}
