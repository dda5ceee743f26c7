package database

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const tableColumns = `tableid, table_number, capacity, status, created_at, updated_at`

func scanTable(row pgx.Row) (RestaurantTable, error) {
	var t RestaurantTable
	err := row.Scan(&t.TableID, &t.TableNumber, &t.Capacity, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

const listTables = `SELECT ` + tableColumns + ` FROM restaurant_tables ORDER BY table_number`

func (q *Queries) ListTables(ctx context.Context) ([]RestaurantTable, error) {
	rows, err := q.db.Query(ctx, listTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []RestaurantTable{}
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getTable = `SELECT ` + tableColumns + ` FROM restaurant_tables WHERE tableid = $1`

func (q *Queries) GetTable(ctx context.Context, tableID string) (RestaurantTable, error) {
	row := q.db.QueryRow(ctx, getTable, tableID)
	return scanTable(row)
}

const createTable = `INSERT INTO restaurant_tables (tableid, table_number, capacity)
VALUES ($1, $2, $3)
RETURNING ` + tableColumns

type CreateTableParams struct {
	TableID     string `json:"tableid"`
	TableNumber int32  `json:"table_number"`
	Capacity    int32  `json:"capacity"`
}

func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) (RestaurantTable, error) {
	row := q.db.QueryRow(ctx, createTable, arg.TableID, arg.TableNumber, arg.Capacity)
	return scanTable(row)
}

const updateTableStatus = `UPDATE restaurant_tables
SET status = $2, updated_at = now()
WHERE tableid = $1
RETURNING ` + tableColumns

type UpdateTableStatusParams struct {
	TableID string      `json:"tableid"`
	Status  TableStatus `json:"status"`
}

func (q *Queries) UpdateTableStatus(ctx context.Context, arg UpdateTableStatusParams) (RestaurantTable, error) {
	row := q.db.QueryRow(ctx, updateTableStatus, arg.TableID, arg.Status)
	return scanTable(row)
}
