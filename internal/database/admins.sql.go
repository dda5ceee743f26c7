package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const adminColumns = `id, email, hashed_password, full_name, role, is_active, created_at`

func scanAdmin(row pgx.Row) (Admin, error) {
	var a Admin
	err := row.Scan(&a.ID, &a.Email, &a.HashedPassword, &a.FullName, &a.Role, &a.IsActive, &a.CreatedAt)
	return a, err
}

const getAdminByEmail = `SELECT ` + adminColumns + ` FROM admins WHERE email = $1 AND is_active = true`

func (q *Queries) GetAdminByEmail(ctx context.Context, email string) (Admin, error) {
	row := q.db.QueryRow(ctx, getAdminByEmail, email)
	return scanAdmin(row)
}

const getAdminByID = `SELECT ` + adminColumns + ` FROM admins WHERE id = $1 AND is_active = true`

func (q *Queries) GetAdminByID(ctx context.Context, id uuid.UUID) (Admin, error) {
	row := q.db.QueryRow(ctx, getAdminByID, id)
	return scanAdmin(row)
}

const createAdmin = `INSERT INTO admins (email, hashed_password, full_name, role)
VALUES ($1, $2, $3, $4)
RETURNING ` + adminColumns

type CreateAdminParams struct {
	Email          string `json:"email"`
	HashedPassword string `json:"hashed_password"`
	FullName       string `json:"full_name"`
	Role           string `json:"role"`
}

func (q *Queries) CreateAdmin(ctx context.Context, arg CreateAdminParams) (Admin, error) {
	row := q.db.QueryRow(ctx, createAdmin, arg.Email, arg.HashedPassword, arg.FullName, arg.Role)
	return scanAdmin(row)
}

const listAdmins = `SELECT ` + adminColumns + ` FROM admins WHERE is_active = true ORDER BY created_at`

func (q *Queries) ListAdmins(ctx context.Context) ([]Admin, error) {
	rows, err := q.db.Query(ctx, listAdmins)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Admin{}
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateAdmin = `UPDATE admins
SET email = $2, full_name = $3, role = $4
WHERE id = $1 AND is_active = true
RETURNING ` + adminColumns

type UpdateAdminParams struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Role     string    `json:"role"`
}

func (q *Queries) UpdateAdmin(ctx context.Context, arg UpdateAdminParams) (Admin, error) {
	row := q.db.QueryRow(ctx, updateAdmin, arg.ID, arg.Email, arg.FullName, arg.Role)
	return scanAdmin(row)
}

const softDeleteAdmin = `UPDATE admins SET is_active = false
WHERE id = $1 AND is_active = true
RETURNING id`

func (q *Queries) SoftDeleteAdmin(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, softDeleteAdmin, id)
	var out uuid.UUID
	err := row.Scan(&out)
	return out, err
}
