package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/tavola-pos/backoffice/internal/config"
	"github.com/tavola-pos/backoffice/internal/enum"
	"github.com/tavola-pos/backoffice/internal/logging"
	"golang.org/x/crypto/bcrypt"
)

var log *logrus.Logger

func main() {
	// CLI flags
	email := flag.String("email", "", "Admin email address")
	password := flag.String("password", "", "Admin password")
	name := flag.String("name", "", "Admin full name")
	tables := flag.Int("tables", 10, "Number of dining tables to create")
	flag.Parse()

	cfg := config.Load()
	log = logging.New(cfg.LogLevel, os.Stdout)

	// Fall back to environment variables
	if *email == "" {
		*email = os.Getenv("SEED_EMAIL")
	}
	if *password == "" {
		*password = os.Getenv("SEED_PASSWORD")
	}
	if *name == "" {
		*name = os.Getenv("SEED_NAME")
	}

	// Fall back to defaults
	if *email == "" {
		*email = "admin@tavola.local"
	}
	if *password == "" {
		*password = "password123"
		log.Warn("using default password 'password123'; change it immediately in production")
	}
	if *name == "" {
		*name = "Tavola Admin"
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("unable to ping database: %v", err)
	}
	log.Info("connected to database")

	// Admin, tables and coupons land together or not at all.
	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	adminID, err := seedAdmin(ctx, tx, *email, *password, *name)
	if err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}

	created, err := seedTables(ctx, tx, *tables)
	if err != nil {
		log.Fatalf("failed to seed tables: %v", err)
	}

	if err := seedCoupons(ctx, tx); err != nil {
		log.Fatalf("failed to seed coupons: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("failed to commit: %v", err)
	}

	log.WithFields(logrus.Fields{
		"admin_id":       adminID,
		"tables_created": created,
	}).Info("seed completed successfully")
}

// seedAdmin creates the first ADMIN account if the email is not taken.
func seedAdmin(ctx context.Context, tx pgx.Tx, email, password, fullName string) (uuid.UUID, error) {
	var existingID uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM admins WHERE email = $1 LIMIT 1`, email).Scan(&existingID)
	if err == nil {
		log.Infof("admin '%s' already exists (ID: %s), skipping", email, existingID)
		return existingID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("check admin: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, fmt.Errorf("hash password: %w", err)
	}

	insertSQL := `
		INSERT INTO admins (email, hashed_password, full_name, role, is_active)
		VALUES ($1, $2, $3, $4, true)
		RETURNING id
	`
	var newID uuid.UUID
	if err := tx.QueryRow(ctx, insertSQL, email, string(hashed), fullName, enum.RoleAdmin).Scan(&newID); err != nil {
		return uuid.Nil, fmt.Errorf("insert admin: %w", err)
	}

	log.Infof("created admin '%s' (ID: %s)", email, newID)
	return newID, nil
}

// seedTables creates tables T-01..T-n, skipping numbers that already exist.
func seedTables(ctx context.Context, tx pgx.Tx, n int) (int, error) {
	created := 0
	for i := 1; i <= n; i++ {
		tag, err := tx.Exec(ctx,
			`INSERT INTO restaurant_tables (tableid, table_number, capacity)
			 VALUES ($1, $2, 4)
			 ON CONFLICT DO NOTHING`,
			fmt.Sprintf("T-%02d", i), i)
		if err != nil {
			return created, fmt.Errorf("insert table %d: %w", i, err)
		}
		created += int(tag.RowsAffected())
	}
	return created, nil
}

// seedCoupons adds a limited welcome coupon and an unlimited staff coupon.
func seedCoupons(ctx context.Context, tx pgx.Tx) error {
	coupons := []struct {
		code  string
		pct   string
		limit *int32
	}{
		{"WELCOME10", "10", ptr(int32(100))},
		{"STAFF20", "20", nil},
	}
	for _, c := range coupons {
		if _, err := tx.Exec(ctx,
			`INSERT INTO coupons (couponcode, discount_percentage, total_usage_limit)
			 VALUES ($1, $2::numeric, $3)
			 ON CONFLICT (couponcode) DO NOTHING`,
			c.code, c.pct, c.limit); err != nil {
			return fmt.Errorf("insert coupon %s: %w", c.code, err)
		}
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
