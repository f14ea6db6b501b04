package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewDB creates a new database connection
func NewDB(cfg Config) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	// Configure connection pool
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log.Printf("Successfully connected to PostgreSQL database: %s", cfg.Database)

	return &DB{Pool: pool}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		log.Println("Database connection closed")
	}
}

// ErrUserNotFound marks lookups against a user id with no row. Callers
// test for it with errors.Is.
var ErrUserNotFound = errors.New("user not found")

// IsUniqueViolation reports whether err is a unique-constraint violation.
// Uniqueness (email, mobile, referral code, referred-user edge) is enforced
// at the storage layer, so callers treat 23505 as a normal error path.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// UniqueConstraintName returns the violated constraint name, or "" if err
// is not a unique violation.
func UniqueConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName
	}
	return ""
}

// RunMigrations executes database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	log.Println("Running database migrations...")

	migrations := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto`,

		// Members. account_balance is the single shared mutable resource;
		// the CHECK plus conditional debits keep it non-negative under
		// concurrent withdrawals and commission credits.
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email VARCHAR(255) NOT NULL,
			mobile VARCHAR(17),
			password_hash VARCHAR(255) NOT NULL,
			first_name VARCHAR(100) NOT NULL DEFAULT '',
			last_name VARCHAR(100) NOT NULL DEFAULT '',
			referral_code VARCHAR(20) NOT NULL,
			sponsor_code VARCHAR(20),
			sponsor_id UUID REFERENCES users(id),
			account_balance NUMERIC(15, 2) NOT NULL DEFAULT 0 CHECK (account_balance >= 0),
			is_active_member BOOLEAN NOT NULL DEFAULT false,
			is_admin BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT users_email_key UNIQUE (email),
			CONSTRAINT users_mobile_key UNIQUE (mobile),
			CONSTRAINT users_referral_code_key UNIQUE (referral_code)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_sponsor_id ON users(sponsor_id)`,

		// Referral edges. One sponsor per referred member, enforced here
		// rather than by application pre-checks.
		`CREATE TABLE IF NOT EXISTS referrals (
			id BIGSERIAL PRIMARY KEY,
			sponsor_id UUID NOT NULL REFERENCES users(id),
			referred_user_id UUID NOT NULL REFERENCES users(id),
			commission_earned NUMERIC(15, 2) NOT NULL DEFAULT 0,
			referral_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT referrals_referred_user_key UNIQUE (referred_user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_referrals_sponsor_id ON referrals(sponsor_id)`,

		`CREATE TABLE IF NOT EXISTS withdrawals (
			id BIGSERIAL PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id),
			amount NUMERIC(15, 2) NOT NULL,
			admin_charge NUMERIC(15, 2) NOT NULL DEFAULT 0,
			net_amount NUMERIC(15, 2) NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			requested_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			processed_date TIMESTAMPTZ,
			notes TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_withdrawals_user_id ON withdrawals(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_withdrawals_status ON withdrawals(status)`,

		`CREATE TABLE IF NOT EXISTS referral_settings (
			id BIGSERIAL PRIMARY KEY,
			direct_referral_amount NUMERIC(10, 2) NOT NULL DEFAULT 200.00,
			matching_income_percentage NUMERIC(5, 2) NOT NULL DEFAULT 6.00,
			is_active BOOLEAN NOT NULL DEFAULT true,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		// At most one active settings row. Under READ COMMITTED two
		// concurrent activations can each deactivate the rows their
		// snapshot sees and then insert, ending with two active rows;
		// the partial index turns the loser's insert into a 23505 that
		// the engine retries.
		`CREATE UNIQUE INDEX IF NOT EXISTS referral_settings_one_active
			ON referral_settings ((true)) WHERE is_active`,

		`CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			price NUMERIC(10, 2) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS purchases (
			id BIGSERIAL PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id),
			product_id BIGINT NOT NULL REFERENCES products(id),
			quantity INTEGER NOT NULL DEFAULT 1 CHECK (quantity > 0),
			total_amount NUMERIC(15, 2) NOT NULL,
			purchase_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_purchases_user_id ON purchases(user_id)`,

		`CREATE TABLE IF NOT EXISTS home_page_sections (
			id BIGSERIAL PRIMARY KEY,
			section_type VARCHAR(50) NOT NULL,
			title VARCHAR(255) NOT NULL,
			subtitle TEXT,
			is_active BOOLEAN NOT NULL DEFAULT true,
			display_order INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT home_page_sections_type_key UNIQUE (section_type)
		)`,

		`CREATE TABLE IF NOT EXISTS plan_items (
			id BIGSERIAL PRIMARY KEY,
			section_id BIGINT REFERENCES home_page_sections(id) ON DELETE CASCADE,
			icon VARCHAR(50) NOT NULL DEFAULT '',
			title VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			amount VARCHAR(50) NOT NULL DEFAULT '',
			display_order INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT true
		)`,

		`CREATE TABLE IF NOT EXISTS product_items (
			id BIGSERIAL PRIMARY KEY,
			section_id BIGINT REFERENCES home_page_sections(id) ON DELETE CASCADE,
			product_id BIGINT REFERENCES products(id) ON DELETE SET NULL,
			name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price NUMERIC(10, 2) NOT NULL,
			image_url TEXT,
			display_order INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT true
		)`,

		// Refresh token sessions
		`CREATE TABLE IF NOT EXISTS user_sessions (
			id BIGSERIAL PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			refresh_token_hash VARCHAR(64) NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_sessions_user_id ON user_sessions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_user_sessions_token_hash ON user_sessions(refresh_token_hash)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}
