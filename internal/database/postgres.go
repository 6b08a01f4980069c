package database

import (
	"context"
	"database/sql"
	"log"
	"time"

	_ "github.com/lib/pq"
)

// Postgres hosts the external XP ledger. The integrity engine never touches
// it: handlers credit XP here only after every engine check has passed.

var PostgresDB *sql.DB

// ConnectPostgres connects to the ledger database and ensures its tables.
func ConnectPostgres(postgresURI string) error {
	var err error

	PostgresDB, err = sql.Open("postgres", postgresURI)
	if err != nil {
		return err
	}

	PostgresDB.SetMaxOpenConns(25)
	PostgresDB.SetMaxIdleConns(5)
	PostgresDB.SetConnMaxLifetime(5 * time.Minute)

	if err = PostgresDB.Ping(); err != nil {
		return err
	}

	log.Println("✅ Connected to PostgreSQL")

	return initLedgerTables()
}

func initLedgerTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS xp_ledger (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			identity VARCHAR(255) NOT NULL,
			amount INTEGER NOT NULL CHECK (amount > 0),
			source_type VARCHAR(50) NOT NULL,
			source_id VARCHAR(255) NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_xp_ledger_identity ON xp_ledger(identity)`,

		`CREATE TABLE IF NOT EXISTS xp_balances (
			identity VARCHAR(255) PRIMARY KEY,
			balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
	}

	for _, q := range queries {
		if _, err := PostgresDB.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// CreditXP appends a ledger entry and bumps the identity's balance in one
// transaction.
func CreditXP(ctx context.Context, identity string, amount int, sourceType, sourceID string) error {
	tx, err := PostgresDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO xp_ledger (identity, amount, source_type, source_id)
		VALUES ($1, $2, $3, $4)
	`, identity, amount, sourceType, sourceID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO xp_balances (identity, balance, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (identity)
		DO UPDATE SET balance = xp_balances.balance + $2, updated_at = NOW()
	`, identity, amount); err != nil {
		return err
	}

	return tx.Commit()
}

// GetBalance returns the identity's XP balance. Unknown identities have 0.
func GetBalance(ctx context.Context, identity string) (int64, error) {
	var balance int64
	err := PostgresDB.QueryRowContext(ctx, `
		SELECT balance FROM xp_balances WHERE identity = $1
	`, identity).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return balance, err
}

// DisconnectPostgres closes the ledger connection.
func DisconnectPostgres() error {
	if PostgresDB != nil {
		return PostgresDB.Close()
	}
	return nil
}
