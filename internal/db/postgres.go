package db

import (
	"database/sql"
	"fmt"
	"log"

	"proctor-camera/internal/config"

	_ "github.com/lib/pq"
)

func ConnectPostgres(cfg *config.Config) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.PostgresHost,
		cfg.PostgresPort,
		cfg.PostgresUser,
		cfg.PostgresPassword,
		cfg.PostgresDB,
		cfg.PostgresSSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", cfg.PostgresSchema)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if err := runMigrations(db, cfg.PostgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	log.Printf("PostgreSQL connection established (database: %s, schema: %s)", cfg.PostgresDB, cfg.PostgresSchema)
	return db, nil
}

func runMigrations(db *sql.DB, schema string) error {
	log.Println("Running migrations...")

	migrations := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.capture_sessions (
			id TEXT PRIMARY KEY,
			reset_count INTEGER NOT NULL DEFAULT 0,
			last_reset_at TIMESTAMP WITH TIME ZONE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL
		)`, schema),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.captures (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES %s.capture_sessions(id) ON DELETE CASCADE,
			filename TEXT NOT NULL,
			file_path TEXT NOT NULL,
			trigger TEXT NOT NULL,
			timing JSONB,
			size_bytes BIGINT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			UNIQUE(session_id, filename)
		)`, schema, schema),

		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_captures_session_id ON %s.captures(session_id)`, schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_captures_created_at ON %s.captures(created_at DESC)`, schema),
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	log.Printf("Migrations completed successfully in schema: %s", schema)
	return nil
}
