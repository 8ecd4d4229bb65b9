package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
)

const migrationsTable = `
	CREATE TABLE IF NOT EXISTS migrations (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE,
		applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

func main() {
	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	flag.Parse()

	log := logrus.New()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.WithError(err).Fatal("DATABASE_URL is not set and configuration could not be loaded")
		}
		dsn = cfg.DSN()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if _, err := db.Exec(migrationsTable); err != nil {
		log.WithError(err).Fatal("Failed to create migrations table")
	}

	if *rollback {
		if err := rollbackLast(db, log); err != nil {
			log.WithError(err).Fatal("Rollback failed")
		}
		return
	}

	if err := applyAll(db, log); err != nil {
		log.WithError(err).Fatal("Migration failed")
	}
	log.Info("All migrations applied successfully")
}

func applyAll(db *sql.DB, log logrus.FieldLogger) error {
	files, err := database.MigrationFiles()
	if err != nil {
		return err
	}

	for _, file := range files {
		var applied bool
		if err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM migrations WHERE name = $1)", file).Scan(&applied); err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if applied {
			log.WithField("migration", file).Info("Migration already applied")
			continue
		}

		content, err := database.Migrations.ReadFile("migrations/" + file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}
		if err := inTx(db, string(content), "INSERT INTO migrations (name) VALUES ($1)", file); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
		log.WithField("migration", file).Info("Applied migration")
	}
	return nil
}

func rollbackLast(db *sql.DB, log logrus.FieldLogger) error {
	var last string
	err := db.QueryRow("SELECT name FROM migrations ORDER BY applied_at DESC, id DESC LIMIT 1").Scan(&last)
	if err == sql.ErrNoRows {
		return fmt.Errorf("no migrations to rollback")
	}
	if err != nil {
		return fmt.Errorf("failed to get last migration: %w", err)
	}

	rollbackFile := database.RollbackFile(last)
	content, err := database.Migrations.ReadFile("migrations/" + rollbackFile)
	if err != nil {
		return fmt.Errorf("rollback file not found: %s", rollbackFile)
	}
	if err := inTx(db, string(content), "DELETE FROM migrations WHERE name = $1", last); err != nil {
		return err
	}
	log.WithField("migration", last).Info("Rolled back migration")
	return nil
}

// inTx runs a migration script and its bookkeeping statement atomically.
func inTx(db *sql.DB, script, record, name string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	if _, err := tx.Exec(script); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.Exec(record, name); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}
