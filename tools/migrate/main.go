// Command migrate applies the SQL migrations in migrations/ against a
// Postgres database. Direction "up" is the default; "down" rolls one step
// back.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	var (
		dsn       = flag.String("dsn", envDefault("DATABASE_URL", os.Getenv("PG_DSN")), "postgres connection string")
		path      = flag.String("path", "migrations", "migrations directory")
		direction = flag.String("direction", "up", "up or down")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("dsn is required (or set DATABASE_URL / PG_DSN)")
	}

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	driver, err := pgx.WithInstance(db, &pgx.Config{})
	if err != nil {
		log.Fatalf("migrate driver error: %v", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+*path, "pgx", driver)
	if err != nil {
		log.Fatalf("migrate init error: %v", err)
	}
	defer m.Close()

	switch *direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	default:
		log.Fatalf("unknown direction %q", *direction)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migrate %s error: %v", *direction, err)
	}
	log.Printf("migrate %s: done", *direction)
}

func envDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
