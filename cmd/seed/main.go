// Command seed applies the database migrations and loads the reference
// Udaipur lakes, each with a full set of default readings. Running it again
// refreshes lake metadata and leaves existing readings untouched.
//
// Usage:
//
//	DATABASE_URL=postgres://... go run ./cmd/seed
//	go run ./cmd/seed -dry-run
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/lake-health-service/internal/adapter/memory"
	"github.com/couchcryptid/lake-health-service/internal/adapter/postgres"
	"github.com/couchcryptid/lake-health-service/internal/domain"
	"github.com/couchcryptid/lake-health-service/internal/seed"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	_ = godotenv.Load()

	databaseURL := flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	dryRun := flag.Bool("dry-run", false, "seed an in-memory store and print the result")
	logFormat := flag.String("log-format", "text", "log format: json or text")
	flag.Parse()

	logger := sharedobs.NewLogger("info", *logFormat).With("service", "lake-health-seed")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	now := clockwork.NewRealClock().Now()

	var writer seed.Writer
	switch {
	case *dryRun:
		writer = memory.New()
	case *databaseURL == "":
		flag.Usage()
		return errors.New("missing -database-url (or DATABASE_URL)")
	default:
		store, err := postgres.New(ctx, *databaseURL, logger)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		writer = store
	}

	res, err := seed.Run(ctx, writer, domain.GlobalEntropy{}, now, logger)
	if err != nil {
		return err
	}
	fmt.Printf("seeded %d lakes, %d readings\n", res.Lakes, res.Readings)
	return nil
}
