package main

import (
	"context"
	"embed"
	"flag"
	"io/fs"
	"log"
	"sort"
	"time"

	"github.com/Temutjin2k/room-compass/config"
	"github.com/Temutjin2k/room-compass/pkg/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
)

func main() {
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	client, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	migrate(client.Pool)
}

// migrate applies every embedded script in name order inside one transaction.
// Scripts are idempotent, so running it twice is harmless.
func migrate(db *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		log.Fatalf("migrate: list scripts: %v", err)
	}
	sort.Strings(names)

	tx, err := db.Begin(ctx)
	if err != nil {
		log.Fatalf("migrate: begin tx: %v", err)
	}
	// ensure rollback if commit doesn't happen
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, name := range names {
		script, err := migrations.ReadFile(name)
		if err != nil {
			log.Fatalf("migrate: read %s: %v", name, err)
		}
		if _, err := tx.Exec(ctx, string(script)); err != nil {
			log.Fatalf("migrate: apply %s: %v", name, err)
		}
		log.Printf("migrate: applied %s", name)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("migrate: commit: %v", err)
	}
}
