package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/ledgerline/backend/pkg/config"
	"github.com/ledgerline/backend/pkg/migrate"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dir := flag.String("dir", migrate.DefaultDir, "directory with migration files")
	toVersion := flag.String("to", "", "migrate to a specific version (YYYYMMDDHHMMSS)")
	flag.Parse()

	command := "up"
	var commandArgs []string
	if args := flag.Args(); len(args) > 0 {
		command = args[0]
		commandArgs = args[1:]
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	if *toVersion != "" {
		return migrate.MigrateToVersion(ctx, db, *dir, *toVersion)
	}
	return migrate.Run(ctx, db, *dir, command, commandArgs...)
}
