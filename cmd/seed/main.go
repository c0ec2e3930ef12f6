// Package main seeds the database with the demo catalog and opening stock.
package main

import (
	"context"
	"fmt"
	"os"

	"backoffice/internal/app"
	"backoffice/internal/config"
	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/domain/opname"
	"backoffice/internal/infrastructure/storage/postgres"
	"backoffice/internal/infrastructure/storage/postgres/inventory_repo"
	"backoffice/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load configuration", "error", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	if os.Getenv("SEED_MIGRATE") == "true" {
		if err := postgres.Migrate(ctx, cfg.DatabaseURL, postgres.MigrateUp, 0); err != nil {
			log.Fatalw("failed to migrate", "error", err)
		}
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	branchID := app.DemoBranchID
	if v := os.Getenv("SEED_BRANCH_ID"); v != "" {
		if branchID, err = id.Parse(v); err != nil {
			log.Fatalw("invalid SEED_BRANCH_ID", "error", err)
		}
	}

	repo := inventory_repo.New(postgres.NewTxManager(pool))
	if err := seedCatalog(ctx, repo, branchID, log); err != nil {
		log.Fatalw("failed to seed catalog", "error", err)
	}

	log.Info("seeding completed successfully")
}

// seedCatalog inserts missing demo products and resets their branch quantities.
func seedCatalog(ctx context.Context, repo *inventory_repo.Repo, branchID id.ID, log *logger.Logger) error {
	var missing []opname.Product
	quantities := make(map[id.ID]int64)

	for _, d := range app.DemoCatalog() {
		existing, err := repo.GetProductBySKU(ctx, d.Product.SKU)
		switch {
		case apperror.IsNotFound(err):
			missing = append(missing, d.Product)
			quantities[d.Product.ID] = d.Quantity
		case err != nil:
			return fmt.Errorf("look up %s: %w", d.Product.SKU, err)
		default:
			quantities[existing.ID] = d.Quantity
		}
	}

	if len(missing) > 0 {
		n, err := repo.ImportProducts(ctx, missing)
		if err != nil {
			return err
		}
		log.Infow("products inserted", "count", n)
	}

	if err := repo.SetQuantities(ctx, branchID, quantities); err != nil {
		return err
	}
	log.Infow("opening stock set", "branch_id", branchID, "products", len(quantities))
	return nil
}
