package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/maltedev/ddtech-scraper/internal/models"
	"github.com/maltedev/ddtech-scraper/internal/storage"
)

const createProductsTable = `
	CREATE TABLE IF NOT EXISTS ddtech_products (
		url          TEXT PRIMARY KEY,
		title        TEXT NOT NULL,
		price        TEXT NOT NULL,
		sku          TEXT NOT NULL,
		description  TEXT NOT NULL,
		availability TEXT NOT NULL,
		scraped_at   TIMESTAMP NOT NULL,
		created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

const upsertProduct = `
	INSERT INTO ddtech_products (url, title, price, sku, description, availability, scraped_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (url) DO UPDATE SET
		title = EXCLUDED.title,
		price = EXCLUDED.price,
		sku = EXCLUDED.sku,
		description = EXCLUDED.description,
		availability = EXCLUDED.availability,
		scraped_at = EXCLUDED.scraped_at,
		updated_at = CURRENT_TIMESTAMP`

// ProductRepository stores scraped records keyed by product URL. A later
// scrape of the same URL replaces the stored fields.
type ProductRepository struct {
	exec   Executor
	withTx func(ctx context.Context, fn func(Executor) error) error
}

func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{
		exec: db,
		withTx: func(ctx context.Context, fn func(Executor) error) error {
			return db.WithTx(ctx, func(tx pgx.Tx) error { return fn(tx) })
		},
	}
}

// NewProductRepositoryWithExecutor runs every statement directly on exec,
// without a surrounding transaction.
func NewProductRepositoryWithExecutor(exec Executor) *ProductRepository {
	return &ProductRepository{
		exec: exec,
		withTx: func(_ context.Context, fn func(Executor) error) error {
			return fn(exec)
		},
	}
}

func (r *ProductRepository) Migrate(ctx context.Context) error {
	if _, err := r.exec.Exec(ctx, createProductsTable); err != nil {
		return fmt.Errorf("failed to create ddtech_products: %w", err)
	}
	return nil
}

// SaveBatch upserts all non-empty records in one transaction and returns how
// many rows were written.
func (r *ProductRepository) SaveBatch(ctx context.Context, records []*models.ProductRecord) (int, error) {
	saved := 0

	err := r.withTx(ctx, func(exec Executor) error {
		for _, rec := range records {
			if rec.IsZero() {
				continue
			}

			_, err := exec.Exec(ctx, upsertProduct,
				rec.URL, rec.Title, rec.Price, rec.SKU,
				rec.Description, rec.Availability, rec.ScrapedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert product %s: %w", rec.URL, err)
			}
			saved++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return saved, nil
}

func (r *ProductRepository) Name() string {
	return "postgres"
}

func (r *ProductRepository) Write(ctx context.Context, records []*models.ProductRecord) error {
	if len(records) == 0 {
		return storage.ErrNoRecords
	}
	_, err := r.SaveBatch(ctx, records)
	return err
}
