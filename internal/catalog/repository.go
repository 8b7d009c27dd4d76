package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/yakuppgeyikk96/gratia/internal/domain"
)

// Repository reads product price and stock from the storefront's sqlite
// catalog database.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping catalog database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

// GetStockAndPrice returns the current snapshot for one product variant. A
// variant id of "" reads the base product row.
func (r *Repository) GetStockAndPrice(ctx context.Context, productID int64, variantID string) (domain.ProductSnapshot, error) {
	query := `
		SELECT price, stock
		FROM products
		WHERE id = ? AND variant_id = ?
	`

	var priceStr string
	var stock int32
	err := r.db.QueryRowContext(ctx, query, productID, variantID).Scan(&priceStr, &stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ProductSnapshot{}, ErrProductNotFound
		}
		return domain.ProductSnapshot{}, fmt.Errorf("failed to query product %d: %w", productID, err)
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return domain.ProductSnapshot{}, fmt.Errorf("invalid price for product %d: %w", productID, err)
	}

	return domain.ProductSnapshot{Price: price, Stock: stock}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
