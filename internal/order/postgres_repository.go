package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/yakuppgeyikk96/gratia/internal/domain"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// PostgresRepository creates orders from completed checkout sessions. The
// order header and its items go in one transaction: a half-written order is
// worse than no order.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(cred *Credentials) (*PostgresRepository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
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

func (r *PostgresRepository) CreateOrder(ctx context.Context, snapshot *domain.Cart, shipping ShippingInfo, payment PaymentResult) (string, error) {
	orderID := uuid.NewString()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, total_amount, ship_name, ship_address, ship_city, ship_postal_code, ship_country, payment_provider, payment_reference, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())`,
		orderID, snapshot.OwnerID, snapshot.Total().String(),
		shipping.FullName, shipping.Address, shipping.City, shipping.PostalCode, shipping.Country,
		payment.Provider, payment.Reference,
	)
	if err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}

	for _, item := range snapshot.Items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (id, order_id, product_id, variant_id, product_name, quantity, unit_price)
             VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.NewString(), orderID, item.ProductID, item.VariantID, item.ProductName, item.Quantity, item.UnitPrice.String(),
		)
		if err != nil {
			return "", fmt.Errorf("insert order_item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return orderID, nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}
