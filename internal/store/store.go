package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"backoffice/internal/models"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrNoRows is returned by lookups that match nothing. Callers translate it
// into their own not-found errors.
var ErrNoRows = sql.ErrNoRows

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// RunMigrations applies pending schema migrations from migrationsPath
func RunMigrations(databaseURL, migrationsPath string) error {
	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Products ---

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ProductFilter narrows product listings
type ProductFilter struct {
	CategoryID int64
	Featured   bool
	InStock    bool
	Search     string
	Page       int
	Limit      int
}

// ListProducts retrieves active products matching the filter, newest first
func (s *Store) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int, error) {
	where := []string{"is_active"}
	args := []interface{}{}

	if f.CategoryID > 0 {
		args = append(args, f.CategoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if f.Featured {
		where = append(where, "featured")
	}
	if f.InStock {
		where = append(where, "in_stock")
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(name ILIKE $%d OR description ILIKE $%d OR EXISTS (SELECT 1 FROM unnest(tags) t WHERE t ILIKE $%d))", n, n, n))
	}

	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM products WHERE "+cond, args...); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf("SELECT * FROM products WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		cond, len(args)-1, len(args))

	products := []models.Product{}
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// CreateProduct inserts a new product
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (name, description, price, category_id, images, stock, sku,
			featured, in_stock, discount, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, rating_average, rating_count, sales_count, is_active, created_at, updated_at`

	return s.db.GetContext(ctx, p, query,
		p.Name, p.Description, p.Price, p.CategoryID, p.Images, p.Stock, p.SKU,
		p.Featured, p.InStock, p.Discount, p.Tags)
}

// UpdateProduct updates mutable product fields
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	query := `
		UPDATE products SET name = $1, description = $2, price = $3, category_id = $4,
			images = $5, stock = $6, featured = $7, in_stock = $8, discount = $9,
			tags = $10, updated_at = NOW()
		WHERE id = $11
		RETURNING updated_at`

	return s.db.GetContext(ctx, &p.UpdatedAt, query,
		p.Name, p.Description, p.Price, p.CategoryID, p.Images, p.Stock,
		p.Featured, p.InStock, p.Discount, p.Tags, p.ID)
}

// SoftDeleteProduct marks a product inactive
func (s *Store) SoftDeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetProductStock sets absolute stock and recomputes in_stock
func (s *Store) SetProductStock(ctx context.Context, id int64, stock int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE products SET stock = $1, in_stock = $1 > 0, updated_at = NOW() WHERE id = $2",
		stock, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ReserveStock atomically decrements stock and bumps the sales counter,
// refusing the update when remaining stock is insufficient. Returns false
// with no error when stock was too low.
func (s *Store) ReserveStock(ctx context.Context, productID int64, quantity int) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $1,
			sales_count = sales_count + $1,
			in_stock = stock - $1 > 0,
			updated_at = NOW()
		WHERE id = $2 AND is_active AND stock >= $1`,
		quantity, productID)
	if err != nil {
		return false, fmt.Errorf("failed to reserve stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReleaseStock reverses a reservation (compensation)
func (s *Store) ReleaseStock(ctx context.Context, productID int64, quantity int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $1,
			sales_count = sales_count - $1,
			in_stock = TRUE,
			updated_at = NOW()
		WHERE id = $2`,
		quantity, productID)
	return err
}

// --- Categories ---

// GetCategoryByID retrieves a category by ID
func (s *Store) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	var cat models.Category
	err := s.db.GetContext(ctx, &cat, "SELECT * FROM categories WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

// ListCategories retrieves categories, optionally filtered by visibility
func (s *Store) ListCategories(ctx context.Context, visibleOnly bool) ([]models.Category, error) {
	query := "SELECT * FROM categories WHERE is_active"
	if visibleOnly {
		query += " AND visible"
	}
	query += " ORDER BY sort_order, name"

	categories := []models.Category{}
	err := s.db.SelectContext(ctx, &categories, query)
	return categories, err
}

// CreateCategory inserts a new category
func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	query := `
		INSERT INTO categories (name, slug, description, image, parent_id, sort_order, visible)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, is_active, created_at, updated_at`

	return s.db.GetContext(ctx, c, query,
		c.Name, c.Slug, c.Description, c.Image, c.ParentID, c.SortOrder, c.Visible)
}

// UpdateCategory updates mutable category fields
func (s *Store) UpdateCategory(ctx context.Context, c *models.Category) error {
	query := `
		UPDATE categories SET name = $1, slug = $2, description = $3, image = $4,
			parent_id = $5, sort_order = $6, visible = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at`

	return s.db.GetContext(ctx, &c.UpdatedAt, query,
		c.Name, c.Slug, c.Description, c.Image, c.ParentID, c.SortOrder, c.Visible, c.ID)
}

// SoftDeleteCategory marks a category inactive
func (s *Store) SoftDeleteCategory(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE categories SET is_active = FALSE, updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetCategoryVisibility toggles a category's storefront visibility
func (s *Store) SetCategoryVisibility(ctx context.Context, id int64, visible bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE categories SET visible = $1, updated_at = NOW() WHERE id = $2", visible, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
