package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"backoffice/internal/models"
)

// --- Customers ---

// GetCustomerByID retrieves a customer by ID
func (s *Store) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	var c models.Customer
	if err := s.db.GetContext(ctx, &c, "SELECT * FROM customers WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &c, nil
}

// CustomerFilter narrows customer listings
type CustomerFilter struct {
	Search string
	Source string
	Page   int
	Limit  int
}

// ListCustomers retrieves active customers matching the filter, newest first
func (s *Store) ListCustomers(ctx context.Context, f CustomerFilter) ([]models.Customer, int, error) {
	where := []string{"is_active"}
	args := []interface{}{}

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)", n, n, n))
	}
	if f.Source != "" {
		args = append(args, f.Source)
		where = append(where, fmt.Sprintf("source = $%d", len(args)))
	}

	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM customers WHERE "+cond, args...); err != nil {
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
	query := fmt.Sprintf("SELECT * FROM customers WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		cond, len(args)-1, len(args))

	customers := []models.Customer{}
	if err := s.db.SelectContext(ctx, &customers, query, args...); err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

// CreateCustomer inserts a new customer
func (s *Store) CreateCustomer(ctx context.Context, c *models.Customer) error {
	query := `
		INSERT INTO customers (name, email, phone, street, city, county, postal_code,
			source, newsletter, notes)
		VALUES ($1, LOWER($2), $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, total_spent, order_count, is_active, created_at, updated_at`

	return s.db.GetContext(ctx, c, query,
		c.Name, c.Email, c.Phone, c.Street, c.City, c.County, c.PostalCode,
		c.Source, c.Newsletter, c.Notes)
}

// UpdateCustomer updates mutable customer fields
func (s *Store) UpdateCustomer(ctx context.Context, c *models.Customer) error {
	query := `
		UPDATE customers SET name = $1, phone = $2, street = $3, city = $4, county = $5,
			postal_code = $6, newsletter = $7, notes = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING updated_at`

	return s.db.GetContext(ctx, &c.UpdatedAt, query,
		c.Name, c.Phone, c.Street, c.City, c.County, c.PostalCode,
		c.Newsletter, c.Notes, c.ID)
}

// SoftDeleteCustomer marks a customer inactive
func (s *Store) SoftDeleteCustomer(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE customers SET is_active = FALSE, updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpsertCustomerOrder records a completed checkout against the customer,
// creating the record from the order snapshot when the email is new.
// Denormalized counters are maintained here, not derived on read.
func (s *Store) UpsertCustomerOrder(ctx context.Context, c *models.Customer, orderTotal float64, orderDate time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (name, email, phone, street, city, county, postal_code,
			total_spent, order_count, last_order_date)
		VALUES ($1, LOWER($2), $3, $4, $5, $6, $7, $8, 1, $9)
		ON CONFLICT (email) DO UPDATE SET
			order_count = customers.order_count + 1,
			total_spent = customers.total_spent + EXCLUDED.total_spent,
			last_order_date = EXCLUDED.last_order_date,
			updated_at = NOW()`,
		c.Name, c.Email, c.Phone, c.Street, c.City, c.County, c.PostalCode,
		orderTotal, orderDate)
	return err
}

// CustomerAnalytics aggregates customer activity
type CustomerAnalytics struct {
	TotalCustomers        int     `db:"total_customers" json:"total_customers"`
	TotalRevenue          float64 `db:"total_revenue" json:"total_revenue"`
	AverageSpent          float64 `db:"average_spent" json:"average_spent"`
	AverageOrders         float64 `db:"average_orders" json:"average_orders"`
	NewCustomersThisMonth int     `db:"new_customers_this_month" json:"new_customers_this_month"`
}

// GetCustomerAnalytics aggregates active customers
func (s *Store) GetCustomerAnalytics(ctx context.Context) (*CustomerAnalytics, error) {
	var a CustomerAnalytics
	err := s.db.GetContext(ctx, &a, `
		SELECT
			COUNT(*) AS total_customers,
			COALESCE(SUM(total_spent), 0) AS total_revenue,
			COALESCE(AVG(total_spent), 0) AS average_spent,
			COALESCE(AVG(order_count), 0) AS average_orders,
			COUNT(*) FILTER (WHERE created_at >= date_trunc('month', NOW())) AS new_customers_this_month
		FROM customers
		WHERE is_active`)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// --- Admins ---

// GetAdminByID retrieves an admin by ID
func (s *Store) GetAdminByID(ctx context.Context, id int64) (*models.Admin, error) {
	var a models.Admin
	if err := s.db.GetContext(ctx, &a, "SELECT * FROM admins WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAdminByEmail retrieves an admin by email
func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var a models.Admin
	if err := s.db.GetContext(ctx, &a, "SELECT * FROM admins WHERE email = LOWER($1)", email); err != nil {
		return nil, err
	}
	return &a, nil
}

// CountAdmins returns the number of admin records
func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM admins")
	return n, err
}

// CreateAdmin inserts a new admin
func (s *Store) CreateAdmin(ctx context.Context, a *models.Admin) error {
	query := `
		INSERT INTO admins (name, email, password_hash, role, whatsapp_number, whatsapp_notifications)
		VALUES ($1, LOWER($2), $3, $4, $5, $6)
		RETURNING id, is_active, created_at, updated_at`

	return s.db.GetContext(ctx, a, query,
		a.Name, a.Email, a.PasswordHash, a.Role, a.WhatsAppNumber, a.WhatsAppNotifications)
}

// UpdateAdminPassword replaces an admin's password hash
func (s *Store) UpdateAdminPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE admins SET password_hash = $1, updated_at = NOW() WHERE id = $2", passwordHash, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// TouchAdminLogin records a successful login
func (s *Store) TouchAdminLogin(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE admins SET last_login = NOW(), updated_at = NOW() WHERE id = $1", id)
	return err
}

// ListWhatsAppRecipients returns the numbers of active admins opted in to
// WhatsApp notifications.
func (s *Store) ListWhatsAppRecipients(ctx context.Context) ([]string, error) {
	numbers := []string{}
	err := s.db.SelectContext(ctx, &numbers, `
		SELECT whatsapp_number FROM admins
		WHERE is_active AND whatsapp_notifications AND whatsapp_number <> ''`)
	return numbers, err
}

// --- Product requests ---

// RequestFilter narrows product-request listings
type RequestFilter struct {
	Status string
	Read   *bool
	Page   int
	Limit  int
}

// ListProductRequests retrieves product requests matching the filter, newest first
func (s *Store) ListProductRequests(ctx context.Context, f RequestFilter) ([]models.ProductRequest, int, error) {
	where := []string{"TRUE"}
	args := []interface{}{}

	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Read != nil {
		args = append(args, *f.Read)
		where = append(where, fmt.Sprintf("read = $%d", len(args)))
	}

	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM product_requests WHERE "+cond, args...); err != nil {
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
	query := fmt.Sprintf("SELECT * FROM product_requests WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		cond, len(args)-1, len(args))

	requests := []models.ProductRequest{}
	if err := s.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// GetProductRequestByID retrieves a product request by ID
func (s *Store) GetProductRequestByID(ctx context.Context, id int64) (*models.ProductRequest, error) {
	var r models.ProductRequest
	if err := s.db.GetContext(ctx, &r, "SELECT * FROM product_requests WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateProductRequest inserts a new product request
func (s *Store) CreateProductRequest(ctx context.Context, r *models.ProductRequest) error {
	query := `
		INSERT INTO product_requests (customer_name, email, phone, product_name, category, description, urgency)
		VALUES ($1, LOWER($2), $3, $4, $5, $6, $7)
		RETURNING id, status, read, created_at, updated_at`

	return s.db.GetContext(ctx, r, query,
		r.CustomerName, r.Email, r.Phone, r.ProductName, r.Category, r.Description, r.Urgency)
}

// MarkProductRequestRead flags a request as seen by an operator
func (s *Store) MarkProductRequestRead(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE product_requests SET read = TRUE, updated_at = NOW() WHERE id = $1", id)
	return err
}

// RespondProductRequest records the operator's decision on a request
func (s *Store) RespondProductRequest(ctx context.Context, id int64, status, adminNotes, responseMessage string, respondedBy int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE product_requests SET
			status = COALESCE(NULLIF($1, ''), status),
			admin_notes = COALESCE(NULLIF($2, ''), admin_notes),
			response_message = COALESCE(NULLIF($3, ''), response_message),
			responded_at = NOW(),
			responded_by = $4,
			updated_at = NOW()
		WHERE id = $5`,
		status, adminNotes, responseMessage, respondedBy, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}
