package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// =====================================================
// PRODUCTS
// =====================================================

// CreateProduct creates a new product
func (r *Repository) CreateProduct(ctx context.Context, p *Product) error {
	query := `
		INSERT INTO products (name, description, price)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(ctx, query, p.Name, p.Description, p.Price).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// GetProductByID retrieves a product by ID
func (r *Repository) GetProductByID(ctx context.Context, id int64) (*Product, error) {
	query := `SELECT id, name, description, price, created_at FROM products WHERE id = $1`

	p := &Product{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// ListProducts retrieves all products, newest first
func (r *Repository) ListProducts(ctx context.Context) ([]Product, error) {
	query := `SELECT id, name, description, price, created_at FROM products ORDER BY created_at DESC`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// UpdateProduct updates a product's fields
func (r *Repository) UpdateProduct(ctx context.Context, p *Product) error {
	query := `UPDATE products SET name = $2, description = $3, price = $4 WHERE id = $1`

	tag, err := r.db.Pool.Exec(ctx, query, p.ID, p.Name, p.Description, p.Price)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d not found", p.ID)
	}
	return nil
}

// DeleteProduct removes a product
func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d not found", id)
	}
	return nil
}

// =====================================================
// PURCHASES
// =====================================================

// CreatePurchase records a product purchase. Purchases never touch the
// account balance.
func (r *Repository) CreatePurchase(ctx context.Context, p *Purchase) error {
	query := `
		INSERT INTO purchases (user_id, product_id, quantity, total_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, purchase_date
	`

	err := r.db.Pool.QueryRow(ctx, query, p.UserID, p.ProductID, p.Quantity, p.TotalAmount).
		Scan(&p.ID, &p.PurchaseDate)
	if err != nil {
		return fmt.Errorf("failed to create purchase: %w", err)
	}
	return nil
}

// GetPurchasesByUser retrieves a member's purchases, newest first
func (r *Repository) GetPurchasesByUser(ctx context.Context, userID string) ([]Purchase, error) {
	query := `
		SELECT p.id, p.user_id, p.product_id, pr.name, p.quantity, p.total_amount, p.purchase_date
		FROM purchases p
		JOIN products pr ON pr.id = p.product_id
		WHERE p.user_id = $1
		ORDER BY p.purchase_date DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchases: %w", err)
	}
	defer rows.Close()

	var purchases []Purchase
	for rows.Next() {
		var p Purchase
		err := rows.Scan(&p.ID, &p.UserID, &p.ProductID, &p.ProductName, &p.Quantity, &p.TotalAmount, &p.PurchaseDate)
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

// GetPurchaseStats returns the purchase count and total spent for a member
func (r *Repository) GetPurchaseStats(ctx context.Context, userID string) (int, decimal.Decimal, error) {
	var count int
	var total decimal.Decimal
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_amount), 0) FROM purchases WHERE user_id = $1`,
		userID,
	).Scan(&count, &total)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("failed to get purchase stats: %w", err)
	}
	return count, total, nil
}

// =====================================================
// HOME PAGE CONTENT
// =====================================================

// UpsertHomePageSection creates or updates a section keyed by its type
func (r *Repository) UpsertHomePageSection(ctx context.Context, s *HomePageSection) error {
	query := `
		INSERT INTO home_page_sections (section_type, title, subtitle, is_active, display_order)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT home_page_sections_type_key DO UPDATE
		SET title = EXCLUDED.title,
			subtitle = EXCLUDED.subtitle,
			is_active = EXCLUDED.is_active,
			display_order = EXCLUDED.display_order,
			updated_at = NOW()
		RETURNING id, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		s.SectionType, s.Title, s.Subtitle, s.IsActive, s.DisplayOrder,
	).Scan(&s.ID, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert section: %w", err)
	}
	return nil
}

// GetActiveHomePageSections retrieves active sections in display order
func (r *Repository) GetActiveHomePageSections(ctx context.Context) ([]HomePageSection, error) {
	query := `
		SELECT id, section_type, title, subtitle, is_active, display_order, updated_at
		FROM home_page_sections
		WHERE is_active
		ORDER BY display_order, id
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get sections: %w", err)
	}
	defer rows.Close()

	var sections []HomePageSection
	for rows.Next() {
		var s HomePageSection
		err := rows.Scan(&s.ID, &s.SectionType, &s.Title, &s.Subtitle, &s.IsActive, &s.DisplayOrder, &s.UpdatedAt)
		if err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

// CreatePlanItem creates a homepage income-plan item
func (r *Repository) CreatePlanItem(ctx context.Context, item *PlanItem) error {
	query := `
		INSERT INTO plan_items (section_id, icon, title, description, amount, display_order, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.Pool.QueryRow(ctx, query,
		item.SectionID, item.Icon, item.Title, item.Description, item.Amount,
		item.DisplayOrder, item.IsActive,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("failed to create plan item: %w", err)
	}
	return nil
}

// GetActivePlanItems retrieves active plan items in display order
func (r *Repository) GetActivePlanItems(ctx context.Context) ([]PlanItem, error) {
	query := `
		SELECT id, section_id, icon, title, description, amount, display_order, is_active
		FROM plan_items
		WHERE is_active
		ORDER BY display_order, id
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan items: %w", err)
	}
	defer rows.Close()

	var items []PlanItem
	for rows.Next() {
		var item PlanItem
		err := rows.Scan(&item.ID, &item.SectionID, &item.Icon, &item.Title, &item.Description,
			&item.Amount, &item.DisplayOrder, &item.IsActive)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// DeletePlanItem removes a plan item
func (r *Repository) DeletePlanItem(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM plan_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete plan item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("plan item %d not found", id)
	}
	return nil
}

// CreateProductItem creates a homepage product item
func (r *Repository) CreateProductItem(ctx context.Context, item *ProductItem) error {
	query := `
		INSERT INTO product_items (section_id, product_id, name, description, price, image_url, display_order, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.db.Pool.QueryRow(ctx, query,
		item.SectionID, item.ProductID, item.Name, item.Description, item.Price,
		item.ImageURL, item.DisplayOrder, item.IsActive,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("failed to create product item: %w", err)
	}
	return nil
}

// GetActiveProductItems retrieves active product items in display order
func (r *Repository) GetActiveProductItems(ctx context.Context) ([]ProductItem, error) {
	query := `
		SELECT id, section_id, product_id, name, description, price, image_url, display_order, is_active
		FROM product_items
		WHERE is_active
		ORDER BY display_order, id
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get product items: %w", err)
	}
	defer rows.Close()

	var items []ProductItem
	for rows.Next() {
		var item ProductItem
		err := rows.Scan(&item.ID, &item.SectionID, &item.ProductID, &item.Name, &item.Description,
			&item.Price, &item.ImageURL, &item.DisplayOrder, &item.IsActive)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// DeleteProductItem removes a homepage product item
func (r *Repository) DeleteProductItem(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM product_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product item %d not found", id)
	}
	return nil
}
