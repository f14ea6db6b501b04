// Package catalog covers the storefront surface around the ledger core:
// products, recorded purchases, and the admin-editable homepage content.
package catalog

import (
	"context"

	"mlm-referral-app/internal/database"
	"mlm-referral-app/internal/logging"

	"github.com/shopspring/decimal"
)

// CatalogError is a typed, recoverable catalog error
type CatalogError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e CatalogError) Error() string {
	return e.Message
}

var (
	ErrProductNotFound = CatalogError{Code: "PRODUCT_NOT_FOUND", Message: "product not found"}
	ErrInvalidQuantity = CatalogError{Code: "INVALID_QUANTITY", Message: "quantity must be at least 1"}
	ErrInvalidProduct  = CatalogError{Code: "INVALID_PRODUCT", Message: "product name and a non-negative price are required"}
)

// HomePage is the public homepage payload assembled from active content
type HomePage struct {
	Sections     []database.HomePageSection `json:"sections"`
	PlanItems    []database.PlanItem        `json:"plan_items"`
	ProductItems []database.ProductItem     `json:"product_items"`
}

// Store is the persistence surface the catalog needs. *database.Repository
// satisfies it.
type Store interface {
	CreateProduct(ctx context.Context, p *database.Product) error
	GetProductByID(ctx context.Context, id int64) (*database.Product, error)
	ListProducts(ctx context.Context) ([]database.Product, error)
	UpdateProduct(ctx context.Context, p *database.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	CreatePurchase(ctx context.Context, p *database.Purchase) error
	GetPurchasesByUser(ctx context.Context, userID string) ([]database.Purchase, error)
	GetPurchaseStats(ctx context.Context, userID string) (int, decimal.Decimal, error)
	UpsertHomePageSection(ctx context.Context, s *database.HomePageSection) error
	GetActiveHomePageSections(ctx context.Context) ([]database.HomePageSection, error)
	CreatePlanItem(ctx context.Context, item *database.PlanItem) error
	GetActivePlanItems(ctx context.Context) ([]database.PlanItem, error)
	DeletePlanItem(ctx context.Context, id int64) error
	CreateProductItem(ctx context.Context, item *database.ProductItem) error
	GetActiveProductItems(ctx context.Context) ([]database.ProductItem, error)
	DeleteProductItem(ctx context.Context, id int64) error
}

// ContentCache caches the assembled homepage payload. May be absent.
type ContentCache interface {
	GetHomePage(ctx context.Context) (*HomePage, bool)
	SetHomePage(ctx context.Context, page *HomePage)
	InvalidateHomePage(ctx context.Context)
}

// Service provides catalog and homepage content operations
type Service struct {
	store Store
	cache ContentCache // may be nil
}

// NewService creates a new catalog service. cache may be nil.
func NewService(store Store, cache ContentCache) *Service {
	return &Service{store: store, cache: cache}
}

// CreateProduct adds a product to the catalog
func (s *Service) CreateProduct(ctx context.Context, name string, description *string, price decimal.Decimal) (*database.Product, error) {
	if name == "" || price.IsNegative() {
		return nil, ErrInvalidProduct
	}

	p := &database.Product{Name: name, Description: description, Price: price.Round(2)}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListProducts lists the catalog
func (s *Service) ListProducts(ctx context.Context) ([]database.Product, error) {
	return s.store.ListProducts(ctx)
}

// UpdateProduct updates an existing product
func (s *Service) UpdateProduct(ctx context.Context, p *database.Product) error {
	if p.Name == "" || p.Price.IsNegative() {
		return ErrInvalidProduct
	}
	p.Price = p.Price.Round(2)
	return s.store.UpdateProduct(ctx, p)
}

// DeleteProduct removes a product from the catalog
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.store.DeleteProduct(ctx, id)
}

// Purchase records a member buying quantity units of a product. The
// total is quantity x current price; the member's account balance is
// not involved.
func (s *Service) Purchase(ctx context.Context, userID string, productID int64, quantity int) (*database.Purchase, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	purchase := &database.Purchase{
		UserID:      userID,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    quantity,
		TotalAmount: product.Price.Mul(decimal.NewFromInt(int64(quantity))).Round(2),
	}

	if err := s.store.CreatePurchase(ctx, purchase); err != nil {
		return nil, err
	}

	logging.PurchaseContext(userID, product.ID, quantity).
		Info("Purchase recorded", "total_amount", purchase.TotalAmount.StringFixed(2))

	return purchase, nil
}

// PurchaseHistory returns a member's purchases, newest first
func (s *Service) PurchaseHistory(ctx context.Context, userID string) ([]database.Purchase, error) {
	return s.store.GetPurchasesByUser(ctx, userID)
}

// PurchaseStats returns the purchase count and total amount spent
func (s *Service) PurchaseStats(ctx context.Context, userID string) (int, decimal.Decimal, error) {
	return s.store.GetPurchaseStats(ctx, userID)
}

// HomePage assembles the public homepage payload, preferring the cache
func (s *Service) HomePage(ctx context.Context) (*HomePage, error) {
	if s.cache != nil {
		if page, ok := s.cache.GetHomePage(ctx); ok {
			return page, nil
		}
	}

	sections, err := s.store.GetActiveHomePageSections(ctx)
	if err != nil {
		return nil, err
	}
	planItems, err := s.store.GetActivePlanItems(ctx)
	if err != nil {
		return nil, err
	}
	productItems, err := s.store.GetActiveProductItems(ctx)
	if err != nil {
		return nil, err
	}

	page := &HomePage{Sections: sections, PlanItems: planItems, ProductItems: productItems}

	if s.cache != nil {
		s.cache.SetHomePage(ctx, page)
	}

	return page, nil
}

// SaveSection creates or updates a homepage section and invalidates the
// cached homepage
func (s *Service) SaveSection(ctx context.Context, section *database.HomePageSection) error {
	if err := s.store.UpsertHomePageSection(ctx, section); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// AddPlanItem adds a homepage plan item
func (s *Service) AddPlanItem(ctx context.Context, item *database.PlanItem) error {
	if err := s.store.CreatePlanItem(ctx, item); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// RemovePlanItem deletes a homepage plan item
func (s *Service) RemovePlanItem(ctx context.Context, id int64) error {
	if err := s.store.DeletePlanItem(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// AddProductItem adds a homepage product item
func (s *Service) AddProductItem(ctx context.Context, item *database.ProductItem) error {
	if err := s.store.CreateProductItem(ctx, item); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// RemoveProductItem deletes a homepage product item
func (s *Service) RemoveProductItem(ctx context.Context, id int64) error {
	if err := s.store.DeleteProductItem(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidateHomePage(ctx)
	}
}
