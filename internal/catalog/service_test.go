package catalog

import (
	"context"
	"errors"
	"testing"

	"mlm-referral-app/internal/database"

	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory Store for catalog tests
type fakeStore struct {
	products     map[int64]*database.Product
	purchases    []database.Purchase
	sections     map[string]*database.HomePageSection
	planItems    map[int64]*database.PlanItem
	productItems map[int64]*database.ProductItem
	nextID       int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:     make(map[int64]*database.Product),
		sections:     make(map[string]*database.HomePageSection),
		planItems:    make(map[int64]*database.PlanItem),
		productItems: make(map[int64]*database.ProductItem),
	}
}

func (f *fakeStore) CreateProduct(ctx context.Context, p *database.Product) error {
	f.nextID++
	p.ID = f.nextID
	stored := *p
	f.products[p.ID] = &stored
	return nil
}

func (f *fakeStore) GetProductByID(ctx context.Context, id int64) (*database.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (f *fakeStore) ListProducts(ctx context.Context) ([]database.Product, error) {
	var out []database.Product
	for _, p := range f.products {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStore) UpdateProduct(ctx context.Context, p *database.Product) error {
	stored := *p
	f.products[p.ID] = &stored
	return nil
}

func (f *fakeStore) DeleteProduct(ctx context.Context, id int64) error {
	delete(f.products, id)
	return nil
}

func (f *fakeStore) CreatePurchase(ctx context.Context, p *database.Purchase) error {
	f.nextID++
	p.ID = f.nextID
	f.purchases = append(f.purchases, *p)
	return nil
}

func (f *fakeStore) GetPurchasesByUser(ctx context.Context, userID string) ([]database.Purchase, error) {
	var out []database.Purchase
	for _, p := range f.purchases {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) GetPurchaseStats(ctx context.Context, userID string) (int, decimal.Decimal, error) {
	count := 0
	total := decimal.Zero
	for _, p := range f.purchases {
		if p.UserID == userID {
			count++
			total = total.Add(p.TotalAmount)
		}
	}
	return count, total, nil
}

func (f *fakeStore) UpsertHomePageSection(ctx context.Context, s *database.HomePageSection) error {
	if existing, ok := f.sections[s.SectionType]; ok {
		s.ID = existing.ID
	} else {
		f.nextID++
		s.ID = f.nextID
	}
	stored := *s
	f.sections[s.SectionType] = &stored
	return nil
}

func (f *fakeStore) GetActiveHomePageSections(ctx context.Context) ([]database.HomePageSection, error) {
	var out []database.HomePageSection
	for _, s := range f.sections {
		if s.IsActive {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) CreatePlanItem(ctx context.Context, item *database.PlanItem) error {
	f.nextID++
	item.ID = f.nextID
	stored := *item
	f.planItems[item.ID] = &stored
	return nil
}

func (f *fakeStore) GetActivePlanItems(ctx context.Context) ([]database.PlanItem, error) {
	var out []database.PlanItem
	for _, item := range f.planItems {
		if item.IsActive {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (f *fakeStore) DeletePlanItem(ctx context.Context, id int64) error {
	delete(f.planItems, id)
	return nil
}

func (f *fakeStore) CreateProductItem(ctx context.Context, item *database.ProductItem) error {
	f.nextID++
	item.ID = f.nextID
	stored := *item
	f.productItems[item.ID] = &stored
	return nil
}

func (f *fakeStore) GetActiveProductItems(ctx context.Context) ([]database.ProductItem, error) {
	var out []database.ProductItem
	for _, item := range f.productItems {
		if item.IsActive {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteProductItem(ctx context.Context, id int64) error {
	delete(f.productItems, id)
	return nil
}

// fakeCache is an in-memory ContentCache that counts invalidations
type fakeCache struct {
	page          *HomePage
	invalidations int
}

func (f *fakeCache) GetHomePage(ctx context.Context) (*HomePage, bool) {
	if f.page == nil {
		return nil, false
	}
	return f.page, true
}

func (f *fakeCache) SetHomePage(ctx context.Context, page *HomePage) {
	f.page = page
}

func (f *fakeCache) InvalidateHomePage(ctx context.Context) {
	f.page = nil
	f.invalidations++
}

// TestPurchaseComputesTotal verifies total = quantity x current price
func TestPurchaseComputesTotal(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	product, err := svc.CreateProduct(context.Background(), "Starter Kit", nil, decimal.NewFromFloat(499.50))
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}

	purchase, err := svc.Purchase(context.Background(), "u1", product.ID, 3)
	if err != nil {
		t.Fatalf("Purchase failed: %v", err)
	}

	want := decimal.NewFromFloat(1498.50)
	if !purchase.TotalAmount.Equal(want) {
		t.Errorf("Expected total 1498.50, got %s", purchase.TotalAmount)
	}
	if purchase.ProductName != "Starter Kit" {
		t.Errorf("Expected product name snapshot, got %q", purchase.ProductName)
	}
}

// TestPurchaseValidation verifies quantity and product checks
func TestPurchaseValidation(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	product, _ := svc.CreateProduct(context.Background(), "Kit", nil, decimal.NewFromInt(100))

	if _, err := svc.Purchase(context.Background(), "u1", product.ID, 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("Expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := svc.Purchase(context.Background(), "u1", 9999, 1); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
}

// TestPurchaseStats verifies count and total accumulate per member
func TestPurchaseStats(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	product, _ := svc.CreateProduct(context.Background(), "Kit", nil, decimal.NewFromInt(100))

	svc.Purchase(context.Background(), "u1", product.ID, 2)
	svc.Purchase(context.Background(), "u1", product.ID, 1)
	svc.Purchase(context.Background(), "u2", product.ID, 5)

	count, total, err := svc.PurchaseStats(context.Background(), "u1")
	if err != nil {
		t.Fatalf("PurchaseStats failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 purchases, got %d", count)
	}
	if !total.Equal(decimal.NewFromInt(300)) {
		t.Errorf("Expected total 300, got %s", total)
	}
}

// TestCreateProductValidation verifies product input checks
func TestCreateProductValidation(t *testing.T) {
	svc := NewService(newFakeStore(), nil)

	if _, err := svc.CreateProduct(context.Background(), "", nil, decimal.NewFromInt(10)); !errors.Is(err, ErrInvalidProduct) {
		t.Errorf("Expected ErrInvalidProduct for empty name, got %v", err)
	}
	if _, err := svc.CreateProduct(context.Background(), "Kit", nil, decimal.NewFromInt(-1)); !errors.Is(err, ErrInvalidProduct) {
		t.Errorf("Expected ErrInvalidProduct for negative price, got %v", err)
	}
}

// TestHomePageAssemblesActiveContent verifies only active rows appear
func TestHomePageAssemblesActiveContent(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	active := &database.HomePageSection{SectionType: database.SectionHero, Title: "Hello", IsActive: true}
	inactive := &database.HomePageSection{SectionType: database.SectionFAQ, Title: "Hidden", IsActive: false}
	svc.SaveSection(context.Background(), active)
	svc.SaveSection(context.Background(), inactive)

	svc.AddPlanItem(context.Background(), &database.PlanItem{Title: "Direct", IsActive: true})
	svc.AddPlanItem(context.Background(), &database.PlanItem{Title: "Retired", IsActive: false})

	page, err := svc.HomePage(context.Background())
	if err != nil {
		t.Fatalf("HomePage failed: %v", err)
	}

	if len(page.Sections) != 1 || page.Sections[0].Title != "Hello" {
		t.Errorf("Expected only the active section, got %+v", page.Sections)
	}
	if len(page.PlanItems) != 1 || page.PlanItems[0].Title != "Direct" {
		t.Errorf("Expected only the active plan item, got %+v", page.PlanItems)
	}
}

// TestHomePageUsesCache verifies cache hits skip the store and content
// edits invalidate
func TestHomePageUsesCache(t *testing.T) {
	store := newFakeStore()
	cache := &fakeCache{}
	svc := NewService(store, cache)

	svc.SaveSection(context.Background(), &database.HomePageSection{
		SectionType: database.SectionHero, Title: "First", IsActive: true,
	})

	// First read populates the cache
	page, err := svc.HomePage(context.Background())
	if err != nil {
		t.Fatalf("HomePage failed: %v", err)
	}
	if cache.page == nil {
		t.Fatal("Expected homepage to be cached after first read")
	}

	// Edit behind the cache's back; cached payload is served until
	// invalidated
	store.sections[database.SectionHero].Title = "Changed"
	page, err = svc.HomePage(context.Background())
	if err != nil {
		t.Fatalf("HomePage failed: %v", err)
	}
	if page.Sections[0].Title != "First" {
		t.Errorf("Expected cached title First, got %s", page.Sections[0].Title)
	}

	// A content edit through the service invalidates
	before := cache.invalidations
	svc.SaveSection(context.Background(), &database.HomePageSection{
		SectionType: database.SectionHero, Title: "Third", IsActive: true,
	})
	if cache.invalidations != before+1 {
		t.Error("Expected SaveSection to invalidate the cached homepage")
	}
	if cache.page != nil {
		t.Error("Expected cache cleared after invalidation")
	}
}
