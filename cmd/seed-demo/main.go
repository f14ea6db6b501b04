// Command seed-demo populates a development database with demo content:
// a small member tree, catalog products and homepage content. Not for
// production use.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"mlm-referral-app/config"
	"mlm-referral-app/internal/auth"
	"mlm-referral-app/internal/catalog"
	"mlm-referral-app/internal/database"
	"mlm-referral-app/internal/referral"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func main() {
	password := flag.String("password", "Demo1234!", "password for every seeded account")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fatalf("failed to load configuration: %v", err)
	}

	db, err := database.NewDB(database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	})
	if err != nil {
		fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := db.RunMigrations(ctx); err != nil {
		fatalf("failed to run migrations: %v", err)
	}

	repo := database.NewRepository(db)
	passwordManager := auth.NewPasswordManager(auth.DefaultBcryptCost, cfg.AuthConfig.MinPasswordLength)
	engine := referral.NewService(repo, passwordManager, nil, referral.DefaultConfig())
	store := catalog.NewService(repo, nil)

	// Root sponsor plus a two-level downline so the dashboard has
	// something to show.
	root, _, err := engine.Enroll(ctx, referral.EnrollRequest{
		Email:     "sponsor@example.com",
		Password:  *password,
		FirstName: "Root",
		LastName:  "Sponsor",
	})
	if err != nil {
		fatalf("failed to seed root sponsor: %v", err)
	}
	fmt.Printf("seeded %s (code %s)\n", root.Email, root.ReferralCode)

	downline := []referral.EnrollRequest{
		{Email: "alice@example.com", FirstName: "Alice", LastName: "Demo", SponsorCode: root.ReferralCode},
		{Email: "bob@example.com", FirstName: "Bob", LastName: "Demo", SponsorCode: root.ReferralCode},
	}
	var second *database.User
	for _, req := range downline {
		req.Password = *password
		u, edge, err := engine.Enroll(ctx, req)
		if err != nil {
			fatalf("failed to seed %s: %v", req.Email, err)
		}
		fmt.Printf("seeded %s (code %s, commission %s)\n",
			u.Email, u.ReferralCode, edge.CommissionEarned.StringFixed(2))
		second = u
	}

	// One grandchild under the last direct referral
	_, _, err = engine.Enroll(ctx, referral.EnrollRequest{
		Email:       "carol@example.com",
		Password:    *password,
		FirstName:   "Carol",
		LastName:    "Demo",
		SponsorCode: second.ReferralCode,
	})
	if err != nil {
		fatalf("failed to seed carol: %v", err)
	}

	// Catalog products
	products := []struct {
		name  string
		desc  string
		price string
	}{
		{"Starter Kit", "Everything a new member needs to get going", "499.00"},
		{"Wellness Pack", "Monthly wellness product bundle", "1299.00"},
		{"Premium Kit", "Full product line sampler", "2499.00"},
	}
	for _, p := range products {
		desc := p.desc
		price, _ := decimal.NewFromString(p.price)
		if _, err := store.CreateProduct(ctx, p.name, &desc, price); err != nil {
			fatalf("failed to seed product %s: %v", p.name, err)
		}
		fmt.Printf("seeded product %s\n", p.name)
	}

	// Homepage content
	heroSubtitle := "Earn direct referral income by growing your team"
	sections := []database.HomePageSection{
		{SectionType: database.SectionHero, Title: "Build Your Network", Subtitle: &heroSubtitle, IsActive: true, DisplayOrder: 1},
		{SectionType: database.SectionPlans, Title: "Income Plans", IsActive: true, DisplayOrder: 2},
		{SectionType: database.SectionProducts, Title: "Our Products", IsActive: true, DisplayOrder: 3},
	}
	for i := range sections {
		if err := store.SaveSection(ctx, &sections[i]); err != nil {
			fatalf("failed to seed section %s: %v", sections[i].SectionType, err)
		}
	}

	planItems := []database.PlanItem{
		{Icon: "handshake", Title: "Direct Referral", Description: "Earn for every member you personally sponsor", Amount: "Rs. 200", DisplayOrder: 1, IsActive: true},
		{Icon: "scale", Title: "Matching Income", Description: "Earn a percentage on matched team volume", Amount: "6%", DisplayOrder: 2, IsActive: true},
	}
	for i := range planItems {
		if err := store.AddPlanItem(ctx, &planItems[i]); err != nil {
			fatalf("failed to seed plan item: %v", err)
		}
	}

	fmt.Println("demo data seeded")
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
