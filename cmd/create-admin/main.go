// Command create-admin creates or promotes an admin account. It talks
// directly to the database, so it works even before the first admin
// exists.
//
// Usage:
//
//	create-admin -email admin@example.com -password 'S3cret!pass' [-first Admin] [-last User]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"mlm-referral-app/config"
	"mlm-referral-app/internal/auth"
	"mlm-referral-app/internal/database"
	"mlm-referral-app/internal/referral"

	"github.com/joho/godotenv"
)

func main() {
	email := flag.String("email", "", "admin email address (required)")
	password := flag.String("password", "", "admin password (required)")
	firstName := flag.String("first", "Admin", "first name")
	lastName := flag.String("last", "", "last name")
	flag.Parse()

	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.RunMigrations(ctx); err != nil {
		fatalf("failed to run migrations: %v", err)
	}

	repo := database.NewRepository(db)
	passwordManager := auth.NewPasswordManager(auth.DefaultBcryptCost, cfg.AuthConfig.MinPasswordLength)

	// An existing account is promoted rather than duplicated.
	existing, err := repo.GetUserByEmail(ctx, *email)
	if err != nil {
		fatalf("failed to look up user: %v", err)
	}
	if existing != nil {
		if existing.IsAdmin {
			fmt.Printf("user %s is already an admin\n", *email)
			return
		}
		if err := repo.SetAdmin(ctx, existing.ID, true); err != nil {
			fatalf("failed to promote user: %v", err)
		}
		fmt.Printf("promoted %s to admin\n", *email)
		return
	}

	referralConfig := referral.DefaultConfig()
	referralConfig.CodePrefix = cfg.ReferralConfig.CodePrefix
	engine := referral.NewService(repo, passwordManager, nil, referralConfig)

	user, _, err := engine.Enroll(ctx, referral.EnrollRequest{
		Email:     *email,
		Password:  *password,
		FirstName: *firstName,
		LastName:  *lastName,
	})
	if err != nil {
		fatalf("failed to create admin account: %v", err)
	}

	if err := repo.SetAdmin(ctx, user.ID, true); err != nil {
		fatalf("failed to grant admin role: %v", err)
	}

	fmt.Printf("created admin %s (referral code %s)\n", user.Email, user.ReferralCode)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
