package main

// Grant or revoke admin rights out of band:
//   go run ./cmd/admin -email ops@example.com -grant
//   go run ./cmd/admin -email ops@example.com -revoke

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/storage/db"
	"resume-builder/internal/users"
)

func main() {
	email := flag.String("email", "", "account e-mail")
	grant := flag.Bool("grant", false, "grant admin rights")
	revoke := flag.Bool("revoke", false, "revoke admin rights")
	flag.Parse()

	if strings.TrimSpace(*email) == "" || *grant == *revoke {
		exitErr("usage: admin -email <address> (-grant | -revoke)")
	}

	cfg := config.Load()
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		exitErr("DATABASE_URL is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.ProfileCLI))
	if err != nil {
		exitErr(fmt.Sprintf("connect database: %v", err))
	}
	defer sqlDB.Close()

	svc := users.NewService(&users.PGRepo{DB: sqlDB}, nil, nil)
	user, err := setAdmin(ctx, svc, *email, *grant)
	if err != nil {
		exitErr(err.Error())
	}
	fmt.Printf("OK: %s admin=%v\n", user.Email, user.IsAdmin)
}

func setAdmin(ctx context.Context, svc *users.Service, email string, admin bool) (users.User, error) {
	user, err := svc.SetAdmin(ctx, users.NormalizeEmail(email), admin)
	if err != nil {
		return users.User{}, fmt.Errorf("set admin for %s: %w", email, err)
	}
	return user, nil
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
