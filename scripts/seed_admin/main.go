// Command seed_admin bootstraps the first administrator account.
// Meant for fresh deployments where no admin exists yet to approve
// schools or manage users.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/shams-connect/school-needs-api/pkg/config"
	"github.com/shams-connect/school-needs-api/pkg/database"
)

func main() {
	var (
		email    string
		password string
		fullName string
		timeout  time.Duration
	)

	flag.StringVar(&email, "email", "", "admin email address")
	flag.StringVar(&password, "password", "", "admin password (min 8 characters)")
	flag.StringVar(&fullName, "name", "Platform Administrator", "admin display name")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "database operation timeout")
	flag.Parse()

	if email == "" || len(password) < 8 {
		fmt.Fprintln(os.Stderr, "usage: seed_admin -email <email> -password <min 8 chars> [-name <name>]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var exists bool
	if err := db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)", email); err != nil {
		log.Fatalf("failed to check existing account: %v", err)
	}
	if exists {
		log.Fatalf("an account with email %s already exists", email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	now := time.Now().UTC()
	id := uuid.NewString()
	_, err = db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'ADMIN', TRUE, $5, $5)`,
		id, email, string(hash), fullName, now)
	if err != nil {
		log.Fatalf("failed to create admin: %v", err)
	}

	fmt.Printf("admin account created: %s (%s)\n", email, id)
}
