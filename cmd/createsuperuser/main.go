package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

func main() {
	var req types.RegisterRequest
	flag.StringVar(&req.Username, "username", "admin", "Username of the admin account")
	flag.StringVar(&req.Email, "email", "admin@example.com", "Email of the admin account")
	flag.StringVar(&req.FirstName, "first-name", "Admin", "First name")
	flag.StringVar(&req.LastName, "last-name", "User", "Last name")
	flag.Parse()

	log := logrus.New()

	// The password is never taken from a flag so it stays out of shell history.
	req.Password = os.Getenv("FOODGRAM_ADMIN_PASSWORD")
	if req.Password == "" {
		log.Fatal("FOODGRAM_ADMIN_PASSWORD environment variable is not set")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	db, err := database.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	if err := database.RunMigrations(db, log); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := service.NewUserService(db)
	if existing, err := users.FindByUsername(ctx, req.Username); err == nil {
		log.WithField("id", existing.ID).Fatalf("User %q already exists", req.Username)
	}

	admin, err := users.CreateAdmin(ctx, &req)
	if err != nil {
		log.WithError(err).Fatal("Failed to create admin")
	}
	log.WithFields(logrus.Fields{"id": admin.ID, "username": admin.Username}).Info("Admin account created")
}
