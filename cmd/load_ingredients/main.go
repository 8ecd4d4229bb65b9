package main

import (
	"context"
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/service"
)

func main() {
	file := flag.String("file", "data/ingredients.csv", "CSV file with name,measurement_unit rows")
	header := flag.Bool("header", false, "Skip the first row")
	flag.Parse()

	log := logrus.New()

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

	f, err := os.Open(*file)
	if err != nil {
		log.WithError(err).Fatal("Failed to open ingredients file")
	}
	defer f.Close()

	report, err := service.NewIngredientService(db, log).Load(context.Background(), f, *header)
	if err != nil {
		log.WithError(err).Fatal("Failed to load ingredients")
	}
	log.WithFields(logrus.Fields{
		"file":    *file,
		"loaded":  report.Loaded,
		"invalid": report.Invalid,
	}).Info("Done")
}
