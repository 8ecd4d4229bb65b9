package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

const (
	maxIngredientField  = 200
	ingredientBatchSize = 500
)

type IngredientService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewIngredientService(db *gorm.DB, log logrus.FieldLogger) *IngredientService {
	return &IngredientService{db: db, log: log}
}

// ListIngredients returns ingredients whose name starts with prefix, ignoring case.
func (s *IngredientService) ListIngredients(ctx context.Context, prefix string) ([]types.IngredientResponse, error) {
	query := s.db.WithContext(ctx).Order("name").Order("id")
	if prefix = strings.TrimSpace(prefix); prefix != "" {
		query = query.Where("LOWER(name) LIKE ? ESCAPE '\\'", escapeLike(strings.ToLower(prefix))+"%")
	}

	var ingredients []models.Ingredient
	if err := query.Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	out := make([]types.IngredientResponse, 0, len(ingredients))
	for _, i := range ingredients {
		out = append(out, ingredientResponse(i))
	}
	return out, nil
}

func (s *IngredientService) GetIngredient(ctx context.Context, id uint) (*types.IngredientResponse, error) {
	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		return nil, notFoundOr(err, "ingredient %d not found", id)
	}
	resp := ingredientResponse(ingredient)
	return &resp, nil
}

// LoadReport summarizes a bulk ingredient import.
type LoadReport struct {
	Loaded  int
	Invalid int
}

// Load imports "name,measurement_unit" CSV rows. Invalid rows are skipped and
// counted; valid rows go in one transaction so a storage failure loads nothing.
func (s *IngredientService) Load(ctx context.Context, r io.Reader, header bool) (*LoadReport, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	report := &LoadReport{}
	var rows []models.Ingredient
	for first := true; ; first = false {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			report.Invalid++
			s.log.WithField("line", parseErr.StartLine).WithError(err).Warn("Skipping malformed ingredient row")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ingredients: %w", err)
		}
		if header && first {
			continue
		}

		// Quoted fields may span lines, so report where the record starts.
		line, _ := reader.FieldPos(0)

		ingredient, ok := parseIngredientRow(record)
		if !ok {
			report.Invalid++
			s.log.WithFields(logrus.Fields{"line": line, "row": record}).Warn("Skipping invalid ingredient row")
			continue
		}
		rows = append(rows, ingredient)
	}

	if len(rows) > 0 {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.CreateInBatches(&rows, ingredientBatchSize).Error
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load ingredients: %w", err)
		}
	}
	report.Loaded = len(rows)

	s.log.WithFields(logrus.Fields{"loaded": report.Loaded, "invalid": report.Invalid}).Info("Ingredients loaded")
	return report, nil
}

func parseIngredientRow(record []string) (models.Ingredient, bool) {
	if len(record) != 2 {
		return models.Ingredient{}, false
	}
	name := strings.TrimSpace(record[0])
	unit := strings.TrimSpace(record[1])
	if !validIngredientField(name) || !validIngredientField(unit) {
		return models.Ingredient{}, false
	}
	return models.Ingredient{Name: name, MeasurementUnit: unit}, true
}

func validIngredientField(v string) bool {
	n := utf8.RuneCountInString(v)
	return n > 0 && n <= maxIngredientField
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func ingredientResponse(i models.Ingredient) types.IngredientResponse {
	return types.IngredientResponse{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}
