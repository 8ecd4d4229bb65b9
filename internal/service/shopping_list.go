package service

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/permission"
	"github.com/pageza/foodgram/backend/internal/types"
)

const (
	ShoppingListFilename = "shopping_cart.txt"

	shoppingListHeader = "Foodgram shopping list: ingredients for the recipes you selected\n"
	shoppingListFooter = "\n\nThank you for using Foodgram!"
)

// ShoppingListService aggregates the ingredients of every recipe in a user's cart.
type ShoppingListService struct {
	db *gorm.DB
}

func NewShoppingListService(db *gorm.DB) *ShoppingListService {
	return &ShoppingListService{db: db}
}

// Lines sums ingredient amounts across the cart grouped by name and unit,
// ordered by name. An empty cart is reported as ErrNotFound.
func (s *ShoppingListService) Lines(ctx context.Context, requester permission.Requester) ([]types.ShoppingListLine, error) {
	if !requester.Authenticated {
		return nil, ErrUnauthorized
	}

	db := s.db.WithContext(ctx)

	var inCart int64
	if err := db.Model(&models.ShoppingCart{}).Where("user_id = ?", requester.ID).Count(&inCart).Error; err != nil {
		return nil, fmt.Errorf("failed to count shopping cart: %w", err)
	}
	if inCart == 0 {
		return nil, newError(ErrNotFound, "shopping cart is empty")
	}

	var lines []types.ShoppingListLine
	err := db.Table("shopping_carts AS sc").
		Select("i.name AS name, i.measurement_unit AS measurement_unit, SUM(ir.amount) AS amount").
		Joins("JOIN ingredient_recipes AS ir ON ir.recipe_id = sc.recipe_id").
		Joins("JOIN ingredients AS i ON i.id = ir.ingredient_id").
		Where("sc.user_id = ?", requester.ID).
		Group("i.name, i.measurement_unit").
		Order("i.name ASC, i.measurement_unit ASC").
		Scan(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate shopping list: %w", err)
	}
	return lines, nil
}

// WriteShoppingList renders lines as the plain-text download.
func WriteShoppingList(w io.Writer, lines []types.ShoppingListLine) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(shoppingListHeader)
	for _, line := range lines {
		fmt.Fprintf(bw, "\n%s - %d, %s", line.Name, line.Amount, line.MeasurementUnit)
	}
	bw.WriteString(shoppingListFooter)
	return bw.Flush()
}
