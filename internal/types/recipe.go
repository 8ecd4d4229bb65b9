package types

import (
	"errors"
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/pageza/foodgram/backend/internal/models"
)

// ErrDuplicateIngredients is reported once for any number of repeated ingredient ids.
var ErrDuplicateIngredients = errors.New("ingredients must not repeat")

// IngredientAmountRequest references an existing ingredient and its amount
type IngredientAmountRequest struct {
	ID     uint `json:"id"`
	Amount int  `json:"amount"`
}

// RecipeWriteRequest is the payload for creating and updating recipes.
// Image is a base64 data URI; it may be omitted on update to keep the current image.
type RecipeWriteRequest struct {
	Ingredients []IngredientAmountRequest `json:"ingredients"`
	Tags        []uint                    `json:"tags"`
	Image       string                    `json:"image"`
	Name        string                    `json:"name"`
	Text        string                    `json:"text"`
	CookingTime int                       `json:"cooking_time"`
}

func (r RecipeWriteRequest) Validate() error {
	minimum := fmt.Sprintf("must be at least %d", models.MinAmount)
	return validation.ValidateStruct(&r,
		validation.Field(&r.Ingredients, validation.Required, validation.By(checkIngredientAmounts)),
		validation.Field(&r.Tags, validation.Required, validation.By(checkUniqueTags)),
		validation.Field(&r.Name, validation.Required, validation.RuneLength(1, 200)),
		validation.Field(&r.Text, validation.Required),
		validation.Field(&r.CookingTime,
			validation.Required.Error(minimum),
			validation.Min(models.MinAmount).Error(minimum),
		),
	)
}

// checkIngredientAmounts rejects the first amount below the minimum, then
// reports repeated ingredient ids as a single error.
func checkIngredientAmounts(value interface{}) error {
	items, _ := value.([]IngredientAmountRequest)
	seen := make(map[uint]struct{}, len(items))
	duplicate := false
	for _, item := range items {
		if item.Amount < models.MinAmount {
			return fmt.Errorf("amount of ingredient %d must be at least %d", item.ID, models.MinAmount)
		}
		if _, ok := seen[item.ID]; ok {
			duplicate = true
		}
		seen[item.ID] = struct{}{}
	}
	if duplicate {
		return ErrDuplicateIngredients
	}
	return nil
}

func checkUniqueTags(value interface{}) error {
	ids, _ := value.([]uint)
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return errors.New("tags must not repeat")
		}
		seen[id] = struct{}{}
	}
	return nil
}

var (
	colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	slugPattern  = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

// CreateTagRequest is the payload for creating a tag
type CreateTagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Slug  string `json:"slug"`
}

func (r CreateTagRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.RuneLength(1, 200)),
		validation.Field(&r.Color, validation.Required, validation.Match(colorPattern).Error("must be a hex color such as #49B64E")),
		validation.Field(&r.Slug, validation.Required, validation.RuneLength(1, 200), validation.Match(slugPattern)),
	)
}

type TagResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Slug  string `json:"slug"`
}

type IngredientResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

// RecipeIngredientResponse is an ingredient together with its amount in a recipe
type RecipeIngredientResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

// RecipeResponse is the full read representation of a recipe
type RecipeResponse struct {
	ID               uint                       `json:"id"`
	Tags             []TagResponse              `json:"tags"`
	Author           UserResponse               `json:"author"`
	Ingredients      []RecipeIngredientResponse `json:"ingredients"`
	IsFavorited      bool                       `json:"is_favorited"`
	IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
	Name             string                     `json:"name"`
	Image            string                     `json:"image"`
	Text             string                     `json:"text"`
	CookingTime      int                        `json:"cooking_time"`
}

// RecipeShortResponse is returned by favorite and shopping cart toggles
type RecipeShortResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

// RecipeFilter narrows the recipe list. Nil flags are not applied.
type RecipeFilter struct {
	Tags             []string
	AuthorID         uint
	IsFavorited      *bool
	IsInShoppingCart *bool
}

// ShoppingListLine is one aggregated ingredient of the shopping list
type ShoppingListLine struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int64  `json:"amount"`
}
