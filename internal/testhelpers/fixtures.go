package testhelpers

import (
	"fmt"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
)

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "s3cret-pass"

// CreateUser inserts a user with the given username and role.
func CreateUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return user
}

func CreateIngredient(t *testing.T, db *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()
	ingredient := &models.Ingredient{Name: name, MeasurementUnit: unit}
	if err := db.Create(ingredient).Error; err != nil {
		t.Fatalf("failed to create ingredient %s: %v", name, err)
	}
	return ingredient
}

func CreateTag(t *testing.T, db *gorm.DB, name, color string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: name, Color: color, Slug: name}
	if err := db.Create(tag).Error; err != nil {
		t.Fatalf("failed to create tag %s: %v", name, err)
	}
	return tag
}

// RecipeFixture describes a recipe inserted directly into storage.
type RecipeFixture struct {
	Name        string
	CookingTime int
	CreatedAt   time.Time
	Ingredients map[uint]int
	Tags        []uint
}

// CreateRecipe inserts a recipe with its ingredient and tag rows.
func CreateRecipe(t *testing.T, db *gorm.DB, author *models.User, f RecipeFixture) *models.Recipe {
	t.Helper()
	if f.CookingTime == 0 {
		f.CookingTime = 10
	}
	recipe := &models.Recipe{
		AuthorID:    author.ID,
		Name:        f.Name,
		Text:        fmt.Sprintf("How to cook %s", f.Name),
		CookingTime: f.CookingTime,
		CreatedAt:   f.CreatedAt,
	}
	if err := db.Omit("IngredientAmounts", "TagLinks", "Author").Create(recipe).Error; err != nil {
		t.Fatalf("failed to create recipe %s: %v", f.Name, err)
	}
	for ingredientID, amount := range f.Ingredients {
		row := &models.IngredientRecipe{RecipeID: recipe.ID, IngredientID: ingredientID, Amount: amount}
		if err := db.Omit("Recipe", "Ingredient").Create(row).Error; err != nil {
			t.Fatalf("failed to add ingredient to recipe %s: %v", f.Name, err)
		}
	}
	for _, tagID := range f.Tags {
		row := &models.TagRecipe{RecipeID: recipe.ID, TagID: tagID}
		if err := db.Omit("Recipe", "Tag").Create(row).Error; err != nil {
			t.Fatalf("failed to add tag to recipe %s: %v", f.Name, err)
		}
	}
	return recipe
}
