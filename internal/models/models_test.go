package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

func TestRole(t *testing.T) {
	assert.True(t, models.RoleUser.Valid())
	assert.True(t, models.RoleAdmin.Valid())
	assert.False(t, models.Role("moderator").Valid())

	assert.True(t, models.RoleAdmin.IsAdmin())
	assert.False(t, models.RoleUser.IsAdmin())
	assert.True(t, (&models.User{Role: models.RoleAdmin}).IsAdmin())
}

func TestRecipeConstraints(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	alice := testhelpers.CreateUser(t, db, "alice", models.RoleUser)
	flour := testhelpers.CreateIngredient(t, db, "flour", "g")
	recipe := testhelpers.CreateRecipe(t, db, alice, testhelpers.RecipeFixture{Name: "Bread"})

	t.Run("cooking time below minimum", func(t *testing.T) {
		err := db.Omit("Author").Create(&models.Recipe{AuthorID: alice.ID, Name: "Raw", Text: "x", CookingTime: 0}).Error
		assert.Error(t, err)
	})

	t.Run("amount below minimum", func(t *testing.T) {
		err := db.Omit("Recipe", "Ingredient").Create(&models.IngredientRecipe{RecipeID: recipe.ID, IngredientID: flour.ID, Amount: 0}).Error
		assert.Error(t, err)
	})

	t.Run("name unique per author", func(t *testing.T) {
		err := db.Omit("Author").Create(&models.Recipe{AuthorID: alice.ID, Name: "Bread", Text: "x", CookingTime: 5}).Error
		assert.Error(t, err)

		bob := testhelpers.CreateUser(t, db, "bob", models.RoleUser)
		err = db.Omit("Author").Create(&models.Recipe{AuthorID: bob.ID, Name: "Bread", Text: "x", CookingTime: 5}).Error
		assert.NoError(t, err)
	})

	t.Run("favorite unique per user and recipe", func(t *testing.T) {
		require.NoError(t, db.Omit("User", "Recipe").Create(&models.Favorite{UserID: alice.ID, RecipeID: recipe.ID}).Error)
		err := db.Omit("User", "Recipe").Create(&models.Favorite{UserID: alice.ID, RecipeID: recipe.ID}).Error
		assert.Error(t, err)
	})
}

func TestDeletingUserCascades(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	alice := testhelpers.CreateUser(t, db, "alice", models.RoleUser)
	bob := testhelpers.CreateUser(t, db, "bob", models.RoleUser)
	flour := testhelpers.CreateIngredient(t, db, "flour", "g")
	tag := testhelpers.CreateTag(t, db, "lunch", "#49B64E")
	recipe := testhelpers.CreateRecipe(t, db, alice, testhelpers.RecipeFixture{
		Name:        "Bread",
		Ingredients: map[uint]int{flour.ID: 500},
		Tags:        []uint{tag.ID},
	})
	require.NoError(t, db.Omit("User", "Recipe").Create(&models.ShoppingCart{UserID: bob.ID, RecipeID: recipe.ID}).Error)
	require.NoError(t, db.Omit("User", "Author").Create(&models.Follow{UserID: bob.ID, AuthorID: alice.ID}).Error)

	require.NoError(t, db.Delete(&models.User{}, alice.ID).Error)

	for _, model := range []interface{}{&models.Recipe{}, &models.IngredientRecipe{}, &models.TagRecipe{}, &models.ShoppingCart{}, &models.Follow{}} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		assert.Zero(t, count, "%T rows should be removed", model)
	}

	var ingredients int64
	require.NoError(t, db.Model(&models.Ingredient{}).Count(&ingredients).Error)
	assert.Equal(t, int64(1), ingredients)
}

func TestDeletingIngredientAndTagCascades(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	alice := testhelpers.CreateUser(t, db, "alice", models.RoleUser)
	flour := testhelpers.CreateIngredient(t, db, "flour", "g")
	tag := testhelpers.CreateTag(t, db, "lunch", "#49B64E")
	recipe := testhelpers.CreateRecipe(t, db, alice, testhelpers.RecipeFixture{
		Name:        "Bread",
		Ingredients: map[uint]int{flour.ID: 500},
		Tags:        []uint{tag.ID},
	})

	require.NoError(t, db.Delete(&models.Ingredient{}, flour.ID).Error)
	require.NoError(t, db.Delete(&models.Tag{}, tag.ID).Error)

	var amounts, links int64
	require.NoError(t, db.Model(&models.IngredientRecipe{}).Count(&amounts).Error)
	require.NoError(t, db.Model(&models.TagRecipe{}).Count(&links).Error)
	assert.Zero(t, amounts)
	assert.Zero(t, links)

	var stored models.Recipe
	assert.NoError(t, db.First(&stored, recipe.ID).Error)
}
