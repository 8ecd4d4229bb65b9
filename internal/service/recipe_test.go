package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/mocks"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/permission"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

func TestCreateRecipe(t *testing.T) {
	f := setupRecipeFixture(t)
	ctx := context.Background()

	recipe, err := f.recipes.CreateRecipe(ctx, requesterOf(f.alice), f.request("Pancakes"))
	require.NoError(t, err)

	assert.NotZero(t, recipe.ID)
	assert.Equal(t, "Pancakes", recipe.Name)
	assert.Equal(t, 30, recipe.CookingTime)
	assert.Equal(t, f.alice.ID, recipe.Author.ID)
	assert.False(t, recipe.IsFavorited)
	assert.False(t, recipe.IsInShoppingCart)

	require.Len(t, recipe.Ingredients, 2)
	assert.Equal(t, "flour", recipe.Ingredients[0].Name)
	assert.Equal(t, 200, recipe.Ingredients[0].Amount)
	assert.Equal(t, "g", recipe.Ingredients[0].MeasurementUnit)
	require.Len(t, recipe.Tags, 1)
	assert.Equal(t, "lunch", recipe.Tags[0].Slug)

	require.True(t, strings.HasPrefix(recipe.Image, "/media/recipes/images/"))
	stored := filepath.Join(f.root, filepath.FromSlash(strings.TrimPrefix(recipe.Image, "/media/")))
	_, err = os.Stat(stored)
	assert.NoError(t, err)
}

func TestCreateRecipe_RequiresAuthentication(t *testing.T) {
	f := setupRecipeFixture(t)

	_, err := f.recipes.CreateRecipe(context.Background(), permission.Requester{}, f.request("Pancakes"))
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestCreateRecipe_RejectsInvalidInput(t *testing.T) {
	f := setupRecipeFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(r *types.RecipeWriteRequest)
		field  string
	}{
		{
			name:   "zero cooking time",
			mutate: func(r *types.RecipeWriteRequest) { r.CookingTime = 0 },
			field:  "cooking_time",
		},
		{
			name:   "zero amount",
			mutate: func(r *types.RecipeWriteRequest) { r.Ingredients[0].Amount = 0 },
			field:  "ingredients",
		},
		{
			name: "duplicate ingredients",
			mutate: func(r *types.RecipeWriteRequest) {
				r.Ingredients = append(r.Ingredients, types.IngredientAmountRequest{ID: f.flour.ID, Amount: 5})
			},
			field: "ingredients",
		},
		{
			name:   "unknown ingredient",
			mutate: func(r *types.RecipeWriteRequest) { r.Ingredients[0].ID = 9999 },
			field:  "ingredients",
		},
		{
			name:   "unknown tag",
			mutate: func(r *types.RecipeWriteRequest) { r.Tags = []uint{9999} },
			field:  "tags",
		},
		{
			name:   "missing image",
			mutate: func(r *types.RecipeWriteRequest) { r.Image = "" },
			field:  "image",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request("Pancakes")
			tt.mutate(req)

			_, err := f.recipes.CreateRecipe(ctx, requesterOf(f.alice), req)
			var verrs validation.Errors
			require.True(t, errors.As(err, &verrs), "expected validation errors, got %v", err)
			assert.Contains(t, verrs, tt.field)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Recipe{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateRecipe_BadImage(t *testing.T) {
	f := setupRecipeFixture(t)
	req := f.request("Pancakes")
	req.Image = "not-a-data-uri"

	_, err := f.recipes.CreateRecipe(context.Background(), requesterOf(f.alice), req)
	assert.ErrorIs(t, err, service.ErrInvalid)
}

func TestCreateRecipe_DuplicateNamePerAuthor(t *testing.T) {
	f := setupRecipeFixture(t)
	ctx := context.Background()

	_, err := f.recipes.CreateRecipe(ctx, requesterOf(f.alice), f.request("Pancakes"))
	require.NoError(t, err)

	_, err = f.recipes.CreateRecipe(ctx, requesterOf(f.alice), f.request("Pancakes"))
	assert.ErrorIs(t, err, service.ErrConflict)

	_, err = f.recipes.CreateRecipe(ctx, requesterOf(f.bob), f.request("Pancakes"))
	assert.NoError(t, err)
}

func TestUpdateRecipe_ReplacesIngredientsAndTags(t *testing.T) {
	f := setupRecipeFixture(t)
	ctx := context.Background()

	created, err := f.recipes.CreateRecipe(ctx, requesterOf(f.alice), f.request("Pancakes"))
	require.NoError(t, err)

	req := f.request("Crepes")
	req.Image = ""
	req.Ingredients = []types.IngredientAmountRequest{{ID: f.eggs.ID, Amount: 3}}
	req.Tags = []uint{f.dinner.ID}
	req.CookingTime = 15

	updated, err := f.recipes.UpdateRecipe(ctx, requesterOf(f.alice), created.ID, req)
	require.NoError(t, err)

	assert.Equal(t, "Crepes", updated.Name)
	assert.Equal(t, 15, updated.CookingTime)
	assert.Equal(t, created.Image, updated.Image)
	require.Len(t, updated.Ingredients, 1)
	assert.Equal(t, f.eggs.ID, updated.Ingredients[0].ID)
	assert.Equal(t, 3, updated.Ingredients[0].Amount)
	require.Len(t, updated.Tags, 1)
	assert.Equal(t, f.dinner.ID, updated.Tags[0].ID)

	var amounts int64
	require.NoError(t, f.db.Model(&models.IngredientRecipe{}).Where("recipe_id = ?", created.ID).Count(&amounts).Error)
	assert.EqualValues(t, 1, amounts)
}

func TestUpdateRecipe_Permissions(t *testing.T) {
	f := setupRecipeFixture(t)
	ctx := context.Background()

	created, err := f.recipes.CreateRecipe(ctx, requesterOf(f.alice), f.request("Pancakes"))
	require.NoError(t, err)

	_, err = f.recipes.UpdateRecipe(ctx, requesterOf(f.bob), created.ID, f.request("Stolen"))
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = f.recipes.UpdateRecipe(ctx, permission.Requester{}, created.ID, f.request("Anonymous"))
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	_, err = f.recipes.UpdateRecipe(ctx, requesterOf(f.alice), 9999, f.request("Missing"))
	assert.ErrorIs(t, err, service.ErrNotFound)

	updated, err := f.recipes.UpdateRecipe(ctx, requesterOf(f.admin), created.ID, f.request("Moderated"))
	require.NoError(t, err)
	assert.Equal(t, "Moderated", updated.Name)
	assert.Equal(t, f.alice.ID, updated.Author.ID)
}

func TestDeleteRecipe_CascadesToJoinRows(t *testing.T) {
	f := setupRecipeFixture(t)
	ctx := context.Background()

	created, err := f.recipes.CreateRecipe(ctx, requesterOf(f.alice), f.request("Pancakes"))
	require.NoError(t, err)
	require.NoError(t, f.db.Create(&models.Favorite{UserID: f.bob.ID, RecipeID: created.ID}).Error)

	assert.ErrorIs(t, f.recipes.DeleteRecipe(ctx, requesterOf(f.bob), created.ID), service.ErrForbidden)
	require.NoError(t, f.recipes.DeleteRecipe(ctx, requesterOf(f.alice), created.ID))

	for _, model := range []interface{}{&models.IngredientRecipe{}, &models.TagRecipe{}, &models.Favorite{}} {
		var n int64
		require.NoError(t, f.db.Model(model).Where("recipe_id = ?", created.ID).Count(&n).Error)
		assert.Zero(t, n)
	}

	_, err = f.recipes.GetRecipe(ctx, permission.Requester{}, created.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestGetRecipe_AnnotatesForRequester(t *testing.T) {
	f := setupRecipeFixture(t)
	ctx := context.Background()

	recipe := testhelpers.CreateRecipe(t, f.db, f.alice, testhelpers.RecipeFixture{
		Name:        "Soup",
		Ingredients: map[uint]int{f.eggs.ID: 2},
		Tags:        []uint{f.dinner.ID},
	})
	require.NoError(t, f.db.Create(&models.Favorite{UserID: f.bob.ID, RecipeID: recipe.ID}).Error)
	require.NoError(t, f.db.Create(&models.ShoppingCart{UserID: f.bob.ID, RecipeID: recipe.ID}).Error)
	require.NoError(t, f.db.Create(&models.Follow{UserID: f.bob.ID, AuthorID: f.alice.ID}).Error)

	got, err := f.recipes.GetRecipe(ctx, requesterOf(f.bob), recipe.ID)
	require.NoError(t, err)
	assert.True(t, got.IsFavorited)
	assert.True(t, got.IsInShoppingCart)
	assert.True(t, got.Author.IsSubscribed)

	anon, err := f.recipes.GetRecipe(ctx, permission.Requester{}, recipe.ID)
	require.NoError(t, err)
	assert.False(t, anon.IsFavorited)
	assert.False(t, anon.IsInShoppingCart)
	assert.False(t, anon.Author.IsSubscribed)
}

func TestListRecipes(t *testing.T) {
	f := setupRecipeFixture(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	oldest := testhelpers.CreateRecipe(t, f.db, f.alice, testhelpers.RecipeFixture{
		Name: "Oldest", CreatedAt: base, Tags: []uint{f.lunch.ID}, Ingredients: map[uint]int{f.flour.ID: 1},
	})
	middle := testhelpers.CreateRecipe(t, f.db, f.bob, testhelpers.RecipeFixture{
		Name: "Middle", CreatedAt: base.Add(time.Hour), Tags: []uint{f.dinner.ID}, Ingredients: map[uint]int{f.sugar.ID: 1},
	})
	newest := testhelpers.CreateRecipe(t, f.db, f.alice, testhelpers.RecipeFixture{
		Name: "Newest", CreatedAt: base.Add(2 * time.Hour), Tags: []uint{f.lunch.ID, f.dinner.ID}, Ingredients: map[uint]int{f.eggs.ID: 1},
	})
	require.NoError(t, f.db.Create(&models.Favorite{UserID: f.bob.ID, RecipeID: middle.ID}).Error)
	require.NoError(t, f.db.Create(&models.ShoppingCart{UserID: f.bob.ID, RecipeID: oldest.ID}).Error)

	ids := func(page *types.Page[types.RecipeResponse]) []uint {
		out := make([]uint, 0, len(page.Results))
		for _, r := range page.Results {
			out = append(out, r.ID)
		}
		return out
	}
	yes, no := true, false
	firstPage := types.PageParams{Page: 1, Limit: 10}

	t.Run("newest first", func(t *testing.T) {
		page, err := f.recipes.ListRecipes(ctx, permission.Requester{}, types.RecipeFilter{}, firstPage)
		require.NoError(t, err)
		assert.EqualValues(t, 3, page.Count)
		assert.Equal(t, []uint{newest.ID, middle.ID, oldest.ID}, ids(page))
	})

	t.Run("pagination", func(t *testing.T) {
		page, err := f.recipes.ListRecipes(ctx, permission.Requester{}, types.RecipeFilter{}, types.PageParams{Page: 2, Limit: 2})
		require.NoError(t, err)
		assert.EqualValues(t, 3, page.Count)
		assert.Equal(t, []uint{oldest.ID}, ids(page))
	})

	t.Run("by tag slug", func(t *testing.T) {
		page, err := f.recipes.ListRecipes(ctx, permission.Requester{}, types.RecipeFilter{Tags: []string{"lunch"}}, firstPage)
		require.NoError(t, err)
		assert.Equal(t, []uint{newest.ID, oldest.ID}, ids(page))
	})

	t.Run("by author", func(t *testing.T) {
		page, err := f.recipes.ListRecipes(ctx, permission.Requester{}, types.RecipeFilter{AuthorID: f.bob.ID}, firstPage)
		require.NoError(t, err)
		assert.Equal(t, []uint{middle.ID}, ids(page))
	})

	t.Run("favorited", func(t *testing.T) {
		page, err := f.recipes.ListRecipes(ctx, requesterOf(f.bob), types.RecipeFilter{IsFavorited: &yes}, firstPage)
		require.NoError(t, err)
		assert.Equal(t, []uint{middle.ID}, ids(page))
		assert.True(t, page.Results[0].IsFavorited)
	})

	t.Run("not in cart", func(t *testing.T) {
		page, err := f.recipes.ListRecipes(ctx, requesterOf(f.bob), types.RecipeFilter{IsInShoppingCart: &no}, firstPage)
		require.NoError(t, err)
		assert.Equal(t, []uint{newest.ID, middle.ID}, ids(page))
	})

	t.Run("anonymous favorited matches nothing", func(t *testing.T) {
		page, err := f.recipes.ListRecipes(ctx, permission.Requester{}, types.RecipeFilter{IsFavorited: &yes}, firstPage)
		require.NoError(t, err)
		assert.Zero(t, page.Count)
		assert.Empty(t, page.Results)
	})
}

func TestCreateRecipe_RemovesImageWhenSaveFails(t *testing.T) {
	f := setupRecipeFixture(t)
	ctx := context.Background()

	_, err := f.recipes.CreateRecipe(ctx, requesterOf(f.alice), f.request("Pancakes"))
	require.NoError(t, err)

	store := &mocks.MockImageStore{}
	store.On("Save", mock.Anything, mock.AnythingOfType("string"), mock.Anything, "image/png").
		Return("https://cdn.example.com/recipes/images/dup.png", nil).Once()
	store.On("Delete", mock.Anything, "https://cdn.example.com/recipes/images/dup.png").Return(nil).Once()

	recipes := service.NewRecipeService(f.db, service.NewImageService(store, testhelpers.Logger()))
	_, err = recipes.CreateRecipe(ctx, requesterOf(f.alice), f.request("Pancakes"))
	assert.ErrorIs(t, err, service.ErrConflict)
	store.AssertExpectations(t)
}
