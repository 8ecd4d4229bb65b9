package service_test

import (
	"encoding/base64"
	"testing"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/permission"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

var pngDataURI = "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("\x89PNG fake image"))

type recipeFixture struct {
	db      *gorm.DB
	alice   *models.User
	bob     *models.User
	admin   *models.User
	flour   *models.Ingredient
	sugar   *models.Ingredient
	eggs    *models.Ingredient
	lunch   *models.Tag
	dinner  *models.Tag
	recipes *service.RecipeService
	root    string
}

func setupRecipeFixture(t *testing.T) *recipeFixture {
	t.Helper()
	db := testhelpers.SetupTestDB(t)
	root := t.TempDir()
	images := service.NewImageService(service.NewDiskImageStore(root, "/media/"), testhelpers.Logger())

	return &recipeFixture{
		db:      db,
		alice:   testhelpers.CreateUser(t, db, "alice", models.RoleUser),
		bob:     testhelpers.CreateUser(t, db, "bob", models.RoleUser),
		admin:   testhelpers.CreateUser(t, db, "root", models.RoleAdmin),
		flour:   testhelpers.CreateIngredient(t, db, "flour", "g"),
		sugar:   testhelpers.CreateIngredient(t, db, "sugar", "g"),
		eggs:    testhelpers.CreateIngredient(t, db, "eggs", "pcs"),
		lunch:   testhelpers.CreateTag(t, db, "lunch", "#49B64E"),
		dinner:  testhelpers.CreateTag(t, db, "dinner", "#8775D2"),
		recipes: service.NewRecipeService(db, images),
		root:    root,
	}
}

func (f *recipeFixture) request(name string) *types.RecipeWriteRequest {
	return &types.RecipeWriteRequest{
		Ingredients: []types.IngredientAmountRequest{
			{ID: f.flour.ID, Amount: 200},
			{ID: f.sugar.ID, Amount: 50},
		},
		Tags:        []uint{f.lunch.ID},
		Image:       pngDataURI,
		Name:        name,
		Text:        "Mix and bake.",
		CookingTime: 30,
	}
}

func requesterOf(u *models.User) permission.Requester {
	return permission.User(u.ID, u.Role)
}
