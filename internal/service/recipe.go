package service

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/permission"
	"github.com/pageza/foodgram/backend/internal/types"
)

// RecipeService handles recipe operations
type RecipeService struct {
	db     *gorm.DB
	images *ImageService
}

// NewRecipeService creates a new RecipeService instance
func NewRecipeService(db *gorm.DB, images *ImageService) *RecipeService {
	return &RecipeService{db: db, images: images}
}

// CreateRecipe stores a recipe authored by the requester together with its
// ingredient and tag rows in one transaction.
func (s *RecipeService) CreateRecipe(ctx context.Context, requester permission.Requester, req *types.RecipeWriteRequest) (*types.RecipeResponse, error) {
	if !permission.AuthenticatedOrReadOnly(permission.Write, requester) {
		return nil, ErrUnauthorized
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Image == "" {
		return nil, validation.Errors{"image": errors.New("cannot be blank")}
	}
	if err := s.checkReferences(ctx, req); err != nil {
		return nil, err
	}

	imageURL, err := s.saveImage(ctx, req.Image)
	if err != nil {
		return nil, err
	}

	recipe := models.Recipe{
		AuthorID:    requester.ID,
		Name:        req.Name,
		Text:        req.Text,
		Image:       imageURL,
		CookingTime: req.CookingTime,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&recipe).Error; err != nil {
			return err
		}
		return replaceRecipeLinks(tx, recipe.ID, req)
	})
	if err != nil {
		s.removeImage(ctx, imageURL)
		return nil, recipeWriteError(err, req.Name)
	}

	return s.GetRecipe(ctx, requester, recipe.ID)
}

// UpdateRecipe replaces the recipe fields and its whole ingredient and tag sets.
// Only the author or an admin may update.
func (s *RecipeService) UpdateRecipe(ctx context.Context, requester permission.Requester, id uint, req *types.RecipeWriteRequest) (*types.RecipeResponse, error) {
	recipe, err := s.authorize(ctx, requester, id)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, req); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":         req.Name,
		"text":         req.Text,
		"cooking_time": req.CookingTime,
	}
	var newImage string
	if req.Image != "" {
		if newImage, err = s.saveImage(ctx, req.Image); err != nil {
			return nil, err
		}
		updates["image"] = newImage
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(recipe).Omit(clause.Associations).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.IngredientRecipe{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.TagRecipe{}).Error; err != nil {
			return err
		}
		return replaceRecipeLinks(tx, recipe.ID, req)
	})
	if err != nil {
		s.removeImage(ctx, newImage)
		return nil, recipeWriteError(err, req.Name)
	}
	if newImage != "" {
		s.removeImage(ctx, recipe.Image)
	}

	return s.GetRecipe(ctx, requester, recipe.ID)
}

// DeleteRecipe removes the recipe; join rows go with it through cascades.
func (s *RecipeService) DeleteRecipe(ctx context.Context, requester permission.Requester, id uint) error {
	recipe, err := s.authorize(ctx, requester, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Recipe{}, recipe.ID).Error; err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	s.removeImage(ctx, recipe.Image)
	return nil
}

// GetRecipe returns the full representation annotated for the requester.
func (s *RecipeService) GetRecipe(ctx context.Context, requester permission.Requester, id uint) (*types.RecipeResponse, error) {
	var recipe models.Recipe
	if err := preloadRecipe(s.db.WithContext(ctx)).First(&recipe, id).Error; err != nil {
		return nil, notFoundOr(err, "recipe %d not found", id)
	}
	out, err := s.annotate(ctx, requester, []models.Recipe{recipe})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// GetRecipeShort returns the compact representation used by toggles.
func (s *RecipeService) GetRecipeShort(ctx context.Context, id uint) (*types.RecipeShortResponse, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		return nil, notFoundOr(err, "recipe %d not found", id)
	}
	short := shortRecipe(recipe)
	return &short, nil
}

// ListRecipes returns a page of recipes, newest first.
func (s *RecipeService) ListRecipes(ctx context.Context, requester permission.Requester, filter types.RecipeFilter, page types.PageParams) (*types.Page[types.RecipeResponse], error) {
	scope := s.filterScope(requester, filter)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Recipe{}).Scopes(scope).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count recipes: %w", err)
	}

	var recipes []models.Recipe
	err := preloadRecipe(s.db.WithContext(ctx)).
		Scopes(scope).
		Order("recipes.created_at DESC, recipes.id DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&recipes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}

	results, err := s.annotate(ctx, requester, recipes)
	if err != nil {
		return nil, err
	}
	return &types.Page[types.RecipeResponse]{Count: count, Results: results}, nil
}

func (s *RecipeService) filterScope(requester permission.Requester, filter types.RecipeFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(filter.Tags) > 0 {
			tagged := s.db.Model(&models.TagRecipe{}).
				Select("tag_recipes.recipe_id").
				Joins("JOIN tags ON tags.id = tag_recipes.tag_id").
				Where("tags.slug IN ?", filter.Tags)
			db = db.Where("recipes.id IN (?)", tagged)
		}
		if filter.AuthorID != 0 {
			db = db.Where("recipes.author_id = ?", filter.AuthorID)
		}
		db = filterByMembership(db, s.db.Model(&models.Favorite{}), requester, filter.IsFavorited)
		db = filterByMembership(db, s.db.Model(&models.ShoppingCart{}), requester, filter.IsInShoppingCart)
		return db
	}
}

// filterByMembership keeps (or drops) recipes present in the requester's join table.
// Anonymous requesters own nothing, so a positive filter matches no recipe.
func filterByMembership(db, table *gorm.DB, requester permission.Requester, want *bool) *gorm.DB {
	if want == nil {
		return db
	}
	if !requester.Authenticated {
		if *want {
			return db.Where("1 = 0")
		}
		return db
	}
	members := table.Select("recipe_id").Where("user_id = ?", requester.ID)
	if *want {
		return db.Where("recipes.id IN (?)", members)
	}
	return db.Where("recipes.id NOT IN (?)", members)
}

func (s *RecipeService) authorize(ctx context.Context, requester permission.Requester, id uint) (*models.Recipe, error) {
	if !permission.AuthenticatedOrReadOnly(permission.Write, requester) {
		return nil, ErrUnauthorized
	}
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		return nil, notFoundOr(err, "recipe %d not found", id)
	}
	if !permission.OwnerOrAdminOrReadOnly(permission.Write, requester, recipe.AuthorID) {
		return nil, ErrForbidden
	}
	return &recipe, nil
}

// checkReferences rejects ingredient and tag ids that do not exist.
func (s *RecipeService) checkReferences(ctx context.Context, req *types.RecipeWriteRequest) error {
	ingredientIDs := make([]uint, 0, len(req.Ingredients))
	for _, item := range req.Ingredients {
		ingredientIDs = append(ingredientIDs, item.ID)
	}

	if missing, err := missingIDs(s.db.WithContext(ctx).Model(&models.Ingredient{}), ingredientIDs); err != nil {
		return err
	} else if missing != 0 {
		return validation.Errors{"ingredients": fmt.Errorf("ingredient %d does not exist", missing)}
	}

	if missing, err := missingIDs(s.db.WithContext(ctx).Model(&models.Tag{}), req.Tags); err != nil {
		return err
	} else if missing != 0 {
		return validation.Errors{"tags": fmt.Errorf("tag %d does not exist", missing)}
	}
	return nil
}

// missingIDs returns the first id absent from the table, or 0.
func missingIDs(db *gorm.DB, ids []uint) (uint, error) {
	var found []uint
	if err := db.Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return 0, fmt.Errorf("failed to look up references: %w", err)
	}
	present := make(map[uint]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			return id, nil
		}
	}
	return 0, nil
}

func (s *RecipeService) saveImage(ctx context.Context, dataURI string) (string, error) {
	if s.images == nil {
		return "", newError(ErrInvalid, "image uploads are not configured")
	}
	return s.images.SaveRecipeImage(ctx, dataURI)
}

func (s *RecipeService) removeImage(ctx context.Context, url string) {
	if s.images != nil {
		s.images.Remove(ctx, url)
	}
}

func replaceRecipeLinks(tx *gorm.DB, recipeID uint, req *types.RecipeWriteRequest) error {
	amounts := make([]models.IngredientRecipe, 0, len(req.Ingredients))
	for _, item := range req.Ingredients {
		amounts = append(amounts, models.IngredientRecipe{
			RecipeID:     recipeID,
			IngredientID: item.ID,
			Amount:       item.Amount,
		})
	}
	if err := tx.Omit(clause.Associations).Create(&amounts).Error; err != nil {
		return err
	}

	links := make([]models.TagRecipe, 0, len(req.Tags))
	for _, tagID := range req.Tags {
		links = append(links, models.TagRecipe{RecipeID: recipeID, TagID: tagID})
	}
	return tx.Omit(clause.Associations).Create(&links).Error
}

func recipeWriteError(err error, name string) error {
	if isUniqueViolation(err) {
		return newError(ErrConflict, "you already have a recipe named %q", name)
	}
	return fmt.Errorf("failed to save recipe: %w", err)
}

func preloadRecipe(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("IngredientAmounts", func(db *gorm.DB) *gorm.DB { return db.Order("ingredient_recipes.id") }).
		Preload("IngredientAmounts.Ingredient").
		Preload("TagLinks", func(db *gorm.DB) *gorm.DB { return db.Order("tag_recipes.id") }).
		Preload("TagLinks.Tag")
}

// annotate converts recipes to responses with the requester's favorite, cart
// and subscription flags.
func (s *RecipeService) annotate(ctx context.Context, requester permission.Requester, recipes []models.Recipe) ([]types.RecipeResponse, error) {
	out := make([]types.RecipeResponse, 0, len(recipes))
	if len(recipes) == 0 {
		return out, nil
	}

	var favorites, cart, following map[uint]bool
	if requester.Authenticated {
		recipeIDs := make([]uint, 0, len(recipes))
		authorIDs := make([]uint, 0, len(recipes))
		for _, r := range recipes {
			recipeIDs = append(recipeIDs, r.ID)
			authorIDs = append(authorIDs, r.AuthorID)
		}

		var err error
		db := s.db.WithContext(ctx)
		if favorites, err = pluckSet(db.Model(&models.Favorite{}), "recipe_id", requester.ID, recipeIDs); err != nil {
			return nil, err
		}
		if cart, err = pluckSet(db.Model(&models.ShoppingCart{}), "recipe_id", requester.ID, recipeIDs); err != nil {
			return nil, err
		}
		if following, err = pluckSet(db.Model(&models.Follow{}), "author_id", requester.ID, authorIDs); err != nil {
			return nil, err
		}
	}

	for _, r := range recipes {
		resp := types.RecipeResponse{
			ID:               r.ID,
			Tags:             make([]types.TagResponse, 0, len(r.TagLinks)),
			Author:           userResponse(r.Author, following[r.AuthorID]),
			Ingredients:      make([]types.RecipeIngredientResponse, 0, len(r.IngredientAmounts)),
			IsFavorited:      favorites[r.ID],
			IsInShoppingCart: cart[r.ID],
			Name:             r.Name,
			Image:            r.Image,
			Text:             r.Text,
			CookingTime:      r.CookingTime,
		}
		for _, link := range r.TagLinks {
			resp.Tags = append(resp.Tags, tagResponse(link.Tag))
		}
		for _, amount := range r.IngredientAmounts {
			resp.Ingredients = append(resp.Ingredients, types.RecipeIngredientResponse{
				ID:              amount.Ingredient.ID,
				Name:            amount.Ingredient.Name,
				MeasurementUnit: amount.Ingredient.MeasurementUnit,
				Amount:          amount.Amount,
			})
		}
		out = append(out, resp)
	}
	return out, nil
}

func pluckSet(db *gorm.DB, column string, userID uint, ids []uint) (map[uint]bool, error) {
	var found []uint
	if err := db.Where("user_id = ? AND "+column+" IN ?", userID, ids).Pluck(column, &found).Error; err != nil {
		return nil, fmt.Errorf("failed to annotate recipes: %w", err)
	}
	set := make(map[uint]bool, len(found))
	for _, id := range found {
		set[id] = true
	}
	return set, nil
}

func shortRecipe(r models.Recipe) types.RecipeShortResponse {
	return types.RecipeShortResponse{
		ID:          r.ID,
		Name:        r.Name,
		Image:       r.Image,
		CookingTime: r.CookingTime,
	}
}

func tagResponse(t models.Tag) types.TagResponse {
	return types.TagResponse{ID: t.ID, Name: t.Name, Color: t.Color, Slug: t.Slug}
}

func userResponse(u models.User, subscribed bool) types.UserResponse {
	return types.UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
}
