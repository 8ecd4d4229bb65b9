package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/permission"
	"github.com/pageza/foodgram/backend/internal/types"
)

// UserService manages accounts, profiles and subscription listings.
type UserService struct {
	db         *gorm.DB
	bcryptCost int
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db, bcryptCost: bcrypt.DefaultCost}
}

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost.
func (s *UserService) WithBcryptCost(cost int) *UserService {
	s.bcryptCost = cost
	return s
}

// Register creates a regular account.
func (s *UserService) Register(ctx context.Context, req *types.RegisterRequest) (*types.UserResponse, error) {
	user, err := s.create(ctx, req, models.RoleUser)
	if err != nil {
		return nil, err
	}
	resp := userResponse(*user, false)
	return &resp, nil
}

// CreateAdmin creates an account holding the admin role.
func (s *UserService) CreateAdmin(ctx context.Context, req *types.RegisterRequest) (*models.User, error) {
	return s.create(ctx, req, models.RoleAdmin)
}

func (s *UserService) create(ctx context.Context, req *types.RegisterRequest, role models.Role) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	email := strings.ToLower(req.Email)
	if err := s.checkAvailable(ctx, 0, email, req.Username); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Username:     req.Username,
		Email:        email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, newError(ErrConflict, "a user with that username or email already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

func (s *UserService) checkAvailable(ctx context.Context, selfID uint, email, username string) error {
	query := s.db.WithContext(ctx).Model(&models.User{}).Where("id <> ?", selfID)

	if email != "" {
		var n int64
		if err := query.Session(&gorm.Session{}).Where("LOWER(email) = ?", email).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if n > 0 {
			return newError(ErrConflict, "a user with that email already exists")
		}
	}
	if username != "" {
		var n int64
		if err := query.Session(&gorm.Session{}).Where("LOWER(username) = ?", strings.ToLower(username)).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to check username: %w", err)
		}
		if n > 0 {
			return newError(ErrConflict, "a user with that username already exists")
		}
	}
	return nil
}

// GetUser returns a profile annotated with whether the requester follows it.
func (s *UserService) GetUser(ctx context.Context, requester permission.Requester, id uint) (*types.UserResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, "user %d not found", id)
	}
	following, err := s.following(ctx, requester, []uint{user.ID})
	if err != nil {
		return nil, err
	}
	resp := userResponse(user, following[user.ID])
	return &resp, nil
}

// Me returns the requester's own profile.
func (s *UserService) Me(ctx context.Context, requester permission.Requester) (*types.UserResponse, error) {
	if !requester.Authenticated {
		return nil, ErrUnauthorized
	}
	return s.GetUser(ctx, requester, requester.ID)
}

// ListUsers returns users ordered by id.
func (s *UserService) ListUsers(ctx context.Context, requester permission.Requester, page types.PageParams) (*types.Page[types.UserResponse], error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Order("id").Limit(page.Limit).Offset(page.Offset()).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	following, err := s.following(ctx, requester, ids)
	if err != nil {
		return nil, err
	}

	results := make([]types.UserResponse, 0, len(users))
	for _, u := range users {
		results = append(results, userResponse(u, following[u.ID]))
	}
	return &types.Page[types.UserResponse]{Count: count, Results: results}, nil
}

// UpdateProfile changes names and email. Only the user or an admin may do so.
func (s *UserService) UpdateProfile(ctx context.Context, requester permission.Requester, id uint, req *types.UpdateProfileRequest) (*types.UserResponse, error) {
	user, err := s.authorize(ctx, requester, id)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Email != nil {
		email := strings.ToLower(*req.Email)
		if err := s.checkAvailable(ctx, user.ID, email, ""); err != nil {
			return nil, err
		}
		updates["email"] = email
	}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				return nil, newError(ErrConflict, "a user with that email already exists")
			}
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}
	return s.GetUser(ctx, requester, user.ID)
}

// DeleteUser removes the account; recipes, follows, favorites and cart rows cascade.
func (s *UserService) DeleteUser(ctx context.Context, requester permission.Requester, id uint) error {
	user, err := s.authorize(ctx, requester, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(user).Error; err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// SetPassword replaces the requester's password after checking the current one.
func (s *UserService) SetPassword(ctx context.Context, requester permission.Requester, req *types.SetPasswordRequest) error {
	if !requester.Authenticated {
		return ErrUnauthorized
	}
	if err := req.Validate(); err != nil {
		return err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, requester.ID).Error; err != nil {
		return notFoundOr(err, "user %d not found", requester.ID)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return newError(ErrInvalid, "current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.db.WithContext(ctx).Model(&user).Update("password_hash", string(hash)).Error
}

// Subscriptions lists the authors the requester follows, each with up to
// recipesLimit of their newest recipes. A non-positive limit means all.
func (s *UserService) Subscriptions(ctx context.Context, requester permission.Requester, page types.PageParams, recipesLimit int) (*types.Page[types.SubscriptionResponse], error) {
	if !requester.Authenticated {
		return nil, ErrUnauthorized
	}

	followed := func(db *gorm.DB) *gorm.DB {
		return db.Joins("JOIN follows ON follows.author_id = users.id").Where("follows.user_id = ?", requester.ID)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Scopes(followed).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	var authors []models.User
	err := s.db.WithContext(ctx).
		Select("users.*").
		Scopes(followed).
		Order("follows.id").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&authors).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	results := make([]types.SubscriptionResponse, 0, len(authors))
	for _, author := range authors {
		sub, err := s.subscription(ctx, author, recipesLimit)
		if err != nil {
			return nil, err
		}
		results = append(results, *sub)
	}
	return &types.Page[types.SubscriptionResponse]{Count: count, Results: results}, nil
}

// Subscription renders one followed author, as returned after subscribing.
func (s *UserService) Subscription(ctx context.Context, authorID uint, recipesLimit int) (*types.SubscriptionResponse, error) {
	var author models.User
	if err := s.db.WithContext(ctx).First(&author, authorID).Error; err != nil {
		return nil, notFoundOr(err, "user %d not found", authorID)
	}
	return s.subscription(ctx, author, recipesLimit)
}

func (s *UserService) subscription(ctx context.Context, author models.User, recipesLimit int) (*types.SubscriptionResponse, error) {
	db := s.db.WithContext(ctx)

	var recipesCount int64
	if err := db.Model(&models.Recipe{}).Where("author_id = ?", author.ID).Count(&recipesCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count recipes: %w", err)
	}

	query := db.Where("author_id = ?", author.ID).Order("created_at DESC, id DESC")
	if recipesLimit > 0 {
		query = query.Limit(recipesLimit)
	}
	var recipes []models.Recipe
	if err := query.Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}

	short := make([]types.RecipeShortResponse, 0, len(recipes))
	for _, r := range recipes {
		short = append(short, shortRecipe(r))
	}
	return &types.SubscriptionResponse{
		UserResponse: userResponse(author, true),
		Recipes:      short,
		RecipesCount: recipesCount,
	}, nil
}

func (s *UserService) authorize(ctx context.Context, requester permission.Requester, id uint) (*models.User, error) {
	if !requester.Authenticated {
		return nil, ErrUnauthorized
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, "user %d not found", id)
	}
	if !permission.CurrentUserOrAdminOrReadOnly(permission.Write, requester, user.ID) {
		return nil, ErrForbidden
	}
	return &user, nil
}

func (s *UserService) following(ctx context.Context, requester permission.Requester, authorIDs []uint) (map[uint]bool, error) {
	if !requester.Authenticated || len(authorIDs) == 0 {
		return map[uint]bool{}, nil
	}
	return pluckSet(s.db.WithContext(ctx).Model(&models.Follow{}), "author_id", requester.ID, authorIDs)
}

// FindByUsername is used by the admin command to detect an existing account.
func (s *UserService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("LOWER(username) = ?", strings.ToLower(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(ErrNotFound, "user %q not found", username)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
