package service

import (
	"context"
	"io"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/permission"
	"github.com/pageza/foodgram/backend/internal/types"
)

// IAuthService defines the interface for token operations
type IAuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
	IssueToken(user *models.User) (string, error)
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
	Logout(ctx context.Context, token string) error
}

// IUserService defines the interface for account and subscription operations
type IUserService interface {
	Register(ctx context.Context, req *types.RegisterRequest) (*types.UserResponse, error)
	GetUser(ctx context.Context, requester permission.Requester, id uint) (*types.UserResponse, error)
	Me(ctx context.Context, requester permission.Requester) (*types.UserResponse, error)
	ListUsers(ctx context.Context, requester permission.Requester, page types.PageParams) (*types.Page[types.UserResponse], error)
	UpdateProfile(ctx context.Context, requester permission.Requester, id uint, req *types.UpdateProfileRequest) (*types.UserResponse, error)
	DeleteUser(ctx context.Context, requester permission.Requester, id uint) error
	SetPassword(ctx context.Context, requester permission.Requester, req *types.SetPasswordRequest) error
	Subscriptions(ctx context.Context, requester permission.Requester, page types.PageParams, recipesLimit int) (*types.Page[types.SubscriptionResponse], error)
	Subscription(ctx context.Context, authorID uint, recipesLimit int) (*types.SubscriptionResponse, error)
}

// IRecipeService defines the interface for recipe operations
type IRecipeService interface {
	CreateRecipe(ctx context.Context, requester permission.Requester, req *types.RecipeWriteRequest) (*types.RecipeResponse, error)
	GetRecipe(ctx context.Context, requester permission.Requester, id uint) (*types.RecipeResponse, error)
	GetRecipeShort(ctx context.Context, id uint) (*types.RecipeShortResponse, error)
	UpdateRecipe(ctx context.Context, requester permission.Requester, id uint, req *types.RecipeWriteRequest) (*types.RecipeResponse, error)
	DeleteRecipe(ctx context.Context, requester permission.Requester, id uint) error
	ListRecipes(ctx context.Context, requester permission.Requester, filter types.RecipeFilter, page types.PageParams) (*types.Page[types.RecipeResponse], error)
}

// IAssociationService defines the favorite, shopping cart and follow toggles
type IAssociationService interface {
	Add(ctx context.Context, requester permission.Requester, kind AssociationKind, targetID uint) error
	Remove(ctx context.Context, requester permission.Requester, kind AssociationKind, targetID uint) error
}

type IShoppingListService interface {
	Lines(ctx context.Context, requester permission.Requester) ([]types.ShoppingListLine, error)
}

type ITagService interface {
	ListTags(ctx context.Context) ([]types.TagResponse, error)
	GetTag(ctx context.Context, id uint) (*types.TagResponse, error)
	CreateTag(ctx context.Context, requester permission.Requester, req *types.CreateTagRequest) (*types.TagResponse, error)
}

type IIngredientService interface {
	ListIngredients(ctx context.Context, prefix string) ([]types.IngredientResponse, error)
	GetIngredient(ctx context.Context, id uint) (*types.IngredientResponse, error)
	Load(ctx context.Context, r io.Reader, header bool) (*LoadReport, error)
}

var (
	_ IAuthService         = (*AuthService)(nil)
	_ IUserService         = (*UserService)(nil)
	_ IRecipeService       = (*RecipeService)(nil)
	_ IAssociationService  = (*AssociationService)(nil)
	_ IShoppingListService = (*ShoppingListService)(nil)
	_ ITagService          = (*TagService)(nil)
	_ IIngredientService   = (*IngredientService)(nil)
)
