package types

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// usernameRules is the format check applied to every new username.
var usernameRules = []validation.Rule{
	validation.Required,
	validation.RuneLength(1, 150),
	validation.Match(usernamePattern).Error("may contain only letters, digits and @/./+/-/_"),
	validation.NotIn("me").Error(`"me" is reserved`),
}

// ValidateUsername applies the username format rules to a single value.
func ValidateUsername(username string) error {
	return validation.Validate(username, usernameRules...)
}

// RegisterRequest is the payload for creating an account
type RegisterRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.RuneLength(1, 254), is.Email),
		validation.Field(&r.Username, usernameRules...),
		validation.Field(&r.FirstName, validation.Required, validation.RuneLength(1, 150)),
		validation.Field(&r.LastName, validation.Required, validation.RuneLength(1, 150)),
		validation.Field(&r.Password, validation.Required, validation.RuneLength(8, 128)),
	)
}

// UpdateProfileRequest changes the editable profile fields; nil fields are left as is.
type UpdateProfileRequest struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.NilOrNotEmpty, validation.RuneLength(1, 254), is.Email),
		validation.Field(&r.FirstName, validation.NilOrNotEmpty, validation.RuneLength(1, 150)),
		validation.Field(&r.LastName, validation.NilOrNotEmpty, validation.RuneLength(1, 150)),
	)
}

type SetPasswordRequest struct {
	NewPassword     string `json:"new_password"`
	CurrentPassword string `json:"current_password"`
}

func (r SetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.NewPassword, validation.Required, validation.RuneLength(8, 128)),
		validation.Field(&r.CurrentPassword, validation.Required),
	)
}

// UserResponse is the public profile of a user
type UserResponse struct {
	ID           uint   `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
}

// SubscriptionResponse is a followed author with a preview of their recipes
type SubscriptionResponse struct {
	UserResponse
	Recipes      []RecipeShortResponse `json:"recipes"`
	RecipesCount int64                 `json:"recipes_count"`
}
