package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/permission"
)

// AssociationKind names a user-to-target join table that can be toggled.
type AssociationKind string

const (
	KindFavorite     AssociationKind = "favorite"
	KindShoppingCart AssociationKind = "shopping_cart"
	KindFollow       AssociationKind = "follow"
)

type associationSpec struct {
	newRow       func(userID, targetID uint) interface{}
	targetColumn string
	target       func() interface{}
	targetName   string
	exists       string
	missing      string
}

var associations = map[AssociationKind]associationSpec{
	KindFavorite: {
		newRow:       func(u, t uint) interface{} { return &models.Favorite{UserID: u, RecipeID: t} },
		targetColumn: "recipe_id",
		target:       func() interface{} { return &models.Recipe{} },
		targetName:   "recipe",
		exists:       "recipe is already in favorites",
		missing:      "recipe is not in favorites",
	},
	KindShoppingCart: {
		newRow:       func(u, t uint) interface{} { return &models.ShoppingCart{UserID: u, RecipeID: t} },
		targetColumn: "recipe_id",
		target:       func() interface{} { return &models.Recipe{} },
		targetName:   "recipe",
		exists:       "recipe is already in the shopping cart",
		missing:      "recipe is not in the shopping cart",
	},
	KindFollow: {
		newRow:       func(u, t uint) interface{} { return &models.Follow{UserID: u, AuthorID: t} },
		targetColumn: "author_id",
		target:       func() interface{} { return &models.User{} },
		targetName:   "user",
		exists:       "you are already subscribed to this author",
		missing:      "you are not subscribed to this author",
	},
}

// AssociationService creates and removes favorite, shopping cart and follow rows.
type AssociationService struct {
	db      *gorm.DB
	metrics *metrics.Metrics
}

func NewAssociationService(db *gorm.DB, m *metrics.Metrics) *AssociationService {
	return &AssociationService{db: db, metrics: m}
}

func lookupAssociation(kind AssociationKind) (associationSpec, error) {
	spec, ok := associations[kind]
	if !ok {
		return associationSpec{}, fmt.Errorf("unknown association kind %q", kind)
	}
	return spec, nil
}

// Add creates the association. An existing row is a conflict, whether caught
// by the pre-check or by the unique index when two requests race.
func (s *AssociationService) Add(ctx context.Context, requester permission.Requester, kind AssociationKind, targetID uint) (err error) {
	defer func() { s.metrics.ObserveAssociation(string(kind), "add", outcome(err)) }()

	spec, err := lookupAssociation(kind)
	if err != nil {
		return err
	}
	if !requester.Authenticated {
		return ErrUnauthorized
	}
	if err := s.ensureTarget(ctx, spec, targetID); err != nil {
		return err
	}
	if kind == KindFollow && targetID == requester.ID {
		return newError(ErrInvalid, "you cannot subscribe to yourself")
	}

	exists, err := s.exists(ctx, spec, requester.ID, targetID)
	if err != nil {
		return err
	}
	if exists {
		return newError(ErrConflict, spec.exists)
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(spec.newRow(requester.ID, targetID)).Error; err != nil {
		if isUniqueViolation(err) {
			return newError(ErrConflict, spec.exists)
		}
		return fmt.Errorf("failed to create %s: %w", kind, err)
	}
	return nil
}

// Remove deletes the association or reports that it does not exist.
func (s *AssociationService) Remove(ctx context.Context, requester permission.Requester, kind AssociationKind, targetID uint) (err error) {
	defer func() { s.metrics.ObserveAssociation(string(kind), "remove", outcome(err)) }()

	spec, err := lookupAssociation(kind)
	if err != nil {
		return err
	}
	if !requester.Authenticated {
		return ErrUnauthorized
	}
	if err := s.ensureTarget(ctx, spec, targetID); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND "+spec.targetColumn+" = ?", requester.ID, targetID).
		Delete(spec.newRow(0, 0))
	if result.Error != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, result.Error)
	}
	if result.RowsAffected == 0 {
		return newError(ErrNotFound, spec.missing)
	}
	return nil
}

// Exists reports whether the user holds the association with the target.
func (s *AssociationService) Exists(ctx context.Context, kind AssociationKind, userID, targetID uint) (bool, error) {
	spec, err := lookupAssociation(kind)
	if err != nil {
		return false, err
	}
	return s.exists(ctx, spec, userID, targetID)
}

func (s *AssociationService) exists(ctx context.Context, spec associationSpec, userID, targetID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(spec.newRow(0, 0)).
		Where("user_id = ? AND "+spec.targetColumn+" = ?", userID, targetID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check association: %w", err)
	}
	return count > 0, nil
}

func (s *AssociationService) ensureTarget(ctx context.Context, spec associationSpec, targetID uint) error {
	err := s.db.WithContext(ctx).Select("id").First(spec.target(), targetID).Error
	if err != nil {
		return notFoundOr(err, "%s %d not found", spec.targetName, targetID)
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalid):
		return "invalid"
	default:
		return "error"
	}
}
