package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/permission"
	"github.com/pageza/foodgram/backend/internal/types"
)

type TagService struct {
	db *gorm.DB
}

func NewTagService(db *gorm.DB) *TagService {
	return &TagService{db: db}
}

func (s *TagService) ListTags(ctx context.Context) ([]types.TagResponse, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	out := make([]types.TagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, tagResponse(t))
	}
	return out, nil
}

func (s *TagService) GetTag(ctx context.Context, id uint) (*types.TagResponse, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		return nil, notFoundOr(err, "tag %d not found", id)
	}
	resp := tagResponse(tag)
	return &resp, nil
}

// CreateTag is restricted to admins.
func (s *TagService) CreateTag(ctx context.Context, requester permission.Requester, req *types.CreateTagRequest) (*types.TagResponse, error) {
	if !requester.Authenticated {
		return nil, ErrUnauthorized
	}
	if !requester.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tag := models.Tag{Name: req.Name, Color: req.Color, Slug: req.Slug}
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, newError(ErrConflict, "a tag with that name, color or slug already exists")
		}
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	resp := tagResponse(tag)
	return &resp, nil
}
