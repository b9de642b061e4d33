package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"codstore.dev/storefront/pkg/apperr"
)

type Category struct {
	ID        bson.ObjectID `json:"id" bson:"_id,omitempty"`
	Slug      string        `json:"slug" bson:"slug"`
	Name      string        `json:"name" bson:"name"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
}

type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required,min=2"`
	Slug string `json:"slug"`
}

func (req *CreateCategoryRequest) ToCategory() (*Category, error) {
	slug := req.Slug
	if slug == "" {
		slug = Slugify(req.Name)
	}
	if !IsValidSlug(slug) {
		return nil, apperr.Validation("slug", "slug must be lowercase letters, digits and dashes")
	}
	name := strings.TrimSpace(req.Name)
	if len(name) < 2 {
		return nil, apperr.Validation("name", "name must be at least 2 characters")
	}
	return &Category{
		ID:        bson.NewObjectID(),
		Slug:      slug,
		Name:      name,
		CreatedAt: time.Now(),
	}, nil
}
