package models

import (
	"math"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"codstore.dev/storefront/pkg/apperr"
	"codstore.dev/storefront/pkg/pricing"
)

// Image references an uploaded blob by content hash.
type Image struct {
	Hash    string `json:"hash" bson:"hash" binding:"required"`
	Alt     string `json:"alt,omitempty" bson:"alt,omitempty"`
	Primary bool   `json:"primary" bson:"primary"`
}

// Inventory is enforced only when Track is set.
type Inventory struct {
	Track bool `json:"track" bson:"track"`
	Stock int  `json:"stock" bson:"stock"`
}

// Product represents a catalog item
type Product struct {
	ID          bson.ObjectID     `json:"id" bson:"_id,omitempty"`
	Slug        string            `json:"slug" bson:"slug"`
	Name        string            `json:"name" bson:"name"`
	Description string            `json:"description,omitempty" bson:"description,omitempty"`
	Price       float64           `json:"price" bson:"price"`
	Images      []Image           `json:"images" bson:"images"`
	Published   bool              `json:"published" bson:"published"`
	Inventory   Inventory         `json:"inventory" bson:"inventory"`
	Discount    *pricing.Discount `json:"discount,omitempty" bson:"discount,omitempty"`
	Category    string            `json:"category" bson:"category"` // category slug
	CreatedAt   time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" bson:"updated_at"`
}

// ProductView is the product plus its derived prices.
type ProductView struct {
	*Product
	EffectivePrice    float64 `json:"effective_price"`
	DiscountAmount    float64 `json:"discount_amount"`
	HasActiveDiscount bool    `json:"has_active_discount"`
	InStock           bool    `json:"in_stock"`
	DisplayPrice      string  `json:"display_price"`
}

func (p *Product) EffectivePrice() float64 {
	return pricing.EffectivePrice(p.Price, p.Discount)
}

func (p *Product) View() ProductView {
	effective := p.EffectivePrice()
	return ProductView{
		Product:           p,
		EffectivePrice:    effective,
		DiscountAmount:    pricing.DiscountAmount(p.Price, p.Discount),
		HasActiveDiscount: pricing.HasActiveDiscount(p.Discount),
		InStock:           p.IsInStock(),
		DisplayPrice:      pricing.FormatAmount(effective),
	}
}

func (p *Product) IsInStock() bool {
	return !p.Inventory.Track || p.Inventory.Stock > 0
}

// CanFulfil reports whether qty units can be sold right now.
func (p *Product) CanFulfil(qty int) bool {
	return !p.Inventory.Track || p.Inventory.Stock >= qty
}

func (p *Product) SetTimestamps() {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

// Validate checks the catalog invariants of a product.
func (p *Product) Validate() error {
	var fields []apperr.FieldError
	if len(strings.TrimSpace(p.Name)) < 2 {
		fields = append(fields, apperr.FieldError{Field: "name", Message: "name must be at least 2 characters", Code: "min_length"})
	}
	if !IsValidSlug(p.Slug) {
		fields = append(fields, apperr.FieldError{Field: "slug", Message: "slug must be lowercase letters, digits and dashes", Code: "invalid_format"})
	}
	if p.Price < 0 || math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
		fields = append(fields, apperr.FieldError{Field: "price", Message: "price must be a non-negative number", Code: "invalid"})
	}
	if p.Inventory.Stock < 0 {
		fields = append(fields, apperr.FieldError{Field: "inventory.stock", Message: "stock must not be negative", Code: "invalid"})
	}
	if strings.TrimSpace(p.Category) == "" {
		fields = append(fields, apperr.FieldError{Field: "category", Message: "category is required", Code: "required"})
	}
	primaries := 0
	for _, img := range p.Images {
		if strings.TrimSpace(img.Hash) == "" {
			fields = append(fields, apperr.FieldError{Field: "images", Message: "image hash is required", Code: "required"})
		}
		if img.Primary {
			primaries++
		}
	}
	if primaries > 1 {
		fields = append(fields, apperr.FieldError{Field: "images", Message: "at most one image can be primary", Code: "multiple_primary"})
	}
	if len(fields) > 0 {
		return apperr.ValidationFields("Invalid product data", fields...)
	}
	return p.Discount.Validate()
}

type CreateProductRequest struct {
	Slug        string            `json:"slug"`
	Name        string            `json:"name" binding:"required,min=2"`
	Description string            `json:"description"`
	Price       float64           `json:"price" binding:"gte=0"`
	Images      []Image           `json:"images" binding:"dive"`
	Published   bool              `json:"published"`
	Inventory   Inventory         `json:"inventory"`
	Discount    *pricing.Discount `json:"discount"`
	Category    string            `json:"category" binding:"required"`
}

func (req *CreateProductRequest) ToProduct() *Product {
	slug := req.Slug
	if slug == "" {
		slug = Slugify(req.Name)
	}
	product := &Product{
		ID:          bson.NewObjectID(),
		Slug:        slug,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Price:       req.Price,
		Images:      req.Images,
		Published:   req.Published,
		Inventory:   req.Inventory,
		Discount:    req.Discount,
		Category:    req.Category,
	}
	if product.Images == nil {
		product.Images = []Image{}
	}
	product.SetTimestamps()
	return product
}

// UpdateProductRequest carries a partial update; nil fields are left untouched.
type UpdateProductRequest struct {
	Name          *string           `json:"name"`
	Description   *string           `json:"description"`
	Price         *float64          `json:"price"`
	Images        *[]Image          `json:"images"`
	Published     *bool             `json:"published"`
	Inventory     *Inventory        `json:"inventory"`
	Discount      *pricing.Discount `json:"discount"`
	ClearDiscount bool              `json:"clear_discount"`
	Category      *string           `json:"category"`
}

func (req *UpdateProductRequest) IsEmpty() bool {
	return req.Name == nil && req.Description == nil && req.Price == nil && req.Images == nil &&
		req.Published == nil && req.Inventory == nil && req.Discount == nil && !req.ClearDiscount &&
		req.Category == nil
}

// ApplyTo copies the set fields onto p.
func (req *UpdateProductRequest) ApplyTo(p *Product) {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Images != nil {
		p.Images = *req.Images
	}
	if req.Published != nil {
		p.Published = *req.Published
	}
	if req.Inventory != nil {
		p.Inventory = *req.Inventory
	}
	if req.ClearDiscount {
		p.Discount = nil
	} else if req.Discount != nil {
		d := *req.Discount
		p.Discount = &d
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	p.SetTimestamps()
}

type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
)

// ProductFilter selects products for listing. Published nil means any state.
type ProductFilter struct {
	Query     string
	Category  string
	Published *bool
	Sort      ProductSort
	Page      int
	Limit     int
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

func IsValidSlug(s string) bool {
	return len(s) >= 2 && len(s) <= 120 && slugPattern.MatchString(s)
}

// Slugify lowercases s and collapses everything else into single dashes.
func Slugify(s string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	return strings.Trim(slug, "-")
}
