package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"codstore.dev/storefront/pkg/apperr"
	"codstore.dev/storefront/pkg/global"
	"codstore.dev/storefront/pkg/pricing"
)

type OrderStatus string

const (
	StatusPlaced    OrderStatus = "placed"
	StatusConfirmed OrderStatus = "confirmed"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

const PaymentCOD = "COD"

// position along the fulfilment path; cancelled sits outside it
var statusRank = map[OrderStatus]int{
	StatusPlaced:    0,
	StatusConfirmed: 1,
	StatusShipped:   2,
	StatusDelivered: 3,
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := statusRank[st]; ok || st == StatusCancelled {
		return st, true
	}
	return "", false
}

func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition allows any forward move or a cancellation out of a non-terminal state.
func (s OrderStatus) CanTransition(to OrderStatus) error {
	if s.IsTerminal() {
		return apperr.Conflict("invalid_transition", fmt.Sprintf("order is %s and can no longer change status", s))
	}
	if to == StatusCancelled {
		return nil
	}
	from, okFrom := statusRank[s]
	next, okTo := statusRank[to]
	if !okFrom || !okTo || next <= from {
		return apperr.Conflict("invalid_transition", fmt.Sprintf("cannot move order from %s to %s", s, to))
	}
	return nil
}

// OrderItem is a snapshot of the product at checkout time.
type OrderItem struct {
	ProductID bson.ObjectID `json:"product_id" bson:"product_id"`
	Slug      string        `json:"slug" bson:"slug"`
	Name      string        `json:"name" bson:"name"`
	Quantity  int           `json:"quantity" bson:"quantity"`
	UnitPrice float64       `json:"unit_price" bson:"unit_price"`
	BasePrice float64       `json:"base_price" bson:"base_price"`
	LineTotal float64       `json:"line_total" bson:"line_total"`
}

// Timeline tracks the lifecycle of an order
type Timeline struct {
	PlacedAt    time.Time  `json:"placed_at" bson:"placed_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty" bson:"confirmed_at,omitempty"`
	ShippedAt   *time.Time `json:"shipped_at,omitempty" bson:"shipped_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty" bson:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
}

// Order is immutable after creation except for Status, Timeline and UpdatedAt.
type Order struct {
	ID              bson.ObjectID `json:"id" bson:"_id,omitempty"`
	OrderNumber     string        `json:"order_number" bson:"order_number"`
	UserID          bson.ObjectID `json:"user_id" bson:"user_id"`
	UserEmail       string        `json:"user_email" bson:"user_email"`
	Items           []OrderItem   `json:"items" bson:"items"`
	DeliveryFee     float64       `json:"delivery_fee" bson:"delivery_fee"`
	Subtotal        float64       `json:"subtotal" bson:"subtotal"`
	Total           float64       `json:"total" bson:"total"`
	Status          OrderStatus   `json:"status" bson:"status"`
	DeliveryAddress string        `json:"delivery_address" bson:"delivery_address"`
	Phone           string        `json:"phone" bson:"phone"`
	PaymentMethod   string        `json:"payment_method" bson:"payment_method"`
	IdempotencyKey  string        `json:"-" bson:"idempotency_key,omitempty"`
	Timeline        Timeline      `json:"timeline" bson:"timeline"`
	CreatedAt       time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" bson:"updated_at"`
}

// OrderView adds presentation-only amounts.
type OrderView struct {
	*Order
	DisplaySubtotal    string `json:"display_subtotal"`
	DisplayDeliveryFee string `json:"display_delivery_fee"`
	DisplayTotal       string `json:"display_total"`
}

func (o *Order) View() OrderView {
	return OrderView{
		Order:              o,
		DisplaySubtotal:    pricing.FormatAmount(o.Subtotal),
		DisplayDeliveryFee: pricing.FormatAmount(o.DeliveryFee),
		DisplayTotal:       pricing.FormatAmount(o.Total),
	}
}

// SumLines accumulates line totals in item order.
func SumLines(items []OrderItem) float64 {
	var subtotal float64
	for _, item := range items {
		subtotal += item.UnitPrice * float64(item.Quantity)
	}
	return subtotal
}

// RecomputeTotals derives line totals, subtotal and total from the snapshot prices.
func (o *Order) RecomputeTotals() {
	for i := range o.Items {
		o.Items[i].LineTotal = o.Items[i].UnitPrice * float64(o.Items[i].Quantity)
	}
	o.Subtotal = SumLines(o.Items)
	o.Total = o.Subtotal + o.DeliveryFee
}

// SetTimestamps sets created_at and updated_at timestamps
func (o *Order) SetTimestamps() {
	now := time.Now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
		o.Timeline.PlacedAt = now
	}
	o.UpdatedAt = now
}

// UpdateStatus moves the order to newStatus and stamps the timeline for every
// state reached on the way.
func (o *Order) UpdateStatus(newStatus OrderStatus, now time.Time) error {
	if err := o.Status.CanTransition(newStatus); err != nil {
		return err
	}

	stamp := func(t **time.Time) {
		if *t == nil {
			at := now
			*t = &at
		}
	}

	if newStatus == StatusCancelled {
		stamp(&o.Timeline.CancelledAt)
	} else {
		target := statusRank[newStatus]
		if target >= statusRank[StatusConfirmed] {
			stamp(&o.Timeline.ConfirmedAt)
		}
		if target >= statusRank[StatusShipped] {
			stamp(&o.Timeline.ShippedAt)
		}
		if target >= statusRank[StatusDelivered] {
			stamp(&o.Timeline.DeliveredAt)
		}
	}

	o.Status = newStatus
	o.UpdatedAt = now
	return nil
}

// GetItemCount returns the total number of items in the order
func (o *Order) GetItemCount() int {
	var count int
	for _, item := range o.Items {
		count += item.Quantity
	}
	return count
}

// OwnedBy reports whether userID placed the order.
func (o *Order) OwnedBy(userID bson.ObjectID) bool {
	return !userID.IsZero() && o.UserID == userID
}

func GenerateOrderNumber() string {
	now := time.Now()
	// Format: BD-YYYYMMDD-XXXXXX
	return fmt.Sprintf("BD-%s-%s", now.Format("20060102"), global.NewReference())
}

type CreateOrderRequest struct {
	Items           []CartItem `json:"items" binding:"required,min=1,dive"`
	DeliveryAddress string     `json:"delivery_address" binding:"required"`
	Phone           string     `json:"phone" binding:"required"`
	DeliveryFee     float64    `json:"delivery_fee" binding:"gte=0"`
}

// Validate checks the request shape independently of gin binding.
func (req *CreateOrderRequest) Validate() error {
	if len(req.Items) == 0 {
		return apperr.Validation("items", "order must contain at least one item")
	}
	var fields []apperr.FieldError
	for _, item := range req.Items {
		if item.Quantity < 1 {
			fields = append(fields, apperr.FieldError{Field: "items", Message: fmt.Sprintf("quantity for %q must be at least 1", item.Slug), Code: "min"})
		}
		if strings.TrimSpace(item.Slug) == "" {
			fields = append(fields, apperr.FieldError{Field: "items", Message: "item slug is required", Code: "required"})
		}
	}
	if len(fields) == 0 {
		var appErr *apperr.Error
		if errors.As(CheckQuantities(req.Items), &appErr) {
			fields = append(fields, apperr.FieldError{Field: "items", Message: appErr.Message, Code: "max"})
		}
	}
	if strings.TrimSpace(req.DeliveryAddress) == "" {
		fields = append(fields, apperr.FieldError{Field: "delivery_address", Message: "delivery address is required", Code: "required"})
	}
	if strings.TrimSpace(req.Phone) == "" {
		fields = append(fields, apperr.FieldError{Field: "phone", Message: "phone is required", Code: "required"})
	}
	if req.DeliveryFee < 0 {
		fields = append(fields, apperr.FieldError{Field: "delivery_fee", Message: "delivery fee must not be negative", Code: "min"})
	}
	if len(fields) > 0 {
		return apperr.ValidationFields("Invalid order data", fields...)
	}
	return nil
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// OrderFilter selects orders for listing. A zero UserID means all users.
type OrderFilter struct {
	UserID bson.ObjectID
	Status OrderStatus
	Page   int
	Limit  int
}
