package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type InventoryChange string

const (
	ChangeSale       InventoryChange = "sale"
	ChangeRestore    InventoryChange = "restore"
	ChangeAdjustment InventoryChange = "adjustment"
)

// InventoryLog represents a record of inventory changes for audit trail
type InventoryLog struct {
	ID              bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	ProductSlug     string          `bson:"slug" json:"slug"`
	ChangeType      InventoryChange `bson:"change_type" json:"change_type"`
	QuantityBefore  int             `bson:"quantity_before" json:"quantity_before"`
	QuantityAfter   int             `bson:"quantity_after" json:"quantity_after"`
	QuantityChanged int             `bson:"quantity_changed" json:"quantity_changed"` // Can be positive or negative
	OrderNumber     string          `bson:"order_number,omitempty" json:"order_number,omitempty"`
	PerformedBy     string          `bson:"performed_by" json:"performed_by"` // user ID or "system"
	CreatedAt       time.Time       `bson:"created_at" json:"created_at"`
}

// NewInventoryLog builds a log entry from the stock level after the change.
func NewInventoryLog(slug string, change InventoryChange, after, delta int, performedBy string) *InventoryLog {
	il := &InventoryLog{
		ProductSlug:    slug,
		ChangeType:     change,
		QuantityBefore: after - delta,
		QuantityAfter:  after,
		PerformedBy:    performedBy,
	}
	il.CalculateQuantityChanged()
	il.SetTimestamp()
	return il
}

// SetTimestamp sets the creation timestamp
func (il *InventoryLog) SetTimestamp() {
	if il.CreatedAt.IsZero() {
		il.CreatedAt = time.Now()
	}
}

func (il *InventoryLog) CalculateQuantityChanged() {
	il.QuantityChanged = il.QuantityAfter - il.QuantityBefore
}

func (il *InventoryLog) IsDecrease() bool {
	return il.QuantityChanged < 0
}

func (il *InventoryLog) IsSystemGenerated() bool {
	return il.PerformedBy == "system"
}

// Description returns a human-readable description of the change.
func (il *InventoryLog) Description() string {
	direction := "unchanged"
	amount := il.QuantityChanged
	if amount > 0 {
		direction = "increased"
	} else if amount < 0 {
		direction = "decreased"
		amount = -amount
	}
	return fmt.Sprintf("%s %s by %d units (%s)", il.ProductSlug, direction, amount, il.ChangeType)
}
