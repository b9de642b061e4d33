package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"codstore.dev/storefront/pkg/apperr"
)

type SettingType string

const (
	SettingString  SettingType = "string"
	SettingNumber  SettingType = "number"
	SettingBoolean SettingType = "boolean"
	SettingJSON    SettingType = "json"
)

// Setting categories
const (
	CategoryCheckout      = "checkout"
	CategoryDelivery      = "delivery"
	CategoryFees          = "fees"
	CategoryBusiness      = "business"
	CategoryLoyalty       = "loyalty"
	CategoryNotifications = "notifications"
)

// Well-known setting keys
const (
	KeyMinimumOrderValue      = "minimum_order_value"
	KeyDeliveryFee            = "delivery_fee"
	KeyFreeDeliveryThreshold  = "free_delivery_threshold"
	KeySurgeFeeEnabled        = "surge_fee_enabled"
	KeyStoreName              = "store_name"
	KeyCurrency               = "currency"
	KeyLoyaltyPointsPer100    = "loyalty_points_per_100"
	KeyOrderNotificationEmail = "order_notification_email"
)

type Setting struct {
	Key         string      `json:"key" bson:"key"`
	Value       interface{} `json:"value" bson:"value"`
	Type        SettingType `json:"type" bson:"type"`
	Category    string      `json:"category" bson:"category"`
	Label       string      `json:"label" bson:"label"`
	Description string      `json:"description,omitempty" bson:"description,omitempty"`
	Editable    bool        `json:"editable" bson:"editable"`
	Public      bool        `json:"public" bson:"public"`
	UpdatedAt   time.Time   `json:"updated_at" bson:"updated_at"`
}

type UpdateSettingRequest struct {
	Value interface{} `json:"value"`
}

// Coerce converts raw into a value of the setting's type.
func (s *Setting) Coerce(raw interface{}) (interface{}, error) {
	switch s.Type {
	case SettingNumber:
		n, ok := ToNumber(raw)
		if !ok {
			return nil, apperr.Validation("value", fmt.Sprintf("%s must be a finite number", s.Key))
		}
		return n, nil
	case SettingBoolean:
		b, ok := toBool(raw)
		if !ok {
			return nil, apperr.Validation("value", fmt.Sprintf("%s must be a boolean", s.Key))
		}
		return b, nil
	case SettingJSON:
		return raw, nil
	default:
		switch v := raw.(type) {
		case string:
			return v, nil
		case nil:
			return "", nil
		case float64, float32, int, int32, int64, bool:
			return fmt.Sprint(v), nil
		default:
			return nil, apperr.Validation("value", fmt.Sprintf("%s must be a string", s.Key))
		}
	}
}

// ToNumber accepts finite numbers and numeric strings.
func ToNumber(raw interface{}) (float64, bool) {
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int32:
		n = float64(v)
	case int64:
		n = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func toBool(raw interface{}) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "on":
			return true, true
		case "false", "0", "no", "off", "":
			return false, true
		}
		return false, false
	case nil:
		return false, true
	default:
		if n, ok := ToNumber(v); ok {
			return n != 0, true
		}
		return false, false
	}
}

// DefaultSettings are seeded when missing.
func DefaultSettings() []Setting {
	return []Setting{
		{Key: KeyMinimumOrderValue, Value: 0.0, Type: SettingNumber, Category: CategoryCheckout, Label: "Minimum order value", Description: "Orders with a subtotal below this value are rejected. 0 disables the check.", Editable: true, Public: true},
		{Key: KeyDeliveryFee, Value: 50.0, Type: SettingNumber, Category: CategoryDelivery, Label: "Delivery fee", Description: "Flat delivery fee added to every order.", Editable: true, Public: true},
		{Key: KeyFreeDeliveryThreshold, Value: 0.0, Type: SettingNumber, Category: CategoryDelivery, Label: "Free delivery threshold", Description: "Subtotal from which delivery is free. 0 disables free delivery.", Editable: true, Public: true},
		{Key: KeySurgeFeeEnabled, Value: false, Type: SettingBoolean, Category: CategoryFees, Label: "Surge fee enabled", Editable: true},
		{Key: KeyStoreName, Value: "Storefront", Type: SettingString, Category: CategoryBusiness, Label: "Store name", Editable: true, Public: true},
		{Key: KeyCurrency, Value: "INR", Type: SettingString, Category: CategoryBusiness, Label: "Currency", Editable: false, Public: true},
		{Key: KeyLoyaltyPointsPer100, Value: 1.0, Type: SettingNumber, Category: CategoryLoyalty, Label: "Loyalty points per 100", Editable: true},
		{Key: KeyOrderNotificationEmail, Value: "", Type: SettingString, Category: CategoryNotifications, Label: "Order notification email", Editable: true},
	}
}
