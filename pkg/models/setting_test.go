package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codstore.dev/storefront/pkg/apperr"
)

func TestSettingCoerce(t *testing.T) {
	number := &Setting{Key: "delivery_fee", Type: SettingNumber}
	boolean := &Setting{Key: "surge_fee_enabled", Type: SettingBoolean}
	str := &Setting{Key: "store_name", Type: SettingString}
	js := &Setting{Key: "banner", Type: SettingJSON}

	tests := []struct {
		name    string
		setting *Setting
		raw     interface{}
		want    interface{}
		wantErr bool
	}{
		{"number from float", number, 40.5, 40.5, false},
		{"number from string", number, " 75 ", 75.0, false},
		{"number rejects words", number, "fifty", nil, true},
		{"number rejects NaN string", number, "NaN", nil, true},
		{"number rejects Inf string", number, "Inf", nil, true},
		{"number rejects bool", number, true, nil, true},
		{"boolean true string", boolean, "true", true, false},
		{"boolean on", boolean, "on", true, false},
		{"boolean zero", boolean, 0.0, false, false},
		{"boolean one", boolean, 1.0, true, false},
		{"boolean garbage", boolean, "maybe", nil, true},
		{"string passthrough", str, "Blue Door", "Blue Door", false},
		{"string from number", str, 12.0, "12", false},
		{"string rejects object", str, map[string]interface{}{"a": 1.0}, nil, true},
		{"json object", js, map[string]interface{}{"a": 1.0}, map[string]interface{}{"a": 1.0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.setting.Coerce(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperr.IsKind(err, apperr.KindValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultSettings(t *testing.T) {
	byKey := map[string]Setting{}
	for _, s := range DefaultSettings() {
		_, dup := byKey[s.Key]
		assert.False(t, dup, "duplicate default %s", s.Key)
		byKey[s.Key] = s
	}

	assert.Equal(t, 50.0, byKey[KeyDeliveryFee].Value)
	assert.True(t, byKey[KeyMinimumOrderValue].Public)
	assert.False(t, byKey[KeyCurrency].Editable)
	assert.Equal(t, "INR", byKey[KeyCurrency].Value)
	assert.False(t, byKey[KeyOrderNotificationEmail].Public)
}
