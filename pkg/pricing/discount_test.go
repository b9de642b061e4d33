package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"codstore.dev/storefront/pkg/apperr"
)

func TestEffectivePrice(t *testing.T) {
	tests := []struct {
		name     string
		base     float64
		discount *Discount
		want     float64
	}{
		{"no discount", 10, nil, 10},
		{"inactive percentage", 10, &Discount{Type: Percentage, Value: 20, Active: false}, 10},
		{"percentage", 10, &Discount{Type: Percentage, Value: 20, Active: true}, 10 * (1 - 20.0/100)},
		{"full percentage", 99.99, &Discount{Type: Percentage, Value: 100, Active: true}, 0},
		{"fixed", 10, &Discount{Type: Fixed, Value: 3.5, Active: true}, 6.5},
		{"fixed larger than price floors at zero", 10, &Discount{Type: Fixed, Value: 25, Active: true}, 0},
		{"inactive fixed", 10, &Discount{Type: Fixed, Value: 25, Active: false}, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EffectivePrice(tt.base, tt.discount))
		})
	}
}

func TestEffectivePrice_PenBlueExample(t *testing.T) {
	d := &Discount{Type: Percentage, Value: 20, Active: true}
	price := EffectivePrice(10.00, d)

	assert.InDelta(t, 8.00, price, 1e-9)
	assert.Equal(t, "8.00", FormatAmount(price))
	assert.Equal(t, "24.00", FormatAmount(price*3))
	assert.Equal(t, "74.00", FormatAmount(price*3+50))
}

func TestDiscountAmount(t *testing.T) {
	assert.Equal(t, 0.0, DiscountAmount(10, nil))
	assert.Equal(t, 0.0, DiscountAmount(10, &Discount{Type: Fixed, Value: 4, Active: false}))
	assert.Equal(t, 4.0, DiscountAmount(10, &Discount{Type: Fixed, Value: 4, Active: true}))
	assert.Equal(t, 10.0, DiscountAmount(10, &Discount{Type: Fixed, Value: 40, Active: true}))
	assert.InDelta(t, 2.0, DiscountAmount(10, &Discount{Type: Percentage, Value: 20, Active: true}), 1e-9)
}

func TestHasActiveDiscount(t *testing.T) {
	assert.False(t, HasActiveDiscount(nil))
	assert.False(t, HasActiveDiscount(&Discount{Type: Percentage, Value: 10, Active: false}))
	assert.False(t, HasActiveDiscount(&Discount{Type: Percentage, Value: 0, Active: true}))
	assert.False(t, HasActiveDiscount(&Discount{Type: Fixed, Value: 0, Active: true}))
	assert.True(t, HasActiveDiscount(&Discount{Type: Fixed, Value: 0.01, Active: true}))
}

func TestDiscountValidate(t *testing.T) {
	tests := []struct {
		name    string
		d       *Discount
		wantErr bool
	}{
		{"nil", nil, false},
		{"percentage lower bound", &Discount{Type: Percentage, Value: 0}, false},
		{"percentage upper bound", &Discount{Type: Percentage, Value: 100}, false},
		{"percentage above 100", &Discount{Type: Percentage, Value: 100.5}, true},
		{"negative percentage", &Discount{Type: Percentage, Value: -1}, true},
		{"fixed", &Discount{Type: Fixed, Value: 500}, false},
		{"negative fixed", &Discount{Type: Fixed, Value: -0.01}, true},
		{"unknown type", &Discount{Type: "bogo", Value: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.d.Validate()
			if tt.wantErr {
				assert.True(t, apperr.IsKind(err, apperr.KindValidation), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0.00", FormatAmount(0))
	assert.Equal(t, "19.99", FormatAmount(19.99))
	assert.Equal(t, "1234.50", FormatAmount(1234.5))
}
