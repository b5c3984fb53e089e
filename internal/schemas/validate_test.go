package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"
)

func TestValidateExtraction(t *testing.T) {
	tests := []struct {
		name    string
		data    map[string]any
		wantErr bool
	}{
		{
			name: "complete record",
			data: map[string]any{
				"name":         "Taco Loco",
				"cuisine_type": []any{"Mexican"},
				"price_range":  "$$",
				"current_location": map[string]any{
					"address": "1 King St",
					"lat":     32.7765,
					"lng":     -79.9311,
				},
				"operating_hours": map[string]any{
					"monday": map[string]any{"open": "11:00", "close": "14:00", "closed": false},
				},
				"menu": []any{
					map[string]any{"category": "Tacos", "items": []any{map[string]any{"name": "Birria", "price": 4.5}}},
				},
				"confidence_score": 0.8,
			},
		},
		{
			name: "null optional fields",
			data: map[string]any{"name": "Taco Loco", "description": nil, "contact_info": nil},
		},
		{
			name:    "missing name",
			data:    map[string]any{"description": "tacos"},
			wantErr: true,
		},
		{
			name:    "confidence out of range",
			data:    map[string]any{"name": "x", "confidence_score": 1.5},
			wantErr: true,
		},
		{
			name:    "non-numeric confidence",
			data:    map[string]any{"name": "x", "confidence_score": "high"},
			wantErr: true,
		},
		{
			name:    "bad price tier",
			data:    map[string]any{"name": "x", "price_range": "cheap"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExtraction(tt.data)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.NotEmpty(t, validationErr.Messages())
		})
	}
}

func TestValidate_BadSchemaIsALoadError(t *testing.T) {
	err := validate("broken", gojsonschema.NewStringLoader(`{"type": 12}`), gojsonschema.NewStringLoader(`{}`))
	require.Error(t, err)
	var loadErr *SchemaLoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestFoodTruckExtractionSchema_Embedded(t *testing.T) {
	assert.Contains(t, FoodTruckExtractionSchema(), "FoodTruckExtraction")
}
