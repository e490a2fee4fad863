package core

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

// validFields returns a row that passes every rule.
func validFields() Fields {
	return Fields{
		FieldName:        "Mug",
		FieldDescription: "Ceramic mug",
		FieldPrice:       decimal.NewFromInt(100),
		FieldCategory:    "Kitchen",
		FieldStock:       decimal.NewFromInt(5),
		FieldImageURL:    "https://cdn.test/mug.jpg",
		FieldImages:      []string{"https://cdn.test/mug.jpg"},
	}
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(testImageRules)

	tests := []struct {
		name      string
		mutate    func(Fields)
		wantValid bool
		wantErr   string
	}{
		{
			name:      "complete row",
			mutate:    func(Fields) {},
			wantValid: true,
		},
		{
			name:    "missing name",
			mutate:  func(f Fields) { delete(f, FieldName) },
			wantErr: "Name is required",
		},
		{
			name: "missing image",
			mutate: func(f Fields) {
				delete(f, FieldImageURL)
				delete(f, FieldImages)
			},
			wantErr: "Image URL is required",
		},
		{
			name:    "price above mrp",
			mutate:  func(f Fields) { f[FieldMRP] = decimal.NewFromInt(50) },
			wantErr: "Price (100) cannot be greater than MRP (50)",
		},
		{
			name:      "zero mrp means no mrp",
			mutate:    func(f Fields) { f[FieldMRP] = decimal.Zero },
			wantValid: true,
		},
		{
			name: "zero price and zero mrp",
			mutate: func(f Fields) {
				f[FieldPrice] = decimal.Zero
				f[FieldMRP] = decimal.Zero
			},
			wantValid: true,
		},
		{
			name:    "non numeric mrp",
			mutate:  func(f Fields) { f[FieldMRP] = "abc" },
			wantErr: `MRP must be a number (got "abc")`,
		},
		{
			name:    "fractional stock",
			mutate:  func(f Fields) { f[FieldStock] = decimal.RequireFromString("2.5") },
			wantErr: "Stock must be a non-negative whole number",
		},
		{
			name:    "negative stock",
			mutate:  func(f Fields) { f[FieldStock] = decimal.NewFromInt(-1) },
			wantErr: "Stock must be a non-negative whole number",
		},
		{
			name: "scheme-less non cdn image",
			mutate: func(f Fields) {
				f[FieldImageURL] = "cdn.test/mug.jpg"
				f[FieldImages] = []string{"cdn.test/mug.jpg"}
			},
			wantErr: "Image URL must start with http:// or https://",
		},
		{
			name: "placeholder primary image",
			mutate: func(f Fields) {
				f[FieldImageURL] = "https://via.placeholder.com/300"
				f[FieldImages] = []string{"https://via.placeholder.com/300"}
			},
			wantErr: "placeholder image (placeholder.com)",
		},
		{
			name: "bad additional image",
			mutate: func(f Fields) {
				f[FieldImages] = []string{"https://cdn.test/mug.jpg", "ftp://old/1.jpg"}
			},
			wantErr: `Image 2 has an invalid URL (got "ftp://old/1.jpg")`,
		},
		{
			name:    "double comma color",
			mutate:  func(f Fields) { f[FieldColor] = "Red,,Blue" },
			wantErr: "Color has an empty entry",
		},
		{
			name:    "leading comma size",
			mutate:  func(f Fields) { f[FieldSize] = ",M" },
			wantErr: "Size has an empty entry",
		},
		{
			name:      "clean color list",
			mutate:    func(f Fields) { f[FieldColor] = "Red, Blue, Green" },
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFields()
			tt.mutate(f)

			row := v.Validate(f, 7)
			if row.RowIndex != 7 {
				t.Errorf("RowIndex = %d, want 7", row.RowIndex)
			}
			if row.Valid != tt.wantValid {
				t.Fatalf("Valid = %v, want %v (errors: %q)", row.Valid, tt.wantValid, row.Errors)
			}
			if tt.wantValid {
				if len(row.Errors) != 0 {
					t.Errorf("Errors = %q, want none", row.Errors)
				}
				return
			}
			if !containsSubstring(row.Errors, tt.wantErr) {
				t.Errorf("Errors = %q, want one containing %q", row.Errors, tt.wantErr)
			}
		})
	}
}

func TestValidator_TruncatesErrors(t *testing.T) {
	v := NewValidator(testImageRules)

	row := v.Validate(Fields{FieldMRP: "x", FieldTax: "y"}, 2)

	if row.Valid {
		t.Fatal("Valid = true for an empty row")
	}
	if len(row.Errors) != MaxRowErrors+1 {
		t.Fatalf("len(Errors) = %d, want %d", len(row.Errors), MaxRowErrors+1)
	}
	// 5 required + image + 2 numeric = 8 errors, 3 beyond the cap.
	if last := row.Errors[MaxRowErrors]; last != "...and 3 more errors" {
		t.Errorf("summary line = %q, want %q", last, "...and 3 more errors")
	}
}

func containsSubstring(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
