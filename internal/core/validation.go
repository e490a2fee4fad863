package core

// validation.go checks mapped rows against the product rules before upload.
//
// Every rule runs on every row so the preview can show all problems at once.
// The error list is then capped at MaxRowErrors entries plus a summary line.

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxRowErrors is the number of errors reported per row before truncation.
const MaxRowErrors = 5

// requiredFields are checked in this order.
var requiredFields = []string{FieldName, FieldDescription, FieldPrice, FieldCategory, FieldStock}

// numericOrder fixes the order numeric errors are reported in.
var numericOrder = []string{
	FieldPrice, FieldMRP, FieldPurchasePrice, FieldStock,
	FieldWeight, FieldLength, FieldWidth, FieldHeight,
	FieldWarranty, FieldReturnPolicy, FieldTax,
}

// fieldLabels are the names used in error messages.
var fieldLabels = map[string]string{
	FieldName:          "Name",
	FieldDescription:   "Description",
	FieldPrice:         "Price",
	FieldMRP:           "MRP",
	FieldPurchasePrice: "Purchase price",
	FieldStock:         "Stock",
	FieldCategory:      "Category",
	FieldColor:         "Color",
	FieldSize:          "Size",
	FieldWeight:        "Weight",
	FieldLength:        "Length",
	FieldWidth:         "Width",
	FieldHeight:        "Height",
	FieldWarranty:      "Warranty",
	FieldReturnPolicy:  "Return policy",
	FieldTax:           "Tax",
}

func label(key string) string {
	if l, ok := fieldLabels[key]; ok {
		return l
	}
	return key
}

// Validator applies the product rules to mapped rows.
type Validator struct {
	images ImageRules
}

// NewValidator creates a validator using the given image rules.
func NewValidator(images ImageRules) *Validator {
	return &Validator{images: images}
}

// Validate checks one mapped row and returns it with its verdict.
// rowIndex is carried into the result and does not affect the outcome.
func (v *Validator) Validate(fields Fields, rowIndex int) Row {
	var errs []string

	for _, key := range requiredFields {
		if !fields.Has(key) {
			errs = append(errs, fmt.Sprintf("%s is required", label(key)))
		}
	}

	imageURL := fields.String(FieldImageURL)
	if imageURL == "" {
		errs = append(errs, "Image URL is required")
	}

	for _, key := range numericOrder {
		raw, isText := fields[key].(string)
		if isText && raw != "" {
			errs = append(errs, fmt.Sprintf("%s must be a number (got %q)", label(key), raw))
		}
	}

	if stock, ok := fields[FieldStock].(decimal.Decimal); ok {
		if stock.IsNegative() || !stock.Equal(stock.Truncate(0)) {
			errs = append(errs, fmt.Sprintf("Stock must be a non-negative whole number (got %s)", stock))
		}
	}

	price, priceOK := fields[FieldPrice].(decimal.Decimal)
	mrp, mrpOK := fields[FieldMRP].(decimal.Decimal)
	if priceOK && mrpOK && mrp.IsPositive() && price.GreaterThan(mrp) {
		errs = append(errs, fmt.Sprintf("Price (%s) cannot be greater than MRP (%s)", price, mrp))
	}

	if imageURL != "" {
		if !v.images.HasValidShape(imageURL) {
			errs = append(errs, fmt.Sprintf("Image URL must start with http:// or https:// (got %q)", imageURL))
		}
		if p := v.images.Placeholder(imageURL); p != "" {
			errs = append(errs, fmt.Sprintf("Image URL points to a placeholder image (%s)", p))
		}
	}

	for i, img := range fields.Images() {
		if i == 0 && img == imageURL {
			continue
		}
		if !v.images.HasValidShape(img) {
			errs = append(errs, fmt.Sprintf("Image %d has an invalid URL (got %q)", i+1, img))
		}
	}

	for _, key := range []string{FieldColor, FieldSize} {
		if s := fields.String(key); hasEmptyListEntry(s) {
			errs = append(errs, fmt.Sprintf("%s has an empty entry, check for double or trailing commas (got %q)", label(key), s))
		}
	}

	return Row{
		RowIndex: rowIndex,
		Fields:   fields,
		Valid:    len(errs) == 0,
		Errors:   truncateErrors(errs),
	}
}

// truncateErrors keeps the first MaxRowErrors entries and summarises the rest.
func truncateErrors(errs []string) []string {
	if len(errs) <= MaxRowErrors {
		return errs
	}
	extra := len(errs) - MaxRowErrors
	out := append([]string{}, errs[:MaxRowErrors]...)
	return append(out, fmt.Sprintf("...and %d more errors", extra))
}
