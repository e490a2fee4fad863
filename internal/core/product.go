package core

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Dimensions groups the package measurements of a product.
type Dimensions struct {
	Length *decimal.Decimal
	Width  *decimal.Decimal
	Height *decimal.Decimal
}

// Product is the wire representation of one valid row.
type Product struct {
	RowIndex int

	Name          string
	Description   string
	Price         decimal.Decimal
	MRP           *decimal.Decimal
	PurchasePrice *decimal.Decimal
	Stock         int64
	Category      string
	Brand         string
	Color         string
	Size          string
	ImageURL      string
	Images        []string
	SKU           string
	HSN           string
	Weight        *decimal.Decimal
	Dimensions    *Dimensions
	Warranty      *decimal.Decimal
	ReturnPolicy  *decimal.Decimal
	Tax           *decimal.Decimal

	// Attributes holds columns the importer does not recognise.
	Attributes map[string]string
}

// knownFields are the keys consumed by NewProduct; everything else is an attribute.
var knownFields = map[string]bool{
	FieldName: true, FieldDescription: true, FieldPrice: true, FieldMRP: true,
	FieldPurchasePrice: true, FieldStock: true, FieldCategory: true, FieldBrand: true,
	FieldColor: true, FieldSize: true, FieldImageURL: true, FieldImages: true,
	FieldSKU: true, FieldHSN: true, FieldWeight: true, FieldLength: true,
	FieldWidth: true, FieldHeight: true, FieldWarranty: true, FieldReturnPolicy: true,
	FieldTax: true,
}

// NewProduct projects a row into a Product. Numeric fields that never
// parsed are left unset; callers only project rows that passed validation.
func NewProduct(row Row) Product {
	f := row.Fields
	p := Product{
		RowIndex:      row.RowIndex,
		Name:          f.String(FieldName),
		Description:   f.String(FieldDescription),
		MRP:           decimalPtr(f, FieldMRP),
		PurchasePrice: decimalPtr(f, FieldPurchasePrice),
		Category:      f.String(FieldCategory),
		Brand:         f.String(FieldBrand),
		Color:         f.String(FieldColor),
		Size:          f.String(FieldSize),
		ImageURL:      f.String(FieldImageURL),
		Images:        append([]string{}, f.Images()...),
		SKU:           f.String(FieldSKU),
		HSN:           f.String(FieldHSN),
		Weight:        decimalPtr(f, FieldWeight),
		Warranty:      decimalPtr(f, FieldWarranty),
		ReturnPolicy:  decimalPtr(f, FieldReturnPolicy),
		Tax:           decimalPtr(f, FieldTax),
	}
	if d := decimalPtr(f, FieldPrice); d != nil {
		p.Price = *d
	}
	if d := decimalPtr(f, FieldStock); d != nil {
		p.Stock = d.IntPart()
	}

	dims := Dimensions{
		Length: decimalPtr(f, FieldLength),
		Width:  decimalPtr(f, FieldWidth),
		Height: decimalPtr(f, FieldHeight),
	}
	if dims.Length != nil || dims.Width != nil || dims.Height != nil {
		p.Dimensions = &dims
	}

	for k, v := range f {
		if knownFields[k] {
			continue
		}
		if s, ok := v.(string); ok && s != "" {
			if p.Attributes == nil {
				p.Attributes = make(map[string]string)
			}
			p.Attributes[k] = s
		}
	}

	return p
}

func decimalPtr(f Fields, key string) *decimal.Decimal {
	switch v := f[key].(type) {
	case decimal.Decimal:
		return &v
	case string:
		if d, ok := ParseNumber(v); ok {
			return &d
		}
	}
	return nil
}

type wireDimensions struct {
	Length json.Number `json:"length,omitempty"`
	Width  json.Number `json:"width,omitempty"`
	Height json.Number `json:"height,omitempty"`
}

type wireProduct struct {
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Price         json.Number       `json:"price"`
	MRP           json.Number       `json:"mrp,omitempty"`
	PurchasePrice json.Number       `json:"purchasePrice,omitempty"`
	Stock         int64             `json:"stock"`
	Category      string            `json:"category"`
	Brand         string            `json:"brand,omitempty"`
	Color         string            `json:"color,omitempty"`
	Size          string            `json:"size,omitempty"`
	ImageURL      string            `json:"imageUrl"`
	Images        []string          `json:"images"`
	SKU           string            `json:"sku,omitempty"`
	HSN           string            `json:"hsn,omitempty"`
	Weight        json.Number       `json:"weight,omitempty"`
	Dimensions    *wireDimensions   `json:"dimensions,omitempty"`
	Warranty      json.Number       `json:"warranty,omitempty"`
	ReturnPolicy  json.Number       `json:"returnPolicy,omitempty"`
	Tax           json.Number       `json:"tax,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

func number(d *decimal.Decimal) json.Number {
	if d == nil {
		return ""
	}
	return json.Number(d.String())
}

// MarshalJSON encodes numeric fields as JSON numbers and always emits
// images as an array.
func (p Product) MarshalJSON() ([]byte, error) {
	w := wireProduct{
		Name:          p.Name,
		Description:   p.Description,
		Price:         number(&p.Price),
		MRP:           number(p.MRP),
		PurchasePrice: number(p.PurchasePrice),
		Stock:         p.Stock,
		Category:      p.Category,
		Brand:         p.Brand,
		Color:         p.Color,
		Size:          p.Size,
		ImageURL:      p.ImageURL,
		Images:        p.Images,
		SKU:           p.SKU,
		HSN:           p.HSN,
		Weight:        number(p.Weight),
		Warranty:      number(p.Warranty),
		ReturnPolicy:  number(p.ReturnPolicy),
		Tax:           number(p.Tax),
		Attributes:    p.Attributes,
	}
	if w.Images == nil {
		w.Images = []string{}
	}
	if p.Dimensions != nil {
		w.Dimensions = &wireDimensions{
			Length: number(p.Dimensions.Length),
			Width:  number(p.Dimensions.Width),
			Height: number(p.Dimensions.Height),
		}
	}
	return json.Marshal(w)
}
