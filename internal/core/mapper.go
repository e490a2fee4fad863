package core

// mapper.go turns tokenized cells into a typed working record.
//
// Headers are canonicalised (lowercase, no spaces, underscores or dashes) and
// looked up in a fixed alias table. Recognised columns are parsed into
// decimals, cleaned text or normalised lists. Unrecognised columns are kept
// under their original header so nothing the seller supplied is lost.

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// headerAliases maps canonical header keys to field keys.
var headerAliases = map[string]string{
	"name":               FieldName,
	"productname":        FieldName,
	"title":              FieldName,
	"description":        FieldDescription,
	"productdescription": FieldDescription,
	"desc":               FieldDescription,
	"price":              FieldPrice,
	"sellingprice":       FieldPrice,
	"saleprice":          FieldPrice,
	"mrp":                FieldMRP,
	"maxretailprice":     FieldMRP,
	"listprice":          FieldMRP,
	"purchaseprice":      FieldPurchasePrice,
	"costprice":          FieldPurchasePrice,
	"stock":              FieldStock,
	"quantity":           FieldStock,
	"qty":                FieldStock,
	"inventory":          FieldStock,
	"category":           FieldCategory,
	"brand":              FieldBrand,
	"color":              FieldColor,
	"colour":             FieldColor,
	"colors":             FieldColor,
	"colours":            FieldColor,
	"size":               FieldSize,
	"sizes":              FieldSize,
	"sku":                FieldSKU,
	"hsn":                FieldHSN,
	"hsncode":            FieldHSN,
	"weight":             FieldWeight,
	"length":             FieldLength,
	"width":              FieldWidth,
	"height":             FieldHeight,
	"warranty":           FieldWarranty,
	"warrantymonths":     FieldWarranty,
	"returnpolicy":       FieldReturnPolicy,
	"returndays":         FieldReturnPolicy,
	"tax":                FieldTax,
	"gst":                FieldTax,
	"taxrate":            FieldTax,
}

// numericFields are parsed as decimals.
var numericFields = map[string]bool{
	FieldPrice:         true,
	FieldMRP:           true,
	FieldPurchasePrice: true,
	FieldStock:         true,
	FieldWeight:        true,
	FieldLength:        true,
	FieldWidth:         true,
	FieldHeight:        true,
	FieldWarranty:      true,
	FieldReturnPolicy:  true,
	FieldTax:           true,
}

var (
	imageHeaderPattern = regexp.MustCompile(`^(image|imageurl|img|imgurl|photo|picture)\d*$`)
	quoteRunPattern    = regexp.MustCompile(`"{3,}`)
	currencyPattern    = regexp.MustCompile(`(?i)^(rs\.?|inr|usd|eur)\s*`)
	numericPattern     = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

	textReplacer = strings.NewReplacer(
		"\u201c", `"`, "\u201d", `"`, "\u201e", `"`, "\u201f", `"`,
		"\u2018", "'", "\u2019", "'", "\u201a", "'", "\u201b", "'",
		"\u2012", "-", "\u2013", "-", "\u2014", "-", "\u2015", "-",
		"\u00a0", " ",
	)
	currencyReplacer = strings.NewReplacer("₹", "", "$", "", "€", "", "£", "", ",", "", " ", "")
)

// CanonicalHeader lowercases a header and removes spaces, underscores and dashes.
func CanonicalHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

// FieldKey returns the field key a header maps to and whether it is an
// image column.
func FieldKey(header string) (key string, image bool) {
	canon := CanonicalHeader(header)
	if imageHeaderPattern.MatchString(canon) {
		return FieldImageURL, true
	}
	if key, ok := headerAliases[canon]; ok {
		return key, false
	}
	return strings.TrimSpace(header), false
}

// KnownHeader reports whether header maps to a recognised product field.
func KnownHeader(header string) bool {
	canon := CanonicalHeader(header)
	_, ok := headerAliases[canon]
	return ok || imageHeaderPattern.MatchString(canon)
}

// Mapper converts tokenized rows into Fields.
type Mapper struct {
	images ImageRules
}

// NewMapper creates a mapper using the given image rules.
func NewMapper(images ImageRules) *Mapper {
	return &Mapper{images: images}
}

// MapRow maps one data row against the header. Cells missing from a short
// row are treated as empty.
func (m *Mapper) MapRow(header, values []string) Fields {
	fields := make(Fields, len(header))
	for i, h := range header {
		var raw string
		if i < len(values) {
			raw = values[i]
		}
		m.MapField(fields, h, raw)
	}
	return fields
}

// MapField maps one cell into fields in place. Empty cells are skipped.
//
// Image columns are collected in header order: the first non-empty one
// becomes imageUrl and every image (primary first) is appended to images,
// up to MaxImages. Placeholder URLs after the primary are dropped here;
// a placeholder primary is kept so the validator can reject it.
func (m *Mapper) MapField(fields Fields, header, raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}

	key, image := FieldKey(header)
	switch {
	case image:
		m.mapImage(fields, raw)
	case numericFields[key]:
		if d, ok := ParseNumber(raw); ok {
			fields[key] = d
		} else {
			fields[key] = raw
		}
	case key == FieldName || key == FieldDescription:
		fields[key] = SanitizeText(raw)
	case key == FieldColor || key == FieldSize:
		fields[key] = NormalizeList(raw)
	default:
		fields[key] = raw
	}
}

func (m *Mapper) mapImage(fields Fields, raw string) {
	u := m.images.Normalize(raw)
	imgs := fields.Images()

	if !fields.Has(FieldImageURL) {
		fields[FieldImageURL] = u
		fields[FieldImages] = append(imgs, u)
		return
	}
	if len(imgs) >= MaxImages || m.images.Placeholder(u) != "" {
		return
	}
	fields[FieldImages] = append(imgs, u)
}

// ParseNumber parses a numeric cell, tolerating currency symbols and
// thousands separators.
//
//	ParseNumber("₹1,299.50") // 1299.5, true
//	ParseNumber("Rs. 499")   // 499, true
//	ParseNumber("abc")       // 0, false
func ParseNumber(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	s = currencyPattern.ReplaceAllString(s, "")
	s = currencyReplacer.Replace(s)
	if !numericPattern.MatchString(s) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// SanitizeText collapses spreadsheet over-quoting, strips wrapping quotes
// and replaces typographic punctuation with ASCII.
func SanitizeText(s string) string {
	s = quoteRunPattern.ReplaceAllString(s, `"`)
	s = strings.ReplaceAll(s, `""`, `"`)
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	s = textReplacer.Replace(s)
	return strings.TrimSpace(s)
}

// NormalizeList normalises a color or size cell.
//
// A JSON array is flattened to a comma-separated list. A comma list is
// re-joined with ", " after trimming each entry. A list with an empty entry
// is returned unchanged so the validator can flag it.
func NormalizeList(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		var items []any
		if err := json.Unmarshal([]byte(s), &items); err == nil {
			parts := make([]string, 0, len(items))
			for _, it := range items {
				if p := strings.TrimSpace(fmt.Sprint(it)); p != "" {
					parts = append(parts, p)
				}
			}
			return strings.Join(parts, ", ")
		}
	}

	if !strings.Contains(s, ",") {
		return s
	}
	parts := strings.Split(s, ",")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return s
		}
		parts[i] = p
	}
	return strings.Join(parts, ", ")
}

// hasEmptyListEntry reports whether a comma list contains an empty entry.
func hasEmptyListEntry(s string) bool {
	if !strings.Contains(s, ",") {
		return false
	}
	for _, p := range strings.Split(s, ",") {
		if strings.TrimSpace(p) == "" {
			return true
		}
	}
	return false
}
