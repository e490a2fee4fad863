package core

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

var testImageRules = ImageRules{
	CDNHost:      "res.cloudinary.com",
	Placeholders: []string{"placeholder.com", "placehold.it", "dummyimage.com"},
}

func TestCanonicalHeader(t *testing.T) {
	tests := map[string]string{
		"Name":           "name",
		" Image URL ":    "imageurl",
		"purchase_price": "purchaseprice",
		"Return-Policy":  "returnpolicy",
		"IMAGE_URL_1":    "imageurl1",
	}
	for in, want := range tests {
		if got := CanonicalHeader(in); got != want {
			t.Errorf("CanonicalHeader(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFieldKey(t *testing.T) {
	tests := []struct {
		header    string
		wantKey   string
		wantImage bool
	}{
		{"Product Name", FieldName, false},
		{"MRP", FieldMRP, false},
		{"Purchase_Price", FieldPurchasePrice, false},
		{"imageUrl", FieldImageURL, true},
		{"imageurl1", FieldImageURL, true},
		{"Photo 3", FieldImageURL, true},
		{"Colour", FieldColor, false},
		{"Material", "Material", false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			key, image := FieldKey(tt.header)
			if key != tt.wantKey || image != tt.wantImage {
				t.Errorf("FieldKey(%q) = (%q, %v), want (%q, %v)", tt.header, key, image, tt.wantKey, tt.wantImage)
			}
		})
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"100", "100", true},
		{"₹1,299.50", "1299.5", true},
		{"Rs. 499", "499", true},
		{"$ 12.00", "12", true},
		{"-3", "-3", true},
		{".5", "0.5", true},
		{"+5", "5", true},
		{"1e3", "1000", true},
		{"2.5E-1", "0.25", true},
		{"e3", "", false},
		{"abc", "", false},
		{"12kg", "", false},
		{"1.2.3", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseNumber(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParseNumber(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ParseNumber(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`"""Premium Mug"""`, "Premium Mug"},
		{`"Quoted"`, "Quoted"},
		{`12"" screen`, `12" screen`},
		{"Smart “Best” choice — new", `Smart "Best" choice - new`},
		{"  padded  ", "padded"},
		{"\u201elow\u201f quotes", `"low" quotes`},
		{"\u201asingle\u201b", "'single'"},
		{"a\u2012b\u2015c", "a-b-c"},
	}
	for _, tt := range tests {
		if got := SanitizeText(tt.in); got != tt.want {
			t.Errorf("SanitizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeList(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Red, Blue, Green", "Red, Blue, Green"},
		{"Red,Blue ,  Green", "Red, Blue, Green"},
		{`["S","M","L"]`, "S, M, L"},
		{`[42, 44]`, "42, 44"},
		{"Red,,Blue", "Red,,Blue"},
		{",Red", ",Red"},
		{"Red,", "Red,"},
		{"Single", "Single"},
		{"[not json", "[not json"},
	}
	for _, tt := range tests {
		if got := NormalizeList(tt.in); got != tt.want {
			t.Errorf("NormalizeList(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMapper_MapRow(t *testing.T) {
	m := NewMapper(testImageRules)
	header := []string{"Name", "Price", "MRP", "Stock", "Color", "imageUrl", "imageUrl1", "imageUrl2", "Material"}
	values := []string{`"""Mug"""`, "₹349", "abc", "10", "Red,Blue", "res.cloudinary.com/demo/mug.jpg", "https://cdn.test/2.jpg", "https://placeholder.com/300", "Stoneware"}

	f := m.MapRow(header, values)

	if got := f.String(FieldName); got != "Mug" {
		t.Errorf("name = %q, want Mug", got)
	}
	if price, ok := f[FieldPrice].(decimal.Decimal); !ok || !price.Equal(decimal.NewFromInt(349)) {
		t.Errorf("price = %#v, want decimal 349", f[FieldPrice])
	}
	if got := f[FieldMRP]; got != "abc" {
		t.Errorf("mrp = %#v, want raw text kept for validation", got)
	}
	if got := f.String(FieldColor); got != "Red, Blue" {
		t.Errorf("color = %q, want %q", got, "Red, Blue")
	}
	if got := f.String(FieldImageURL); got != "https://res.cloudinary.com/demo/mug.jpg" {
		t.Errorf("imageUrl = %q, want https prefix added", got)
	}
	wantImages := []string{"https://res.cloudinary.com/demo/mug.jpg", "https://cdn.test/2.jpg"}
	if got := f.Images(); !reflect.DeepEqual(got, wantImages) {
		t.Errorf("images = %q, want %q (placeholder dropped)", got, wantImages)
	}
	if got := f.String("Material"); got != "Stoneware" {
		t.Errorf("unknown column = %q, want passthrough", got)
	}
}

func TestMapper_ImageFallback(t *testing.T) {
	m := NewMapper(testImageRules)
	header := []string{"name", "imageUrl", "imageurl1", "imageurl2"}
	f := m.MapRow(header, []string{"Mug", "", "https://cdn.test/a.jpg", "https://cdn.test/b.jpg"})

	if got := f.String(FieldImageURL); got != "https://cdn.test/a.jpg" {
		t.Errorf("imageUrl = %q, want fallback to imageurl1", got)
	}
	if got := len(f.Images()); got != 2 {
		t.Errorf("images = %d entries, want 2", got)
	}
}

func TestMapper_ImageCap(t *testing.T) {
	m := NewMapper(testImageRules)
	header := []string{"image", "image1", "image2", "image3", "image4", "image5"}
	values := []string{"https://a.test/0", "https://a.test/1", "https://a.test/2", "https://a.test/3", "https://a.test/4", "https://a.test/5"}

	f := m.MapRow(header, values)
	if got := len(f.Images()); got != MaxImages {
		t.Errorf("images = %d entries, want %d", got, MaxImages)
	}
}

func TestMapper_ShortRow(t *testing.T) {
	m := NewMapper(testImageRules)
	f := m.MapRow([]string{"name", "price", "stock"}, []string{"Mug"})

	if f.Has(FieldPrice) || f.Has(FieldStock) {
		t.Errorf("fields = %v, want missing cells absent", f)
	}
}
