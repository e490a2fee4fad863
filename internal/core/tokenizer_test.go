package core

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseCSVLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"plain", "a,b,c", []string{"a", "b", "c"}},
		{"quoted comma", `a,"b,c",d`, []string{"a", "b,c", "d"}},
		{"triple quoted", `a,"""quoted""",c`, []string{"a", "quoted", "c"}},
		{"escaped quote inside", `"say ""hi""",x`, []string{`say "hi"`, "x"}},
		{"trims cells", "  a , b ,c  ", []string{"a", "b", "c"}},
		{"empty cells kept", "a,,c,", []string{"a", "", "c", ""}},
		{"blank line", "   ", nil},
		{"empty line", "", nil},
		{"unbalanced quote falls back", `a,"b,c`, []string{"a", "b", "c"}},
		{"stray quote mid cell", `5" screen,x`, []string{`5" screen`, "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCSVLine(tt.line)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseCSVLine(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestJoinCSVLine_RoundTrip(t *testing.T) {
	rows := [][]string{
		{"a", "b", "c"},
		{"Cotton Tee", "Soft, breathable", "599"},
		{`12" ruler`, "steel", ""},
		{"multi, comma, value", `with "quotes", and commas`},
		{"", "", "x"},
	}

	for _, fields := range rows {
		line := JoinCSVLine(fields)
		got := ParseCSVLine(line)
		if !reflect.DeepEqual(got, fields) {
			t.Errorf("round trip of %q via %q = %q", fields, line, got)
		}
	}
}

func TestParseCSV(t *testing.T) {
	data := []byte("\xEF\xBB\xBFname,price\r\nMug,100\r\n\r\nCup,50\n")

	header, rows, err := ParseCSV(data)
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if !reflect.DeepEqual(header, []string{"name", "price"}) {
		t.Errorf("header = %q, want BOM stripped", header)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (blank line skipped)", len(rows))
	}
	if rows[0].Line != 2 || rows[1].Line != 4 {
		t.Errorf("line numbers = %d, %d, want physical lines 2 and 4", rows[0].Line, rows[1].Line)
	}
}

func TestParseCSV_Empty(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("  \n\n"), []byte("\xEF\xBB\xBF")} {
		if _, _, err := ParseCSV(data); !errors.Is(err, ErrEmptyFile) {
			t.Errorf("ParseCSV(%q) error = %v, want ErrEmptyFile", data, err)
		}
	}
}

func TestParseCSV_InvalidUTF8(t *testing.T) {
	_, rows, err := ParseCSV([]byte("name\nCaf\xe9\n"))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if got := rows[0].Values[0]; got != "Caf\uFFFD" {
		t.Errorf("cell = %q, want replacement character", got)
	}
}
