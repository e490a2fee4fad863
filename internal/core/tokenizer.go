package core

// tokenizer.go splits CSV text into header and data rows.
//
// Lines are tokenized one at a time with a quote-aware scanner. A line whose
// quotes never balance falls back to a plain comma split so that one broken
// row still produces cells the validator can report on.

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// utf8BOM is the UTF-8 byte order mark written by Excel and other tools.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV tokenizes a whole file into a header and data rows.
// Blank lines are skipped. Line numbers are physical, so the header is
// line 1 and the first data line is normally line 2.
func ParseCSV(data []byte) ([]string, []RawRow, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	data = sanitizeUTF8(data)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, ErrEmptyFile
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var header []string
	var rows []RawRow
	for i, line := range strings.Split(text, "\n") {
		fields := ParseCSVLine(line)
		if len(fields) == 0 {
			continue
		}
		if header == nil {
			header = fields
			continue
		}
		rows = append(rows, RawRow{Line: i + 1, Values: fields})
	}

	return header, rows, nil
}

// ParseCSVLine tokenizes one CSV line.
//
//	ParseCSVLine(`a,"b,c",d`)          // [a, b,c, d]
//	ParseCSVLine(`a,"""quoted""",c`)   // [a, quoted, c]
//
// Cells are trimmed and one layer of surrounding quotes is removed. A blank
// line yields no fields.
func ParseCSVLine(line string) []string {
	if strings.TrimSpace(line) == "" {
		return nil
	}

	fields, ok := scanQuoted(line)
	if !ok {
		return splitNaive(line)
	}
	for i, f := range fields {
		fields[i] = cleanField(f)
	}
	return fields
}

// scanQuoted walks the line tracking quote state. A doubled quote inside a
// quoted section is a literal quote. It reports false when a quoted section
// is still open at end of line.
func scanQuoted(line string) ([]string, bool) {
	var fields []string
	var cur strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"' && inQuotes:
			if i+1 < len(line) && line[i+1] == '"' {
				cur.WriteByte('"')
				i++
			} else {
				inQuotes = false
			}
		case c == '"':
			inQuotes = true
		case c == ',' && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}

	if inQuotes {
		return nil, false
	}
	return append(fields, cur.String()), true
}

// splitNaive splits on every comma and strips stray quotes from each end.
func splitNaive(line string) []string {
	parts := strings.Split(line, ",")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.TrimPrefix(p, `"`)
		p = strings.TrimSuffix(p, `"`)
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// cleanField trims a cell and removes an over-quoted """ marker, or else a
// single pair of surrounding quotes.
func cleanField(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case len(s) >= 6 && strings.HasPrefix(s, `"""`) && strings.HasSuffix(s, `"""`):
		s = s[3 : len(s)-3]
	case len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`):
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

// JoinCSVLine renders fields as one CSV line, quoting only where needed.
// ParseCSVLine(JoinCSVLine(f)) returns f for trimmed cells that do not
// themselves begin and end with a quote.
func JoinCSVLine(fields []string) string {
	out := make([]string, len(fields))
	for i, f := range fields {
		if strings.ContainsAny(f, ",\"\n\r") || strings.TrimSpace(f) != f {
			f = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
		}
		out[i] = f
	}
	return strings.Join(out, ",")
}

// sanitizeUTF8 replaces invalid UTF-8 sequences with the replacement
// character so that every cell is valid text.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}
	return bytes.ToValidUTF8(data, []byte(string(utf8.RuneError)))
}
