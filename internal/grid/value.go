package grid

import (
	"math"
	"strconv"
	"strings"

	"airgrid/internal/types"

	"github.com/dustin/go-humanize"
)

// Value is a typed cell value as held in the projection. Text columns keep
// the stored string; Number columns keep the parsed float64.
type Value struct {
	Type   types.ColumnType
	Raw    string
	Number float64
	Blank  bool
}

// emptyValue is what a missing cell reads as.
func emptyValue(typ types.ColumnType) Value {
	return Value{Type: typ, Blank: true}
}

// valueOf interprets stored text according to the column type. Number cells
// holding text that does not parse read as blank.
func valueOf(typ types.ColumnType, raw string) Value {
	if typ != types.ColumnNumber {
		return Value{Type: typ, Raw: raw, Blank: raw == ""}
	}
	f, err := ParseNumber(raw)
	if err != nil || strings.TrimSpace(raw) == "" {
		return Value{Type: typ, Raw: raw, Blank: true}
	}
	return Value{Type: typ, Raw: raw, Number: f}
}

// String returns the value as it appears in the edit buffer.
func (v Value) String() string {
	if v.Type == types.ColumnNumber {
		if v.Blank {
			return ""
		}
		return FormatNumber(v.Number)
	}
	return v.Raw
}

// Display returns the value for rendering. Numbers are digit-grouped when
// grouping is set; the projection keeps the raw number.
func (v Value) Display(grouping bool) string {
	if v.Type != types.ColumnNumber || v.Blank {
		return v.String()
	}
	if !grouping {
		return FormatNumber(v.Number)
	}
	if v.Number == math.Trunc(v.Number) && math.Abs(v.Number) < 1e15 {
		return humanize.Comma(int64(v.Number))
	}
	return humanize.CommafWithDigits(v.Number, 6)
}

// AllowedNumberRune reports whether r may be typed into a Number cell.
// Everything else is dropped at the keystroke.
func AllowedNumberRune(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r == '.', r == '-', r == '+', r == 'e', r == 'E':
		return true
	}
	return false
}

// ParseNumber parses a Number cell buffer. Empty input parses to 0 with no
// error; callers treat it as blank. Only decimal notation made of runes
// AllowedNumberRune accepts is a number, so hex floats and digit
// underscores are rejected here as they are at the keystroke.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	for _, r := range s {
		if !AllowedNumberRune(r) {
			return 0, &strconv.NumError{Func: "ParseFloat", Num: s, Err: strconv.ErrSyntax}
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, strconv.ErrRange
	}
	return f, nil
}

// FormatNumber renders f in the canonical stored form: shortest decimal,
// no exponent.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// normalize validates buffer for a column and returns the text to store.
func normalize(col types.Column, buffer string) (string, error) {
	if col.Type != types.ColumnNumber {
		return buffer, nil
	}
	trimmed := strings.TrimSpace(buffer)
	if trimmed == "" {
		return "", nil
	}
	f, err := ParseNumber(trimmed)
	if err != nil {
		return "", &ValidationError{Column: col.Name, Input: buffer, Reason: "must be a number"}
	}
	return FormatNumber(f), nil
}
