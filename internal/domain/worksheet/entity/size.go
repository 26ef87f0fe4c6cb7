package entity

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// PatternType is the partition a size row belongs to
type PatternType string

const (
	PatternUnisex PatternType = "unisex"
	PatternMen    PatternType = "men"
	PatternWomen  PatternType = "women"
)

// ParsePatternType parses a string into a PatternType
func ParsePatternType(s string) (PatternType, error) {
	switch PatternType(strings.ToLower(s)) {
	case PatternUnisex:
		return PatternUnisex, nil
	case PatternMen:
		return PatternMen, nil
	case PatternWomen:
		return PatternWomen, nil
	default:
		return "", ErrInvalidPatternType
	}
}

// GarmentPattern says whether a garment is cut once or separately for men and women
type GarmentPattern string

const (
	GarmentUnisex   GarmentPattern = "unisex"
	GarmentMenWomen GarmentPattern = "men_women"
)

// Partitions returns the pattern types a garment keeps rows under
func (g GarmentPattern) Partitions() []PatternType {
	if g == GarmentMenWomen {
		return []PatternType{PatternMen, PatternWomen}
	}
	return []PatternType{PatternUnisex}
}

// Accepts reports whether rows of pattern type p belong to this garment
func (g GarmentPattern) Accepts(p PatternType) bool {
	for _, pt := range g.Partitions() {
		if pt == p {
			return true
		}
	}
	return false
}

// CanonicalSizes is the fixed display order of sizes
var CanonicalSizes = []string{
	"XS", "S", "M", "L", "XL", "2XL", "3XL", "4XL", "5XL",
	"32", "34", "36", "38", "40", "42", "44", "46", "48", "50",
}

var canonicalIndex = func() map[string]int {
	m := make(map[string]int, len(CanonicalSizes))
	for i, s := range CanonicalSizes {
		m[s] = i
	}
	return m
}()

// CanonicalIndex returns the position of a size in the canonical order
func CanonicalIndex(size string) (int, bool) {
	i, ok := canonicalIndex[size]
	return i, ok
}

// RawQuantity is a quantity as typed by a user or sent by an order:
// a number, a numeric string, or an empty string.
type RawQuantity struct {
	text   string
	number float64
	isNum  bool
}

// QuantityOf wraps a number
func QuantityOf(n int) RawQuantity {
	return RawQuantity{number: float64(n), isNum: true}
}

// QuantityText wraps user text
func QuantityText(s string) RawQuantity {
	return RawQuantity{text: s}
}

// Int coerces the value to an integer. Strings use their leading integer,
// fractions are truncated, anything unreadable or out of int range is 0.
func (q RawQuantity) Int() int {
	if q.isNum {
		if math.IsNaN(q.number) || q.number >= float64(math.MaxInt) || q.number < float64(math.MinInt) {
			return 0
		}
		return int(q.number)
	}
	return leadingInt(q.text)
}

// Normalize returns nil when the value means "no entry" (empty, zero or unreadable)
func (q RawQuantity) Normalize() *int {
	n := q.Int()
	if n == 0 {
		return nil
	}
	return &n
}

// UnmarshalJSON accepts a number, a string or null
func (q *RawQuantity) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*q = RawQuantity{}
		return nil
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*q = QuantityText(s)
		return nil
	default:
		var f float64
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return err
		}
		*q = RawQuantity{number: f, isNum: true}
		return nil
	}
}

// MarshalJSON writes numbers as numbers and text as strings
func (q RawQuantity) MarshalJSON() ([]byte, error) {
	if q.isNum {
		return json.Marshal(q.number)
	}
	return json.Marshal(q.text)
}

func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// SizeEntry is one example-quantity row of a worksheet
type SizeEntry struct {
	PatternType PatternType `json:"pattern_type"`
	SizeName    string      `json:"size_name"`
	Quantity    *int        `json:"quantity"`
}

// SourceRow is a size row as it comes from an order's pattern-size table
type SourceRow struct {
	PatternType PatternType `json:"pattern_type"`
	SizeName    string      `json:"size_name"`
	Quantity    RawQuantity `json:"quantity"`
}
