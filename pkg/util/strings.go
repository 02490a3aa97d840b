package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// clubAffixes are dropped from team names when building slugs so that
// "Arsenal FC" and "Arsenal" resolve to the same team
var clubAffixes = map[string]bool{"fc": true, "afc": true, "cf": true, "sc": true}

// Slugify lower-cases s, strips diacritics and joins the remaining
// alphanumeric words with hyphens. "Atlético Madrid" becomes "atletico-madrid"
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}

	words := strings.FieldsFunc(strings.ToLower(plain), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, "-")
}

// TeamSlug is Slugify with common club affixes removed
func TeamSlug(name string) string {
	words := strings.Split(Slugify(name), "-")
	kept := words[:0]
	for _, w := range words {
		if w != "" && !clubAffixes[w] {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return Slugify(name)
	}
	return strings.Join(kept, "-")
}

// GetAsString renders a decoded argument as text
func GetAsString(s any) (string, error) {
	switch v := s.(type) {
	case nil:
		return "", fmt.Errorf("cannot convert nil to string")
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// GetAsInteger accepts whole numbers of any numeric type and numeric
// strings. JSON numbers arrive as float64
func GetAsInteger(s any) (int, error) {
	switch v := s.(type) {
	case nil:
		return 0, fmt.Errorf("cannot convert nil to integer")
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%v is not a whole number", v)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to integer: %w", v, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cannot convert type %T to integer", s)
	}
}
