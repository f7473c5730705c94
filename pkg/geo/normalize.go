// Package geo normalizes free-text place queries: it translates foreign
// place-type words to English amenity terms, detects the amenity a query asks
// for and isolates the area name around it.
package geo

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var defaultKeywords []byte

// Translation maps a foreign word (or word stem) to an English amenity term.
type Translation struct {
	Word    string `yaml:"word"`
	Amenity string `yaml:"amenity"`
}

// AmenityKeyword maps an English keyword to the amenity tag it selects.
type AmenityKeyword struct {
	Keyword string `yaml:"keyword"`
	Amenity string `yaml:"amenity"`
}

// Tables holds both keyword tables in declaration order.
type Tables struct {
	Translations []Translation    `yaml:"translations"`
	Amenities    []AmenityKeyword `yaml:"amenities"`
}

// Normalizer applies a set of keyword Tables. It is immutable and safe for
// concurrent use.
type Normalizer struct {
	tables   Tables
	exact    map[string]string
	amenity  map[string]string
	stripper []*regexp.Regexp
}

var std = mustLoad(defaultKeywords)

func mustLoad(data []byte) *Normalizer {
	n, err := LoadNormalizer(data)
	if err != nil {
		panic(err)
	}
	return n
}

// LoadNormalizer parses a YAML keyword document.
func LoadNormalizer(data []byte) (*Normalizer, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing keyword tables: %w", err)
	}
	return NewNormalizer(t), nil
}

// NewNormalizer builds a Normalizer from in-memory tables.
func NewNormalizer(t Tables) *Normalizer {
	n := &Normalizer{
		tables:  t,
		exact:   make(map[string]string, len(t.Translations)),
		amenity: make(map[string]string, len(t.Amenities)),
	}
	for _, tr := range t.Translations {
		if _, ok := n.exact[tr.Word]; !ok {
			n.exact[tr.Word] = tr.Amenity
		}
	}
	for _, a := range t.Amenities {
		if _, ok := n.amenity[a.Keyword]; !ok {
			n.amenity[a.Keyword] = a.Amenity
		}
		n.stripper = append(n.stripper, regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}_])`+regexp.QuoteMeta(a.Keyword)+`([^\p{L}\p{N}_]|$)`))
	}
	return n
}

// Default returns the Normalizer built from the embedded tables.
func Default() *Normalizer { return std }

// fold lowercases s after NFC normalization so decomposed input matches the
// tables. A Caser is stateful, so one is created per call.
func fold(s string) string {
	return cases.Lower(language.Und).String(norm.NFC.String(s))
}

// Translate rewrites every whitespace-separated token: an exact dictionary
// hit first, then the first dictionary word the token starts with, otherwise
// the token is kept as written.
func (n *Normalizer) Translate(query string) string {
	words := strings.Fields(query)
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, n.translateWord(w))
	}
	return strings.Join(out, " ")
}

func (n *Normalizer) translateWord(w string) string {
	lw := fold(w)
	if v, ok := n.exact[lw]; ok {
		return v
	}
	for _, tr := range n.tables.Translations {
		if strings.HasPrefix(lw, tr.Word) {
			return tr.Amenity
		}
	}
	return w
}

// DetectAmenity returns the amenity of the first table keyword found anywhere
// in text. When several keywords occur, table order decides; "cafe" is
// declared before "restaurant", so "cafe restaurant" yields cafe.
func (n *Normalizer) DetectAmenity(text string) (string, bool) {
	lt := fold(text)
	for _, a := range n.tables.Amenities {
		if strings.Contains(lt, a.Keyword) {
			return a.Amenity, true
		}
	}
	return "", false
}

// ExtractAreaName removes every amenity keyword from a translated query and
// returns what is left, trimmed of spaces and commas. Keywords match as whole
// words, where any Unicode letter or digit continues a word.
func (n *Normalizer) ExtractAreaName(translated string) string {
	area := translated
	for _, re := range n.stripper {
		// a match consumes its boundaries, so adjacent keywords need another pass
		for {
			next := re.ReplaceAllString(area, "${1}${2}")
			if next == area {
				break
			}
			area = next
		}
	}
	area = strings.TrimSpace(area)
	area = strings.Trim(area, ",")
	return strings.TrimSpace(area)
}

// AmenityFor maps a place type given by a caller to its amenity tag. Unknown
// types are used as-is.
func (n *Normalizer) AmenityFor(placeType string) string {
	if v, ok := n.amenity[placeType]; ok {
		return v
	}
	return placeType
}

func Translate(query string) string { return std.Translate(query) }

func DetectAmenity(text string) (string, bool) { return std.DetectAmenity(text) }

func ExtractAreaName(translated string) string { return std.ExtractAreaName(translated) }

func AmenityFor(placeType string) string { return std.AmenityFor(placeType) }
