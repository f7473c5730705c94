// Package extract recovers place records from free text written by the
// search tools or by a language model.
package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"mapagent/models"
)

// Extractor turns one text blob into place records, in textual order and
// without deduplication.
type Extractor interface {
	ExtractPlaces(text string) []models.PlaceRecord
}

// A line that does not start a new numbered entry: blank, starting with a
// non-digit, digits not followed by ".", or digits followed by "." and a
// non-space (a decimal number).
const nonOrdinalLine = `(?:[ \t]*(?:[^\d\s][^\n]*|\d+(?:[^.\d\n][^\n]*)?|\d+\.\S[^\n]*)?\n)`

// Numbered entry: ordinal, optionally bold name, then the first line carrying
// a coordinate pair. A pin/compass icon only introduces coordinates when the
// pair follows it directly or after a short "Label:"; a pair inside an address
// line is not taken. "Coordinates"/"Koordinat" may be followed by any label
// punctuation before the pair.
var numberedEntryRe = regexp.MustCompile(
	`\d+\.[ \t]+\*{0,2}([^\n]+?)\*{0,2}[ \t]*\n` +
		nonOrdinalLine + `*?` +
		`[^\n]*?(?:` +
		`(?:📍|🧭)[ \t]*(?:[^\d\n:-]*:)?[ \t*]*(-?\d+\.\d+),[ \t]*(-?\d+\.\d+)` +
		`|` +
		`(?:Coordinates?|Koordinat)[^\d\n-]*(-?\d+\.\d+),[ \t]*(-?\d+\.\d+)` +
		`)`)

// Geocode block: pin and name, then Latitude and Longitude lines.
var geocodeBlockRe = regexp.MustCompile(
	`📍[ \t]+([^\n]+?)[ \t]*\n[^\n]*?Latitude[^\n]*?(-?\d+\.\d+)[^\n]*\n[^\n]*?Longitude[^\n]*?(-?\d+\.\d+)`)

// PatternExtractor matches numbered entries and geocode blocks.
type PatternExtractor struct {
	patterns []*regexp.Regexp
}

// NewPatternExtractor returns the default extractor.
func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{patterns: []*regexp.Regexp{numberedEntryRe, geocodeBlockRe}}
}

type match struct {
	offset int
	record models.PlaceRecord
}

// ExtractPlaces returns matches of every pattern ordered by where they start
// in text. Matches with unparsable or out-of-range coordinates are dropped.
func (e *PatternExtractor) ExtractPlaces(text string) []models.PlaceRecord {
	var matches []match
	for _, re := range e.patterns {
		for _, idx := range re.FindAllStringSubmatchIndex(text, -1) {
			latS, lonS, ok := coordinatePair(text, idx)
			if !ok {
				continue
			}
			name := strings.TrimSpace(text[idx[2]:idx[3]])
			lat, err := strconv.ParseFloat(latS, 64)
			if err != nil {
				continue
			}
			lon, err := strconv.ParseFloat(lonS, 64)
			if err != nil {
				continue
			}
			rec, err := models.NewPlaceRecord(name, lat, lon, name, models.SourceReasoningLoop)
			if err != nil {
				continue
			}
			matches = append(matches, match{offset: idx[0], record: rec})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].offset < matches[j].offset })

	out := make([]models.PlaceRecord, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.record)
	}
	return out
}

// coordinatePair returns the first participating (lat, lon) group pair after
// the name group.
func coordinatePair(text string, idx []int) (string, string, bool) {
	for g := 2; 2*g+3 < len(idx); g += 2 {
		if idx[2*g] >= 0 && idx[2*g+2] >= 0 {
			return text[idx[2*g]:idx[2*g+1]], text[idx[2*g+2]:idx[2*g+3]], true
		}
	}
	return "", "", false
}

// Collect runs the extractor over blobs in order and keeps the first record
// for every DedupKey.
func Collect(ex Extractor, blobs []string) []models.PlaceRecord {
	var all []models.PlaceRecord
	for _, blob := range blobs {
		if blob == "" {
			continue
		}
		all = append(all, ex.ExtractPlaces(blob)...)
	}
	return models.Dedup(all)
}
