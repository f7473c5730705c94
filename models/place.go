package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Source identifies where a PlaceRecord was observed.
type Source string

const (
	SourceStructured    Source = "nominatim"
	SourceSpatial       Source = "overpass"
	SourceReasoningLoop Source = "agent"
)

// PlaceRecord is a resolved place. Records are passed by value and never
// mutated after construction.
type PlaceRecord struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Address string  `json:"address"`
	Source  Source  `json:"source"`
}

// NewPlaceRecord builds a record, rejecting coordinates outside the WGS84 range.
func NewPlaceRecord(name string, lat, lon float64, address string, source Source) (PlaceRecord, error) {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return PlaceRecord{}, fmt.Errorf("latitude %v out of range", lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return PlaceRecord{}, fmt.Errorf("longitude %v out of range", lon)
	}
	return PlaceRecord{Name: name, Lat: lat, Lon: lon, Address: address, Source: source}, nil
}

// DedupKey is a coordinate pair rounded to four decimals. Two records with the
// same key are the same place.
type DedupKey struct {
	Lat int64
	Lon int64
}

// Key returns the record's DedupKey.
func (p PlaceRecord) Key() DedupKey {
	return KeyOf(p.Lat, p.Lon)
}

// KeyOf rounds the exact binary value of each coordinate to four decimals, so
// 41.01235 (stored just below the midpoint) keys as 41.0123.
func KeyOf(lat, lon float64) DedupKey {
	return DedupKey{Lat: fixed4(lat), Lon: fixed4(lon)}
}

// fixed4 returns v rounded to four decimals and scaled by 1e4.
func fixed4(v float64) int64 {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	n, err := strconv.ParseInt(strings.Replace(s, ".", "", 1), 10, 64)
	if err != nil {
		// only reachable for NaN or Inf, which NewPlaceRecord rejects
		return int64(math.Round(v * 1e4))
	}
	return n
}

// Dedup keeps the first record seen for every DedupKey, preserving order.
func Dedup(records []PlaceRecord) []PlaceRecord {
	seen := make(map[DedupKey]struct{}, len(records))
	var out []PlaceRecord
	for _, r := range records {
		k := r.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
