package location

import (
	"fmt"
	"strconv"
	"strings"

	"mapagent/models"
)

// Hit is one entry of a Nominatim /search response. Coordinates arrive as
// strings and may be missing.
type Hit struct {
	PlaceID     int64             `json:"place_id"`
	OsmType     string            `json:"osm_type"`
	OsmID       int64             `json:"osm_id"`
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	Class       string            `json:"class"`
	Type        string            `json:"type"`
	DisplayName string            `json:"display_name"`
	NameDetails map[string]string `json:"namedetails"`
	Address     map[string]string `json:"address"`
}

// Name resolves the short name of a hit: the local name, then the Turkish
// and English names, then the first segment of the display name.
func (h Hit) Name() string {
	for _, key := range []string{"name", "name:tr", "name:en"} {
		if v := h.NameDetails[key]; v != "" {
			return v
		}
	}
	display := h.DisplayName
	if display == "" {
		display = "Unknown"
	}
	first, _, _ := strings.Cut(display, ",")
	return strings.TrimSpace(first)
}

// Coordinates parses lat/lon. ok is false when either is missing or malformed.
func (h Hit) Coordinates() (lat, lon float64, ok bool) {
	if h.Lat == "" || h.Lon == "" {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(h.Lat, 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(h.Lon, 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// Category is the "class / type" pair.
func (h Hit) Category() string {
	class, typ := h.Class, h.Type
	if class == "" {
		class = "place"
	}
	if typ == "" {
		typ = "unknown"
	}
	return fmt.Sprintf("%s / %s", class, typ)
}

// ObjectID is the "<osm_type>/<osm_id>" identifier accepted by place details.
func (h Hit) ObjectID() string {
	return fmt.Sprintf("%s/%d", h.OsmType, h.OsmID)
}

// Records converts hits into place records, dropping hits without usable
// coordinates.
func Records(hits []Hit) []models.PlaceRecord {
	var out []models.PlaceRecord
	for _, h := range hits {
		lat, lon, ok := h.Coordinates()
		if !ok {
			continue
		}
		rec, err := models.NewPlaceRecord(h.Name(), lat, lon, h.DisplayName, models.SourceStructured)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out
}
