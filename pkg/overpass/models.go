package overpass

import (
	"fmt"
	"strings"
)

// Dataset is the JSON body of an Overpass response.
type Dataset struct {
	Elements []Element `json:"elements"`
}

// Point is the center of a non-point geometry.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Element is one node, way or relation. Nodes carry Lat/Lon directly; ways
// and relations carry Center when queried with "out center".
type Element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Tags   map[string]string `json:"tags"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Center *Point            `json:"center"`
}

// Coordinates prefers the center, then the direct position.
func (e Element) Coordinates() (lat, lon float64, ok bool) {
	if e.Center != nil {
		return e.Center.Lat, e.Center.Lon, true
	}
	if e.Lat != nil && e.Lon != nil {
		return *e.Lat, *e.Lon, true
	}
	return 0, 0, false
}

// Name resolves name, name:tr, name:en, then "Unknown".
func (e Element) Name() string {
	for _, key := range []string{"name", "name:tr", "name:en"} {
		if v := e.Tags[key]; v != "" {
			return v
		}
	}
	return "Unknown"
}

// ObjectID is "<type>/<id>".
func (e Element) ObjectID() string {
	return fmt.Sprintf("%s/%d", e.Type, e.ID)
}

var addressKeys = []string{"addr:street", "addr:housenumber", "addr:city", "addr:district", "addr:postcode"}

// FormatAddress joins the address tags that are present, or returns
// "No address".
func FormatAddress(tags map[string]string) string {
	var parts []string
	for _, k := range addressKeys {
		if v := tags[k]; v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return "No address"
	}
	return strings.Join(parts, ", ")
}

// AroundQuery selects nodes, ways and relations tagged amenity=<amenity>
// within radius meters of a point.
func AroundQuery(amenity string, radius int, lat, lon float64, limit int) string {
	around := fmt.Sprintf("(around:%d,%v,%v)", radius, lat, lon)
	tag := fmt.Sprintf(`["amenity"=%q]`, amenity)
	var b strings.Builder
	b.WriteString("[out:json][timeout:20];\n(\n")
	for _, kind := range []string{"node", "way", "relation"} {
		fmt.Fprintf(&b, "  %s%s%s;\n", kind, tag, around)
	}
	fmt.Fprintf(&b, ");\nout center %d;\n", limit)
	return b.String()
}

// ElementQuery selects one element by kind and id.
func ElementQuery(kind string, id int64) string {
	return fmt.Sprintf("[out:json];\n%s(%d);\nout body;\n", kind, id)
}
