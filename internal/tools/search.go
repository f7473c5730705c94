package tools

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"mapagent/internal/metrics"
	"mapagent/models"
	"mapagent/pkg/location"
	"mapagent/pkg/overpass"
)

// TextSearch finds places for a free-text query such as "Kadıköy kafeler".
//
// Tiers: structured amenity+city lookup (when an amenity and an area are
// recognized), free text with the translated query, free text with the
// original query (when translation changed it), then "<amenity> <area>".
func (t *Toolbox) TextSearch(ctx context.Context, query string) (out string) {
	defer t.guard(&out, "search")

	translated := t.normalizer.Translate(query)
	amenity, ok := t.normalizer.DetectAmenity(translated)
	if !ok {
		amenity, ok = t.normalizer.DetectAmenity(query)
	}
	var area string
	if ok {
		area = t.normalizer.ExtractAreaName(translated)
	}

	var tiers []tier
	if ok && area != "" {
		tiers = append(tiers, tier{"structured", t.params(location.Params{Amenity: amenity, City: area})})
	}
	tiers = append(tiers, tier{"free_text", t.params(location.Params{Query: translated})})
	if translated != query {
		tiers = append(tiers, tier{"original_text", t.params(location.Params{Query: query})})
	}
	if ok && area != "" {
		tiers = append(tiers, tier{"amenity_area", t.params(location.Params{Query: amenity + " " + area})})
	}

	hits, err := t.runTiers(ctx, "text_search", tiers)
	if len(hits) == 0 {
		if err != nil {
			return errorLine("search", err)
		}
		return fmt.Sprintf("No results found for '%s'.", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Places found for '%s':\n\n", query)
	for i, h := range t.cap(hits) {
		fmt.Fprintf(&b, "%d. %s\n", i+1, h.Name())
		fmt.Fprintf(&b, "   📍 Coordinates: %s, %s\n", h.Lat, h.Lon)
		fmt.Fprintf(&b, "   🏠 Address: %s\n", h.DisplayName)
		fmt.Fprintf(&b, "   🧭 Category: %s\n", h.Category())
		fmt.Fprintf(&b, "   🆔 OSM: %s\n\n", h.ObjectID())
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// NearbySearch lists places of placeType within radius meters of a point.
// The spatial provider is asked first; if it fails or finds nothing, the
// structured provider is searched inside a bounding box, then by free text.
func (t *Toolbox) NearbySearch(ctx context.Context, lat, lon float64, placeType string, radius int) (out string) {
	defer t.guard(&out, "nearby search")

	if radius <= 0 {
		radius = DefaultRadius
	}
	amenity := t.normalizer.AmenityFor(placeType)
	latS, lonS := models.FormatCoordinate(lat), models.FormatCoordinate(lon)

	var elements []overpass.Element
	ds, err := t.spatial.Query(ctx, overpass.AroundQuery(amenity, radius, lat, lon, t.limit))
	if err != nil {
		t.logger.Warn("spatial provider unavailable, falling back", zap.Error(err))
	} else if ds != nil {
		for _, el := range ds.Elements {
			if _, _, ok := el.Coordinates(); ok {
				elements = append(elements, el)
			}
		}
	}
	metrics.RecordTier("nearby_search", "spatial", len(elements), err)

	if len(elements) > 0 {
		if len(elements) > t.limit {
			elements = elements[:t.limit]
		}
		var b strings.Builder
		fmt.Fprintf(&b, "'%s' places near (%s, %s) (%dm):\n\n", placeType, latS, lonS, radius)
		for i, el := range elements {
			elLat, elLon, _ := el.Coordinates()
			category := el.Tags["amenity"]
			if category == "" {
				category = amenity
			}
			fmt.Fprintf(&b, "%d. %s\n", i+1, el.Name())
			fmt.Fprintf(&b, "   📍 Coordinates: %s, %s\n", models.FormatCoordinate(elLat), models.FormatCoordinate(elLon))
			fmt.Fprintf(&b, "   🏠 Address: %s\n", overpass.FormatAddress(el.Tags))
			fmt.Fprintf(&b, "   🧭 Category: %s\n", category)
			fmt.Fprintf(&b, "   🆔 OSM: %s\n\n", el.ObjectID())
		}
		return strings.TrimRight(b.String(), "\n") + "\n"
	}

	offset := float64(radius) / metersPerDegree
	hits, err := t.runTiers(ctx, "nearby_search", []tier{
		{"bounding_box", t.params(location.Params{Amenity: amenity, Viewbox: location.Viewbox(lat, lon, offset), Bounded: true})},
		{"free_text", t.params(location.Params{Query: fmt.Sprintf("%s near %s,%s", amenity, latS, lonS)})},
	})
	if len(hits) == 0 {
		if err != nil {
			return errorLine("nearby search", err)
		}
		return fmt.Sprintf("No '%s' found within %dm of (%s, %s).", placeType, radius, latS, lonS)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "'%s' places near (%s, %s) (Nominatim):\n\n", placeType, latS, lonS)
	for i, h := range t.cap(hits) {
		fmt.Fprintf(&b, "%d. %s\n", i+1, h.Name())
		fmt.Fprintf(&b, "   📍 Coordinates: %s, %s\n", h.Lat, h.Lon)
		fmt.Fprintf(&b, "   🏠 Address: %s\n", h.DisplayName)
		fmt.Fprintf(&b, "   🧭 Category: %s\n\n", h.Category())
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// Geocode resolves an address or area name to its top hit.
func (t *Toolbox) Geocode(ctx context.Context, address string) (out string) {
	defer t.guard(&out, "geocoding")

	hits, err := t.structured.Search(ctx, location.Params{Query: address, Limit: 1})
	metrics.RecordTier("geocode", "lookup", len(hits), err)
	if err != nil {
		return errorLine("geocoding", err)
	}
	hits = withCoordinates(hits)
	if len(hits) == 0 {
		return fmt.Sprintf("No coordinates found for '%s'.", address)
	}

	top := hits[0]
	name := top.DisplayName
	if name == "" {
		name = address
	}
	return fmt.Sprintf("📍 %s\n   Latitude: %s\n   Longitude: %s", name, top.Lat, top.Lon)
}

// params completes p with the result limit and detail flags shared by the
// list-producing tiers.
func (t *Toolbox) params(p location.Params) location.Params {
	p.Limit = t.limit
	p.Details = true
	return p
}

func (t *Toolbox) cap(hits []location.Hit) []location.Hit {
	if len(hits) > t.limit {
		return hits[:t.limit]
	}
	return hits
}
