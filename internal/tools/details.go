package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"mapagent/internal/metrics"
	"mapagent/pkg/overpass"
)

const objectIDFormat = "Place id must be in the form 'node/123', 'way/456', or 'relation/789'."

// ValidationError reports a malformed tool argument.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// parseObjectID splits "<kind>/<numericId>". "point" is accepted as an alias
// of "node".
func parseObjectID(objectID string) (string, int64, error) {
	kind, rawID, found := strings.Cut(strings.TrimSpace(objectID), "/")
	if !found {
		return "", 0, &ValidationError{Field: "place id", Value: objectID, Reason: "missing '/' separator"}
	}
	kind = strings.ToLower(kind)
	if kind == "point" {
		kind = "node"
	}
	switch kind {
	case "node", "way", "relation":
	default:
		return "", 0, &ValidationError{Field: "place id", Value: objectID, Reason: "unknown kind " + kind}
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, &ValidationError{Field: "place id", Value: objectID, Reason: "id is not a positive number"}
	}
	return kind, id, nil
}

// PlaceDetails describes one element given as "<kind>/<id>". Malformed ids are
// reported without contacting any provider.
func (t *Toolbox) PlaceDetails(ctx context.Context, objectID string) (out string) {
	defer t.guard(&out, "place details lookup")

	kind, id, err := parseObjectID(objectID)
	if err != nil {
		return objectIDFormat
	}

	ds, err := t.spatial.Query(ctx, overpass.ElementQuery(kind, id))
	var n int
	if ds != nil {
		n = len(ds.Elements)
	}
	metrics.RecordTier("place_details", "spatial", n, err)
	if err != nil {
		return fmt.Sprintf("An error occurred while fetching place details: %v", err)
	}
	if n == 0 {
		return fmt.Sprintf("No place details found for '%s'.", objectID)
	}

	el := ds.Elements[0]
	category := el.Tags["amenity"]
	if category == "" {
		category = "place"
	}
	phone := el.Tags["phone"]
	if phone == "" {
		phone = "No phone"
	}
	website := el.Tags["website"]
	if website == "" {
		website = "No website"
	}

	return fmt.Sprintf("🏪 %s\n   📍 Address: %s\n   🧭 Category: %s\n   📞 Phone: %s\n   🌐 Website: %s",
		el.Name(), overpass.FormatAddress(el.Tags), category, phone, website)
}
