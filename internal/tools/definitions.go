package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Tool names as seen by the language model.
const (
	TextSearchName   = "search_places_by_text"
	NearbySearchName = "search_nearby_places"
	GeocodeName      = "geocode_location"
	PlaceDetailsName = "get_place_details"
)

// Definition describes one callable tool: its JSON-schema parameters and an
// executor taking decoded JSON arguments.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
	Execute     func(ctx context.Context, args map[string]any) string
}

func object(required []string, props map[string]any) map[string]any {
	return map[string]any{"type": "object", "properties": props, "required": required}
}

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}

// Definitions returns the four tools bound to t.
func (t *Toolbox) Definitions() []Definition {
	return []Definition{
		{
			Name: TextSearchName,
			Description: "Performs a text-based place search using OpenStreetMap Nominatim. " +
				"Example: 'Kadıköy restaurants', 'Beşiktaş cafes', 'Taksim pizza'. " +
				"Use English place types for best results.",
			Parameters: object([]string{"query"}, map[string]any{
				"query": prop("string", "Search text (area + place type)"),
			}),
			Execute: func(ctx context.Context, args map[string]any) string {
				q, err := stringArg(args, "query")
				if err != nil {
					return invalidArgs(TextSearchName, err)
				}
				return t.TextSearch(ctx, q)
			},
		},
		{
			Name:        NearbySearchName,
			Description: "Searches for nearby places around specific coordinates using Overpass.",
			Parameters: object([]string{"latitude", "longitude", "place_type"}, map[string]any{
				"latitude":   prop("number", "Latitude (e.g.: 41.0082)"),
				"longitude":  prop("number", "Longitude (e.g.: 28.9784)"),
				"place_type": prop("string", "Place type (restaurant, cafe, bar, bakery, etc.)"),
				"radius":     prop("integer", "Search radius in meters (default: 1500)"),
			}),
			Execute: func(ctx context.Context, args map[string]any) string {
				lat, err := floatArg(args, "latitude")
				if err != nil {
					return invalidArgs(NearbySearchName, err)
				}
				lon, err := floatArg(args, "longitude")
				if err != nil {
					return invalidArgs(NearbySearchName, err)
				}
				placeType, err := stringArg(args, "place_type")
				if err != nil {
					return invalidArgs(NearbySearchName, err)
				}
				radius := DefaultRadius
				if _, ok := args["radius"]; ok {
					r, err := floatArg(args, "radius")
					if err != nil {
						return invalidArgs(NearbySearchName, err)
					}
					radius = int(r)
				}
				return t.NearbySearch(ctx, lat, lon, placeType, radius)
			},
		},
		{
			Name:        GeocodeName,
			Description: "Converts an address or area name to coordinates using Nominatim.",
			Parameters: object([]string{"address"}, map[string]any{
				"address": prop("string", "Address or area name (e.g.: 'Kadıköy, Istanbul', 'Beşiktaş')"),
			}),
			Execute: func(ctx context.Context, args map[string]any) string {
				a, err := stringArg(args, "address")
				if err != nil {
					return invalidArgs(GeocodeName, err)
				}
				return t.Geocode(ctx, a)
			},
		},
		{
			Name:        PlaceDetailsName,
			Description: "Retrieves detailed information about a place from OSM.",
			Parameters: object([]string{"place_id"}, map[string]any{
				"place_id": prop("string", "OSM identifier in the form 'node/123', 'way/456', 'relation/789'"),
			}),
			Execute: func(ctx context.Context, args map[string]any) string {
				id, err := stringArg(args, "place_id")
				if err != nil {
					return invalidArgs(PlaceDetailsName, err)
				}
				return t.PlaceDetails(ctx, id)
			},
		},
	}
}

func invalidArgs(tool string, err error) string {
	return fmt.Sprintf("Invalid arguments for %s: %v", tool, err)
}

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", &ValidationError{Field: key, Reason: "missing"}
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case json.Number:
		return s.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// floatArg accepts JSON numbers and numeric strings; models are not always
// strict about argument types.
func floatArg(args map[string]any, key string) (float64, error) {
	v, ok := args[key]
	if !ok {
		return 0, &ValidationError{Field: key, Reason: "missing"}
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, &ValidationError{Field: key, Value: n.String(), Reason: "not a number"}
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, &ValidationError{Field: key, Value: n, Reason: "not a number"}
		}
		return f, nil
	default:
		return 0, &ValidationError{Field: key, Value: fmt.Sprint(v), Reason: "not a number"}
	}
}
