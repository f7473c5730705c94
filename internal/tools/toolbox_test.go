package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapagent/pkg/location"
	"mapagent/pkg/overpass"
	"mapagent/pkg/upstream"
)

type searchResult struct {
	hits []location.Hit
	err  error
}

// fakeSearcher answers calls in order; calls past the scripted results return
// nothing.
type fakeSearcher struct {
	results []searchResult
	calls   []location.Params
}

func (f *fakeSearcher) Search(_ context.Context, p location.Params) ([]location.Hit, error) {
	f.calls = append(f.calls, p)
	i := len(f.calls) - 1
	if i < len(f.results) {
		return f.results[i].hits, f.results[i].err
	}
	return nil, nil
}

type fakeSpatial struct {
	ds      *overpass.Dataset
	err     error
	queries []string
}

func (f *fakeSpatial) Query(_ context.Context, q string) (*overpass.Dataset, error) {
	f.queries = append(f.queries, q)
	return f.ds, f.err
}

type panicSearcher struct{}

func (panicSearcher) Search(context.Context, location.Params) ([]location.Hit, error) {
	panic("boom")
}

func cafeHit(name, lat, lon string) location.Hit {
	return location.Hit{
		OsmType:     "node",
		OsmID:       7,
		Lat:         lat,
		Lon:         lon,
		Class:       "amenity",
		Type:        "cafe",
		DisplayName: name + ", Kadıköy, İstanbul",
		NameDetails: map[string]string{"name": name},
	}
}

func providerErr() error {
	return &upstream.ProviderError{Provider: "nominatim", Endpoint: "/search", StatusCode: 503}
}

func TestTextSearch_Tiers(t *testing.T) {
	hit := cafeHit("Cafe X", "41.0", "29.0")

	tests := []struct {
		name       string
		query      string
		results    []searchResult
		wantCalls  []location.Params
		wantPrefix string
	}{
		{
			name:    "structured tier answers",
			query:   "Kadıköy kafeler",
			results: []searchResult{{hits: []location.Hit{hit}}},
			wantCalls: []location.Params{
				{Amenity: "cafe", City: "Kadıköy", Limit: DefaultResultLimit, Details: true},
			},
			wantPrefix: "Places found for 'Kadıköy kafeler':\n\n1. Cafe X\n",
		},
		{
			name:  "falls through to original text",
			query: "Kadıköy kafeler",
			results: []searchResult{
				{},
				{err: providerErr()},
				{hits: []location.Hit{hit}},
			},
			wantCalls: []location.Params{
				{Amenity: "cafe", City: "Kadıköy", Limit: DefaultResultLimit, Details: true},
				{Query: "Kadıköy cafe", Limit: DefaultResultLimit, Details: true},
				{Query: "Kadıköy kafeler", Limit: DefaultResultLimit, Details: true},
			},
			wantPrefix: "Places found for 'Kadıköy kafeler':",
		},
		{
			name:  "amenity and area is the last tier",
			query: "Kadıköy kafeler",
			results: []searchResult{
				{}, {}, {},
				{hits: []location.Hit{hit}},
			},
			wantCalls: []location.Params{
				{Amenity: "cafe", City: "Kadıköy", Limit: DefaultResultLimit, Details: true},
				{Query: "Kadıköy cafe", Limit: DefaultResultLimit, Details: true},
				{Query: "Kadıköy kafeler", Limit: DefaultResultLimit, Details: true},
				{Query: "cafe Kadıköy", Limit: DefaultResultLimit, Details: true},
			},
			wantPrefix: "Places found for 'Kadıköy kafeler':",
		},
		{
			name:    "no amenity means free text only",
			query:   "Galata Tower",
			results: []searchResult{{}},
			wantCalls: []location.Params{
				{Query: "Galata Tower", Limit: DefaultResultLimit, Details: true},
			},
			wantPrefix: "No results found for 'Galata Tower'.",
		},
		{
			name:    "hits without coordinates are ignored",
			query:   "Galata Tower",
			results: []searchResult{{hits: []location.Hit{{DisplayName: "Galata"}}}},
			wantCalls: []location.Params{
				{Query: "Galata Tower", Limit: DefaultResultLimit, Details: true},
			},
			wantPrefix: "No results found for 'Galata Tower'.",
		},
		{
			name:    "every tier failing reports the error",
			query:   "Galata Tower",
			results: []searchResult{{err: providerErr()}},
			wantCalls: []location.Params{
				{Query: "Galata Tower", Limit: DefaultResultLimit, Details: true},
			},
			wantPrefix: "An error occurred during search: nominatim /search: unexpected status 503",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSearcher{results: tt.results}
			tb := NewToolbox(s, &fakeSpatial{}, 0, nil)

			out := tb.TextSearch(context.Background(), tt.query)

			assert.True(t, strings.HasPrefix(out, tt.wantPrefix), "got %q", out)
			assert.Equal(t, tt.wantCalls, s.calls)
		})
	}
}

func TestTextSearch_Format(t *testing.T) {
	s := &fakeSearcher{results: []searchResult{{hits: []location.Hit{cafeHit("Cafe X", "41.0", "29.0")}}}}
	tb := NewToolbox(s, &fakeSpatial{}, 0, nil)

	out := tb.TextSearch(context.Background(), "cafes in Kadikoy")

	want := "Places found for 'cafes in Kadikoy':\n\n" +
		"1. Cafe X\n" +
		"   📍 Coordinates: 41.0, 29.0\n" +
		"   🏠 Address: Cafe X, Kadıköy, İstanbul\n" +
		"   🧭 Category: amenity / cafe\n" +
		"   🆔 OSM: node/7\n"
	assert.Equal(t, want, out)
}

func TestTextSearch_Limit(t *testing.T) {
	hits := []location.Hit{
		cafeHit("A", "41.0", "29.0"),
		cafeHit("B", "41.1", "29.1"),
		cafeHit("C", "41.2", "29.2"),
	}
	s := &fakeSearcher{results: []searchResult{{hits: hits}}}
	tb := NewToolbox(s, &fakeSpatial{}, 2, nil)

	out := tb.TextSearch(context.Background(), "Galata")

	assert.Contains(t, out, "2. B")
	assert.NotContains(t, out, "3. C")
	assert.Equal(t, 2, s.calls[0].Limit)
}

func TestTextSearch_RecoversPanic(t *testing.T) {
	tb := NewToolbox(panicSearcher{}, &fakeSpatial{}, 0, nil)

	out := tb.TextSearch(context.Background(), "Galata")

	assert.Equal(t, "An error occurred during search: boom", out)
}

func float(v float64) *float64 { return &v }

func TestNearbySearch_Spatial(t *testing.T) {
	sp := &fakeSpatial{ds: &overpass.Dataset{Elements: []overpass.Element{
		{Type: "node", ID: 1, Lat: float(41.01), Lon: float(29.02), Tags: map[string]string{"name": "Moda Cafe", "addr:street": "Moda Cd."}},
		{Type: "way", ID: 2, Tags: map[string]string{"name": "No Position"}},
	}}}
	s := &fakeSearcher{}
	tb := NewToolbox(s, sp, 0, nil)

	out := tb.NearbySearch(context.Background(), 41.0, 29.0, "cafes", 0)

	want := "'cafes' places near (41.0, 29.0) (1500m):\n\n" +
		"1. Moda Cafe\n" +
		"   📍 Coordinates: 41.01, 29.02\n" +
		"   🏠 Address: Moda Cd.\n" +
		"   🧭 Category: cafe\n" +
		"   🆔 OSM: node/1\n"
	assert.Equal(t, want, out)
	assert.Empty(t, s.calls)
	require.Len(t, sp.queries, 1)
	assert.Contains(t, sp.queries[0], `node["amenity"="cafe"](around:1500,41,29);`)
}

func TestNearbySearch_Fallback(t *testing.T) {
	mirrorsDown := &upstream.ProviderError{Provider: "overpass", Endpoint: "all mirrors", Err: errors.New("timeout")}
	hit := cafeHit("Cafe Y", "41.001", "29.001")

	tests := []struct {
		name      string
		spatial   *fakeSpatial
		results   []searchResult
		wantTiers int
		want      string
	}{
		{
			name:      "bounding box answers",
			spatial:   &fakeSpatial{err: mirrorsDown},
			results:   []searchResult{{hits: []location.Hit{hit}}},
			wantTiers: 1,
			want:      "'cafe' places near (41.0, 29.0) (Nominatim):\n\n1. Cafe Y\n   📍 Coordinates: 41.001, 29.001\n   🏠 Address: Cafe Y, Kadıköy, İstanbul\n   🧭 Category: amenity / cafe\n",
		},
		{
			name:      "free text answers",
			spatial:   &fakeSpatial{ds: &overpass.Dataset{}},
			results:   []searchResult{{}, {hits: []location.Hit{hit}}},
			wantTiers: 2,
			want:      "'cafe' places near (41.0, 29.0) (Nominatim):\n\n1. Cafe Y\n   📍 Coordinates: 41.001, 29.001\n   🏠 Address: Cafe Y, Kadıköy, İstanbul\n   🧭 Category: amenity / cafe\n",
		},
		{
			name:      "nothing anywhere",
			spatial:   &fakeSpatial{err: mirrorsDown},
			results:   []searchResult{{}, {}},
			wantTiers: 2,
			want:      "No 'cafe' found within 1000m of (41.0, 29.0).",
		},
		{
			name:      "nil dataset is empty",
			spatial:   &fakeSpatial{},
			results:   []searchResult{{}, {err: providerErr()}},
			wantTiers: 2,
			want:      "An error occurred during nearby search: nominatim /search: unexpected status 503",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSearcher{results: tt.results}
			tb := NewToolbox(s, tt.spatial, 0, nil)

			out := tb.NearbySearch(context.Background(), 41.0, 29.0, "cafe", 1000)

			assert.Equal(t, tt.want, out)
			require.Len(t, s.calls, tt.wantTiers)
			box := s.calls[0]
			assert.Equal(t, "cafe", box.Amenity)
			assert.True(t, box.Bounded)
			assert.NotEmpty(t, box.Viewbox)
			if tt.wantTiers > 1 {
				assert.Equal(t, "cafe near 41.0,29.0", s.calls[1].Query)
			}
		})
	}
}

func TestGeocode(t *testing.T) {
	tests := []struct {
		name    string
		results []searchResult
		want    string
	}{
		{
			name:    "top hit",
			results: []searchResult{{hits: []location.Hit{{Lat: "40.9903", Lon: "29.0290", DisplayName: "Kadıköy, İstanbul, Türkiye"}}}},
			want:    "📍 Kadıköy, İstanbul, Türkiye\n   Latitude: 40.9903\n   Longitude: 29.0290",
		},
		{
			name:    "no display name",
			results: []searchResult{{hits: []location.Hit{{Lat: "40.9", Lon: "29.0"}}}},
			want:    "📍 Kadıköy\n   Latitude: 40.9\n   Longitude: 29.0",
		},
		{
			name: "no hits",
			want: "No coordinates found for 'Kadıköy'.",
		},
		{
			name:    "provider failure",
			results: []searchResult{{err: providerErr()}},
			want:    "An error occurred during geocoding: nominatim /search: unexpected status 503",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSearcher{results: tt.results}
			tb := NewToolbox(s, &fakeSpatial{}, 0, nil)

			assert.Equal(t, tt.want, tb.Geocode(context.Background(), "Kadıköy"))
			require.Len(t, s.calls, 1)
			assert.Equal(t, location.Params{Query: "Kadıköy", Limit: 1}, s.calls[0])
		})
	}
}

func TestPlaceDetails(t *testing.T) {
	cafe := &overpass.Dataset{Elements: []overpass.Element{{
		Type: "node", ID: 123,
		Tags: map[string]string{"name": "Moda Cafe", "amenity": "cafe", "phone": "+90 216 000", "addr:city": "İstanbul"},
	}}}
	bare := &overpass.Dataset{Elements: []overpass.Element{{Type: "way", ID: 456}}}

	tests := []struct {
		name        string
		id          string
		spatial     *fakeSpatial
		want        string
		wantQueries int
	}{
		{
			name:        "full tags",
			id:          "node/123",
			spatial:     &fakeSpatial{ds: cafe},
			want:        "🏪 Moda Cafe\n   📍 Address: İstanbul\n   🧭 Category: cafe\n   📞 Phone: +90 216 000\n   🌐 Website: No website",
			wantQueries: 1,
		},
		{
			name:        "placeholders",
			id:          "way/456",
			spatial:     &fakeSpatial{ds: bare},
			want:        "🏪 Unknown\n   📍 Address: No address\n   🧭 Category: place\n   📞 Phone: No phone\n   🌐 Website: No website",
			wantQueries: 1,
		},
		{
			name:        "point alias",
			id:          "point/123",
			spatial:     &fakeSpatial{ds: cafe},
			want:        "🏪 Moda Cafe\n   📍 Address: İstanbul\n   🧭 Category: cafe\n   📞 Phone: +90 216 000\n   🌐 Website: No website",
			wantQueries: 1,
		},
		{
			name:        "not found",
			id:          "relation/789",
			spatial:     &fakeSpatial{ds: &overpass.Dataset{}},
			want:        "No place details found for 'relation/789'.",
			wantQueries: 1,
		},
		{
			name:        "provider failure",
			id:          "node/1",
			spatial:     &fakeSpatial{err: errors.New("all mirrors down")},
			want:        "An error occurred while fetching place details: all mirrors down",
			wantQueries: 1,
		},
		{name: "no separator", id: "abc", spatial: &fakeSpatial{}, want: objectIDFormat},
		{name: "unknown kind", id: "bridge/9", spatial: &fakeSpatial{}, want: objectIDFormat},
		{name: "non numeric id", id: "node/abc", spatial: &fakeSpatial{}, want: objectIDFormat},
		{name: "zero id", id: "node/0", spatial: &fakeSpatial{}, want: objectIDFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := NewToolbox(&fakeSearcher{}, tt.spatial, 0, nil)

			assert.Equal(t, tt.want, tb.PlaceDetails(context.Background(), tt.id))
			assert.Len(t, tt.spatial.queries, tt.wantQueries)
		})
	}
}

func TestPlaceDetails_QueriesNodeForPointAlias(t *testing.T) {
	sp := &fakeSpatial{ds: &overpass.Dataset{}}
	tb := NewToolbox(&fakeSearcher{}, sp, 0, nil)

	tb.PlaceDetails(context.Background(), "point/42")

	require.Len(t, sp.queries, 1)
	assert.Equal(t, overpass.ElementQuery("node", 42), sp.queries[0])
}
