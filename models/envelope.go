package models

// Center is the map focus derived from the first place of an envelope.
type Center struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Label string  `json:"label"`
}

// SearchResultEnvelope is the final answer for one resolve request.
type SearchResultEnvelope struct {
	Query    string        `json:"query"`
	Response string        `json:"response"`
	Center   *Center       `json:"center"`
	Places   []PlaceRecord `json:"places"`
}

// NewEnvelope assembles an envelope. Center is always derived from places and
// an empty place list is normalized to nil.
func NewEnvelope(query, response string, places []PlaceRecord) SearchResultEnvelope {
	env := SearchResultEnvelope{Query: query, Response: response}
	if len(places) == 0 {
		return env
	}
	env.Places = places
	first := places[0]
	env.Center = &Center{Lat: first.Lat, Lon: first.Lon, Label: first.Name}
	return env
}
