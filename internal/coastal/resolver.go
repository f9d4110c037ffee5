package coastal

// builtinStations is the fixed station table known at process start.
var builtinStations = []StationCoordinate{
	{StationID: "cb0201", Lat: 36.9667, Lon: -76.1167},
}

// Resolver maps station ids to coordinates. The table is built once and never mutated,
// so a Resolver is safe for concurrent use.
type Resolver struct {
	stations map[string]Coordinates
}

// NewResolver builds a resolver from the built-in table plus extra entries.
// Extra entries never override built-in ones.
func NewResolver(extra ...StationCoordinate) *Resolver {
	r := &Resolver{stations: make(map[string]Coordinates, len(builtinStations)+len(extra))}
	for _, s := range extra {
		r.stations[s.StationID] = s.Coordinates()
	}
	for _, s := range builtinStations {
		r.stations[s.StationID] = s.Coordinates()
	}
	return r
}

// Resolve returns explicit coordinates when given, otherwise the station's table entry.
// The boolean is false when neither yields a position; that is not an error.
func (r *Resolver) Resolve(stationID string, explicit *Coordinates) (Coordinates, bool) {
	if explicit != nil {
		return *explicit, true
	}
	c, ok := r.stations[stationID]
	return c, ok
}

// Stations returns a copy of the table.
func (r *Resolver) Stations() []StationCoordinate {
	out := make([]StationCoordinate, 0, len(r.stations))
	for id, c := range r.stations {
		out = append(out, StationCoordinate{StationID: id, Lat: c.Lat, Lon: c.Lon})
	}
	return out
}
