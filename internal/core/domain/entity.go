package domain

// Entity is one candidate tracked for a single election cycle.
// Immutable once sourced from the candidate listing.
type Entity struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Party    string `json:"party"`
	State    string `json:"state"`
	District string `json:"district"`
	Office   string `json:"office"`
	Cycle    int    `json:"cycle"`
}

// Cycle is a two-year election period, identified by its even year.
type Cycle int

// Valid reports whether the cycle is a plausible 4-digit even year.
func (c Cycle) Valid() bool {
	return c >= 1980 && c <= 2100 && c%2 == 0
}
