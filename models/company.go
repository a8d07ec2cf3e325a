package models

// Source is a news outlet that can be queried for company coverage.
type Source struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Company is a monitored company together with its associated sources.
type Company struct {
	ID      int      `json:"id"`
	Name    string   `json:"name"`
	Sources []Source `json:"sources"`
}
