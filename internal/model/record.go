package model

import "time"

// DateLayout is the machine-readable calendar format embedded in infobox fields
const DateLayout = "2006-01-02"

// BiographicalRecord holds the facts read from a confirmed article
type BiographicalRecord struct {
	Name      string     `json:"name"`                 // Requested display name
	Title     string     `json:"title,omitempty"`      // Displayed article title
	SourceURL string     `json:"source_url,omitempty"` // Article the facts were read from
	BirthDate time.Time  `json:"birth_date"`           // Calendar date, UTC midnight
	DeathDate *time.Time `json:"death_date,omitempty"` // Nil while the person is alive
	Age       int        `json:"age"`                  // Completed years at death or now
	Intro     []string   `json:"intro"`                // Lead paragraphs, trimmed, in order
}

// Alive reports whether the record has no death date
func (r *BiographicalRecord) Alive() bool {
	return r.DeathDate == nil
}

// ConfirmedDocument identifies the article a strategy committed to.
// The session that produced it is left positioned on URL.
type ConfirmedDocument struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Strategy string `json:"strategy"` // Name of the strategy that produced it
}
