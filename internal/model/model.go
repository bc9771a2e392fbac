package model

import (
	"encoding/json"
	"time"
)

// Ticket is a work item fetched from the tracker, already coerced into
// plain strings at the gateway boundary.
type Ticket struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Kind          string `json:"kind"`
	Tags          string `json:"tags"`
	IterationPath string `json:"iteration_path"`
	AreaPath      string `json:"area_path"`
	State         string `json:"state"`
}

// DetailRow is one (ticket, country) pairing inside a release.
type DetailRow struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Branch      string `json:"branch"`
	Description string `json:"description"`
	Observation string `json:"observation"`
	Project     string `json:"project"`
	QAStatus    string `json:"qaStatus"`
	Sprint      string `json:"sprint"`
}

// UnmarshalJSON accepts the legacy "proyect" and "qaRegional" keys written
// by the previous sync scripts. Canonical keys win when both are present.
func (d *DetailRow) UnmarshalJSON(data []byte) error {
	type plain DetailRow
	var raw struct {
		plain
		LegacyProject  string `json:"proyect"`
		LegacyQAStatus string `json:"qaRegional"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = DetailRow(raw.plain)
	if d.Project == "" {
		d.Project = raw.LegacyProject
	}
	if d.QAStatus == "" {
		d.QAStatus = raw.LegacyQAStatus
	}
	return nil
}

// ReleaseRecord is the normalized, persisted representation of one version.
type ReleaseRecord struct {
	Version     string      `json:"version"`
	Date        string      `json:"date"`
	Year        int         `json:"year"`
	Sprint      string      `json:"sprint"`
	Description string      `json:"description"`
	Details     []DetailRow `json:"details"`
}

// MarshalJSON keeps "details" an array even when the record has no rows.
func (r ReleaseRecord) MarshalJSON() ([]byte, error) {
	type plain ReleaseRecord
	p := plain(r)
	if p.Details == nil {
		p.Details = []DetailRow{}
	}
	return json.Marshal(p)
}

// ReleaseCollection is the whole persisted document.
type ReleaseCollection struct {
	Data []ReleaseRecord `json:"data"`
}

// MarshalJSON keeps "data" an array even when the collection is empty.
func (c ReleaseCollection) MarshalJSON() ([]byte, error) {
	type plain ReleaseCollection
	p := plain(c)
	if p.Data == nil {
		p.Data = []ReleaseRecord{}
	}
	return json.Marshal(p)
}

// SyncRun is one recorded invocation of the sync pipeline.
type SyncRun struct {
	ID         string    `json:"id"`
	Version    string    `json:"version"`
	Action     string    `json:"action"`
	WorkItems  int       `json:"work_items"`
	Details    int       `json:"details"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
}

// TicketRecord is a ticket as last seen for a version, kept by the journal.
type TicketRecord struct {
	Ticket
	Version  string    `json:"version"`
	SyncedAt time.Time `json:"synced_at"`
}

// MonthlyCount holds requirement and defect totals for one country.
type MonthlyCount struct {
	Requirements int `json:"requirements"`
	Defects      int `json:"defects"`
}

// MonthReport groups country counts for a single month ("01".."12").
type MonthReport struct {
	Month     string                  `json:"month"`
	Countries map[string]MonthlyCount `json:"countries"`
}
