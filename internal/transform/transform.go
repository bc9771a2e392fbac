// Package transform reshapes tracker tickets into release records.
package transform

import (
	"github.com/sir-timeline/timeline/internal/mapping"
	"github.com/sir-timeline/timeline/internal/model"
)

// Transformer is a pure function of its Mapper and inputs.
type Transformer struct {
	mapper *mapping.Mapper
}

// New creates a Transformer using m for every field mapping.
func New(m *mapping.Mapper) *Transformer {
	return &Transformer{mapper: m}
}

// Ticket fans a ticket out into one detail row per recognized country.
func (t *Transformer) Ticket(ticket model.Ticket) []model.DetailRow {
	countries := t.mapper.Countries(ticket.Tags)
	typ := t.mapper.Type(ticket.Kind)
	sprint := t.mapper.Sprint(ticket.IterationPath)
	project := t.mapper.Project(ticket.AreaPath, ticket.Tags)
	qa := t.mapper.QAStatus(ticket.State)

	rows := make([]model.DetailRow, 0, len(countries))
	for _, country := range countries {
		rows = append(rows, model.DetailRow{
			ID:          ticket.ID,
			Type:        typ,
			Branch:      ticket.ID,
			Description: ticket.Title,
			Observation: country,
			Project:     project,
			QAStatus:    qa,
			Sprint:      sprint,
		})
	}
	return rows
}

// Batch builds the release record for a version from tickets in the order
// given. The record sprint is the first row sprint that is not the
// no-sprint sentinel.
func (t *Transformer) Batch(tickets []model.Ticket, version, date string, year int) model.ReleaseRecord {
	details := []model.DetailRow{}
	for _, ticket := range tickets {
		details = append(details, t.Ticket(ticket)...)
	}

	sprint := t.mapper.Labels().NoSprint
	for _, d := range details {
		if !t.mapper.IsNoSprint(d.Sprint) {
			sprint = d.Sprint
			break
		}
	}

	return model.ReleaseRecord{
		Version:     version,
		Date:        date,
		Year:        year,
		Sprint:      sprint,
		Description: "",
		Details:     details,
	}
}
