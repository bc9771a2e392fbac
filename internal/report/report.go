// Package report counts requirement and defect rows per month and country.
package report

import (
	"slices"
	"time"

	"github.com/giantswarm/microerror"

	"github.com/sir-timeline/timeline/internal/mapping"
	"github.com/sir-timeline/timeline/internal/model"
)

// dateLayout accepts day and month with or without a leading zero, as
// found in legacy records ("1/5/2024").
const dateLayout = "2/1/2006"

// legacyDefect is the raw tracker kind some old documents carry as type.
const legacyDefect = "Bug"

// Summary is the monthly breakdown for one year.
type Summary struct {
	Year   int                 `json:"year"`
	Months []model.MonthReport `json:"months"`
	// Skipped lists versions whose date could not be read.
	Skipped []string `json:"skipped,omitempty"`
}

// Counter classifies detail rows written in any bundled label language.
type Counter struct {
	unspecified  string
	defects      map[string]bool
	requirements map[string]bool
}

// New returns a Counter reporting unknown countries under
// labels.Unspecified.
func New(labels mapping.Labels) (*Counter, error) {
	c := &Counter{
		unspecified:  labels.Unspecified,
		defects:      map[string]bool{legacyDefect: true},
		requirements: map[string]bool{},
	}
	for _, lang := range mapping.SupportedLanguages() {
		l, err := mapping.LoadLabels(lang)
		if err != nil {
			return nil, microerror.Mask(err)
		}
		c.defects[l.Defect] = true
		c.requirements[l.Requirement] = true
	}
	return c, nil
}

// Monthly counts the rows of every release dated in year. A non-empty
// months restricts the report to those months (1-12). Months without any
// counted row are left out.
func (c *Counter) Monthly(coll *model.ReleaseCollection, year int, months []int) (*Summary, error) {
	if year <= 0 {
		return nil, microerror.Maskf(invalidInputError, "year is required")
	}
	want := map[time.Month]bool{}
	for _, m := range months {
		if m < 1 || m > 12 {
			return nil, microerror.Maskf(invalidInputError, "month %d must be between 1 and 12", m)
		}
		want[time.Month(m)] = true
	}

	counts := map[time.Month]map[string]model.MonthlyCount{}
	s := &Summary{Year: year, Months: []model.MonthReport{}}
	for _, rec := range coll.Data {
		date, err := time.Parse(dateLayout, rec.Date)
		if err != nil {
			s.Skipped = append(s.Skipped, rec.Version)
			continue
		}
		if date.Year() != year || (len(want) > 0 && !want[date.Month()]) {
			continue
		}
		for _, d := range rec.Details {
			country := d.Observation
			if !mapping.IsCountry(country) {
				country = c.unspecified
			}
			byCountry := counts[date.Month()]
			if byCountry == nil {
				byCountry = map[string]model.MonthlyCount{}
				counts[date.Month()] = byCountry
			}
			n := byCountry[country]
			switch {
			case c.defects[d.Type]:
				n.Defects++
			case c.requirements[d.Type]:
				n.Requirements++
			default:
				continue
			}
			byCountry[country] = n
		}
	}

	keys := make([]time.Month, 0, len(counts))
	for m, byCountry := range counts {
		if len(byCountry) > 0 {
			keys = append(keys, m)
		}
	}
	slices.Sort(keys)
	for _, m := range keys {
		s.Months = append(s.Months, model.MonthReport{
			Month:     monthKey(m),
			Countries: counts[m],
		})
	}
	return s, nil
}

// Totals sums a summary across months per country.
func Totals(s *Summary) map[string]model.MonthlyCount {
	out := map[string]model.MonthlyCount{}
	for _, m := range s.Months {
		for country, n := range m.Countries {
			t := out[country]
			t.Requirements += n.Requirements
			t.Defects += n.Defects
			out[country] = t
		}
	}
	return out
}

func monthKey(m time.Month) string {
	return time.Date(2000, m, 1, 0, 0, 0, 0, time.UTC).Format("01")
}
