package pipeline

import (
	"regexp"
	"strings"
	"time"

	"github.com/giantswarm/microerror"

	"github.com/sir-timeline/timeline/internal/version"
)

const dateLayout = "02/01/2006"

var datePattern = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)

// Request is the operator input for a sync.
type Request struct {
	Version string `json:"version"`
	Date    string `json:"date"`
	Year    int    `json:"year"`
}

// validate checks r and returns the normalized record key and tracker tag.
func (p *Pipeline) validate(r Request) (key, tag string, err error) {
	if strings.TrimSpace(r.Version) == "" {
		return "", "", microerror.Maskf(validationError, "version is required")
	}
	if !version.Valid(r.Version) {
		return "", "", microerror.Maskf(validationError, "version %q must be dotted numbers, optionally prefixed with %q", r.Version, version.TagPrefix)
	}
	if err := ValidateDate(r.Date); err != nil {
		return "", "", err
	}
	if r.Year == 0 {
		return "", "", microerror.Maskf(validationError, "year is required")
	}
	if r.Year < p.minYear || r.Year > p.maxYear {
		return "", "", microerror.Maskf(validationError, "year %d must be between %d and %d", r.Year, p.minYear, p.maxYear)
	}
	return version.Normalize(r.Version), version.Tag(r.Version), nil
}

// ValidateDate checks that date is a real calendar day written DD/MM/YYYY.
func ValidateDate(date string) error {
	date = strings.TrimSpace(date)
	if date == "" {
		return microerror.Maskf(validationError, "date is required")
	}
	if !datePattern.MatchString(date) {
		return microerror.Maskf(validationError, "date %q must be DD/MM/YYYY", date)
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return microerror.Maskf(validationError, "date %q is not a calendar day", date)
	}
	return nil
}

// FormatDate renders t the way release dates are stored.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
