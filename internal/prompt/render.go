package prompt

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/sir-timeline/timeline/internal/model"
	"github.com/sir-timeline/timeline/internal/pipeline"
	"github.com/sir-timeline/timeline/internal/report"
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#6BCB77")).
			Padding(0, 1)
	keyStyle    = lipgloss.NewStyle().Width(16).Foreground(lipgloss.Color("#888888"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func kv(pairs ...string) string {
	var lines []string
	for i := 0; i+1 < len(pairs); i += 2 {
		lines = append(lines, keyStyle.Render(pairs[i])+pairs[i+1])
	}
	return strings.Join(lines, "\n")
}

// RenderResult summarizes a finished sync.
func RenderResult(res *pipeline.Result) string {
	body := kv(
		"Version", res.Version,
		"Action", string(res.Action),
		"Work items", strconv.Itoa(res.WorkItemsCount),
		"Detail rows", strconv.Itoa(res.DetailsCount),
		"Run", res.RunID,
	)
	if res.Message != "" {
		body += "\n" + res.Message
	}
	return boxStyle.Render(body)
}

// RenderPreview summarizes what a sync would write.
func RenderPreview(p *pipeline.Preview) string {
	exists := "no"
	if p.Exists {
		exists = "yes"
	}
	head := boxStyle.Render(kv(
		"Version", p.Version,
		"Tag", p.Tag,
		"Stored", exists,
		"Work items", strconv.Itoa(p.WorkItemsCount),
		"Detail rows", strconv.Itoa(p.DetailsCount),
	))
	if p.Record == nil {
		return head
	}
	return head + "\n" + detailTable(p.Record.Details)
}

func detailTable(rows []model.DetailRow) string {
	t := newTable("ID", "Type", "Country", "Project", "Sprint", "QA", "Description")
	for _, d := range rows {
		t.Row(d.ID, d.Type, d.Observation, d.Project, d.Sprint, d.QAStatus, d.Description)
	}
	return t.String()
}

// RenderReleases lists stored releases, one line each.
func RenderReleases(coll *model.ReleaseCollection) string {
	t := newTable("Version", "Date", "Year", "Sprint", "Rows")
	for _, r := range coll.Data {
		t.Row(r.Version, r.Date, strconv.Itoa(r.Year), r.Sprint, strconv.Itoa(len(r.Details)))
	}
	return t.String()
}

// RenderReport prints one table per month plus the year totals.
func RenderReport(s *report.Summary) string {
	if len(s.Months) == 0 {
		return fmt.Sprintf("No releases in %d.", s.Year)
	}

	var b strings.Builder
	for _, m := range s.Months {
		b.WriteString(headerStyle.Render(fmt.Sprintf("Month %s/%d", m.Month, s.Year)))
		b.WriteString("\n")
		b.WriteString(countTable(m.Countries))
		b.WriteString("\n")
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("Total %d", s.Year)))
	b.WriteString("\n")
	b.WriteString(countTable(report.Totals(s)))
	if len(s.Skipped) > 0 {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("skipped (unreadable date): " + strings.Join(s.Skipped, ", ")))
	}
	return b.String()
}

func countTable(counts map[string]model.MonthlyCount) string {
	countries := make([]string, 0, len(counts))
	for c := range counts {
		countries = append(countries, c)
	}
	slices.Sort(countries)

	t := newTable("Country", "Requirements", "Defects")
	for _, c := range countries {
		n := counts[c]
		t.Row(c, strconv.Itoa(n.Requirements), strconv.Itoa(n.Defects))
	}
	return t.String()
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}
