package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMapper(t *testing.T, cfg Config) *Mapper {
	t.Helper()
	m, err := New(cfg)
	require.NoError(t, err)
	return m
}

func TestCountries(t *testing.T) {
	m := newMapper(t, Config{})

	tests := []struct {
		tags string
		want []string
	}{
		{"V.1.0;ECU;ESP", []string{"Ecuador", "España"}},
		{" co ; ve ", []string{"Colombia", "Venezuela"}},
		{"EC;ECU", []string{"Ecuador", "Ecuador"}},
		{"V.1.0; backend", []string{"unspecified"}},
		{"", []string{"unspecified"}},
		{"RE;AR;CH;BR", []string{"Regional", "Argentina", "Chile", "Brasil"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Countries(tt.tags), "Countries(%q)", tt.tags)
	}
}

func TestType(t *testing.T) {
	m := newMapper(t, Config{})

	assert.Equal(t, "Defect", m.Type("Bug"))
	assert.Equal(t, "Defect", m.Type("Defect"))
	assert.Equal(t, "Requirement", m.Type("User Story"))
	assert.Equal(t, "Requirement", m.Type("Feature"))
	assert.Equal(t, "Requirement", m.Type("Task"))
	assert.Equal(t, "Requirement", m.Type("Unknown"))
	assert.Equal(t, "Requirement", m.Type(""))
}

func TestSprint(t *testing.T) {
	m := newMapper(t, Config{})

	assert.Equal(t, "Sprint 21", m.Sprint(`SIR\Sprint 21`))
	assert.Equal(t, "Sprint 21", m.Sprint(`SIR\2025\Sprint 21`))
	assert.Equal(t, "SPRINT-3", m.Sprint("SIR/SPRINT-3"))
	assert.Equal(t, "no sprint", m.Sprint(`SIR\2025`))
	assert.Equal(t, "no sprint", m.Sprint(""))
	assert.True(t, m.IsNoSprint(m.Sprint("")))
}

func TestProject(t *testing.T) {
	m := newMapper(t, Config{})

	assert.Equal(t, ProjectBack, m.Project(`SIR\Back`, "Legacy"))
	assert.Equal(t, ProjectIntegration, m.Project(`SIR\Integration`, ""))
	assert.Equal(t, ProjectBack, m.Project(`SIR`, "V.1.0;Back"))
	assert.Equal(t, DefaultProject, m.Project("", ""))
	assert.Equal(t, DefaultProject, m.Project("SIR", "ECU"))
}

func TestQAStatus(t *testing.T) {
	t.Run("default accepts only Done", func(t *testing.T) {
		m := newMapper(t, Config{})
		assert.Equal(t, "Completed", m.QAStatus("Done"))
		assert.Equal(t, "", m.QAStatus("Resolved"))
		assert.Equal(t, "", m.QAStatus("Active"))
	})

	t.Run("configured states", func(t *testing.T) {
		m := newMapper(t, Config{CompletedStates: []string{"Done", "Resolved"}})
		assert.Equal(t, "Completed", m.QAStatus("Resolved"))
	})

	t.Run("empty list disables marker", func(t *testing.T) {
		m := newMapper(t, Config{CompletedStates: []string{}})
		assert.Equal(t, "", m.QAStatus("Done"))
	})
}

func TestSpanishLabels(t *testing.T) {
	m := newMapper(t, Config{Language: "es"})

	assert.Equal(t, "Defecto", m.Type("Bug"))
	assert.Equal(t, "Requerimiento", m.Type("Task"))
	assert.Equal(t, []string{"No definido"}, m.Countries(""))
	assert.Equal(t, "Sin sprint", m.Sprint(""))
	assert.Equal(t, "Completado", m.QAStatus("Done"))
}

func TestUnsupportedLanguage(t *testing.T) {
	_, err := New(Config{Language: "fr"})
	require.Error(t, err)
	assert.True(t, IsInvalidConfig(err))

	_, err = New(Config{Language: "not a tag!"})
	assert.True(t, IsInvalidConfig(err))
}

func TestIsCountry(t *testing.T) {
	assert.True(t, IsCountry("España"))
	assert.False(t, IsCountry("Peru"))
}
