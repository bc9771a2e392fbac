package mapping

import (
	"embed"
	"path"

	"github.com/BurntSushi/toml"
	"github.com/giantswarm/microerror"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var localeFS embed.FS

// Labels are the localized strings written into detail rows.
type Labels struct {
	Defect      string
	Requirement string
	Unspecified string
	NoSprint    string
	Completed   string
}

func newBundle() (*i18n.Bundle, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, microerror.Mask(err)
	}
	for _, f := range files {
		name := path.Join("locales", f.Name())
		data, err := localeFS.ReadFile(name)
		if err != nil {
			return nil, microerror.Mask(err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, name); err != nil {
			return nil, microerror.Maskf(invalidConfigError, "parse %s: %s", name, err)
		}
	}
	return bundle, nil
}

// SupportedLanguages lists the label languages bundled with the binary.
func SupportedLanguages() []string {
	bundle, err := newBundle()
	if err != nil {
		return nil
	}
	var out []string
	for _, tag := range bundle.LanguageTags() {
		out = append(out, tag.String())
	}
	return out
}

// LoadLabels resolves the label set for lang. An empty lang means English.
func LoadLabels(lang string) (Labels, error) {
	if lang == "" {
		lang = language.English.String()
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return Labels{}, microerror.Maskf(invalidConfigError, "language %q: %s", lang, err)
	}

	bundle, err := newBundle()
	if err != nil {
		return Labels{}, microerror.Mask(err)
	}

	supported := false
	for _, t := range bundle.LanguageTags() {
		base, _ := t.Base()
		want, _ := tag.Base()
		if base == want {
			supported = true
			break
		}
	}
	if !supported {
		return Labels{}, microerror.Maskf(invalidConfigError, "language %q not supported", lang)
	}

	loc := i18n.NewLocalizer(bundle, tag.String())
	get := func(id string) (string, error) {
		s, err := loc.Localize(&i18n.LocalizeConfig{MessageID: id})
		if err != nil {
			return "", microerror.Maskf(invalidConfigError, "label %q: %s", id, err)
		}
		return s, nil
	}

	var l Labels
	for _, f := range []struct {
		id  string
		dst *string
	}{
		{"type_defect", &l.Defect},
		{"type_requirement", &l.Requirement},
		{"country_unspecified", &l.Unspecified},
		{"sprint_none", &l.NoSprint},
		{"qa_completed", &l.Completed},
	} {
		s, err := get(f.id)
		if err != nil {
			return Labels{}, err
		}
		*f.dst = s
	}
	return l, nil
}
