// Package i18n translates hit types to the localized labels shown in the search bar
// and resolves configured labels back to types.
package i18n

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"

	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
)

var builtin = map[string]map[hit.Kind]string{
	"de": {
		hit.KindAddress:     "Adresse",
		hit.KindStreet:      "Straße",
		hit.KindHouseNumber: "Hausnummer",
		hit.KindDistrict:    "Stadtteil",
		hit.KindParcel:      "Flurstück",
		hit.KindTopic:       "Thema",
		hit.KindFolder:      "Ordner",
		hit.KindFeature:     "Objekt",
		hit.KindPlace:       "Ort",
		hit.KindDataset:     "Datensatz",
	},
	"en": {
		hit.KindAddress:     "Address",
		hit.KindStreet:      "Street",
		hit.KindHouseNumber: "House number",
		hit.KindDistrict:    "District",
		hit.KindParcel:      "Parcel",
		hit.KindTopic:       "Topic",
		hit.KindFolder:      "Folder",
		hit.KindFeature:     "Feature",
		hit.KindPlace:       "Place",
		hit.KindDataset:     "Dataset",
	},
}

// Labels holds per-language kind labels.
type Labels struct {
	tags    []language.Tag
	tables  []map[hit.Kind]string
	matcher language.Matcher
}

// New builds the label tables from the built-in labels overlaid with overrides.
// The default language goes first so that it wins unmatched negotiations.
func New(overrides map[string]map[string]string, defaultLang string) (*Labels, error) {
	merged := make(map[string]map[hit.Kind]string)
	for lang, table := range builtin {
		merged[lang] = cloneTable(table)
	}
	for lang, table := range overrides {
		dst, ok := merged[lang]
		if !ok {
			dst = make(map[hit.Kind]string)
			merged[lang] = dst
		}
		for key, label := range table {
			k := hit.Kind(key)
			if !k.IsValid() {
				return nil, fmt.Errorf("unknown hit kind %q for language %s", key, lang)
			}
			dst[k] = label
		}
	}

	def, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("parse default language %q: %w", defaultLang, err)
	}

	langs := make([]string, 0, len(merged))
	for lang := range merged {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	l := &Labels{}
	if table, ok := merged[def.String()]; ok {
		l.tags = append(l.tags, def)
		l.tables = append(l.tables, table)
	}
	for _, lang := range langs {
		tag, err := language.Parse(lang)
		if err != nil {
			return nil, fmt.Errorf("parse language %q: %w", lang, err)
		}
		if tag == def && len(l.tags) > 0 {
			continue
		}
		l.tags = append(l.tags, tag)
		l.tables = append(l.tables, merged[lang])
	}
	l.matcher = language.NewMatcher(l.tags)
	return l, nil
}

func cloneTable(in map[hit.Kind]string) map[hit.Kind]string {
	out := make(map[hit.Kind]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Match picks the best supported language for an Accept-Language header value.
func (l *Labels) Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return l.tags[0]
	}
	_, idx, _ := l.matcher.Match(tags...)
	return l.tags[idx]
}

// Label returns the localized label of t. Other types carry their own label.
func (l *Labels) Label(t hit.Type, lang language.Tag) string {
	if !t.IsKnown() {
		return t.Key()
	}
	_, idx, _ := l.matcher.Match(lang)
	if label, ok := l.tables[idx][t.Kind()]; ok {
		return label
	}
	if label, ok := l.tables[0][t.Kind()]; ok {
		return label
	}
	return t.Key()
}

// Resolve maps a configured entry to a type: a kind key, a label of a known
// kind in any language, or a free-form Other type.
func (l *Labels) Resolve(s string) hit.Type {
	s = strings.TrimSpace(s)
	if t := hit.ParseType(s); t.IsKnown() {
		return t
	}
	for _, table := range l.tables {
		for k, label := range table {
			if strings.EqualFold(label, s) {
				return hit.Known(k)
			}
		}
	}
	return hit.Other(s)
}

// ResolveAll resolves a configured type order.
func (l *Labels) ResolveAll(entries []string) []hit.Type {
	out := make([]hit.Type, 0, len(entries))
	for _, e := range entries {
		out = append(out, l.Resolve(e))
	}
	return out
}
