package domain

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed codes.yaml
var defaultCodeTables []byte

// Code categories used in diagnostics and metrics labels.
const (
	CategoryStatus   = "status"
	CategoryMethod   = "method"
	CategoryAccuracy = "accuracy"
	CategoryAgency   = "agency"
)

// AgencyRule is the canonical reading of a raw measuring-agency value.
// Method, when set, overrides the measurement method (reported values from
// drillers and owners are recorded as "R").
type AgencyRule struct {
	Agency string `yaml:"agency"`
	Source string `yaml:"source"`
	Method string `yaml:"method"`
}

// UnmappedCode counts occurrences of a raw value with no table entry.
type UnmappedCode struct {
	Agency   string
	Category string
	Value    string
	Count    int
}

type codeTables struct {
	Defaults struct {
		Status   string `yaml:"status"`
		Method   string `yaml:"method"`
		Accuracy string `yaml:"accuracy"`
	} `yaml:"defaults"`
	Agencies map[string]agencyTables `yaml:"agencies"`
}

type agencyTables struct {
	Status         map[string]string `yaml:"status"`
	Method         map[string]string `yaml:"method"`
	SkipMethods    []string          `yaml:"skip_methods"`
	Accuracy       map[string]string `yaml:"accuracy"`
	MethodAccuracy map[string]string `yaml:"method_accuracy"`
	Agency         struct {
		RetainUnmapped bool                  `yaml:"retain_unmapped"`
		Rules          map[string]AgencyRule `yaml:"rules"`
	} `yaml:"agency"`
}

type unmappedKey struct {
	agency, category, value string
}

// Translator maps raw agency codes onto the canonical vocabulary. Lookups
// never fail: a value missing from its table is logged once as a diagnostic
// and coerced to the category default.
//
// A Translator is used by one pipeline run and is not safe for concurrent use.
type Translator struct {
	tables   codeTables
	logger   *slog.Logger
	unmapped map[unmappedKey]int
}

// DefaultTranslator returns a Translator over the embedded code tables.
func DefaultTranslator(logger *slog.Logger) *Translator {
	t, err := LoadTranslator(bytes.NewReader(defaultCodeTables), logger)
	if err != nil {
		panic(fmt.Sprintf("embedded code tables: %v", err))
	}
	return t
}

// LoadTranslator parses YAML code tables from r.
func LoadTranslator(r io.Reader, logger *slog.Logger) (*Translator, error) {
	var tables codeTables
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&tables); err != nil {
		return nil, fmt.Errorf("parse code tables: %w", err)
	}
	if len(tables.Agencies) == 0 {
		return nil, fmt.Errorf("parse code tables: no agencies defined")
	}

	normalized := make(map[string]agencyTables, len(tables.Agencies))
	for name, at := range tables.Agencies {
		at.Status = normalizeKeys(at.Status)
		at.Method = normalizeKeys(at.Method)
		at.Accuracy = normalizeKeys(at.Accuracy)
		at.MethodAccuracy = normalizeKeys(at.MethodAccuracy)
		for i, m := range at.SkipMethods {
			at.SkipMethods[i] = NormalizeCode(m)
		}
		if at.Agency.Rules != nil {
			rules := make(map[string]AgencyRule, len(at.Agency.Rules))
			for k, v := range at.Agency.Rules {
				rules[NormalizeCode(k)] = v
			}
			at.Agency.Rules = rules
		}
		normalized[strings.ToUpper(name)] = at
	}
	tables.Agencies = normalized

	return &Translator{
		tables:   tables,
		logger:   logger,
		unmapped: make(map[unmappedKey]int),
	}, nil
}

// NormalizeCode canonicalizes a raw code for table lookup: Unicode NFKC,
// surrounding whitespace trimmed, inner runs of spaces collapsed, upper case.
func NormalizeCode(raw string) string {
	s := norm.NFKC.String(raw)
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToUpper(s)
}

func normalizeKeys(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[NormalizeCode(k)] = v
	}
	return out
}

// Status translates a raw measurement status.
func (t *Translator) Status(agency, site, raw string) string {
	return t.lookup(agency, CategoryStatus, site, raw, t.table(agency).Status, t.tables.Defaults.Status)
}

// Method translates a raw measuring method.
func (t *Translator) Method(agency, site, raw string) string {
	return t.lookup(agency, CategoryMethod, site, raw, t.table(agency).Method, t.tables.Defaults.Method)
}

// Accuracy translates an explicitly reported measurement accuracy.
func (t *Translator) Accuracy(agency, site, raw string) string {
	return t.lookup(agency, CategoryAccuracy, site, raw, t.table(agency).Accuracy, t.tables.Defaults.Accuracy)
}

// MethodAccuracy derives the accuracy class from a canonical method code for
// sources that do not report accuracy.
func (t *Translator) MethodAccuracy(agency, site, method string) string {
	table := t.table(agency).MethodAccuracy
	if table == nil {
		return t.tables.Defaults.Accuracy
	}
	return t.lookup(agency, CategoryAccuracy, site, method, table, t.tables.Defaults.Accuracy)
}

// Agency translates a raw measuring-agency value.
func (t *Translator) Agency(agency, site, raw string) AgencyRule {
	at := t.table(agency)
	key := NormalizeCode(raw)
	if rule, ok := at.Agency.Rules[key]; ok {
		return rule
	}
	if at.Agency.RetainUnmapped {
		return AgencyRule{Agency: strings.TrimSpace(raw), Source: "A"}
	}
	t.report(agency, CategoryAgency, site, raw)
	return AgencyRule{Agency: strings.ToUpper(agency), Source: "S"}
}

// Skip reports whether a raw method marks a record that was never measured.
func (t *Translator) Skip(agency, rawMethod string) bool {
	key := NormalizeCode(rawMethod)
	for _, m := range t.table(agency).SkipMethods {
		if m == key {
			return true
		}
	}
	return false
}

// Unmapped returns the raw values that fell through to a default, sorted by
// agency, category, and value.
func (t *Translator) Unmapped() []UnmappedCode {
	out := make([]UnmappedCode, 0, len(t.unmapped))
	for k, n := range t.unmapped {
		out = append(out, UnmappedCode{Agency: k.agency, Category: k.category, Value: k.value, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Agency != out[j].Agency {
			return out[i].Agency < out[j].Agency
		}
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Value < out[j].Value
	})
	return out
}

func (t *Translator) table(agency string) agencyTables {
	return t.tables.Agencies[strings.ToUpper(agency)]
}

func (t *Translator) lookup(agency, category, site, raw string, table map[string]string, def string) string {
	if table == nil {
		return strings.TrimSpace(raw)
	}
	if v, ok := table[NormalizeCode(raw)]; ok {
		return v
	}
	t.report(agency, category, site, raw)
	return def
}

// report logs the first occurrence of each unmapped value as a warning and
// repeats at debug level.
func (t *Translator) report(agency, category, site, raw string) {
	k := unmappedKey{agency: strings.ToUpper(agency), category: category, value: raw}
	t.unmapped[k]++
	level := slog.LevelDebug
	if t.unmapped[k] == 1 {
		level = slog.LevelWarn
	}
	t.logger.Log(context.Background(), level, "code needs to be assigned",
		"agency", k.agency,
		"category", category,
		"site", site,
		"value", raw,
	)
}
