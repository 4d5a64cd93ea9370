// Package schema holds the Feature Schema: the ordered column list a trained
// classifier was fitted on, plus the closed duration and severity categories.
// Encoders and classifiers must agree on one Schema for vectors to be valid.
package schema

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrEmptySchema = errors.New("feature schema has no columns")

// Schema is immutable after construction and safe for concurrent use.
type Schema struct {
	version    string
	columns    []string
	symptoms   []string
	index      map[string]int
	symptomSet map[string]struct{}
}

// artifact is the on-disk layout. A bare list of names is also accepted,
// which is what a dumped column list from training looks like.
type artifact struct {
	Version  string   `yaml:"version"`
	Features []string `yaml:"features"`
}

// Load reads a feature-name artifact. YAML and JSON are both accepted.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading feature schema %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a feature-name artifact from memory.
func Parse(data []byte) (*Schema, error) {
	var names []string
	if err := yaml.Unmarshal(data, &names); err == nil {
		return New("", names)
	}
	var a artifact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parsing feature schema: %w", err)
	}
	return New(a.Version, a.Features)
}

// New builds a Schema from training-time feature names. Duration and
// severity one-hot columns already present keep their position; missing
// ones are appended in category order so every schema carries all six.
// An empty version is replaced by a content hash of the column list.
func New(version string, features []string) (*Schema, error) {
	if len(features) == 0 {
		return nil, ErrEmptySchema
	}
	s := &Schema{
		index:      make(map[string]int, len(features)+len(Durations)+len(Severities)),
		symptomSet: make(map[string]struct{}, len(features)),
	}
	categoryCols := categoryColumns()
	for _, name := range features {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("feature schema: blank column at position %d", len(s.columns))
		}
		if _, dup := s.index[name]; dup {
			return nil, fmt.Errorf("feature schema: duplicate column %q", name)
		}
		s.index[name] = len(s.columns)
		s.columns = append(s.columns, name)
		if _, isCategory := categoryCols[name]; !isCategory {
			s.symptoms = append(s.symptoms, name)
			s.symptomSet[name] = struct{}{}
		}
	}
	for _, col := range orderedCategoryColumns() {
		if _, ok := s.index[col]; !ok {
			s.index[col] = len(s.columns)
			s.columns = append(s.columns, col)
		}
	}
	if version == "" {
		sum := sha256.Sum256([]byte(strings.Join(s.columns, "\x00")))
		version = fmt.Sprintf("%x", sum[:6])
	}
	s.version = version
	return s, nil
}

// Version identifies the column layout.
func (s *Schema) Version() string { return s.version }

// Len is the feature vector length.
func (s *Schema) Len() int { return len(s.columns) }

// Columns returns a copy of the column order.
func (s *Schema) Columns() []string {
	out := make([]string, len(s.columns))
	copy(out, s.columns)
	return out
}

// Index returns the column position of name.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// HasSymptom reports whether name is a symptom column.
func (s *Schema) HasSymptom(name string) bool {
	_, ok := s.symptomSet[name]
	return ok
}

// Symptoms returns the symptom column names sorted alphabetically.
func (s *Schema) Symptoms() []string {
	out := make([]string, len(s.symptoms))
	copy(out, s.symptoms)
	sort.Strings(out)
	return out
}

func orderedCategoryColumns() []string {
	cols := make([]string, 0, len(Durations)+len(Severities))
	for _, d := range Durations {
		cols = append(cols, DurationColumn(d))
	}
	for _, sv := range Severities {
		cols = append(cols, SeverityColumn(sv))
	}
	return cols
}

func categoryColumns() map[string]struct{} {
	set := make(map[string]struct{}, len(Durations)+len(Severities))
	for _, c := range orderedCategoryColumns() {
		set[c] = struct{}{}
	}
	return set
}
