package phrases

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultBook []byte

// ErrMissingEnglish is returned when a localized entry has no English text.
var ErrMissingEnglish = errors.New("missing English text")

// Fallback pool categories
const (
	CategoryGeneral   = "general"
	CategorySymptoms  = "symptoms"
	CategoryEmergency = "emergency"
)

// Localized maps a language code to one text.
type Localized map[string]string

// For returns the text for lang, or the English text when lang has none.
func (l Localized) For(lang string) string {
	if text := strings.TrimSpace(l[lang]); text != "" {
		return text
	}
	return l["en"]
}

// LocalizedList maps a language code to a pool of texts.
type LocalizedList map[string][]string

// For returns the pool for lang, or the English pool when lang has none.
func (l LocalizedList) For(lang string) []string {
	if pool := l[lang]; len(pool) > 0 {
		return pool
	}
	return l["en"]
}

// Symptom is one row of the ordered symptom table.
type Symptom struct {
	Key      string     `yaml:"key"`
	Keywords []string   `yaml:"keywords"`
	AllOf    [][]string `yaml:"all_of"`
	Response Localized  `yaml:"response"`
}

// Emergency holds the urgent keyword list and the fixed emergency reply.
type Emergency struct {
	Keywords []string  `yaml:"keywords"`
	Response Localized `yaml:"response"`
}

// Fallback holds the canned reply pools.
type Fallback struct {
	SymptomWords []string                 `yaml:"symptom_words"`
	Pools        map[string]LocalizedList `yaml:"pools"`
}

// Book is the full set of multilingual tables the pipeline answers from.
type Book struct {
	Greeting  Localized `yaml:"greeting"`
	Emergency Emergency `yaml:"emergency"`
	Symptoms  []Symptom `yaml:"symptoms"`
	Fallback  Fallback  `yaml:"fallback"`
}

// Default returns the embedded phrasebook.
func Default() *Book {
	book, err := Parse(defaultBook)
	if err != nil {
		panic(fmt.Sprintf("phrases: embedded phrasebook is invalid: %v", err))
	}
	return book
}

// Load reads a phrasebook from path. An empty path loads the embedded default.
func Load(path string) (*Book, error) {
	if path == "" {
		return Parse(defaultBook)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read phrasebook: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a phrasebook. Keywords are lowercased.
func Parse(data []byte) (*Book, error) {
	var book Book
	if err := yaml.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("failed to parse phrasebook: %w", err)
	}

	book.Emergency.Keywords = lowerAll(book.Emergency.Keywords)
	book.Fallback.SymptomWords = lowerAll(book.Fallback.SymptomWords)
	for i := range book.Symptoms {
		book.Symptoms[i].Keywords = lowerAll(book.Symptoms[i].Keywords)
		for j := range book.Symptoms[i].AllOf {
			book.Symptoms[i].AllOf[j] = lowerAll(book.Symptoms[i].AllOf[j])
		}
	}

	if err := book.Validate(); err != nil {
		return nil, err
	}
	return &book, nil
}

// Validate checks that every table is usable and carries English text.
func (b *Book) Validate() error {
	if b.Greeting["en"] == "" {
		return fmt.Errorf("greeting: %w", ErrMissingEnglish)
	}
	if len(b.Emergency.Keywords) == 0 {
		return errors.New("emergency: no keywords")
	}
	if b.Emergency.Response["en"] == "" {
		return fmt.Errorf("emergency response: %w", ErrMissingEnglish)
	}

	seen := make(map[string]bool, len(b.Symptoms))
	for i, s := range b.Symptoms {
		if s.Key == "" {
			return fmt.Errorf("symptom #%d: missing key", i)
		}
		if seen[s.Key] {
			return fmt.Errorf("symptom %q: duplicate key", s.Key)
		}
		seen[s.Key] = true
		if len(s.Keywords) == 0 && len(s.AllOf) == 0 {
			return fmt.Errorf("symptom %q: no keywords", s.Key)
		}
		if s.Response["en"] == "" {
			return fmt.Errorf("symptom %q: %w", s.Key, ErrMissingEnglish)
		}
	}

	for _, category := range []string{CategoryGeneral, CategorySymptoms} {
		pool, ok := b.Fallback.Pools[category]
		if !ok || len(pool["en"]) == 0 {
			return fmt.Errorf("fallback pool %q: %w", category, ErrMissingEnglish)
		}
	}
	return nil
}

// Gap is a table entry that falls back to English for a language.
type Gap struct {
	Table    string
	Key      string
	Language string
}

func (g Gap) String() string {
	return fmt.Sprintf("%s/%s: no %s translation", g.Table, g.Key, g.Language)
}

// Gaps lists entries without a translation for any of langs.
func (b *Book) Gaps(langs []string) []Gap {
	var gaps []Gap
	for _, lang := range langs {
		if lang == "en" {
			continue
		}
		if b.Greeting[lang] == "" {
			gaps = append(gaps, Gap{Table: "greeting", Key: "greeting", Language: lang})
		}
		if b.Emergency.Response[lang] == "" {
			gaps = append(gaps, Gap{Table: "emergency", Key: "response", Language: lang})
		}
		for _, s := range b.Symptoms {
			if s.Response[lang] == "" {
				gaps = append(gaps, Gap{Table: "symptoms", Key: s.Key, Language: lang})
			}
		}
		for _, category := range []string{CategoryGeneral, CategorySymptoms, CategoryEmergency} {
			pool, ok := b.Fallback.Pools[category]
			if ok && len(pool[lang]) == 0 {
				gaps = append(gaps, Gap{Table: "fallback", Key: category, Language: lang})
			}
		}
	}
	return gaps
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}
