package language

import (
	"sort"
	"strings"
	"sync"
)

const (
	English = "en"
	Telugu  = "te"
	Kannada = "kn"

	DefaultLanguage = English
)

// LanguageInfo contains information about a supported language
type LanguageInfo struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	NativeName string `json:"native_name"`
	IsEnabled  bool   `json:"is_enabled"`
}

// ValidationResult represents the result of language validation
type ValidationResult struct {
	Code         string `json:"code"`
	UsedFallback bool   `json:"used_fallback"`
}

var builtin = map[string]LanguageInfo{
	English: {Code: English, Name: "English", NativeName: "English", IsEnabled: true},
	Telugu:  {Code: Telugu, Name: "Telugu", NativeName: "తెలుగు", IsEnabled: true},
	Kannada: {Code: Kannada, Name: "Kannada", NativeName: "ಕನ್ನಡ", IsEnabled: true},
}

// Normalize maps any tag onto one of the built-in codes.
// Unknown or empty tags become English.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if _, ok := builtin[code]; ok {
		return code
	}
	return DefaultLanguage
}

// Name returns the English name of a built-in language, or "" when unknown
func Name(code string) string {
	return builtin[code].Name
}

// Manager handles language support and validation
type Manager struct {
	languages map[string]*LanguageInfo
	mu        sync.RWMutex
}

// NewManager creates a new language manager with en, te and kn enabled
func NewManager() *Manager {
	m := &Manager{languages: make(map[string]*LanguageInfo, len(builtin))}
	for code, info := range builtin {
		info := info
		m.languages[code] = &info
	}
	return m
}

// IsSupported checks if a language code is supported and enabled
func (m *Manager) IsSupported(code string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lang, exists := m.languages[code]
	return exists && lang.IsEnabled
}

// Validate validates a language code and returns the validated code.
// If the language is not supported, it falls back to the default language.
func (m *Manager) Validate(code string) ValidationResult {
	normalized := strings.ToLower(strings.TrimSpace(code))
	if m.IsSupported(normalized) {
		return ValidationResult{
			Code:         normalized,
			UsedFallback: false,
		}
	}

	return ValidationResult{
		Code:         DefaultLanguage,
		UsedFallback: true,
	}
}

// GetLanguageInfo returns information about a language
func (m *Manager) GetLanguageInfo(code string) (LanguageInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lang, exists := m.languages[code]
	if !exists {
		return LanguageInfo{}, false
	}

	return *lang, true
}

// DisableLanguage disables a language (cannot disable default language)
func (m *Manager) DisableLanguage(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if code == DefaultLanguage {
		return
	}

	if lang, exists := m.languages[code]; exists {
		lang.IsEnabled = false
	}
}

// EnableLanguage enables a language
func (m *Manager) EnableLanguage(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lang, exists := m.languages[code]; exists {
		lang.IsEnabled = true
	}
}

// GetSupportedLanguages returns all enabled languages ordered by code
func (m *Manager) GetSupportedLanguages() []LanguageInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	languages := make([]LanguageInfo, 0, len(m.languages))
	for _, lang := range m.languages {
		if lang.IsEnabled {
			languages = append(languages, *lang)
		}
	}
	sort.Slice(languages, func(i, j int) bool { return languages[i].Code < languages[j].Code })

	return languages
}
