package directory

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data.yaml
var defaultData []byte

var (
	ErrNotFound   = errors.New("not found")
	ErrNoDelivery = errors.New("pharmacy does not deliver")
)

// Provider types
const (
	TypeAll        = "all"
	TypeHospital   = "hospital"
	TypeClinic     = "clinic"
	TypeSpecialist = "specialist"
)

// Provider is a hospital, clinic or specialist practice
type Provider struct {
	ID          int      `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Type        string   `yaml:"type" json:"type"`
	Specialties []string `yaml:"specialties" json:"specialties"`
	Address     string   `yaml:"address" json:"address"`
	Area        string   `yaml:"area" json:"area"`
	Phone       string   `yaml:"phone" json:"phone"`
	Rating      float64  `yaml:"rating" json:"rating"`
	Hours       string   `yaml:"hours" json:"hours"`
	DistanceKM  float64  `yaml:"distance_km" json:"distance_km"`
}

// Pharmacy is a chemist with its delivery options
type Pharmacy struct {
	ID         int     `yaml:"id" json:"id"`
	Name       string  `yaml:"name" json:"name"`
	Address    string  `yaml:"address" json:"address"`
	Area       string  `yaml:"area" json:"area"`
	Phone      string  `yaml:"phone" json:"phone"`
	Hours      string  `yaml:"hours" json:"hours"`
	Delivers   bool    `yaml:"delivers" json:"delivers"`
	Open24     bool    `yaml:"open_24_hours" json:"open_24_hours"`
	DistanceKM float64 `yaml:"distance_km" json:"distance_km"`
}

// ProviderFilter narrows a provider listing. Zero values match everything.
type ProviderFilter struct {
	Query string
	Type  string
}

// PharmacyFilter narrows a pharmacy listing.
type PharmacyFilter struct {
	Query        string
	DeliveryOnly bool
	Open24Only   bool
}

// Directory is a read-only provider and pharmacy listing
type Directory struct {
	Providers  []Provider `yaml:"providers"`
	Pharmacies []Pharmacy `yaml:"pharmacies"`
}

// Load reads directory data from path. An empty path loads the embedded data.
func Load(path string) (*Directory, error) {
	if path == "" {
		return Parse(defaultData)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates directory data
func Parse(data []byte) (*Directory, error) {
	var d Directory
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse directory: %w", err)
	}

	seen := make(map[int]bool)
	for i, p := range d.Providers {
		if seen[p.ID] {
			return nil, fmt.Errorf("provider %d: duplicate id", p.ID)
		}
		seen[p.ID] = true
		d.Providers[i].Type = strings.ToLower(p.Type)
		switch d.Providers[i].Type {
		case TypeHospital, TypeClinic, TypeSpecialist:
		default:
			return nil, fmt.Errorf("provider %d: unknown type %q", p.ID, p.Type)
		}
	}

	clear(seen)
	for _, p := range d.Pharmacies {
		if seen[p.ID] {
			return nil, fmt.Errorf("pharmacy %d: duplicate id", p.ID)
		}
		seen[p.ID] = true
	}

	sort.SliceStable(d.Providers, func(i, j int) bool { return d.Providers[i].ID < d.Providers[j].ID })
	sort.SliceStable(d.Pharmacies, func(i, j int) bool { return d.Pharmacies[i].ID < d.Pharmacies[j].ID })
	return &d, nil
}

// FindProviders returns providers matching f. The query matches name,
// any specialty, or area, case-insensitively.
func (d *Directory) FindProviders(f ProviderFilter) []Provider {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	kind := strings.ToLower(strings.TrimSpace(f.Type))

	out := make([]Provider, 0, len(d.Providers))
	for _, p := range d.Providers {
		if kind != "" && kind != TypeAll && p.Type != kind {
			continue
		}
		if query != "" && !providerMatches(p, query) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func providerMatches(p Provider, query string) bool {
	if strings.Contains(strings.ToLower(p.Name), query) || strings.Contains(strings.ToLower(p.Area), query) {
		return true
	}
	for _, s := range p.Specialties {
		if strings.Contains(strings.ToLower(s), query) {
			return true
		}
	}
	return false
}

// Provider looks up one provider by id
func (d *Directory) Provider(id int) (Provider, error) {
	for _, p := range d.Providers {
		if p.ID == id {
			return p, nil
		}
	}
	return Provider{}, fmt.Errorf("provider %d: %w", id, ErrNotFound)
}

// FindPharmacies returns pharmacies matching f. The query matches name or area.
func (d *Directory) FindPharmacies(f PharmacyFilter) []Pharmacy {
	query := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]Pharmacy, 0, len(d.Pharmacies))
	for _, p := range d.Pharmacies {
		if f.DeliveryOnly && !p.Delivers {
			continue
		}
		if f.Open24Only && !p.Open24 {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Name), query) &&
			!strings.Contains(strings.ToLower(p.Area), query) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Pharmacy looks up one pharmacy by id
func (d *Directory) Pharmacy(id int) (Pharmacy, error) {
	for _, p := range d.Pharmacies {
		if p.ID == id {
			return p, nil
		}
	}
	return Pharmacy{}, fmt.Errorf("pharmacy %d: %w", id, ErrNotFound)
}
