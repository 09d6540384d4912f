// Package catalog provides product lookup by barcode.
package catalog

import "errors"

// ErrNotFound is returned when a barcode is not present in the store.
var ErrNotFound = errors.New("product not found")

// Product describes a scanned food product. Once fetched for a session
// it is treated as read-only.
type Product struct {
	Barcode         string            `json:"barcode,omitempty"`
	Name            string            `json:"name"`
	Brand           string            `json:"brand"`
	Category        string            `json:"category"`
	Ingredients     []string          `json:"ingredients"`
	Additives       []string          `json:"additives"`
	NutritionValues map[string]string `json:"nutrition_values"`
	NutriScore      string            `json:"nutri_score,omitempty"`
	EcoScore        string            `json:"eco_score,omitempty"`
}

// Store looks up products by barcode.
type Store interface {
	Lookup(barcode string) (*Product, error)
}

// MockStore is an in-memory Store seeded with sample products. It stands
// in for the real product backend during development and testing.
type MockStore struct {
	products map[string]*Product
}

// NewMockStore returns a MockStore with the built-in sample catalog.
func NewMockStore() *MockStore {
	return &MockStore{
		products: map[string]*Product{
			"1234567890": {
				Barcode:     "1234567890",
				Name:        "Soumam Nature Yogurt",
				Brand:       "Soumam",
				Category:    "Fermented dairy",
				Ingredients: []string{"Milk", "Partially skimmed milk", "Lactic ferments"},
				Additives:   []string{},
				NutritionValues: map[string]string{
					"fat":     "1.5% to 2.5%",
					"sugar":   "3.5g",
					"protein": "4g",
				},
				NutriScore: "B",
				EcoScore:   "C",
			},
			"1234568709": {
				Barcode:     "1234568709",
				Name:        "Bimo Tango Biscuits enrobés de chocolat",
				Brand:       "Bimo",
				Category:    "Snacks / Biscuits",
				Ingredients: []string{"Milk", "Partially skimmed milk", "Cocoa", "Sugar", "Flour", "Vegetable oils", "Lactic ferments"},
				Additives:   []string{"Preservatives", "Artificial coloring (if applicable)"},
				NutritionValues: map[string]string{
					"fat":     "1.5% to 2.5%",
					"sugar":   "3.5g",
					"protein": "4g",
				},
				NutriScore: "B",
				EcoScore:   "C",
			},
		},
	}
}

// Add inserts or replaces a product. Intended for tests and fixtures.
func (s *MockStore) Add(p *Product) {
	s.products[p.Barcode] = p
}

// Lookup implements Store.
func (s *MockStore) Lookup(barcode string) (*Product, error) {
	p, ok := s.products[barcode]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}
