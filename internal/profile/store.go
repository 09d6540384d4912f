// Package profile provides user health profile lookup.
package profile

import "errors"

// ErrNotFound is returned when a user ID is not present in the store.
var ErrNotFound = errors.New("user profile not found")

// Profile describes a user's health profile. Once fetched for a session
// it is treated as read-only.
type Profile struct {
	UserID             string   `json:"user_id,omitempty"`
	Age                int      `json:"age"`
	Height             float64  `json:"height"`
	Weight             float64  `json:"weight"`
	Diseases           []string `json:"diseases"`
	DietaryPreferences []string `json:"dietary_preferences"`
	ActivityLevel      string   `json:"activity_level"`
	Goal               string   `json:"goal"`
}

// Store looks up profiles by user ID.
type Store interface {
	Lookup(userID string) (*Profile, error)
}

// MockStore is an in-memory Store seeded with sample users. It stands in
// for the real profile backend during development and testing.
type MockStore struct {
	profiles map[string]*Profile
}

// NewMockStore returns a MockStore with the built-in sample users.
func NewMockStore() *MockStore {
	return &MockStore{
		profiles: map[string]*Profile{
			"user_001": {
				UserID:             "user_001",
				Age:                22,
				Height:             178,
				Weight:             90,
				Diseases:           []string{"milk allergy"},
				DietaryPreferences: []string{},
				ActivityLevel:      "active",
				Goal:               "maintain weight",
			},
			"user2": {
				UserID:             "user2",
				Age:                23,
				Height:             182,
				Weight:             90,
				Diseases:           []string{"iron deficiency anemia"},
				DietaryPreferences: []string{},
				ActivityLevel:      "active",
				Goal:               "maintain weight",
			},
		},
	}
}

// Add inserts or replaces a profile. Intended for tests and fixtures.
func (s *MockStore) Add(p *Profile) {
	s.profiles[p.UserID] = p
}

// Lookup implements Store.
func (s *MockStore) Lookup(userID string) (*Profile, error) {
	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}
