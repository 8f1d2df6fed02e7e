package persona

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrEmptyRoster = errors.New("persona roster is empty")

// Store exposes persona retrieval for HTTP handlers and services.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Persona
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
func NewMemoryStore(items []Persona) *MemoryStore {
	return &MemoryStore{items: append([]Persona(nil), items...)}
}

// List returns every persona in roster order.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByID looks up a persona by identifier.
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Persona{}, false
}

// FirstWithRole returns the first persona playing role.
func (s *MemoryStore) FirstWithRole(role Role) (Persona, bool) {
	for _, item := range s.items {
		if item.Role == role {
			return item, true
		}
	}
	return Persona{}, false
}

type rosterFile struct {
	Personas []Persona `yaml:"personas"`
}

// LoadFile reads a YAML roster of the form
//
//	personas:
//	  - id: mio
//	    role: character
//	    name: Mio
//
// Personas without a role default to RoleCharacter.
func LoadFile(path string) ([]Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML roster and validates it.
func Parse(data []byte) ([]Persona, error) {
	var roster rosterFile
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("decode persona roster: %w", err)
	}
	if len(roster.Personas) == 0 {
		return nil, ErrEmptyRoster
	}

	seen := make(map[string]struct{}, len(roster.Personas))
	for i := range roster.Personas {
		p := &roster.Personas[i]
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("persona #%d has no id", i+1)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("duplicate persona id %q", p.ID)
		}
		seen[p.ID] = struct{}{}

		switch p.Role {
		case "":
			p.Role = RoleCharacter
		case RoleCharacter, RoleCoach:
		default:
			return nil, fmt.Errorf("persona %q has unknown role %q", p.ID, p.Role)
		}
		if strings.TrimSpace(p.Name) == "" {
			p.Name = p.ID
		}
	}
	return roster.Personas, nil
}
