// Package catalog provides the unit allow-list and service catalog that
// booking requests are validated against.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Doctor is a provider attending at a unit.
type Doctor struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Unit is a clinic location patients can book at.
type Unit struct {
	Slug    string   `json:"slug"`
	Name    string   `json:"name"`
	Doctors []Doctor `json:"doctors"`
}

// Service is a bookable catalog entry.
type Service struct {
	ID string `json:"id"`
	// Name is the patient-facing label returned on status polls.
	Name string `json:"name"`
	// DefaultDurationMinutes suggests a duration to the booking UI; the
	// request still carries its own duration.
	DefaultDurationMinutes int `json:"default_duration_minutes,omitempty"`
}

// Catalog is the full allow-list snapshot the booking core validates against.
type Catalog struct {
	Units    []Unit    `json:"units"`
	Services []Service `json:"services"`
}

// Unit returns the unit with the given slug, or nil.
func (c *Catalog) Unit(slug string) *Unit {
	if c == nil {
		return nil
	}
	slug = normalizeSlug(slug)
	for i := range c.Units {
		if c.Units[i].Slug == slug {
			return &c.Units[i]
		}
	}
	return nil
}

// Service returns the catalog entry with the given id, or nil.
func (c *Catalog) Service(id string) *Service {
	if c == nil {
		return nil
	}
	id = strings.TrimSpace(id)
	for i := range c.Services {
		if c.Services[i].ID == id {
			return &c.Services[i]
		}
	}
	return nil
}

// DoctorAtUnit reports whether the doctor attends at the unit.
func (c *Catalog) DoctorAtUnit(unitSlug, doctorSlug string) bool {
	unit := c.Unit(unitSlug)
	if unit == nil {
		return false
	}
	doctorSlug = normalizeSlug(doctorSlug)
	for _, d := range unit.Doctors {
		if d.Slug == doctorSlug {
			return true
		}
	}
	return false
}

// DoctorsFor returns the doctors attending at the unit.
func (c *Catalog) DoctorsFor(unitSlug string) []Doctor {
	unit := c.Unit(unitSlug)
	if unit == nil {
		return nil
	}
	return unit.Doctors
}

// ServiceName resolves a service id to its patient-facing name, falling back
// to the id itself when the catalog has no entry.
func (c *Catalog) ServiceName(id string) string {
	if svc := c.Service(id); svc != nil {
		return svc.Name
	}
	return id
}

func normalizeSlug(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Default returns the reference deployment's catalog, used until an operator
// publishes one.
func Default() *Catalog {
	return &Catalog{
		Units: []Unit{
			{
				Slug: "centro",
				Name: "Unidade Centro",
				Doctors: []Doctor{
					{Slug: "dra-ana-castro", Name: "Dra. Ana Castro"},
					{Slug: "dr-paulo-lima", Name: "Dr. Paulo Lima"},
				},
			},
			{
				Slug: "jardins",
				Name: "Unidade Jardins",
				Doctors: []Doctor{
					{Slug: "dra-ana-castro", Name: "Dra. Ana Castro"},
					{Slug: "dra-beatriz-souza", Name: "Dra. Beatriz Souza"},
				},
			},
		},
		Services: []Service{
			{ID: "eval", Name: "Avaliação", DefaultDurationMinutes: 30},
			{ID: "cleaning", Name: "Limpeza", DefaultDurationMinutes: 45},
			{ID: "ortho", Name: "Manutenção Ortodôntica", DefaultDurationMinutes: 30},
			{ID: "extraction", Name: "Extração", DefaultDurationMinutes: 60},
		},
	}
}

// Provider yields the current catalog snapshot for a request.
type Provider interface {
	Get(ctx context.Context) (*Catalog, error)
}

// Static is a fixed in-process Provider, used in development and tests.
type Static struct {
	catalog *Catalog
}

// NewStatic creates a static provider; nil falls back to Default().
func NewStatic(c *Catalog) *Static {
	if c == nil {
		c = Default()
	}
	return &Static{catalog: c}
}

// Get returns the fixed catalog.
func (s *Static) Get(ctx context.Context) (*Catalog, error) {
	return s.catalog, nil
}

const storeKey = "booking:catalog"

// Store persists the operator-published catalog in redis.
type Store struct {
	redis *redis.Client
}

// NewStore creates a redis-backed catalog store.
func NewStore(redisClient *redis.Client) *Store {
	if redisClient == nil {
		panic("catalog: redis client required")
	}
	return &Store{redis: redisClient}
}

// Get retrieves the published catalog, returning the default if none exists.
func (s *Store) Get(ctx context.Context) (*Catalog, error) {
	data, err := s.redis.Get(ctx, storeKey).Bytes()
	if err == redis.Nil {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get: %w", err)
	}

	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: unmarshal: %w", err)
	}
	return &c, nil
}

// Set publishes a catalog snapshot.
func (s *Store) Set(ctx context.Context, c *Catalog) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("catalog: marshal: %w", err)
	}
	if err := s.redis.Set(ctx, storeKey, data, 0).Err(); err != nil {
		return fmt.Errorf("catalog: set: %w", err)
	}
	return nil
}

var _ Provider = (*Static)(nil)
var _ Provider = (*Store)(nil)
