package secrets

import "time"

// Secret is a resolved value plus its provenance.
type Secret struct {
	name      string
	value     string
	provider  string
	fetchedAt time.Time
}

// Value returns the secret's raw value.
func (s Secret) Value() string { return s.value }

// Name returns the secret's name.
func (s Secret) Name() string { return s.name }

// Provider returns the id of the provider that resolved this secret.
func (s Secret) Provider() string { return s.provider }

// Provider is the polymorphic capability set every secret source
// implements (spec.md §4.3).
type Provider interface {
	Get(name string) (Secret, error)
	List() ([]string, error)
	Health() error
	Name() string
}
