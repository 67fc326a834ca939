package secrets

import (
	"os"
	"strings"
	"time"
)

// EnvironmentProvider resolves secrets from process environment variables,
// optionally under a prefix (spec.md §4.3).
type EnvironmentProvider struct {
	prefix string
}

// NewEnvironmentProvider constructs a provider with an optional name
// prefix applied before the OS lookup.
func NewEnvironmentProvider(prefix string) *EnvironmentProvider {
	return &EnvironmentProvider{prefix: prefix}
}

func (p *EnvironmentProvider) Name() string { return "env" }

func (p *EnvironmentProvider) Get(name string) (Secret, error) {
	if err := ValidateSecretName(name); err != nil {
		return Secret{}, err
	}
	value, ok := os.LookupEnv(p.prefix + name)
	if !ok {
		return Secret{}, notFound(name)
	}
	return Secret{name: name, value: value, provider: p.Name(), fetchedAt: time.Now()}, nil
}

// List requires a non-empty prefix: without one, every process env var
// would be a false positive, so the Rust source returns
// Unsupported-with-suggestion instead (spec.md §4.3).
func (p *EnvironmentProvider) List() ([]string, error) {
	if p.prefix == "" {
		return nil, unsupported("set a prefix to list environment-provider secrets")
	}
	var names []string
	for _, kv := range os.Environ() {
		idx := strings.IndexByte(kv, '=')
		if idx < 0 {
			continue
		}
		key := kv[:idx]
		if strings.HasPrefix(key, p.prefix) {
			names = append(names, strings.TrimPrefix(key, p.prefix))
		}
	}
	return names, nil
}

func (p *EnvironmentProvider) Health() error { return nil }
