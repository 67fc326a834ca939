package secrets

import (
	"os"
	"strconv"
	"sync"
	"time"
)

const (
	envDefaultProvider = "WRKFLW_DEFAULT_SECRET_PROVIDER"
	envMasking         = "WRKFLW_SECRET_MASKING"
	envTimeout         = "WRKFLW_SECRET_TIMEOUT"

	defaultCacheTTL = 5 * time.Minute
)

type cacheEntry struct {
	secret  Secret
	cachedAt time.Time
}

// Manager is the single entry point workflow execution uses to resolve
// secrets: it owns the named provider registry, a TTL cache so a given
// secret is fetched from its provider at most once per window, and a
// RateLimiter applied per provider:name key (spec.md §4.3, §6.4).
type Manager struct {
	mu              sync.RWMutex
	providers       map[string]Provider
	defaultProvider string
	cache           map[string]cacheEntry
	cacheTTL        time.Duration
	limiter         *RateLimiter
	maskingEnabled  bool
	masker          *Masker
}

// NewManager constructs an empty Manager. Register providers with
// RegisterProvider before use.
func NewManager() *Manager {
	m := &Manager{
		providers:      make(map[string]Provider),
		cache:          make(map[string]cacheEntry),
		cacheTTL:       defaultCacheTTL,
		limiter:        NewRateLimiter(DefaultRateLimitConfig()),
		maskingEnabled: true,
		masker:         NewMasker(),
	}
	m.applyEnv()
	return m
}

func (m *Manager) applyEnv() {
	if v := os.Getenv(envDefaultProvider); v != "" {
		m.defaultProvider = v
	}
	if v := os.Getenv(envMasking); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			m.maskingEnabled = enabled
		}
	}
	if v := os.Getenv(envTimeout); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			m.cacheTTL = time.Duration(secs) * time.Second
		}
	}
}

// RegisterProvider adds a named provider. The first provider registered
// becomes the default unless WRKFLW_DEFAULT_SECRET_PROVIDER already named
// one.
func (m *Manager) RegisterProvider(name string, p Provider) error {
	if err := ValidateProviderName(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[name] = p
	if m.defaultProvider == "" {
		m.defaultProvider = name
	}
	return nil
}

// SetDefaultProvider overrides which registered provider unqualified
// lookups use.
func (m *Manager) SetDefaultProvider(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultProvider = name
}

// Masker returns the Manager's masker, pre-populated with every secret
// value resolved so far.
func (m *Manager) Masker() *Masker { return m.masker }

// Get resolves a secret from the default provider.
func (m *Manager) Get(name string) (Secret, error) {
	m.mu.RLock()
	provider := m.defaultProvider
	m.mu.RUnlock()
	return m.GetFrom(provider, name)
}

// GetFrom resolves a secret from a named provider, applying validation,
// rate limiting, and the TTL cache in that order (spec.md §4.3).
func (m *Manager) GetFrom(providerName, name string) (Secret, error) {
	if err := ValidateSecretName(name); err != nil {
		return Secret{}, err
	}

	m.mu.RLock()
	provider, ok := m.providers[providerName]
	m.mu.RUnlock()
	if !ok {
		return Secret{}, invalidConfig("unknown secret provider: " + providerName)
	}

	cacheKey := providerName + ":" + name
	if err := m.limiter.CheckRateLimit(cacheKey); err != nil {
		return Secret{}, err
	}

	if secret, ok := m.lookupCache(cacheKey); ok {
		return secret, nil
	}

	secret, err := provider.Get(name)
	if err != nil {
		return Secret{}, err
	}
	if err := ValidateSecretValue(secret.Value()); err != nil {
		return Secret{}, err
	}

	m.mu.Lock()
	m.cache[cacheKey] = cacheEntry{secret: secret, cachedAt: time.Now()}
	m.mu.Unlock()

	if m.maskingEnabled {
		m.masker.AddSecret(secret.Value())
	}

	return secret, nil
}

func (m *Manager) lookupCache(key string) (Secret, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.cache[key]
	if !ok {
		return Secret{}, false
	}
	if time.Since(entry.cachedAt) > m.cacheTTL {
		return Secret{}, false
	}
	return entry.secret, true
}

// InvalidateCache drops every cached secret, forcing the next lookup back
// to its provider.
func (m *Manager) InvalidateCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]cacheEntry)
}

// Health runs Health() against every registered provider and returns the
// first error encountered, if any.
func (m *Manager) Health() map[string]error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := make(map[string]error, len(m.providers))
	for name, p := range m.providers {
		results[name] = p.Health()
	}
	return results
}

// NewSubstitution returns a Substitution engine bound to this Manager.
func (m *Manager) NewSubstitution() *Substitution {
	return NewSubstitution(m)
}
