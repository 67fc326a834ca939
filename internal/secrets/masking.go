package secrets

import (
	"regexp"
	"strings"
	"sync"
)

var (
	patternGithubPAT   = regexp.MustCompile(`ghp_[a-zA-Z0-9]{36}`)
	patternGithubApp   = regexp.MustCompile(`ghs_[a-zA-Z0-9]{36}`)
	patternGithubOAuth = regexp.MustCompile(`gho_[a-zA-Z0-9]{36}`)
	patternAWSAccess   = regexp.MustCompile(`AKIA[0-9A-Z]{16}`)
	patternAWSSecret   = regexp.MustCompile(`[A-Za-z0-9/+=]{40}`)
	patternJWT         = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`)
	patternAPIKey      = regexp.MustCompile(`(?i)(api[_-]?key|token)[\s:=]+[a-zA-Z0-9_-]{16,}`)
)

// Masker rewrites known secret values to placeholders in log output
// (spec.md §4.3), grounded on crates/secrets/src/masking.rs.
type Masker struct {
	mu       sync.RWMutex
	secrets  map[string]struct{}
	cache    map[string]string // raw -> masked
	maskChar rune
	minLen   int
}

// NewMasker returns a Masker using '*' as the mask character.
func NewMasker() *Masker {
	return NewMaskerWithChar('*')
}

// NewMaskerWithChar returns a Masker using the given mask character.
func NewMaskerWithChar(maskChar rune) *Masker {
	return &Masker{
		secrets:  make(map[string]struct{}),
		cache:    make(map[string]string),
		maskChar: maskChar,
		minLen:   3,
	}
}

// AddSecret registers a literal value to be masked. Values shorter than the
// minimum length (3) are not tracked, matching the Rust source.
func (m *Masker) AddSecret(secret string) {
	if len(secret) < m.minLen {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[secret] = m.createMask(secret)
	m.secrets[secret] = struct{}{}
}

// AddSecrets registers multiple literal values.
func (m *Masker) AddSecrets(values []string) {
	for _, v := range values {
		m.AddSecret(v)
	}
}

// RemoveSecret stops masking a previously registered literal.
func (m *Masker) RemoveSecret(secret string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.secrets, secret)
	delete(m.cache, secret)
}

// Clear removes every registered literal.
func (m *Masker) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets = make(map[string]struct{})
	m.cache = make(map[string]string)
}

// createMask builds the masked form of a literal: length <=3 is three mask
// chars; 4..8 keeps the first char; >8 keeps first two and last two
// (spec.md §4.3, §8 Invariant 9).
func (m *Masker) createMask(secret string) string {
	n := len(secret)
	mc := string(m.maskChar)
	switch {
	case n <= 3:
		return strings.Repeat(mc, 3)
	case n <= 8:
		return string(secret[0]) + strings.Repeat(mc, n-1)
	default:
		return secret[:2] + strings.Repeat(mc, n-4) + secret[n-2:]
	}
}

// Mask applies every registered literal replacement, then the compiled
// pattern bank, to text. Idempotent: mask(mask(x)) == mask(x) because
// masked output never reproduces a tracked literal or a bank pattern match
// (spec.md §8 Invariant 3).
func (m *Masker) Mask(text string) string {
	m.mu.RLock()
	result := text
	for secret, masked := range m.cache {
		if secret == "" {
			continue
		}
		result = strings.ReplaceAll(result, secret, masked)
	}
	m.mu.RUnlock()

	return maskPatterns(result)
}

func maskPatterns(text string) string {
	result := patternGithubPAT.ReplaceAllString(text, "ghp_***")
	result = patternGithubApp.ReplaceAllString(result, "ghs_***")
	result = patternGithubOAuth.ReplaceAllString(result, "gho_***")
	result = patternAWSAccess.ReplaceAllString(result, "AKIA***")

	lower := strings.ToLower(text)
	if strings.Contains(lower, "secret") || strings.Contains(lower, "key") {
		result = patternAWSSecret.ReplaceAllString(result, "***")
	}

	result = patternJWT.ReplaceAllString(result, "eyJ***.eyJ***.***")
	result = patternAPIKey.ReplaceAllString(result, "${1}=***")
	return result
}

// ContainsSecrets reports whether text contains any tracked literal or
// matches a known secret-shape pattern.
func (m *Masker) ContainsSecrets(text string) bool {
	m.mu.RLock()
	for secret := range m.secrets {
		if strings.Contains(text, secret) {
			m.mu.RUnlock()
			return true
		}
	}
	m.mu.RUnlock()
	return hasSecretPatterns(text)
}

func hasSecretPatterns(text string) bool {
	return patternGithubPAT.MatchString(text) ||
		patternGithubApp.MatchString(text) ||
		patternGithubOAuth.MatchString(text) ||
		patternAWSAccess.MatchString(text) ||
		patternJWT.MatchString(text)
}

// SecretCount returns the number of tracked literals.
func (m *Masker) SecretCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.secrets)
}

// HasSecret reports whether a literal is currently tracked.
func (m *Masker) HasSecret(secret string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.secrets[secret]
	return ok
}
