package secrets

import "regexp"

var (
	secretPattern         = regexp.MustCompile(`\$\{\{\s*secrets\.([a-zA-Z0-9_][a-zA-Z0-9_-]*)\s*\}\}`)
	providerSecretPattern = regexp.MustCompile(`\$\{\{\s*secrets\.([a-zA-Z0-9_][a-zA-Z0-9_-]*):([a-zA-Z0-9_][a-zA-Z0-9_-]*)\s*\}\}`)
)

// Ref is a secret reference found in text, before resolution.
type Ref struct {
	FullText string
	Provider string // empty means default provider
	Name     string
}

// CacheKey returns the memoization key for this reference.
func (r Ref) CacheKey() string {
	if r.Provider == "" {
		return r.Name
	}
	return r.Provider + ":" + r.Name
}

// Substitution replaces `${{ secrets.<provider>:<name> }}` and
// `${{ secrets.<name> }}` references in text with resolved values,
// grounded on crates/secrets/src/substitution.rs.
type Substitution struct {
	manager  *Manager
	resolved map[string]string
}

// NewSubstitution returns a substitution engine bound to a Manager.
func NewSubstitution(manager *Manager) *Substitution {
	return &Substitution{manager: manager, resolved: make(map[string]string)}
}

// Substitute runs the provider-qualified pass, then the default-provider
// pass, over text. Any resolution failure propagates and aborts the whole
// substitution.
func (s *Substitution) Substitute(text string) (string, error) {
	result, err := s.substituteProviderSecrets(text)
	if err != nil {
		return "", err
	}
	return s.substituteDefaultSecrets(result)
}

func (s *Substitution) substituteProviderSecrets(text string) (string, error) {
	result := text
	matches := providerSecretPattern.FindAllStringSubmatch(text, -1)
	for _, m := range matches {
		fullMatch, provider, name := m[0], m[1], m[2]
		cacheKey := provider + ":" + name

		value, ok := s.resolved[cacheKey]
		if !ok {
			secret, err := s.manager.GetFrom(provider, name)
			if err != nil {
				return "", err
			}
			value = secret.Value()
			s.resolved[cacheKey] = value
		}
		result = replaceAllLiteral(result, fullMatch, value)
	}
	return result, nil
}

func (s *Substitution) substituteDefaultSecrets(text string) (string, error) {
	result := text
	matches := secretPattern.FindAllStringSubmatch(text, -1)
	for _, m := range matches {
		fullMatch, name := m[0], m[1]

		value, ok := s.resolved[name]
		if !ok {
			secret, err := s.manager.Get(name)
			if err != nil {
				return "", err
			}
			value = secret.Value()
			s.resolved[name] = value
		}
		result = replaceAllLiteral(result, fullMatch, value)
	}
	return result, nil
}

func replaceAllLiteral(text, old, new string) string {
	if old == "" {
		return text
	}
	out := ""
	rest := text
	for {
		idx := indexOf(rest, old)
		if idx < 0 {
			out += rest
			break
		}
		out += rest[:idx] + new
		rest = rest[idx+len(old):]
	}
	return out
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

// Resolved returns every secret resolved so far by this instance, keyed as
// CacheKey(), for the Masker to register.
func (s *Substitution) Resolved() map[string]string {
	return s.resolved
}

// ContainsSecrets reports statically, without a Manager, whether text has
// any secret reference.
func ContainsSecrets(text string) bool {
	return secretPattern.MatchString(text) || providerSecretPattern.MatchString(text)
}

// ExtractRefs extracts every secret reference from text without resolving
// them.
func ExtractRefs(text string) []Ref {
	var refs []Ref
	for _, m := range providerSecretPattern.FindAllStringSubmatch(text, -1) {
		refs = append(refs, Ref{FullText: m[0], Provider: m[1], Name: m[2]})
	}
	for _, m := range secretPattern.FindAllStringSubmatch(text, -1) {
		refs = append(refs, Ref{FullText: m[0], Name: m[1]})
	}
	return refs
}
