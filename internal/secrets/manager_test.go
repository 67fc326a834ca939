package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	staticProvider
	calls int
}

func (p *countingProvider) Get(name string) (Secret, error) {
	p.calls++
	return p.staticProvider.Get(name)
}

func TestManagerCachesResolvedSecrets(t *testing.T) {
	m := NewManager()
	provider := &countingProvider{staticProvider: staticProvider{name: "env", values: map[string]string{"TOKEN": "abc123"}}}
	require.NoError(t, m.RegisterProvider("env", provider))

	s1, err := m.Get("TOKEN")
	require.NoError(t, err)
	assert.Equal(t, "abc123", s1.Value())

	s2, err := m.Get("TOKEN")
	require.NoError(t, err)
	assert.Equal(t, "abc123", s2.Value())

	assert.Equal(t, 1, provider.calls)
}

func TestManagerUnknownProviderErrors(t *testing.T) {
	m := NewManager()
	_, err := m.GetFrom("nonexistent", "TOKEN")
	assert.Error(t, err)
}

func TestManagerInvalidateCacheForcesRefetch(t *testing.T) {
	m := NewManager()
	provider := &countingProvider{staticProvider: staticProvider{name: "env", values: map[string]string{"TOKEN": "abc123"}}}
	require.NoError(t, m.RegisterProvider("env", provider))

	_, err := m.Get("TOKEN")
	require.NoError(t, err)
	m.InvalidateCache()
	_, err = m.Get("TOKEN")
	require.NoError(t, err)

	assert.Equal(t, 2, provider.calls)
}

func TestManagerPopulatesMasker(t *testing.T) {
	m := NewManager()
	provider := &staticProvider{name: "env", values: map[string]string{"TOKEN": "verysecretvalue"}}
	require.NoError(t, m.RegisterProvider("env", provider))

	_, err := m.Get("TOKEN")
	require.NoError(t, err)

	assert.True(t, m.Masker().HasSecret("verysecretvalue"))
}
