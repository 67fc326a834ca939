package secrets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticProvider struct {
	name   string
	values map[string]string
}

func (p *staticProvider) Name() string { return p.name }

func (p *staticProvider) Get(name string) (Secret, error) {
	v, ok := p.values[name]
	if !ok {
		return Secret{}, notFound(name)
	}
	return Secret{name: name, value: v, provider: p.name, fetchedAt: time.Now()}, nil
}

func (p *staticProvider) List() ([]string, error) { return nil, nil }
func (p *staticProvider) Health() error            { return nil }

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager()
	require.NoError(t, m.RegisterProvider("env", &staticProvider{name: "env", values: map[string]string{
		"API_TOKEN": "tok-12345",
	}}))
	require.NoError(t, m.RegisterProvider("vault", &staticProvider{name: "vault", values: map[string]string{
		"DB_PASSWORD": "hunter2hunter2",
	}}))
	return m
}

func TestSubstituteDefaultProvider(t *testing.T) {
	m := newTestManager(t)
	sub := NewSubstitution(m)

	out, err := sub.Substitute("token=${{ secrets.API_TOKEN }}")
	require.NoError(t, err)
	assert.Equal(t, "token=tok-12345", out)
}

func TestSubstituteProviderQualified(t *testing.T) {
	m := newTestManager(t)
	sub := NewSubstitution(m)

	out, err := sub.Substitute("pw=${{ secrets.vault:DB_PASSWORD }}")
	require.NoError(t, err)
	assert.Equal(t, "pw=hunter2hunter2", out)
}

func TestSubstituteMemoizesPerInstance(t *testing.T) {
	m := newTestManager(t)
	sub := NewSubstitution(m)

	_, err := sub.Substitute("${{ secrets.API_TOKEN }} and ${{ secrets.API_TOKEN }}")
	require.NoError(t, err)
	assert.Equal(t, "tok-12345", sub.Resolved()["API_TOKEN"])
}

func TestSubstituteUnknownSecretErrors(t *testing.T) {
	m := newTestManager(t)
	sub := NewSubstitution(m)

	_, err := sub.Substitute("${{ secrets.MISSING }}")
	assert.Error(t, err)
}

func TestExtractRefs(t *testing.T) {
	refs := ExtractRefs("${{ secrets.A }} ${{ secrets.vault:B }}")
	require.Len(t, refs, 2)
}

func TestContainsSecretsStatic(t *testing.T) {
	assert.True(t, ContainsSecrets("${{ secrets.FOO }}"))
	assert.False(t, ContainsSecrets("plain text"))
}
