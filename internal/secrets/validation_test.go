package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSecretNameBoundaries(t *testing.T) {
	assert.NoError(t, ValidateSecretName("API_KEY"))
	assert.NoError(t, ValidateSecretName("my-secret.v2"))

	assert.Error(t, ValidateSecretName(""))
	assert.Error(t, ValidateSecretName(strings.Repeat("a", MaxSecretNameLength+1)))
	assert.Error(t, ValidateSecretName("has space"))
	assert.Error(t, ValidateSecretName(".leading"))
	assert.Error(t, ValidateSecretName("trailing."))
	assert.Error(t, ValidateSecretName("double..dot"))
	assert.Error(t, ValidateSecretName("CON"))
	assert.Error(t, ValidateSecretName("con"))
}

func TestValidateSecretValue(t *testing.T) {
	assert.NoError(t, ValidateSecretValue("fine"))
	assert.Error(t, ValidateSecretValue(strings.Repeat("x", MaxSecretSize+1)))
	assert.Error(t, ValidateSecretValue("has\x00null"))
}

func TestValidateProviderName(t *testing.T) {
	assert.NoError(t, ValidateProviderName("env"))
	assert.NoError(t, ValidateProviderName("my-provider_1"))
	assert.Error(t, ValidateProviderName(""))
	assert.Error(t, ValidateProviderName("bad provider"))
}

func TestSanitizeForLogging(t *testing.T) {
	assert.Equal(t, "a b c", SanitizeForLogging("a\nb\tc"))
	assert.Equal(t, "a?b", SanitizeForLogging("a\x01b"))
}
