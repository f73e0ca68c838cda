package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKey(t *testing.T) {
	key, prefix, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, prefix+"."))

	gotPrefix, secret, err := SplitAPIKey(key)
	require.NoError(t, err)
	assert.Equal(t, prefix, gotPrefix)
	assert.Len(t, secret, secretBytes*2)

	other, _, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestSplitAPIKeyRejectsMalformed(t *testing.T) {
	for _, key := range []string{"", "noseparator", ".secret", "prefix."} {
		_, _, err := SplitAPIKey(key)
		assert.ErrorIs(t, err, ErrMalformedKey, key)
	}
}

func TestHashAndCheckSecret(t *testing.T) {
	hash, err := HashSecret("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, CheckSecret("s3cret", hash))
	assert.False(t, CheckSecret("wrong", hash))
}

type memKeyStore map[string]string

func (m memKeyStore) CreateAPIKey(_ context.Context, _ int64, prefix, keyHash string) error {
	m[prefix] = keyHash
	return nil
}

func TestIssueAPIKeyStoresOnlyTheHash(t *testing.T) {
	ks := memKeyStore{}
	key, err := IssueAPIKey(context.Background(), ks, 1)
	require.NoError(t, err)

	prefix, secret, err := SplitAPIKey(key)
	require.NoError(t, err)
	require.Contains(t, ks, prefix)
	assert.NotContains(t, ks[prefix], secret)
	assert.True(t, CheckSecret(secret, ks[prefix]))
}
