package main

import (
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/require"
)

func newTestLock(t *testing.T, path string) *flock.Flock {
	t.Helper()
	lock := flock.New(path)
	ok, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	return lock
}
