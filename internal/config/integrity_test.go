package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockThenVerify(t *testing.T) {
	path := writeConfig(t, "service:\n  name: lab-daemon\n")

	require.NoError(t, Lock(path))
	require.NoError(t, Verify(path))
}

func TestVerifyDetectsTamper(t *testing.T) {
	path := writeConfig(t, "service:\n  name: lab-daemon\n")
	require.NoError(t, Lock(path))

	require.NoError(t, os.WriteFile(path, []byte("service:\n  name: evil\n"), 0o644))

	err := Verify(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}

func TestVerifyWithoutManifest(t *testing.T) {
	path := writeConfig(t, "service:\n  name: lab-daemon\n")
	assert.NoError(t, Verify(path))
}

func TestHashFileStable(t *testing.T) {
	path := writeConfig(t, "service:\n  name: lab-daemon\n")

	h1, err := HashFile(path)
	require.NoError(t, err)
	h2, err := HashFile(path)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}
