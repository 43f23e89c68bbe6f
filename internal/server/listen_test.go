package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCertificates(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "api.openai.com.crt")
	key := filepath.Join(dir, "api.openai.com.key")

	assert.ErrorIs(t, CheckCertificates(cert, key), ErrMissingCertificate)

	require.NoError(t, os.WriteFile(cert, []byte("cert"), 0o600))
	assert.ErrorIs(t, CheckCertificates(cert, key), ErrMissingCertificate)

	require.NoError(t, os.WriteFile(key, []byte("key"), 0o600))
	assert.NoError(t, CheckCertificates(cert, key))
}
