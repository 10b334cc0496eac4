package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerSignAndVerify(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Sign("job-1", "booklets/AccrediFlow-Report-NAAC.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	grant, err := signer.Verify(token, false)
	require.NoError(t, err)
	require.Equal(t, "job-1", grant.JobID)
	require.Equal(t, "booklets/AccrediFlow-Report-NAAC.pdf", grant.Path)
	require.WithinDuration(t, expiresAt, grant.ExpiresAt, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, _, err := signer.Sign("job-1", "booklets/file.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = signer.Verify(token, false)
	require.ErrorIs(t, err, ErrTokenExpired)

	grant, err := signer.Verify(token, true)
	require.NoError(t, err)
	require.Equal(t, "booklets/file.csv", grant.Path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Sign("job-1", "booklets/file.pdf")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "job-2"
	_, err = signer.Verify(strings.Join(parts, "."), false)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = NewSignedURLSigner("other", time.Hour).Verify(token, false)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = signer.Verify("garbage", false)
	require.ErrorIs(t, err, ErrTokenInvalid)
}
