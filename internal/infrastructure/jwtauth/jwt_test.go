package jwtauth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	v := NewVerifier("secret", time.Hour)

	token, expiresAt, err := v.IssueToken("user-1")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	uid, err := v.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", uid)
}

func TestVerifyRejectsForeignAndExpiredTokens(t *testing.T) {
	token, _, err := NewVerifier("other", time.Hour).IssueToken("user-1")
	require.NoError(t, err)

	_, err = NewVerifier("secret", time.Hour).VerifyToken(context.Background(), token)
	assert.Error(t, err)

	expired, _, err := NewVerifier("secret", -time.Minute).IssueToken("user-1")
	require.NoError(t, err)

	_, err = NewVerifier("secret", time.Hour).VerifyToken(context.Background(), expired)
	assert.Error(t, err)
}
