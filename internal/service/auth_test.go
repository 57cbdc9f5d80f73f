package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/where/internal/domain"
)

func TestAuthServiceRoundTrip(t *testing.T) {
	s := NewAuthService(domain.AuthConfig{Issuer: "where", Secret: "s3cret"})

	token, err := s.IssueToken(domain.User{ID: "u1", Username: "alice"})
	require.NoError(t, err)

	res, err := s.AuthJwt(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", res.UserID)
	assert.Equal(t, "alice", res.Username)
}

func TestAuthServiceRejectsForeignToken(t *testing.T) {
	a := NewAuthService(domain.AuthConfig{Issuer: "where", Secret: "one"})
	b := NewAuthService(domain.AuthConfig{Issuer: "where", Secret: "two"})

	token, err := a.IssueToken(domain.User{ID: "u1"})
	require.NoError(t, err)

	_, err = b.AuthJwt(context.Background(), token)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestAuthServiceRejectsExpired(t *testing.T) {
	s := NewAuthService(domain.AuthConfig{Issuer: "where", Secret: "s3cret", TokenTTL: time.Minute})
	s.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := s.IssueToken(domain.User{ID: "u1"})
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.AuthJwt(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthServicePasswords(t *testing.T) {
	s := NewAuthService(domain.AuthConfig{Secret: "x"})
	hash, err := s.HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, s.CheckPassword(hash, "hunter22"))
	assert.False(t, s.CheckPassword(hash, "hunter23"))
}

func TestAuthServiceRequiresSecret(t *testing.T) {
	s := NewAuthService(domain.AuthConfig{})
	_, err := s.IssueToken(domain.User{ID: "u1"})
	assert.Error(t, err)
}

func TestSignalFilter(t *testing.T) {
	assert.True(t, matches(map[string]struct{}{}, domain.Event{LocationID: "a"}))
	assert.True(t, matches(map[string]struct{}{"a": {}}, domain.Event{LocationID: "a"}))
	assert.False(t, matches(map[string]struct{}{"a": {}}, domain.Event{LocationID: "b"}))
}
