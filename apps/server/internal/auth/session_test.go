package auth

import (
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	m := NewManager()

	id, token, err := m.Register("alice_01", "secret12")
	require.NoError(t, err)
	assert.NotEmpty(t, id.ID)
	assert.NotEmpty(t, token)
	assert.False(t, id.Guest)

	resolved, ok := m.ResolveSession(token)
	require.True(t, ok)
	assert.Equal(t, id, resolved)
	assert.Equal(t, "alice_01", resolved.Name)

	loginID, loginToken, err := m.Login("alice_01", "secret12")
	require.NoError(t, err)
	assert.Equal(t, id.ID, loginID.ID)
	assert.NotEqual(t, token, loginToken)
}

func TestRegisterRejects(t *testing.T) {
	m := NewManager()
	_, _, err := m.Register("alice_01", "secret12")
	require.NoError(t, err)

	_, _, err = m.Register("Alice_01", "secret12")
	require.ErrorIs(t, err, ErrUsernameTaken)
	_, _, err = m.Register("a", "secret12")
	require.ErrorIs(t, err, ErrInvalidUsername)
	_, _, err = m.Register("bob_01", "123")
	require.ErrorIs(t, err, ErrInvalidPassword)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	m := NewManager()
	_, _, err := m.Register("alice_01", "secret12")
	require.NoError(t, err)

	_, _, err = m.Login("alice_01", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = m.Login("nobody", "secret12")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestGuestCannotLogIn(t *testing.T) {
	m := NewManager()
	id, token, err := m.Guest("Marco")
	require.NoError(t, err)
	assert.True(t, id.Guest)

	resolved, ok := m.ResolveSession(token)
	require.True(t, ok)
	assert.Equal(t, "Marco", resolved.Name)

	_, _, err = m.Login("Marco", "anything")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = m.Guest("  ")
	require.ErrorIs(t, err, ErrInvalidUsername)
}

func TestLogoutInvalidatesSession(t *testing.T) {
	m := NewManager()
	_, token, err := m.Register("alice_01", "secret12")
	require.NoError(t, err)
	m.Logout(token)
	_, ok := m.ResolveSession(token)
	assert.False(t, ok)
}

func TestSessionExpiresAndRefreshes(t *testing.T) {
	clock := quartz.NewMock(t)
	m := NewManager(WithClock(clock), WithSessionTTL(time.Hour))
	_, token, err := m.Guest("Marco")
	require.NoError(t, err)

	clock.Advance(50 * time.Minute)
	_, ok := m.ResolveSession(token)
	require.True(t, ok, "resolving refreshes the expiry")

	clock.Advance(50 * time.Minute)
	_, ok = m.ResolveSession(token)
	require.True(t, ok)

	clock.Advance(time.Hour)
	_, ok = m.ResolveSession(token)
	assert.False(t, ok)
}
