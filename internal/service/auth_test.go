package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/premium-store/internal/config"
)

type fakeIdP struct {
	identity *Identity
	err      error
}

func (f *fakeIdP) AuthCodeURL(state string) string {
	return "https://accounts.example.com/o/oauth2/auth?state=" + state
}

func (f *fakeIdP) Exchange(context.Context, string) (*Identity, error) {
	return f.identity, f.err
}

type memStateStore struct{ states map[string]bool }

func (m *memStateStore) Put(_ context.Context, state string) error {
	m.states[state] = true
	return nil
}

func (m *memStateStore) Consume(_ context.Context, state string) (bool, error) {
	ok := m.states[state]
	delete(m.states, state)
	return ok, nil
}

const testSecret = "test-secret"

func newAuthFixture(identity *Identity) (*AuthService, *mockUserRepo, *memStateStore) {
	users := newMockUserRepo()
	states := &memStateStore{states: make(map[string]bool)}
	admins := config.AdminConfig{Emails: []string{"owner@example.com"}}
	svc := NewAuthService(users, &fakeIdP{identity: identity}, states, admins, testSecret, time.Hour)
	return svc, users, states
}

func loginState(t *testing.T, svc *AuthService) string {
	t.Helper()
	url, err := svc.LoginURL(context.Background())
	require.NoError(t, err)
	_, state, ok := strings.Cut(url, "state=")
	require.True(t, ok)
	return state
}

func parseClaims(t *testing.T, token string) jwt.MapClaims {
	t.Helper()
	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) { return []byte(testSecret), nil })
	require.NoError(t, err)
	return parsed.Claims.(jwt.MapClaims)
}

func TestAuthService_CallbackIssuesToken(t *testing.T) {
	svc, users, _ := newAuthFixture(&Identity{Email: "Sara@Example.com", Name: "Sara"})
	state := loginState(t, svc)

	resp, err := svc.Callback(context.Background(), state, "code")
	require.NoError(t, err)
	assert.Equal(t, "sara@example.com", resp.User.Email)
	assert.False(t, resp.User.IsAdmin)

	claims := parseClaims(t, resp.Token)
	assert.Equal(t, resp.User.ID.String(), claims["sub"])
	assert.Equal(t, false, claims["admin"])

	stored := users.byEmail("sara@example.com")
	require.NotNil(t, stored)
}

func TestAuthService_BootstrapAdmin(t *testing.T) {
	svc, _, _ := newAuthFixture(&Identity{Email: "owner@example.com", Name: "Owner"})
	resp, err := svc.Callback(context.Background(), loginState(t, svc), "code")
	require.NoError(t, err)
	assert.True(t, resp.User.IsAdmin)
	assert.Equal(t, true, parseClaims(t, resp.Token)["admin"])
}

func TestAuthService_StateIsSingleUse(t *testing.T) {
	svc, _, _ := newAuthFixture(&Identity{Email: "a@example.com"})
	state := loginState(t, svc)

	_, err := svc.Callback(context.Background(), state, "code")
	require.NoError(t, err)
	_, err = svc.Callback(context.Background(), state, "code")
	assert.ErrorIs(t, err, ErrInvalidOAuthState)
	_, err = svc.Callback(context.Background(), "forged", "code")
	assert.ErrorIs(t, err, ErrInvalidOAuthState)
}

func TestAuthService_ExchangeFailure(t *testing.T) {
	svc, _, _ := newAuthFixture(nil)
	svc.idp = &fakeIdP{err: errors.New("bad code")}
	_, err := svc.Callback(context.Background(), loginState(t, svc), "code")
	assert.Error(t, err)
}

func TestAuthService_Me(t *testing.T) {
	svc, users, _ := newAuthFixture(nil)
	u := users.add(newTestUser("me@example.com"))

	me, err := svc.Me(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", me.Email)
}
