package account

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-storefront/internal/session"
)

// --- Mock implementations ---

type mockGateway struct {
	creds      session.Credentials
	loginErr   error
	signup     *Registration
	signupErr  error
	logoutWith []string
	logoutErr  error
	change     *PasswordChange
	changeErr  error
	profile    *Profile
	profileErr error
}

func (m *mockGateway) Login(_ context.Context, _, _ string) (session.Credentials, error) {
	return m.creds, m.loginErr
}

func (m *mockGateway) Signup(_ context.Context, r Registration) error {
	m.signup = &r
	return m.signupErr
}

func (m *mockGateway) Logout(_ context.Context, refresh string) error {
	m.logoutWith = append(m.logoutWith, refresh)
	return m.logoutErr
}

func (m *mockGateway) ChangePassword(_ context.Context, c PasswordChange) error {
	m.change = &c
	return m.changeErr
}

func (m *mockGateway) Profile(_ context.Context) (*Profile, error) {
	return m.profile, m.profileErr
}

type memStore map[string]session.Credentials

func (m memStore) Load(_ context.Context, id string) (session.Credentials, error) {
	return m[id], nil
}

func (m memStore) Save(_ context.Context, id string, c session.Credentials) error {
	m[id] = c
	return nil
}

func (m memStore) Delete(_ context.Context, id string) error {
	delete(m, id)
	return nil
}

// --- Helpers ---

func sessionCtx(t *testing.T, creds session.Credentials) (context.Context, *session.Session, memStore) {
	t.Helper()
	store := memStore{}
	ctx := context.Background()
	s, err := session.Open(ctx, store, "sid")
	require.NoError(t, err)
	if !creds.IsZero() {
		require.NoError(t, s.SetCredentials(ctx, creds))
	}
	return session.With(ctx, s), s, store
}

// --- Tests ---

func TestLogin_StoresTokens(t *testing.T) {
	gw := &mockGateway{creds: session.Credentials{AccessToken: "acc", RefreshToken: "ref"}}
	ctx, sess, store := sessionCtx(t, session.Credentials{})

	msg, err := NewService(gw).Login(ctx, "maria", "secret")
	require.NoError(t, err)

	assert.Equal(t, "Bienvenido, maria", msg)
	assert.Equal(t, "acc", sess.AccessToken())
	assert.Equal(t, "ref", store["sid"].RefreshToken)
}

func TestLogin_FailureLeavesSessionUntouched(t *testing.T) {
	gw := &mockGateway{loginErr: errors.New("invalid credentials")}
	ctx, sess, _ := sessionCtx(t, session.Credentials{})

	_, err := NewService(gw).Login(ctx, "maria", "wrong")
	require.Error(t, err)
	assert.True(t, sess.Credentials().IsZero())
}

func TestLogin_NoSession(t *testing.T) {
	_, err := NewService(&mockGateway{}).Login(context.Background(), "u", "p")
	require.ErrorIs(t, err, session.ErrNoSession)
}

func TestSignup_DefaultsRoleAndGroups(t *testing.T) {
	gw := &mockGateway{}
	err := NewService(gw).Signup(context.Background(), Registration{Username: "maria"})
	require.NoError(t, err)

	require.NotNil(t, gw.signup)
	assert.Equal(t, DefaultRole, gw.signup.Role)
	assert.Equal(t, []int64{2}, gw.signup.Groups)
}

func TestLogout(t *testing.T) {
	t.Run("revokes and clears", func(t *testing.T) {
		gw := &mockGateway{}
		ctx, sess, _ := sessionCtx(t, session.Credentials{AccessToken: "acc", RefreshToken: "ref"})

		require.NoError(t, NewService(gw).Logout(ctx))
		assert.Equal(t, []string{"ref"}, gw.logoutWith)
		assert.True(t, sess.Credentials().IsZero())
	})

	t.Run("backend failure still clears", func(t *testing.T) {
		gw := &mockGateway{logoutErr: errors.New("boom")}
		ctx, sess, store := sessionCtx(t, session.Credentials{AccessToken: "acc", RefreshToken: "ref"})

		require.NoError(t, NewService(gw).Logout(ctx))
		assert.True(t, sess.Credentials().IsZero())
		assert.NotContains(t, store, "sid")
	})

	t.Run("logged out skips backend", func(t *testing.T) {
		gw := &mockGateway{}
		ctx, _, _ := sessionCtx(t, session.Credentials{})

		require.NoError(t, NewService(gw).Logout(ctx))
		assert.Empty(t, gw.logoutWith)
	})
}

func TestChangePassword(t *testing.T) {
	tests := []struct {
		name    string
		req     PasswordChange
		wantErr error
	}{
		{name: "missing username", req: PasswordChange{CurrentPassword: "a", NewPassword: "b"}, wantErr: ErrMissingFields},
		{name: "missing current", req: PasswordChange{Username: "u", NewPassword: "b"}, wantErr: ErrMissingFields},
		{name: "missing new", req: PasswordChange{Username: "u", CurrentPassword: "a"}, wantErr: ErrMissingFields},
		{name: "complete", req: PasswordChange{Username: "u", CurrentPassword: "a", NewPassword: "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &mockGateway{}
			err := NewService(gw).ChangePassword(context.Background(), tt.req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, gw.change)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, gw.change)
			assert.Equal(t, tt.req, *gw.change)
		})
	}
}

func TestProfile(t *testing.T) {
	gw := &mockGateway{profile: &Profile{Username: "maria", Email: "m@example.com"}}
	p, err := NewService(gw).Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "maria", p.Username)
}
