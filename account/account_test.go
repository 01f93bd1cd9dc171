package account

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	orm "github.com/medatechnology/orderstore"
	"github.com/medatechnology/orderstore/shop"
	"github.com/medatechnology/orderstore/sqlite"
)

func newService(t *testing.T) (*Service, *shop.Repositories) {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.NewDatabase(*sqlite.NewMemoryConfig(), sqlite.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, shop.Migrate(ctx, db))

	repo := shop.NewRepositories(db, nil)
	require.NoError(t, repo.Roles.EnsureRoles(ctx, shop.DefaultRoles...))

	svc, err := NewService(repo.Users, Config{Secret: []byte("test-secret"), BcryptCost: bcrypt.MinCost}, nil)
	require.NoError(t, err)
	return svc, repo
}

func TestNewServiceNeedsSecret(t *testing.T) {
	_, err := NewService(nil, Config{}, nil)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestTokenTTL(t *testing.T) {
	svc, err := NewService(nil, Config{Secret: []byte("s")}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, svc.TokenTTL())

	svc, err = NewService(nil, Config{Secret: []byte("s"), TokenTTL: time.Hour}, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, svc.TokenTTL())
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)

	session, err := svc.Register(ctx, Registration{Email: "ann@example.com", Password: "secret1", Name: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, DefaultRole, session.User.Role)
	assert.NotEqual(t, "secret1", session.User.PasswordHash)

	stored, err := repo.Users.FindByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))

	claims, err := svc.ParseToken(session.AccessToken)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, stored.ID, id)
	assert.Equal(t, "customer", claims.Role)

	login, err := svc.Login(ctx, "ANN@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, login.User.ID)

	profile, err := svc.Profile(ctx, login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "Ann", profile.Name)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Register(ctx, Registration{Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, Registration{Email: "Ann@Example.com", Password: "other"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.ErrorIs(t, err, orm.ErrConflict)
}

func TestLoginFailuresLookAlike(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	_, err := svc.Register(ctx, Registration{Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ann@example.com", "wrong")
	assert.True(t, IsInvalidCredentials(err))

	_, err = svc.Login(ctx, "nobody@example.com", "secret1")
	assert.True(t, IsInvalidCredentials(err))
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	session, err := svc.Register(ctx, Registration{Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, session.User.ID, "wrong", "secret2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, session.User.ID, "secret1", "secret2"))
	_, err = svc.Login(ctx, "ann@example.com", "secret2")
	assert.NoError(t, err)
}

func TestParseTokenRejects(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	session, err := svc.Register(ctx, Registration{Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)

	other, err := NewService(nil, Config{Secret: []byte("other-secret")}, nil)
	require.NoError(t, err)
	_, err = other.ParseToken(session.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	_, err = svc.ParseToken(session.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ParseToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
