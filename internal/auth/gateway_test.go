package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-backend/internal/config"
	"shop-backend/internal/engine"
	"shop-backend/internal/mail"
	"shop-backend/internal/store"
	"shop-backend/internal/storetest"
)

type gatewayFixture struct {
	gw     *Gateway
	store  *store.Store
	tokens *Tokens
	mails  *mail.Recorder
}

func newGateway(t *testing.T) *gatewayFixture {
	t.Helper()
	s, _ := storetest.New(t)
	tokens := NewTokens("test-secret", config.AuthConfig{})
	rec := &mail.Recorder{}
	gw := NewGateway(NewUserStore(s), tokens, NewSQLBlacklist(s), rec, "http://shop.test/email-verify")
	return &gatewayFixture{gw: gw, store: s, tokens: tokens, mails: rec}
}

func appErr(t *testing.T, err error) *engine.AppError {
	t.Helper()
	var ae *engine.AppError
	require.True(t, errors.As(err, &ae), "expected *AppError, got %T: %v", err, err)
	return ae
}

// verifyToken pulls the token out of the last verification mail.
func (f *gatewayFixture) verifyToken(t *testing.T) string {
	t.Helper()
	msg, ok := f.mails.Last()
	require.True(t, ok)
	_, token, found := strings.Cut(msg.Body, "?token=")
	require.True(t, found)
	return token
}

func TestRegister_SendsVerificationMail(t *testing.T) {
	f := newGateway(t)

	user, err := f.gw.Register(context.Background(), Registration{Email: "jana@example.com", Username: "jana", Password: "tajneheslo"})
	require.NoError(t, err)
	assert.Equal(t, "jana", user.Username)
	assert.False(t, user.Verified)

	msg, ok := f.mails.Last()
	require.True(t, ok)
	assert.Equal(t, "jana@example.com", msg.To)
	assert.Equal(t, VerifySubject, msg.Subject)
	assert.True(t, strings.HasPrefix(msg.Body, " Link pro overeni Vaseho e-mailu \nhttp://shop.test/email-verify?token="))
}

func TestRegister_Validation(t *testing.T) {
	f := newGateway(t)
	ctx := context.Background()

	_, err := f.gw.Register(ctx, Registration{Email: "bad", Username: "ja na", Password: "123"})
	ae := appErr(t, err)
	assert.Equal(t, 400, ae.Status)
	assert.Equal(t, []string{"Enter a valid email address."}, ae.Fields["email"])
	assert.Equal(t, []string{MsgUsernameChars}, ae.Fields["username"])
	assert.Equal(t, []string{"Ensure this field has at least 6 characters."}, ae.Fields["password"])

	_, err = f.gw.Register(ctx, Registration{Email: "jana@example.com", Username: "jana", Password: "tajneheslo"})
	require.NoError(t, err)

	_, err = f.gw.Register(ctx, Registration{Email: "jana@example.com", Username: "jana", Password: "tajneheslo"})
	ae = appErr(t, err)
	assert.Contains(t, ae.Fields, "email")
	assert.Contains(t, ae.Fields, "username")
	assert.Len(t, f.mails.Sent(), 1)
}

func TestLogin_RequiresVerification(t *testing.T) {
	f := newGateway(t)
	ctx := context.Background()
	creds := Credentials{Email: "jana@example.com", Password: "tajneheslo"}

	_, err := f.gw.Register(ctx, Registration{Email: creds.Email, Username: "jana", Password: creds.Password})
	require.NoError(t, err)

	_, err = f.gw.Login(ctx, creds)
	ae := appErr(t, err)
	assert.Equal(t, 401, ae.Status)
	assert.Equal(t, MsgUnverified, ae.Message)

	require.NoError(t, f.gw.Verify(ctx, f.verifyToken(t)))
	require.NoError(t, f.gw.Verify(ctx, f.verifyToken(t)), "verifying twice is fine")

	res, err := f.gw.Login(ctx, creds)
	require.NoError(t, err)
	assert.Equal(t, "jana", res.Username)
	assert.NotEmpty(t, res.Tokens.Access)
	assert.NotEmpty(t, res.Tokens.Refresh)
}

func TestLogin_Failures(t *testing.T) {
	f := newGateway(t)
	ctx := context.Background()

	_, err := f.gw.Login(ctx, Credentials{Email: "admin@localhost", Password: "wrongpass"})
	assert.Equal(t, MsgWrongCredentials, appErr(t, err).Message)

	_, err = f.gw.Login(ctx, Credentials{Email: "nobody@example.com", Password: "whatever"})
	assert.Equal(t, MsgWrongCredentials, appErr(t, err).Message)

	_, err = f.gw.Login(ctx, Credentials{})
	ae := appErr(t, err)
	assert.Equal(t, 400, ae.Status)
	assert.Contains(t, ae.Fields, "email")
	assert.Contains(t, ae.Fields, "password")

	_, err = store.Exec(ctx, f.store.DB, "UPDATE users SET is_active = 0 WHERE email = 'admin@localhost'")
	require.NoError(t, err)
	_, err = f.gw.Login(ctx, Credentials{Email: "admin@localhost", Password: "changeme"})
	assert.Equal(t, MsgInactive, appErr(t, err).Message)
}

func TestVerify_BadTokens(t *testing.T) {
	f := newGateway(t)
	ctx := context.Background()

	ae := appErr(t, f.gw.Verify(ctx, "garbage"))
	assert.Equal(t, 400, ae.Status)
	assert.Equal(t, MsgVerifyBadToken, ae.Message)

	access, _, err := f.tokens.Issue(1, false, TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, MsgVerifyBadToken, appErr(t, f.gw.Verify(ctx, access)).Message)

	verify, _, err := f.tokens.Issue(1, false, TokenVerify)
	require.NoError(t, err)
	f.tokens.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	ae = appErr(t, f.gw.Verify(ctx, verify))
	assert.Equal(t, "TOKEN_EXPIRED", ae.Code)
	assert.Equal(t, MsgVerifyExpired, ae.Message)
}

func TestLogout_RevokesOnce(t *testing.T) {
	f := newGateway(t)
	ctx := context.Background()

	res, err := f.gw.Login(ctx, Credentials{Email: "admin@localhost", Password: "changeme"})
	require.NoError(t, err)

	require.NoError(t, f.gw.Logout(ctx, res.Tokens.Refresh))

	ae := appErr(t, f.gw.Logout(ctx, res.Tokens.Refresh))
	assert.Equal(t, 400, ae.Status)
	assert.Equal(t, MsgBadRefresh, ae.Message)

	assert.Equal(t, MsgBadRefresh, appErr(t, f.gw.Logout(ctx, res.Tokens.Access)).Message)
	assert.Equal(t, 400, appErr(t, f.gw.Logout(ctx, "")).Status)
}

func TestObtainAndRefresh(t *testing.T) {
	f := newGateway(t)
	ctx := context.Background()

	pair, err := f.gw.ObtainPair(ctx, Credentials{Email: "admin@localhost", Password: "changeme"})
	require.NoError(t, err)

	access, err := f.gw.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	claims, err := f.tokens.Parse(access, TokenAccess)
	require.NoError(t, err)
	assert.True(t, claims.Staff)

	require.NoError(t, f.gw.Logout(ctx, pair.Refresh))
	_, err = f.gw.Refresh(ctx, pair.Refresh)
	assert.Equal(t, 401, appErr(t, err).Status)

	_, err = f.gw.ObtainPair(ctx, Credentials{Email: "admin@localhost", Password: "nopenope"})
	assert.Equal(t, MsgNoActiveAccount, appErr(t, err).Message)
}
