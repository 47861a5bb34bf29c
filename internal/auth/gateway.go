package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"unicode"
	"unicode/utf8"

	"shop-backend/internal/engine"
	mailer "shop-backend/internal/mail"
	"shop-backend/internal/metadata"
	"shop-backend/internal/store"
)

// User facing messages.
const (
	MsgWrongCredentials = "Nespravne prihlasovaci udaje, zkuste znovu."
	MsgInactive         = "Ucet zablokovan."
	MsgUnverified       = "Neprobehlo overeni pres e-mail."
	MsgVerifyExpired    = "Doba pro aktivaci jiz uplynula"
	MsgVerifyBadToken   = "Spatny token"
	MsgBadRefresh       = "Token vyprsel nebo je vadny."
	MsgUsernameChars    = "Uzivatelske jmeno by nemelo obsahovat specialni znaky."
	MsgNoActiveAccount  = "No active account found with the given credentials"
	MsgRefreshInvalid   = "Token is invalid or expired"

	VerifySubject = "Overeni e-mailu"
)

const (
	passwordMin = 6
	passwordMax = 68
)

// Registration is the body of POST /register.
type Registration struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Credentials is the body of POST /login and POST /api/token.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the body returned by POST /login.
type LoginResult struct {
	Email    string    `json:"email"`
	Username string    `json:"username"`
	Tokens   TokenPair `json:"tokens"`
}

// Gateway implements registration, email verification, login and logout.
// Failures are *engine.AppError values ready to render.
type Gateway struct {
	users     *UserStore
	tokens    *Tokens
	blacklist Blacklist
	mailer    mailer.Mailer
	verifyURL string
}

func NewGateway(users *UserStore, tokens *Tokens, bl Blacklist, m mailer.Mailer, verifyURL string) *Gateway {
	return &Gateway{users: users, tokens: tokens, blacklist: bl, mailer: m, verifyURL: verifyURL}
}

// Register creates an unverified user and mails the verification link.
func (g *Gateway) Register(ctx context.Context, in Registration) (*User, error) {
	fe := metadata.FieldErrors{}
	checkEmail(fe, in.Email)
	switch {
	case in.Username == "":
		fe.Add("username", "This field is required.")
	case !isAlnum(in.Username):
		fe.Add("username", MsgUsernameChars)
	}
	checkPassword(fe, in.Password)

	for _, u := range []struct{ column, value, msg string }{
		{"email", in.Email, "user with this email already exists."},
		{"username", in.Username, "user with this username already exists."},
	} {
		if _, bad := fe[u.column]; bad {
			continue
		}
		taken, err := g.users.Taken(ctx, u.column, u.value)
		if err != nil {
			return nil, err
		}
		if taken {
			fe.Add(u.column, u.msg)
		}
	}
	if len(fe) > 0 {
		return nil, engine.ValidationError(fe)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user, err := g.users.Create(ctx, in.Username, in.Email, hash)
	if err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			fe.Add(metadata.NonFieldErrors, "user with this email or username already exists.")
			return nil, engine.ValidationError(fe)
		}
		return nil, err
	}

	token, _, err := g.tokens.Issue(user.ID, false, TokenVerify)
	if err != nil {
		return nil, err
	}
	msg := mailer.Message{
		To:      user.Email,
		Subject: VerifySubject,
		Body:    " Link pro overeni Vaseho e-mailu \n" + g.verifyURL + "?token=" + token,
	}
	if err := g.mailer.Send(ctx, msg); err != nil {
		log.Printf("ERROR: send verification mail to %s: %v", user.Email, err)
	}
	return user, nil
}

// Verify marks the token's user verified.
func (g *Gateway) Verify(ctx context.Context, token string) error {
	claims, err := g.tokens.Parse(token, TokenVerify)
	if errors.Is(err, ErrTokenExpired) {
		return engine.TokenExpiredError(MsgVerifyExpired)
	}
	if err != nil {
		return engine.TokenInvalidError(MsgVerifyBadToken)
	}
	id, err := claims.UserID()
	if err != nil {
		return engine.TokenInvalidError(MsgVerifyBadToken)
	}

	user, err := g.users.ByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return engine.TokenInvalidError(MsgVerifyBadToken)
	}
	if err != nil {
		return err
	}
	if user.Verified {
		return nil
	}
	return g.users.MarkVerified(ctx, id)
}

// Login checks credentials, then the active flag, then verification.
func (g *Gateway) Login(ctx context.Context, in Credentials) (*LoginResult, error) {
	user, err := g.authenticate(ctx, in)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, engine.AuthenticationFailedError(MsgWrongCredentials)
	}
	if !user.Active {
		return nil, engine.AuthenticationFailedError(MsgInactive)
	}
	if !user.Verified {
		return nil, engine.AuthenticationFailedError(MsgUnverified)
	}

	pair, err := g.tokens.Pair(user.ID, user.Staff)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Email: user.Email, Username: user.Username, Tokens: *pair}, nil
}

// Logout revokes a refresh token. Revoking twice fails like a bad token.
func (g *Gateway) Logout(ctx context.Context, refresh string) error {
	if refresh == "" {
		fe := metadata.FieldErrors{}
		fe.Add("refresh", "This field is required.")
		return engine.ValidationError(fe)
	}

	claims, err := g.tokens.Parse(refresh, TokenRefresh)
	if err != nil {
		return engine.TokenInvalidError(MsgBadRefresh)
	}
	id, err := claims.UserID()
	if err != nil {
		return engine.TokenInvalidError(MsgBadRefresh)
	}

	err = g.blacklist.Revoke(ctx, claims.ID, id, claims.ExpiresAt.Time)
	if errors.Is(err, ErrAlreadyRevoked) {
		return engine.TokenInvalidError(MsgBadRefresh)
	}
	return err
}

// ObtainPair issues a token pair to any active user with valid credentials.
func (g *Gateway) ObtainPair(ctx context.Context, in Credentials) (*TokenPair, error) {
	user, err := g.authenticate(ctx, in)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active {
		return nil, engine.AuthenticationFailedError(MsgNoActiveAccount)
	}
	return g.tokens.Pair(user.ID, user.Staff)
}

// Refresh exchanges a live, unrevoked refresh token for a new access token.
func (g *Gateway) Refresh(ctx context.Context, refresh string) (string, error) {
	if refresh == "" {
		fe := metadata.FieldErrors{}
		fe.Add("refresh", "This field is required.")
		return "", engine.ValidationError(fe)
	}

	claims, err := g.tokens.Parse(refresh, TokenRefresh)
	if err != nil {
		return "", engine.UnauthorizedError(MsgRefreshInvalid)
	}
	revoked, err := g.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", engine.UnauthorizedError(MsgRefreshInvalid)
	}
	id, err := claims.UserID()
	if err != nil {
		return "", engine.UnauthorizedError(MsgRefreshInvalid)
	}

	user, err := g.users.ByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return "", engine.UnauthorizedError(MsgRefreshInvalid)
	}
	if err != nil {
		return "", err
	}

	access, _, err := g.tokens.Issue(user.ID, user.Staff, TokenAccess)
	return access, err
}

// authenticate validates the credential fields and returns the matching
// user, or nil when the email is unknown or the password wrong.
func (g *Gateway) authenticate(ctx context.Context, in Credentials) (*User, error) {
	fe := metadata.FieldErrors{}
	checkEmail(fe, in.Email)
	checkPassword(fe, in.Password)
	if len(fe) > 0 {
		return nil, engine.ValidationError(fe)
	}

	user, err := g.users.ByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !CheckPassword(in.Password, user.PasswordHash) {
		return nil, nil
	}
	return user, nil
}

func checkEmail(fe metadata.FieldErrors, email string) {
	if email == "" {
		fe.Add("email", "This field is required.")
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		fe.Add("email", "Enter a valid email address.")
	}
}

func checkPassword(fe metadata.FieldErrors, password string) {
	n := utf8.RuneCountInString(password)
	switch {
	case password == "":
		fe.Add("password", "This field is required.")
	case n < passwordMin:
		fe.Add("password", fmt.Sprintf("Ensure this field has at least %d characters.", passwordMin))
	case n > passwordMax:
		fe.Add("password", fmt.Sprintf("Ensure this field has no more than %d characters.", passwordMax))
	}
}

func isAlnum(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
