package backend

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/apperrors"
	"golang.org/x/oauth2"
)

const msgSessionExpired = "Session expirée, veuillez vous reconnecter."

// Session is the authentication context of one operator. It is built once at
// login and handed to every Resource of that operator.
type Session struct {
	User string
	src  oauth2.TokenSource
}

// NewSession wraps src. A nil src yields a session whose calls fail with an
// AUTH error before any request is sent.
func NewSession(user string, src oauth2.TokenSource) *Session {
	if src != nil {
		src = oauth2.ReuseTokenSource(nil, src)
	}
	return &Session{User: user, src: src}
}

// StaticSession returns a session for a fixed bearer token.
func StaticSession(user, token string) *Session {
	if strings.TrimSpace(token) == "" {
		return NewSession(user, nil)
	}
	return NewSession(user, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
}

// Token returns a valid token or an AUTH error.
func (s *Session) Token() (*oauth2.Token, error) {
	if s == nil || s.src == nil {
		return nil, apperrors.New(apperrors.ErrClassAuth, "session_token", msgSessionExpired)
	}
	tok, err := s.src.Token()
	if err != nil {
		return nil, apperrors.WrapWithMessage(apperrors.ErrClassAuth, "session_token", msgSessionExpired, err)
	}
	if !tok.Valid() {
		return nil, apperrors.New(apperrors.ErrClassAuth, "session_token", msgSessionExpired)
	}
	return tok, nil
}

// Valid reports whether the session can authenticate a request.
func (s *Session) Valid() bool {
	_, err := s.Token()
	return err == nil
}

// AuthorizationHeader returns the value of the Authorization header.
func (s *Session) AuthorizationHeader() (string, error) {
	tok, err := s.Token()
	if err != nil {
		return "", err
	}
	return tok.Type() + " " + tok.AccessToken, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token       string         `json:"token"`
	AccessToken string         `json:"access_token"`
	AccessCamel string         `json:"accessToken"`
	TokenType   string         `json:"token_type"`
	ExpiresIn   int64          `json:"expires_in"`
	Data        *loginResponse `json:"data"`
}

func (r *loginResponse) token() string {
	if r == nil {
		return ""
	}
	for _, t := range []string{r.AccessToken, r.Token, r.AccessCamel} {
		if t != "" {
			return t
		}
	}
	return r.Data.token()
}

// Login exchanges credentials at endpoint for a bearer token. user is sent
// both as username and, when it looks like one, as email.
func (c *Client) Login(ctx context.Context, endpoint, user, password string) (*Session, error) {
	if strings.TrimSpace(user) == "" || password == "" {
		return nil, apperrors.New(apperrors.ErrClassValidation, "login", "Identifiant et mot de passe obligatoires.")
	}
	req := loginRequest{Username: user, Password: password}
	if strings.Contains(user, "@") {
		req.Email = user
	}

	var resp loginResponse
	if err := c.Do(ctx, nil, "login", http.MethodPost, endpoint, req, &resp); err != nil {
		if apperrors.IsClass(err, apperrors.ErrClassAuth) || StatusCode(err) == http.StatusBadRequest {
			return nil, apperrors.WrapWithMessage(apperrors.ErrClassAuth, "login",
				apperrors.UserMessageOr(err, "Identifiants invalides."), err)
		}
		return nil, err
	}
	access := resp.token()
	if access == "" {
		return nil, apperrors.New(apperrors.ErrClassAuth, "login", "Le serveur n'a pas renvoyé de jeton.")
	}
	tok := &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
	if resp.TokenType != "" {
		tok.TokenType = resp.TokenType
	}
	if resp.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return NewSession(user, oauth2.StaticTokenSource(tok)), nil
}
