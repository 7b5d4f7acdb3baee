package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/apperrors"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/backend"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/config"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/logger"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"maragu.dev/gomponents"
	"maragu.dev/gomponents/html"
)

const (
	msgInvalidCredentials = "Identifiants invalides."
	msgTooManyAttempts    = "Trop de tentatives de connexion, réessayez dans une minute."
	msgMissingCredentials = "Identifiant et mot de passe requis."
)

// requireAuth middleware checks for valid session
func (a *App) requireAuth(c *gin.Context) {
	sessionID, err := c.Cookie(sessionCookie)
	if err != nil {
		redirectToLogin(c)
		return
	}

	session, exists := a.sessions.getSession(sessionID)
	if !exists {
		redirectToLogin(c)
		return
	}
	if session.Backend != nil && !session.Backend.Valid() {
		a.sessions.deleteSession(sessionID)
		redirectToLogin(c)
		return
	}

	c.Set("session", session)
	c.Set("csrf_token", session.CSRFToken)
	c.Next()
}

// requireCSRF middleware checks CSRF token for state-changing operations
func (a *App) requireCSRF(c *gin.Context) {
	if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
		c.Next()
		return
	}

	session := sessionFrom(c)
	if session == nil {
		sendUnauthorized(c, "No session found")
		c.Abort()
		return
	}

	csrfToken := c.GetHeader("X-CSRF-Token")
	if csrfToken == "" {
		csrfToken = c.PostForm("csrf_token")
	}

	if subtle.ConstantTimeCompare([]byte(csrfToken), []byte(session.CSRFToken)) != 1 {
		sendForbidden(c, "Invalid CSRF token")
		c.Abort()
		return
	}

	c.Next()
}

// redirectToLogin sends the browser to the login page. JSON endpoints get a
// 401 and htmx requests an HX-Redirect.
func redirectToLogin(c *gin.Context) {
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)

	switch {
	case strings.HasPrefix(c.Request.URL.Path, "/api/"):
		sendUnauthorized(c, "Authentication required")
	case isHTMX(c):
		c.Header("HX-Redirect", "/login")
		c.Status(http.StatusUnauthorized)
	default:
		c.Redirect(http.StatusFound, "/login")
	}
	c.Abort()
}

// sessionFrom returns the session stored by requireAuth.
func sessionFrom(c *gin.Context) *Session {
	if v, ok := c.Get("session"); ok {
		if s, ok := v.(*Session); ok {
			return s
		}
	}
	return nil
}

// allowLogin applies the per client login rate limit.
func (a *App) allowLogin(ip string) bool {
	cfg := config.GetSettingsGeneral()
	if cfg == nil || cfg.LoginAttemptsPerMin <= 0 {
		return true
	}
	limiter := a.logins.GetOrAdd(ip, func() *rate.Limiter {
		return rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.LoginAttemptsPerMin)), cfg.LoginAttemptsPerMin)
	}, 10*time.Minute)
	return limiter.Allow()
}

// authenticate checks the credentials against the backend login endpoint
// when one is configured, otherwise against the configured admin account.
// The returned backend session is nil for the sqlite data source.
func (a *App) authenticate(ctx context.Context, username, password string) (*backend.Session, error) {
	backendCfg := config.GetSettingsBackend()
	if !a.useSQLite() && a.client != nil && backendCfg != nil && backendCfg.LoginEndpoint != "" {
		return a.client.Login(ctx, backendCfg.LoginEndpoint, username, password)
	}

	general := config.GetSettingsGeneral()
	if general == nil ||
		subtle.ConstantTimeCompare([]byte(username), []byte(general.WebAdminUser)) != 1 ||
		subtle.ConstantTimeCompare([]byte(password), []byte(general.WebAdminPass)) != 1 {
		return nil, apperrors.New(apperrors.ErrClassAuth, "login", msgInvalidCredentials).WithContext("user", username)
	}
	if a.useSQLite() || backendCfg == nil {
		return nil, nil
	}
	return backend.StaticSession(username, backendCfg.Token), nil
}

// loginPage renders the login form
func (a *App) loginPage(c *gin.Context) {
	if sessionID, err := c.Cookie(sessionCookie); err == nil {
		if _, exists := a.sessions.getSession(sessionID); exists {
			c.Redirect(http.StatusFound, "/admin")
			return
		}
	}
	renderHTML(c, http.StatusOK, loginDocument(""))
}

// handleLogin processes login form submission
func (a *App) handleLogin(c *gin.Context) {
	if !a.allowLogin(c.ClientIP()) {
		logger.LogDynamicany(logger.StatusWarning, "login rate limited", "ip", c.ClientIP())
		renderHTML(c, http.StatusTooManyRequests, loginDocument(msgTooManyAttempts))
		return
	}

	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	if username == "" || password == "" {
		renderHTML(c, http.StatusBadRequest, loginDocument(msgMissingCredentials))
		return
	}

	bsess, err := a.authenticate(c.Request.Context(), username, password)
	if err != nil {
		apperrors.LogClassifiedError(logger.Logtype(logger.StatusWarning, 0), err).
			Str("ip", c.ClientIP()).
			Msg("login failed")
		status := http.StatusUnauthorized
		if !apperrors.IsClass(err, apperrors.ErrClassAuth) {
			status = http.StatusBadGateway
		}
		renderHTML(c, status, loginDocument(apperrors.UserMessageOr(err, msgInvalidCredentials)))
		return
	}

	session := a.sessions.createSession(username, bsess)
	c.SetCookie(sessionCookie, session.ID, int(a.sessions.ttl.Seconds()), "/", "", false, true)
	logger.LogDynamicany(logger.StatusInfo, "login", "user", username, "ip", c.ClientIP())
	c.Redirect(http.StatusSeeOther, "/admin")
}

// handleLogout clears session and redirects to login
func (a *App) handleLogout(c *gin.Context) {
	if sessionID, err := c.Cookie(sessionCookie); err == nil {
		a.sessions.deleteSession(sessionID)
	}

	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/login")
}

// handleRootRedirect handles root path requests and redirects to admin or login
func (a *App) handleRootRedirect(c *gin.Context) {
	if sessionID, err := c.Cookie(sessionCookie); err == nil {
		if _, exists := a.sessions.getSession(sessionID); exists {
			c.Redirect(http.StatusFound, "/admin")
			return
		}
	}
	c.Redirect(http.StatusFound, "/login")
}

func loginDocument(errorMsg string) gomponents.Node {
	return html.Doctype(
		html.HTML(
			html.Lang("fr"),
			html.Head(
				html.Meta(html.Charset("utf-8")),
				html.Meta(html.Name("viewport"), html.Content("width=device-width, initial-scale=1")),
				html.TitleEl(gomponents.Text("Admissions - Connexion")),
				html.Link(html.Href(bootstrapCSS), html.Rel("stylesheet")),
				html.StyleEl(gomponents.Raw(`
					body {
						min-height: 100vh;
						display: flex;
						align-items: center;
						justify-content: center;
						background: linear-gradient(135deg, #1e3c72 0%, #2a5298 100%);
					}
					.login-card {
						width: 100%;
						max-width: 380px;
						border-radius: 16px;
						box-shadow: 0 20px 40px rgba(0, 0, 0, 0.25);
					}
				`)),
			),
			html.Body(
				html.Div(
					html.Class("card login-card"),
					html.Div(
						html.Class("card-body p-4"),
						html.H1(html.Class("h4 text-center mb-4"), gomponents.Text("Administration des admissions")),
						gomponents.If(errorMsg != "", html.Div(
							html.Class("alert alert-danger"),
							html.Role("alert"),
							gomponents.Text(errorMsg),
						)),
						html.Form(
							html.Method("post"),
							html.Action("/login"),
							html.Div(html.Class("mb-3"),
								html.Label(html.For("username"), html.Class("form-label"), gomponents.Text("Identifiant")),
								html.Input(html.ID("username"), html.Name("username"), html.Type("text"),
									html.Class("form-control"), html.AutoComplete("username"), html.Required()),
							),
							html.Div(html.Class("mb-3"),
								html.Label(html.For("password"), html.Class("form-label"), gomponents.Text("Mot de passe")),
								html.Input(html.ID("password"), html.Name("password"), html.Type("password"),
									html.Class("form-control"), html.AutoComplete("current-password"), html.Required()),
							),
							html.Button(html.Type("submit"), html.Class("btn btn-primary w-100"), gomponents.Text("Se connecter")),
						),
					),
				),
			),
		),
	)
}
