// Package api serves the admin dashboard: the login flow, the entity list
// pages and their htmx fragments, and a small JSON api for grids and stats.
package api

import (
	"net/http"
	"time"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/backend"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/config"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/logger"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/notify"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/syncops"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/worker"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"golang.org/x/time/rate"
)

// Options are the shared dependencies of the dashboard.
type Options struct {
	// Client is required when the data source is rest.
	Client *backend.Client
	// DB is required when the data source is sqlite.
	DB *sqlx.DB
	// Remote receives a copy of every toast, e.g. Pushover. May be nil.
	Remote notify.Notifier
}

// App holds the state shared by all handlers.
type App struct {
	client   *backend.Client
	db       *sqlx.DB
	remote   notify.Notifier
	sessions *SessionStore
	logins   *syncops.SyncMap[*rate.Limiter]
	started  time.Time
}

// NewApp returns the dashboard for opts.
func NewApp(opts Options) *App {
	timeout := time.Hour
	if cfg := config.GetSettingsGeneral(); cfg != nil && cfg.SessionTimeoutMinutes > 0 {
		timeout = time.Duration(cfg.SessionTimeoutMinutes) * time.Minute
	}
	return &App{
		client:   opts.Client,
		db:       opts.DB,
		remote:   opts.Remote,
		sessions: newSessionStore(timeout),
		logins:   syncops.NewSyncMap[*rate.Limiter](16),
		started:  time.Now(),
	}
}

// Sessions returns the session store.
func (a *App) Sessions() *SessionStore {
	return a.sessions
}

// CleanupExpired drops expired sessions and login limiters.
func (a *App) CleanupExpired() {
	n := a.sessions.CleanupExpiredSessions()
	a.logins.DeleteExpired(nil)
	if n > 0 {
		logger.LogDynamicany(logger.StatusDebug, "expired sessions removed", "count", n)
	}
}

// ResetLists drops the cached lists of every session so the next request
// rebuilds them from the current configuration.
func (a *App) ResetLists() {
	a.sessions.sessions.Range(func(_ string, s *Session) bool {
		s.resetLists()
		return true
	})
}

func (a *App) useSQLite() bool {
	cfg := config.GetSettingsGeneral()
	return cfg != nil && cfg.DataSource == "sqlite"
}

// notifierFor delivers the toasts of sess to its queue and to the remote
// notifier.
func (a *App) notifierFor(sess *Session) notify.Notifier {
	if a.remote == nil {
		return sess.Toasts
	}
	return notify.Multi{sess.Toasts, notify.Async{Next: a.remote}}
}

// AddRoutes registers every route of the dashboard on r.
func (a *App) AddRoutes(r *gin.Engine) {
	r.GET("/", a.handleRootRedirect)
	r.GET("/login", a.loginPage)
	r.POST("/login", a.handleLogin)
	r.GET("/logout", a.handleLogout)

	admin := r.Group("/admin", a.requireAuth, a.requireCSRF)
	admin.GET("", a.dashboardPage)
	admin.GET("/:entity", a.listPage)
	admin.GET("/:entity/table", a.tableFragment)
	admin.POST("/:entity/refresh", a.handleRefresh)
	admin.POST("/:entity/select", a.handleSelect)
	admin.POST("/:entity/select-all", a.handleSelectAll)
	admin.POST("/:entity/select-clear", a.handleSelectClear)
	admin.POST("/:entity/delete/request", a.handleDeleteRequest)
	admin.POST("/:entity/delete/confirm", a.handleDeleteConfirm)
	admin.POST("/:entity/delete/cancel", a.handleDeleteCancel)
	admin.POST("/:entity/bulk-delete", a.handleBulkDelete)
	admin.GET("/:entity/export", a.handleExport)
	admin.GET("/:entity/view/:id", a.viewPage)
	admin.GET("/:entity/edit/:id", a.editPage)
	admin.GET("/:entity/add", a.addPage)
	admin.POST("/:entity/add", a.handleSave(true))
	admin.POST("/:entity/update", a.handleSave(false))

	apiGroup := r.Group("/api")
	if cfg := config.GetSettingsGeneral(); cfg != nil && len(cfg.CorsOrigins) > 0 {
		apiGroup.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CorsOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost},
			AllowHeaders:     []string{"Origin", "Content-Type", "X-CSRF-Token"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	apiGroup.Use(a.requireAuth)
	apiGroup.GET("/grid/:entity", a.handleGrid)
	apiGroup.GET("/stats", a.handleStats)
}

// Stats is the body of /api/stats.
type Stats struct {
	Uptime   string               `json:"uptime"`
	Sessions int                  `json:"sessions"`
	Workers  worker.Stats         `json:"workers"`
	Backend  *backend.ClientStats `json:"backend,omitempty"`
	Source   string               `json:"data_source"`
}

func (a *App) handleStats(c *gin.Context) {
	st := Stats{
		Uptime:   time.Since(a.started).Round(time.Second).String(),
		Sessions: a.sessions.Len(),
		Workers:  worker.GetStats(),
		Source:   "rest",
	}
	if a.useSQLite() {
		st.Source = "sqlite"
	}
	if a.client != nil {
		cs := a.client.GetStats()
		st.Backend = &cs
	}
	sendJSONResponse(c, http.StatusOK, st)
}
