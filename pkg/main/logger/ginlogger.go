package logger

import (
	"os"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Options configures the request logging middleware.
type Options struct {
	Name string

	// Logger overrides the global logger
	Logger *zerolog.Logger

	// FieldsExclude defines contextual fields to not display in output.
	FieldsExclude []string
}

const (
	NameFieldName       = "name"
	HostnameFieldName   = "hostname"
	ClientIPFieldName   = "client_ip"
	UserAgentFieldName  = "user_agent"
	DurationFieldName   = "elapsed"
	MethodFieldName     = "method"
	PathFieldName       = "path"
	RefererFieldName    = "referer"
	StatusCodeFieldName = "status_code"
	DataLengthFieldName = "data_length"
)

// ErrorLogger renders the errors collected on the gin context as JSON when
// no handler wrote a response.
func ErrorLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if !c.Writer.Written() {
			if json := c.Errors.ByType(gin.ErrorTypeAny).JSON(); json != nil {
				c.JSON(-1, json)
			}
		}
	}
}

// GinLogger is a gin middleware which logs each request through zerolog.
func GinLogger() gin.HandlerFunc {
	return LoggerWithOptions(&Options{Name: "admissions"})
}

// LoggerWithOptions is a gin middleware which use zerolog.
func LoggerWithOptions(opt *Options) gin.HandlerFunc {
	if opt.Logger == nil {
		opt.Logger = &log
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return func(ctx *gin.Context) {
		z := opt.Logger
		if z.GetLevel() == zerolog.Disabled {
			ctx.Next()
			return
		}

		begin := time.Now()
		path := ctx.Request.URL.Path
		if raw := ctx.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		ctx.Next()

		statusCode := ctx.Writer.Status()
		var event *zerolog.Event
		switch {
		case statusCode >= 500:
			event = z.Error()
		case statusCode >= 400:
			event = z.Warn()
		default:
			event = z.Info()
		}

		opt.str(event, NameFieldName, opt.Name)
		opt.str(event, HostnameFieldName, hostname)
		opt.str(event, ClientIPFieldName, ctx.ClientIP())
		opt.str(event, UserAgentFieldName, ctx.Request.UserAgent())
		opt.str(event, MethodFieldName, ctx.Request.Method)
		opt.str(event, PathFieldName, path)
		opt.str(event, RefererFieldName, ctx.Request.Referer())
		if !opt.isExcluded(DurationFieldName) {
			event.Dur(DurationFieldName, time.Since(begin))
		}
		if !opt.isExcluded(StatusCodeFieldName) {
			event.Int(StatusCodeFieldName, statusCode)
		}
		if !opt.isExcluded(DataLengthFieldName) && ctx.Writer.Size() > 0 {
			event.Int(DataLengthFieldName, ctx.Writer.Size())
		}

		message := ctx.Errors.String()
		if message == "" {
			message = "Request"
		}
		event.Msg(message)
	}
}

func (o *Options) str(event *zerolog.Event, field, value string) {
	if value != "" && !o.isExcluded(field) {
		event.Str(field, value)
	}
}

// isExcluded check if a field is excluded from the output.
func (o *Options) isExcluded(field string) bool {
	return slices.Contains(o.FieldsExclude, field)
}
