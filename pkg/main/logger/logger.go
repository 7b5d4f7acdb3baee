package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config defines the configuration options for the logger
type Config struct {
	// LogLevel sets the minimum enabled logging level. Valid levels are
	// "debug", "info", "warning" and "error".
	LogLevel string

	// LogFileSize is the maximum size in megabytes of the log file before it gets
	// rotated. It defaults to 10 megabytes.
	LogFileSize int

	// LogFileCount is the maximum number of old log files to retain.
	// The default is 5.
	LogFileCount uint8

	// LogCompress determines if the rotated log files should be compressed
	// using gzip.
	LogCompress bool

	// LogColorize enables console output with colors
	LogColorize bool

	// TimeFormat sets the format for timestamp in logs. Valid formats are
	// "rfc3339", "iso8601", "rfc1123" or a custom layout. The default is RFC3339.
	TimeFormat string

	// TimeZone sets the time zone to use for timestamps in logs.
	TimeZone string

	// LogToFileOnly disables logging to stdout.
	LogToFileOnly bool

	// LogFile overrides the default log file path.
	LogFile string
}

const (
	StatusDebug   = "debug"
	StatusInfo    = "info"
	StatusWarning = "warn"
	StatusError   = "error"
	StatusFatal   = "fatal"

	StrDebug = "debug"

	defaultLogfile = "./logs/admissions.log"
)

var (
	log        = zerolog.New(os.Stdout).With().Timestamp().Logger()
	timeFormat = time.RFC3339Nano
	timeZone   = *time.Local
)

// InitLogger initializes the global logger based on the provided Config.
// It sets the log level, output format and rotation options.
func InitLogger(config Config) {
	if config.LogFileSize == 0 {
		config.LogFileSize = 10
	}
	if config.LogFileCount == 0 {
		config.LogFileCount = 5
	}
	if config.LogFile == "" {
		config.LogFile = defaultLogfile
	}
	switch config.TimeFormat {
	case "rfc3339", "":
		timeFormat = time.RFC3339Nano
	case "iso8601":
		timeFormat = "2006-01-02T15:04:05.000Z0700"
	case "rfc1123":
		timeFormat = time.RFC1123
	default:
		timeFormat = config.TimeFormat
	}
	zerolog.TimeFieldFormat = timeFormat

	if config.TimeZone != "" {
		switch {
		case strings.EqualFold(config.TimeZone, "local"):
			timeZone = *time.Local
		case strings.EqualFold(config.TimeZone, "utc"):
			timeZone = *time.UTC
		default:
			if loc, err := time.LoadLocation(config.TimeZone); err == nil {
				timeZone = *loc
			}
		}
	}
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().In(&timeZone)
	}

	level := zerolog.InfoLevel
	var dbug bool
	switch {
	case strings.EqualFold(config.LogLevel, StrDebug):
		level = zerolog.DebugLevel
		dbug = true
	case strings.EqualFold(config.LogLevel, "warning"), strings.EqualFold(config.LogLevel, "warn"):
		level = zerolog.WarnLevel
	case strings.EqualFold(config.LogLevel, "error"):
		level = zerolog.ErrorLevel
	}

	var writers []io.Writer
	if !config.LogToFileOnly {
		if config.LogColorize {
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: timeFormat})
		} else {
			writers = append(writers, os.Stdout)
		}
	}
	writers = append(writers, &lumberjack.Logger{
		Filename:   config.LogFile,
		MaxSize:    config.LogFileSize, // megabytes
		MaxBackups: int(config.LogFileCount),
		MaxAge:     28, //days
		Compress:   config.LogCompress,
	})

	logctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(level).With().Timestamp()
	if dbug {
		log = logctx.Caller().Logger()
	} else {
		log = logctx.Logger()
	}
}

// Logtype returns a log event for the given level. Unknown levels fall back to info.
// skip is the number of additional caller frames to skip.
func Logtype(typev string, skip int) *zerolog.Event {
	var logv *zerolog.Event
	switch typev {
	case StatusDebug:
		logv = log.Debug()
	case StatusError:
		logv = log.Error()
	case StatusFatal:
		logv = log.Fatal()
	case StatusWarning, "warning":
		logv = log.Warn()
	case "panic":
		logv = log.Panic()
	default:
		logv = log.Info()
	}
	if skip > 0 {
		logv.CallerSkipFrame(skip)
	}
	return logv
}

// LogDynamicany logs a message with dynamic key/value fields. Fields are read in
// pairs: a string key followed by its value. An error value is always attached
// with Err and does not need a key.
func LogDynamicany(typev string, msg string, fields ...any) {
	logv := Logtype(typev, 1)

	var key string
	for _, field := range fields {
		if err, ok := field.(error); ok {
			logv.Err(err)
			key = ""
			continue
		}
		if key == "" {
			if s, ok := field.(string); ok {
				key = s
			}
			continue
		}
		switch tt := field.(type) {
		case string:
			logv.Str(key, tt)
		case *string:
			if tt != nil {
				logv.Str(key, *tt)
			}
		case int:
			logv.Int(key, tt)
		case int64:
			logv.Int64(key, tt)
		case uint:
			logv.Uint(key, tt)
		case bool:
			logv.Bool(key, tt)
		case float64:
			logv.Float64(key, tt)
		case time.Duration:
			logv.Str(key, tt.Round(time.Millisecond).String())
		case []string:
			logv.Strs(key, tt)
		default:
			logv.Any(key, tt)
		}
		key = ""
	}
	logv.Msg(msg)
}

// LogDynamicanyErr logs msg together with err at the given level.
func LogDynamicanyErr(typev string, msg string, err error) {
	Logtype(typev, 1).Err(err).Msg(msg)
}

// GetTimeZone returns the time zone configured for log timestamps.
func GetTimeZone() *time.Location {
	return &timeZone
}
