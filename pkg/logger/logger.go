// Package logger keeps the same Debug/Info/Warn/Error/Success/Fatal/
// Section/Banner surface as the teacher's original ANSI logger, but
// backs it with github.com/charmbracelet/log for leveled, structured
// output (timestamps, level badges, per-endpoint key/value fields via
// With) instead of hand-rolled ANSI escapes and the standard log
// package.
//
// Grounded on ventosilenzioso-go-raknet/pkg/logger/logger.go (API
// shape) and xendarboh-katzenpost/client2/arq.go (charmbracelet/log
// usage elsewhere in the retrieval pack).
package logger

import (
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Level mirrors the original package's integer levels.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelSuccess
)

var std = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
	ReportTimestamp: true,
	TimeFormat:      "15:04:05",
})

// SetLevel sets the minimum log level.
func SetLevel(level Level) {
	switch level {
	case LevelDebug:
		std.SetLevel(charmlog.DebugLevel)
	case LevelWarn:
		std.SetLevel(charmlog.WarnLevel)
	case LevelError:
		std.SetLevel(charmlog.ErrorLevel)
	default:
		std.SetLevel(charmlog.InfoLevel)
	}
}

// SetTimeFormat sets the time format for logs.
func SetTimeFormat(format string) {
	std.SetTimeFormat(format)
}

// ShowTime enables or disables the timestamp prefix.
func ShowTime(show bool) {
	std.SetReportTimestamp(show)
}

// With returns a child logger carrying the given key/value fields,
// e.g. logger.With("peer", peerIdentity) for per-endpoint logging.
func With(keyvals ...any) *charmlog.Logger {
	return std.With(keyvals...)
}

func Debug(format string, args ...any)   { std.Debug(fmt.Sprintf(format, args...)) }
func Info(format string, args ...any)    { std.Info(fmt.Sprintf(format, args...)) }
func Warn(format string, args ...any)    { std.Warn(fmt.Sprintf(format, args...)) }
func Error(format string, args ...any)   { std.Error(fmt.Sprintf(format, args...)) }
func Success(format string, args ...any) { std.Info("✓ " + fmt.Sprintf(format, args...)) }

// Fatal logs a fatal error and exits, matching the original's behavior.
func Fatal(format string, args ...any) {
	std.Fatal(fmt.Sprintf(format, args...))
}

// Section prints a section header.
func Section(title string) {
	border := "═══════════════════════════════════════════════════════════"
	fmt.Fprintf(os.Stderr, "\n╔%s╗\n", border)
	fmt.Fprintf(os.Stderr, "║ %-57s ║\n", title)
	fmt.Fprintf(os.Stderr, "╚%s╝\n\n", border)
}

// Banner prints the application banner.
func Banner(title, version string) {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║   PEERPROTO-GO                                             ║
║   %-58s║
║   Version %-48s║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Fprintf(os.Stderr, banner, title, version)
}
