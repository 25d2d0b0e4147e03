package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

const (
	reset  = "\033[0m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
	bold   = "\033[1m"
)

var (
	mu    sync.Mutex
	debug = os.Getenv("FLIPPER_DEBUG") != ""
)

// colorEnabled reports whether stdout is a terminal that understands ANSI codes.
func colorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func paint(color, s string) string {
	if !colorEnabled() {
		return s
	}
	return color + s + reset
}

func line(color, symbol, tag, msg string) {
	mu.Lock()
	defer mu.Unlock()
	ts := time.Now().Format("15:04:05")
	fmt.Fprintf(os.Stdout, "%s %s %-8s %s\n", paint(dim, ts), paint(color, symbol), paint(bold, "["+tag+"]"), msg)
}

// Info prints a neutral status line.
func Info(tag, msg string) { line(cyan, "•", tag, msg) }

// Success prints a line for a completed step.
func Success(tag, msg string) { line(green, "✓", tag, msg) }

// Warn prints a recoverable problem.
func Warn(tag, msg string) { line(yellow, "!", tag, msg) }

// Error prints a failure.
func Error(tag, msg string) { line(red, "✗", tag, msg) }

// Debug prints only when FLIPPER_DEBUG is set.
func Debug(tag, msg string) {
	mu.Lock()
	on := debug
	mu.Unlock()
	if !on {
		return
	}
	line(dim, "·", tag, msg)
}

// SetDebug toggles Debug output.
func SetDebug(on bool) {
	mu.Lock()
	debug = on
	mu.Unlock()
}

// Banner prints the startup banner.
func Banner(version string) {
	if version == "" {
		version = "dev"
	}
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintln(os.Stdout)
	fmt.Fprintln(os.Stdout, paint(bold+green, "  OSRS Flipper"), paint(dim, version))
	fmt.Fprintln(os.Stdout, paint(dim, "  Grand Exchange flip finder"))
	fmt.Fprintln(os.Stdout)
}

// Section prints a heading used to group related lines.
func Section(title string) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(os.Stdout, "\n%s\n%s\n", paint(bold, title), paint(dim, strings.Repeat("─", len([]rune(title)))))
}

// Stats prints a key/value line. Integers are printed with thousands separators.
func Stats(key string, value interface{}) {
	var v string
	switch n := value.(type) {
	case int:
		v = humanize.Comma(int64(n))
	case int32:
		v = humanize.Comma(int64(n))
	case int64:
		v = humanize.Comma(n)
	case float64:
		v = humanize.CommafWithDigits(n, 2)
	default:
		v = fmt.Sprint(value)
	}
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(os.Stdout, "  %-20s %s\n", paint(dim, key), v)
}

// Server prints the listening address.
func Server(addr string) {
	Success("Server", fmt.Sprintf("Listening on http://%s", addr))
}
