package utils

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// ANSI colour codes — make terminal output easier to read while debugging
const (
	reset  = "\033[0m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	blue   = "\033[34m"
	cyan   = "\033[36m"
	grey   = "\033[90m"
)

var (
	mu    sync.Mutex
	out   io.Writer = os.Stdout
	debug bool
)

// SetOutput redirects all log lines, e.g. to io.Discard in tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

func SetDebug(on bool) {
	mu.Lock()
	defer mu.Unlock()
	debug = on
}

func ts() string {
	return time.Now().Format("15:04:05")
}

func logf(colour, level, format string, a ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, "%s[%s] %-7s %s%s\n", colour, ts(), level, fmt.Sprintf(format, a...), reset)
}

func Debug(format string, a ...interface{}) {
	mu.Lock()
	on := debug
	mu.Unlock()
	if on {
		logf(grey, "[DEBUG]", format, a...)
	}
}

func Info(format string, a ...interface{}) {
	logf(blue, "[INFO]", format, a...)
}

func Success(format string, a ...interface{}) {
	logf(green, "[OK]", format, a...)
}

func Warn(format string, a ...interface{}) {
	logf(yellow, "[WARN]", format, a...)
}

func Error(format string, a ...interface{}) {
	logf(red, "[ERROR]", format, a...)
}

func Section(title string) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, "\n%s[%s] ══════════ %s ══════════%s\n\n", cyan, ts(), title, reset)
}
