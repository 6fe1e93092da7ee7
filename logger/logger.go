package L

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// NOTE: populated at build time with -ldflags (-X)
var printCallerLocation string

// log levels
type LogLevel byte

const (
	DEBUG LogLevel = iota
	INFO
	NORMAL
	WARN
	ERROR
	PANIC
	SILENT
)

// color modes
type ColorMode int

const (
	COLOR_MODE_AUTO ColorMode = iota
	COLOR_MODE_ALWAYS
	COLOR_MODE_NEVER
)

// styles
// debug - blue
var debugStyle = lipgloss.NewStyle().Padding(0).Margin(0).
	Foreground(lipgloss.Color("4"))

// info - green
var infoStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("2"))

// no color - normal
var noColorStyle = lipgloss.NewStyle()

// warn - yellow
var warnStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("3"))

// error,panic - red
var errorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("1"))

// prefixes
const (
	debugPrefix  string = "DBG  "
	infoPrefix   string = "INF  "
	normalPrefix string = "     "
	warnPrefix   string = "WRN  "
	errorPrefix  string = "ERR  "
	panicPrefix  string = "PNC  "
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

var (
	level        = INFO
	colorMode    = COLOR_MODE_AUTO
	debugLogger  = log.New(stdout, colorize(debugPrefix, &debugStyle), log.Lmsgprefix)
	infoLogger   = log.New(stdout, colorize(infoPrefix, &infoStyle), log.Lmsgprefix)
	normalLogger = log.New(stdout, colorize(normalPrefix, &noColorStyle), log.Lmsgprefix)
	warnLogger   = log.New(stdout, colorize(warnPrefix, &warnStyle), log.Lmsgprefix)
	errorLogger  = log.New(stderr, colorize(errorPrefix, &errorStyle), log.Lmsgprefix)
	panicLogger  = log.New(stderr, colorize(panicPrefix, &errorStyle), log.Lmsgprefix)
	footerText   = ""
	footerLines  = 0
	footerLevel  = INFO
)

// guards every write and the footer state; workers log concurrently
var outputMutex = &sync.Mutex{}

// cursor sequences
const (
	c_escape     string = "\x1B"
	c_clear_line string = c_escape + "[2K"
	c_up         string = c_escape + "[1A"
)

func SetLevelFromString(l string) error {
	switch strings.ToLower(l) {
	case "debug":
		level = DEBUG
	case "info":
		level = INFO
	case "warn":
		level = WARN
	case "error":
		level = ERROR
	case "panic":
		level = PANIC
	case "silent":
		level = SILENT
	default:
		return fmt.Errorf("unsupported log level: %s", l)
	}
	return nil
}

func SetLevel(l LogLevel) error {
	switch l {
	case DEBUG, INFO, WARN, ERROR, PANIC, SILENT:
		level = l
	default:
		return fmt.Errorf("unsupported log level: %d", l)
	}
	return nil
}

func SetColorModeFromString(colorModeStr string) error {
	switch strings.ToLower(colorModeStr) {
	case "always":
		colorMode = COLOR_MODE_ALWAYS
	case "never":
		colorMode = COLOR_MODE_NEVER
	case "auto":
		colorMode = COLOR_MODE_AUTO
	default:
		return fmt.Errorf("unsupported color mode: %s", colorModeStr)
	}
	updateLoggerPrefixColors()
	return nil
}

func SetColorMode(cm ColorMode) error {
	switch cm {
	case COLOR_MODE_ALWAYS, COLOR_MODE_NEVER, COLOR_MODE_AUTO:
		colorMode = cm
	default:
		return fmt.Errorf("unsupported color mode: %s", cm)
	}
	updateLoggerPrefixColors()
	return nil
}

// SetOutput redirects normal output to out and errors to errOut.
func SetOutput(out io.Writer, errOut io.Writer) {
	outputMutex.Lock()
	defer outputMutex.Unlock()
	stdout = out
	stderr = errOut
	debugLogger.SetOutput(out)
	infoLogger.SetOutput(out)
	normalLogger.SetOutput(out)
	warnLogger.SetOutput(out)
	errorLogger.SetOutput(errOut)
	panicLogger.SetOutput(errOut)
}

func (cm ColorMode) String() string {
	switch cm {
	case COLOR_MODE_ALWAYS:
		return "always"
	case COLOR_MODE_NEVER:
		return "never"
	case COLOR_MODE_AUTO:
		return "auto"
	default:
		return "auto"
	}
}

func Debug(v ...any) {
	if level <= DEBUG {
		outputMutex.Lock()
		defer outputMutex.Unlock()
		clearFooter()
		if printCallerLocation == "true" {
			printWithCallerLocation(debugLogger, fmt.Sprint(v...))
		} else {
			printMultiline(debugLogger, fmt.Sprint(v...))
		}
		footerLines = printFooter()
	}
}

func Info(v ...any) {
	if level <= INFO {
		outputMutex.Lock()
		defer outputMutex.Unlock()
		clearFooter()
		printMultiline(infoLogger, fmt.Sprint(v...))
		footerLines = printFooter()
	}
}

func Warn(v ...any) {
	if level <= WARN {
		outputMutex.Lock()
		defer outputMutex.Unlock()
		clearFooter()
		printMultiline(warnLogger, fmt.Sprint(v...))
		footerLines = printFooter()
	}
}

func Error(v ...any) {
	if level <= ERROR {
		outputMutex.Lock()
		defer outputMutex.Unlock()
		clearFooter()
		if printCallerLocation == "true" {
			printWithCallerLocation(errorLogger, fmt.Sprint(v...))
		} else {
			printMultiline(errorLogger, fmt.Sprint(v...))
		}
		footerLines = printFooter()
	}
}

func Panic(v ...any) {
	outputMutex.Lock()
	clearFooter()
	printMultiline(panicLogger, fmt.Sprint(v...))
	outputMutex.Unlock()
	os.Exit(1)
}

func GetLogLevel() LogLevel {
	return level
}

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "debug"
	case INFO:
		return "info"
	case NORMAL:
		return "normal"
	case WARN:
		return "warn"
	case ERROR:
		return "error"
	case PANIC:
		return "panic"
	case SILENT:
		return "silent"
	default:
		return "Unknown log level, indicates a bug. Please report"
	}
}

// prints a persistent string "s" at the bottom of the terminal output.
// previous "footer" is cleared before each log and reprinted after.
// passing "s" as an empty string removes the footer.
func Footer(l LogLevel, s string) {
	outputMutex.Lock()
	defer outputMutex.Unlock()

	// clear previous footer output and reprint
	clearFooter()
	footerText = strings.TrimSpace(s)
	footerLevel = l
	footerLines = printFooter()
}

func colorize(s string, style *lipgloss.Style) string {
	if colorMode == COLOR_MODE_NEVER {
		return s
	}
	return style.Render(s)
}

func updateLoggerPrefixColors() {
	switch colorMode {
	case COLOR_MODE_ALWAYS:
		lipgloss.SetColorProfile(termenv.ANSI256)
	case COLOR_MODE_NEVER:
		lipgloss.SetColorProfile(termenv.Ascii)
	default:
		lipgloss.SetColorProfile(termenv.NewOutput(os.Stdout).EnvColorProfile())
	}
	debugLogger.SetPrefix(colorize(debugPrefix, &debugStyle))
	infoLogger.SetPrefix(colorize(infoPrefix, &infoStyle))
	normalLogger.SetPrefix(colorize(normalPrefix, &noColorStyle))
	warnLogger.SetPrefix(colorize(warnPrefix, &warnStyle))
	errorLogger.SetPrefix(colorize(errorPrefix, &errorStyle))
	panicLogger.SetPrefix(colorize(panicPrefix, &errorStyle))
}

// every line of a multiline message gets its own prefix
func printMultiline(logger *log.Logger, s string) int {
	s = strings.TrimRight(s, "\n")
	n := 0
	for line := range strings.SplitSeq(s, "\n") {
		logger.Print(line)
		n += len(line) + 1
	}
	return n
}

func printWithCallerLocation(logger *log.Logger, s string) int {
	// 0: this func, 1: Debug/Error, 2: caller
	_, file, line, ok := runtime.Caller(2)
	if ok {
		s = fmt.Sprintf("%s:%d %s", filepath.Base(file), line, s)
	}
	return printMultiline(logger, s)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// caller must hold outputMutex
func clearFooter() {
	if footerLines == 0 {
		return
	}
	var sb strings.Builder
	for range footerLines {
		sb.WriteString(c_up + c_clear_line)
	}
	sb.WriteString("\r")
	fmt.Fprint(stdout, sb.String())
	footerLines = 0
}

// caller must hold outputMutex, returns number of lines printed
func printFooter() int {
	if footerText == "" || level > footerLevel || !isTerminal(stdout) {
		return 0
	}
	fmt.Fprintln(stdout, footerText)
	return strings.Count(footerText, "\n") + 1
}
