package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const defaultLogFile = "./remoteconf.log"

// SetLoggingWriters returns the writers every logger of the agent writes to:
// a rotating log file and, unless disabled, the console. The console gets a
// human readable format when stdout is a terminal and JSON otherwise.
func SetLoggingWriters(logFile string, consoleDisabled bool) zerolog.LevelWriter {
	fileLogger := &lumberjack.Logger{
		Filename:   defaultLogFile,
		MaxSize:    500, // megabytes
		MaxBackups: 3,
		MaxAge:     28, //days
		Compress:   true,
	}
	if strings.TrimSpace(logFile) != "" {
		fileLogger.Filename = logFile
	}

	if consoleDisabled {
		return zerolog.MultiLevelWriter(fileLogger)
	}
	return zerolog.MultiLevelWriter(consoleWriter(os.Stdout), fileLogger)
}

func consoleWriter(out *os.File) io.Writer {
	if !isatty.IsTerminal(out.Fd()) && !isatty.IsCygwinTerminal(out.Fd()) {
		return out
	}
	output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC1123}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	output.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("%s: ", i)
	}
	return output
}

// New builds the agent logger.
func New(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func ExitWithMSG(msg string, code int, log *zerolog.Logger) {
	if log != nil {
		log.Error().Msg(msg)
	}
	fmt.Printf("%s\n", msg)
	os.Exit(code)
}
