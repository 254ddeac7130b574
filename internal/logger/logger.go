package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const timeFormat = "2006-01-02 15:04:05 MST"

// NewLogger пишет цветной консольный лог в stdout
func NewLogger(level zerolog.Level) *zerolog.Logger {
	return New(os.Stdout, level)
}

func New(out io.Writer, level zerolog.Level) *zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldInteger = true

	log := zerolog.New(consoleWriter(out)).
		Level(level).
		With().
		Timestamp().
		Logger()
	return &log
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: timeFormat,
	}

	// Цвета для разных уровней логирования
	output.FormatLevel = func(i interface{}) string {
		level, _ := i.(string)
		level = strings.ToUpper(level)
		return fmt.Sprintf("%s| %-6s|\x1b[0m", levelColor(level), level)
	}

	output.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("\x1b[1m%s\x1b[0m", i)
	}

	output.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("\x1b[36m%s:\x1b[0m", i)
	}

	output.FormatFieldValue = func(i interface{}) string {
		return fmt.Sprintf("\x1b[32m%s\x1b[0m", i)
	}

	return output
}

func levelColor(level string) string {
	switch level {
	case "TRACE":
		return "\x1b[36m" // голубой
	case "DEBUG":
		return "\x1b[32m" // зелёный
	case "INFO":
		return "\x1b[34m" // синий
	case "WARN":
		return "\x1b[33m" // жёлтый
	case "ERROR":
		return "\x1b[31m" // красный
	case "FATAL":
		return "\x1b[31;1m" // ярко-красный
	case "PANIC":
		return "\x1b[35m" // пурпурный
	default:
		return "\x1b[0m" // сброс цвета
	}
}
