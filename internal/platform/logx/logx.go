package logx

import (
	"io"
	"os"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Level representa el nivel de logging
type Level uint8

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

// Fields representa pares clave-valor para structured logging
type Fields map[string]any

type state struct {
	mu      sync.RWMutex
	logger  zerolog.Logger
	out     io.Writer
	noColor bool
}

var cfg = &state{
	logger: newConsole(os.Stderr, !IsTerminal(os.Stderr)),
	out:    os.Stderr,
}

func newConsole(w io.Writer, noColor bool) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    noColor,
	}).With().Timestamp().Logger()
}

// SetVerbosity configura el nivel: 0=error, 1=info, 2=debug, 3+=trace.
// El modo no verbose solo deja pasar errores para que la salida sea el reporte final.
func SetVerbosity(v int) {
	switch {
	case v <= 0:
		SetLevel(LevelError)
	case v == 1:
		SetLevel(LevelInfo)
	case v == 2:
		SetLevel(LevelDebug)
	default:
		SetLevel(LevelTrace)
	}
}

// SetLevel cambia el nivel mínimo de logging
func SetLevel(l Level) {
	var zlevel zerolog.Level
	switch l {
	case LevelError:
		zlevel = zerolog.ErrorLevel
	case LevelWarn:
		zlevel = zerolog.WarnLevel
	case LevelInfo:
		zlevel = zerolog.InfoLevel
	case LevelDebug:
		zlevel = zerolog.DebugLevel
	case LevelTrace:
		zlevel = zerolog.TraceLevel
	default:
		zlevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(zlevel)
}

// SetOutput redirige la salida del logger
func SetOutput(w io.Writer) {
	cfg.mu.Lock()
	defer cfg.mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	cfg.out = w
	cfg.logger = newConsole(w, cfg.noColor || !IsTerminal(w))
}

// EnableColors activa/desactiva colores ANSI
func EnableColors(enabled bool) {
	cfg.mu.Lock()
	defer cfg.mu.Unlock()
	cfg.noColor = !enabled
	cfg.logger = newConsole(cfg.out, !enabled)
}

func current() zerolog.Logger {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()
	return cfg.logger
}

func Errorf(format string, a ...any) { l := current(); l.Error().Msgf(format, a...) }
func Warnf(format string, a ...any)  { l := current(); l.Warn().Msgf(format, a...) }
func Infof(format string, a ...any)  { l := current(); l.Info().Msgf(format, a...) }

func Info(msg string, fields Fields)  { logFields(LevelInfo, msg, fields) }
func Debug(msg string, fields Fields) { logFields(LevelDebug, msg, fields) }

// logFields emite los campos en orden alfabético para que la salida sea estable
func logFields(lvl Level, msg string, fields Fields) {
	logger := current()
	var event *zerolog.Event
	switch lvl {
	case LevelError:
		event = logger.Error()
	case LevelWarn:
		event = logger.Warn()
	case LevelInfo:
		event = logger.Info()
	case LevelDebug:
		event = logger.Debug()
	default:
		event = logger.Trace()
	}
	if event == nil {
		return
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err, ok := fields[k].(error); ok {
			event = event.Str(k, err.Error())
			continue
		}
		event = event.Interface(k, fields[k])
	}
	event.Msg(msg)
}
