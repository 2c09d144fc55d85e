package logx

import (
	"fmt"
	"time"
)

// LogSource logs con el campo "source" pre-agregado para filtrar por plataforma o finder.
func LogSource(level Level, source, msg string, extraFields ...Fields) {
	fields := Fields{"source": source}
	for _, extra := range extraFields {
		for k, v := range extra {
			fields[k] = v
		}
	}
	logFields(level, msg, fields)
}

// SourceDebugf es un atajo para mensajes de progreso de una fuente.
func SourceDebugf(source, format string, a ...any) {
	LogSource(LevelDebug, source, fmt.Sprintf(format, a...))
}

// TimedOperation logs el inicio y fin de una operación con su duración.
type TimedOperation struct {
	source    string
	operation string
	start     time.Time
	fields    Fields
}

// StartOperation inicia el tracking de una operación.
func StartOperation(source, operation string, fields ...Fields) *TimedOperation {
	op := &TimedOperation{
		source:    source,
		operation: operation,
		start:     time.Now(),
		fields:    Fields{},
	}
	for _, f := range fields {
		for k, v := range f {
			op.fields[k] = v
		}
	}
	LogSource(LevelDebug, source, operation+" started", op.fields)
	return op
}

// Complete marca la operación como completada y loggea la duración.
func (op *TimedOperation) Complete() time.Duration {
	d := time.Since(op.start)
	op.fields["duration"] = FormatDuration(d)
	LogSource(LevelDebug, op.source, op.operation+" completed", op.fields)
	return d
}

// Fail marca la operación como fallida. Los fallos de una fuente no son fatales,
// por eso se registran como warning.
func (op *TimedOperation) Fail(err error) time.Duration {
	d := time.Since(op.start)
	op.fields["duration"] = FormatDuration(d)
	op.fields["error"] = err
	LogSource(LevelWarn, op.source, op.operation+" failed", op.fields)
	return d
}

// AddField añade un campo adicional a la operación.
func (op *TimedOperation) AddField(key string, value any) {
	if op.fields == nil {
		op.fields = Fields{}
	}
	op.fields[key] = value
}
