package app

import (
	"context"
	"errors"
)

var errSourcePanic = errors.New("panic en la fuente")

func classifySourceError(err error) string {
	if err == nil {
		return "ok"
	}
	switch {
	case errors.Is(err, errSourcePanic):
		return "panic"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelado"
	default:
		return "error"
	}
}
