package logx

import (
	"io"
	"os"

	"golang.org/x/term"
)

// OutputConfig gestiona la configuración de salida
type OutputConfig struct {
	IsTTY   bool
	NoColor bool
	Width   int
}

// DetectOutput detecta características del terminal
func DetectOutput(w io.Writer) OutputConfig {
	tty := IsTerminal(w)
	width := 100
	if f, ok := w.(*os.File); ok && tty {
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 0 {
			width = cols
		}
	}
	return OutputConfig{IsTTY: tty, NoColor: !tty, Width: width}
}

// IsTerminal verifica si el writer es un terminal
func IsTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}
