// Package errors proporciona tipos de error con contexto y sugerencias.
// Cada tipo corresponde a una categoría de fallo del pipeline de recolección:
// red, decodificación, forma inesperada, validación y configuración.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorWithSuggestion es un error que incluye una sugerencia para el usuario.
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
	Context    map[string]string
}

func (e *ErrorWithSuggestion) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.Suggestion != "" {
		b.WriteString("\n\n💡 Sugerencia: ")
		b.WriteString(e.Suggestion)
	}
	if len(e.Context) > 0 {
		b.WriteString("\n\nContexto:")
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\n  • %s: %s", k, e.Context[k])
		}
	}
	return b.String()
}

func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// WithSuggestion envuelve un error con una sugerencia para el usuario.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
		Context:    make(map[string]string),
	}
}

// WithContext añade contexto adicional a un error.
func WithContext(err error, key, value string) error {
	if err == nil {
		return nil
	}

	var suggErr *ErrorWithSuggestion
	if errors.As(err, &suggErr) {
		if suggErr.Context == nil {
			suggErr.Context = make(map[string]string)
		}
		suggErr.Context[key] = value
		return err
	}

	return &ErrorWithSuggestion{
		Err:     err,
		Context: map[string]string{key: value},
	}
}

// NetworkError representa un fallo de transporte: DNS, conexión, timeout,
// proxy inalcanzable o un status HTTP no esperado.
type NetworkError struct {
	Operation string
	URL       string
	Status    int
	Err       error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("error de red durante %s: HTTP %d", e.Operation, e.Status)
	}
	return fmt.Sprintf("error de red durante %s: %v", e.Operation, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError crea un error mejorado para problemas de red.
func NewNetworkError(operation, url string, err error) error {
	baseErr := &NetworkError{
		Operation: operation,
		URL:       url,
		Err:       err,
	}
	return networkWrap(baseErr, url)
}

// NewStatusError crea un NetworkError para respuestas con status inesperado.
func NewStatusError(operation, url string, status int) error {
	baseErr := &NetworkError{
		Operation: operation,
		URL:       url,
		Status:    status,
	}
	return networkWrap(baseErr, url)
}

func networkWrap(baseErr *NetworkError, url string) error {
	suggestion := "Verifica tu conexión a internet\n" +
		"Si usas modo stealth, verifica que el proxy (--proxy) esté escuchando"

	err := WithSuggestion(baseErr, suggestion)
	err = WithContext(err, "operation", baseErr.Operation)
	if url != "" {
		err = WithContext(err, "url", truncate(url, 100))
	}
	return err
}

// DecodeError representa un cuerpo que no se pudo interpretar (JSON o HTML mal formado).
type DecodeError struct {
	Format string
	Sample string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("no se pudo decodificar %s: %v", e.Format, e.Err)
	if e.Sample != "" {
		msg += fmt.Sprintf(" (muestra: %q)", truncate(e.Sample, 50))
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewDecodeError crea un error de decodificación.
func NewDecodeError(format, sample string, err error) error {
	return &DecodeError{Format: format, Sample: sample, Err: err}
}

// ShapeError indica que el documento se decodificó pero la ruta esperada no existe
// o tiene otro tipo.
type ShapeError struct {
	Path   string
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("estructura inesperada en %s", e.Path)
	}
	return fmt.Sprintf("estructura inesperada en %s: %s", e.Path, e.Reason)
}

// NewShapeError crea un error de forma.
func NewShapeError(path, reason string) error {
	return &ShapeError{Path: path, Reason: reason}
}

// ValidationError indica que un candidato fue descartado por las reglas de validación.
type ValidationError struct {
	Kind   string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s descartado %q: %s", e.Kind, truncate(e.Value, 50), e.Reason)
}

// NewValidationError crea un error de validación.
func NewValidationError(kind, value, reason string) error {
	return &ValidationError{Kind: kind, Value: value, Reason: reason}
}

// ConfigurationError representa un error de configuración.
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuración inválida para '%s': %s", e.Field, e.Reason)
}

// NewConfigurationError crea un error mejorado para problemas de configuración.
func NewConfigurationError(field, value, reason, suggestion string) error {
	baseErr := &ConfigurationError{
		Field:  field,
		Value:  value,
		Reason: reason,
	}

	err := WithSuggestion(baseErr, suggestion)
	err = WithContext(err, "field", field)
	if value != "" {
		err = WithContext(err, "value", value)
	}
	return err
}

// Kind clasifica un error en una de las categorías del pipeline.
type Kind string

const (
	KindNone          Kind = ""
	KindTransport     Kind = "transport"
	KindDecode        Kind = "decode"
	KindShape         Kind = "shape"
	KindValidation    Kind = "validation"
	KindConfiguration Kind = "configuration"
	KindOther         Kind = "other"
)

// Classify retorna la categoría de err.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case IsNetwork(err):
		return KindTransport
	case IsDecode(err):
		return KindDecode
	case IsShape(err):
		return KindShape
	case IsValidation(err):
		return KindValidation
	case IsConfiguration(err):
		return KindConfiguration
	default:
		return KindOther
	}
}

// Brief retorna el mensaje sin sugerencia ni contexto, apto para reportes.
func Brief(err error) string {
	if err == nil {
		return ""
	}
	var suggErr *ErrorWithSuggestion
	if errors.As(err, &suggErr) && suggErr.Err != nil {
		return suggErr.Err.Error()
	}
	return err.Error()
}

// truncate limita una cadena a n caracteres, añadiendo "..." si es necesario.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// GetSuggestion extrae la sugerencia de un error si existe.
func GetSuggestion(err error) string {
	var suggErr *ErrorWithSuggestion
	if errors.As(err, &suggErr) {
		return suggErr.Suggestion
	}
	return ""
}

// GetContext extrae el contexto de un error si existe.
func GetContext(err error) map[string]string {
	var suggErr *ErrorWithSuggestion
	if errors.As(err, &suggErr) {
		return suggErr.Context
	}
	return nil
}

// IsNetwork verifica si un error es de transporte.
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsDecode verifica si un error es de decodificación.
func IsDecode(err error) bool {
	var decErr *DecodeError
	return errors.As(err, &decErr)
}

// IsShape verifica si un error es de forma.
func IsShape(err error) bool {
	var shapeErr *ShapeError
	return errors.As(err, &shapeErr)
}

// IsValidation verifica si un error es de validación.
func IsValidation(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}

// IsConfiguration verifica si un error es de configuración.
func IsConfiguration(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
