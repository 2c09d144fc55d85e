package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWithSuggestion(t *testing.T) {
	baseErr := errors.New("test error")
	err := WithSuggestion(baseErr, "try this instead")

	if err == nil {
		t.Fatal("expected error, got nil")
	}

	errMsg := err.Error()
	if !strings.Contains(errMsg, "test error") {
		t.Errorf("error message should contain base error, got: %s", errMsg)
	}
	if !strings.Contains(errMsg, "try this instead") {
		t.Errorf("error message should contain suggestion, got: %s", errMsg)
	}
	if !strings.Contains(errMsg, "💡 Sugerencia") {
		t.Errorf("error message should contain suggestion label, got: %s", errMsg)
	}
}

func TestWithContext(t *testing.T) {
	baseErr := errors.New("test error")
	err := WithContext(baseErr, "source", "twitter")
	err = WithContext(err, "timeout", "10s")

	errMsg := err.Error()
	if !strings.Contains(errMsg, "source: twitter") {
		t.Errorf("error message should contain context, got: %s", errMsg)
	}
	if !strings.Contains(errMsg, "timeout: 10s") {
		t.Errorf("error message should contain all context, got: %s", errMsg)
	}
	if strings.Index(errMsg, "source:") > strings.Index(errMsg, "timeout:") {
		t.Errorf("context keys should be sorted, got: %s", errMsg)
	}
}

func TestNetworkErrorClassification(t *testing.T) {
	err := NewNetworkError("GET", "https://www.instagram.com/alice/", errors.New("connection refused"))

	if !IsNetwork(err) {
		t.Fatal("IsNetwork should return true")
	}
	if Classify(err) != KindTransport {
		t.Fatalf("Classify = %q, want %q", Classify(err), KindTransport)
	}
	if got := Brief(err); got != "error de red durante GET: connection refused" {
		t.Fatalf("Brief = %q", got)
	}
	if GetContext(err)["url"] != "https://www.instagram.com/alice/" {
		t.Fatalf("unexpected context: %v", GetContext(err))
	}
}

func TestStatusError(t *testing.T) {
	err := NewStatusError("GET", "https://twitter.com/alice", 429)
	if !strings.Contains(Brief(err), "HTTP 429") {
		t.Fatalf("Brief should carry the status, got %q", Brief(err))
	}
	var netErr *NetworkError
	if !errors.As(err, &netErr) || netErr.Status != 429 {
		t.Fatalf("expected NetworkError with status 429, got %#v", netErr)
	}
}

func TestClassifyWrapped(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{nil, KindNone},
		{fmt.Errorf("estrategia: %w", NewDecodeError("json", "{oops", errors.New("unexpected EOF"))), KindDecode},
		{NewShapeError("graphql.user", "ausente"), KindShape},
		{NewValidationError("email", "a@example.com", "dominio denegado"), KindValidation},
		{NewConfigurationError("platforms", "myspace", "plataforma desconocida", "usa --platforms all"), KindConfiguration},
		{errors.New("boom"), KindOther},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Errorf("Classify(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestNewConfigurationError(t *testing.T) {
	err := NewConfigurationError("username", "", "requerido", "Usa --username")

	errMsg := err.Error()
	if !strings.Contains(errMsg, "username") {
		t.Errorf("error message should contain field name, got: %s", errMsg)
	}
	if GetSuggestion(err) != "Usa --username" {
		t.Errorf("unexpected suggestion: %q", GetSuggestion(err))
	}
	if _, ok := GetContext(err)["value"]; ok {
		t.Error("empty value should not be added to context")
	}
}

func TestDecodeErrorTruncatesSample(t *testing.T) {
	sample := strings.Repeat("x", 200)
	err := NewDecodeError("json", sample, errors.New("invalid character"))
	if strings.Contains(err.Error(), sample) {
		t.Fatal("sample should be truncated")
	}
	if !strings.Contains(err.Error(), "...") {
		t.Fatalf("expected ellipsis, got %q", err.Error())
	}
}
