package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormattingIncludesFieldsAndCause(t *testing.T) {
	err := New(
		"pool/spawn",
		CodeHost,
		WithMessage("host create failed"),
		WithFields(map[string]string{
			"template": "tpl-1",
			"parent":   "root",
		}),
		WithField("scene", "0"),
		WithRemediation("check the template is still registered"),
		WithCause(errors.New("template missing")),
	)

	out := err.Error()
	if !strings.Contains(out, "component=pool/spawn") {
		t.Fatalf("expected component marker in error string: %s", out)
	}
	if !strings.Contains(out, "code=host") {
		t.Fatalf("expected code in error string: %s", out)
	}
	expectedFields := "fields=parent=\"root\",scene=\"0\",template=\"tpl-1\""
	if !strings.Contains(out, expectedFields) {
		t.Fatalf("expected fields %q in error string: %s", expectedFields, out)
	}
	if !strings.Contains(out, "remediation=\"check the template is still registered\"") {
		t.Fatalf("expected remediation in error string: %s", out)
	}
	if !strings.Contains(out, "cause=\"template missing\"") {
		t.Fatalf("expected wrapped cause in error string: %s", out)
	}
}

func TestEmptyFieldKeyIgnored(t *testing.T) {
	err := New("pool", CodeInvalid, WithField("  ", "value"))
	if len(err.Fields) != 0 {
		t.Fatalf("expected blank keys to be dropped, got %v", err.Fields)
	}
}

func TestUnwrapAndIs(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("wrapped: %w", New("pool/destroy", CodeHost, WithCause(cause)))
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable through Unwrap")
	}
	if !Is(err, CodeHost) {
		t.Fatal("expected Is to match host code")
	}
	if Is(err, CodeNotFound) {
		t.Fatal("expected Is to reject mismatched code")
	}
	if Is(cause, CodeHost) {
		t.Fatal("expected Is to reject plain errors")
	}
}

func TestNilErrorString(t *testing.T) {
	var e *E
	if got := e.Error(); got != "<nil>" {
		t.Fatalf("expected <nil> string for nil error, got %q", got)
	}
}

func TestIsSearchesJoinedEnvelopes(t *testing.T) {
	joined := errors.Join(
		New("pool/destroy", CodeInvalid),
		fmt.Errorf("teardown: %w", New("pool/destroy", CodeHost)),
	)
	if !Is(joined, CodeHost) {
		t.Fatal("expected Is to find the host envelope behind the first joined error")
	}
	if !Is(fmt.Errorf("outer: %w", joined), CodeInvalid) {
		t.Fatal("expected Is to find the invalid envelope through a wrapped join")
	}
	if Is(joined, CodeNotFound) {
		t.Fatal("expected Is to reject codes absent from every envelope")
	}
	if Is(nil, CodeHost) {
		t.Fatal("expected Is to reject nil")
	}
}
