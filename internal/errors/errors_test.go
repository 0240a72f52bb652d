package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestIsComparesCodes(t *testing.T) {
	err := Newf(CodeUnknownChain, "invalid chain name: %s", "foo")
	wrapped := fmt.Errorf("switch: %w", err)

	if !stdErrors.Is(wrapped, ErrUnknownChain) {
		t.Fatalf("expected %v to match ErrUnknownChain", wrapped)
	}
	if stdErrors.Is(wrapped, ErrConfiguration) {
		t.Fatal("unexpected match against ErrConfiguration")
	}
	if got := CodeOf(wrapped); got != CodeUnknownChain {
		t.Fatalf("unexpected code %s", got)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := Wrap(CodeCacheFailure, cause, "persist balance")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected cause to be reachable")
	}
	if err.Error() != "persist balance: connection refused" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !RetryableError(err) {
		t.Fatal("cache failures should be retryable")
	}
}

func TestDefaultMessageAndAttributes(t *testing.T) {
	err := New(CodeTransactionFailed, "")
	if err.Message() != "transaction failed" {
		t.Fatalf("unexpected default message %q", err.Message())
	}
	if SeverityOf(err) != SeverityWarning {
		t.Fatalf("unexpected severity %s", SeverityOf(err))
	}
	if AttributesOf("NOPE").Message != "unknown error" {
		t.Fatal("unregistered codes should fall back to UNKNOWN")
	}
	if CodeOf(stdErrors.New("plain")) != CodeUnknown {
		t.Fatal("plain errors should map to UNKNOWN")
	}
}

func TestMetadataIsCopied(t *testing.T) {
	err := New(CodeInvalidArgument, "bad amount", WithMetadata("field", "amount"), WithRetryable(true))
	md := err.Metadata()
	md["field"] = "changed"
	if err.Metadata()["field"] != "amount" {
		t.Fatal("metadata should be returned as a copy")
	}
	if !err.Retryable() {
		t.Fatal("retryable override ignored")
	}
}
