package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCodeForStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		want   Code
	}{
		{http.StatusBadRequest, CodeValidation},
		{http.StatusUnprocessableEntity, CodeValidation},
		{http.StatusUnauthorized, CodeUnauthorized},
		{http.StatusForbidden, CodeForbidden},
		{http.StatusNotFound, CodeNotFound},
		{http.StatusConflict, CodeConflict},
		{http.StatusInternalServerError, CodeDependency},
		{http.StatusBadGateway, CodeDependency},
		{http.StatusTeapot, CodeInternal},
	}

	for _, tc := range cases {
		if got := CodeForStatus(tc.status); got != tc.want {
			t.Fatalf("status %d: expected %s, got %s", tc.status, tc.want, got)
		}
	}
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := stdErrors.New("connection refused")
	err := Wrap(CodeTransport, cause, "request failed")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to survive errors.Is")
	}
	if err.Code() != CodeTransport {
		t.Fatalf("unexpected code %s", err.Code())
	}
	if err.Error() != "TRANSPORT_ERROR: request failed" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestAsUnwrapsThroughFmtErrorf(t *testing.T) {
	t.Parallel()

	inner := New(CodeNotInCart, "ce produit n'est pas dans votre panier")
	outer := fmt.Errorf("remove item: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeNotInCart {
		t.Fatalf("unexpected code %s", typed.Code())
	}
}

func TestCodeOfUntypedError(t *testing.T) {
	t.Parallel()

	if got := CodeOf(stdErrors.New("boom")); got != CodeInternal {
		t.Fatalf("expected internal, got %s", got)
	}
	if got := CodeOf(New(CodeUnauthorized, "no token")); got != CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %s", got)
	}
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	if Retryable(CodeValidation) {
		t.Fatal("validation failures are not retryable")
	}
	if !Retryable(CodeTransport) {
		t.Fatal("transport failures are retryable")
	}
}
