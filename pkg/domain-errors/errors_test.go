package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCodeOfWalksWrapChain(t *testing.T) {
	base := New(CodeConflict, "email already used")
	wrapped := fmt.Errorf("create utilisateur: %w", base)

	if CodeOf(wrapped) != CodeConflict {
		t.Fatalf("expected conflict code, got %s", CodeOf(wrapped))
	}
	if !HasCode(wrapped, CodeConflict) {
		t.Fatalf("expected HasCode to see conflict through fmt wrapping")
	}
}

func TestWrapNilReturnsNil(t *testing.T) {
	if err := Wrap(nil, CodePersistence, "should vanish"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodePersistence, "audit insert failed")

	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be reachable via errors.Is")
	}
	if CodeOf(err) != CodePersistence {
		t.Fatalf("expected persistence code, got %s", CodeOf(err))
	}
	if MessageOf(err) != "audit insert failed" {
		t.Fatalf("unexpected message: %s", MessageOf(err))
	}
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeUnauthenticated: http.StatusUnauthorized,
		CodeForbidden:       http.StatusForbidden,
		CodeNotFound:        http.StatusNotFound,
		CodeConflict:        http.StatusConflict,
		CodeValidation:      http.StatusBadRequest,
		CodeTimeout:         http.StatusGatewayTimeout,
		CodePersistence:     http.StatusInternalServerError,
		CodeInternal:        http.StatusInternalServerError,
		Code("unknown"):     http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := ToHTTPStatus(code); got != want {
			t.Errorf("ToHTTPStatus(%s) = %d, want %d", code, got, want)
		}
	}
}
