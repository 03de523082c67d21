package runtime

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsNotFound(t *testing.T) {
	base := &NotFoundError{ID: "web-1"}

	if !IsNotFound(base) {
		t.Error("expected IsNotFound to match a NotFoundError")
	}
	if !IsNotFound(fmt.Errorf("failed to query state: %w", base)) {
		t.Error("expected IsNotFound to match a wrapped NotFoundError")
	}
	if IsNotFound(errors.New("something else")) {
		t.Error("expected IsNotFound to reject unrelated errors")
	}
	if IsNotFound(nil) {
		t.Error("expected IsNotFound to reject nil")
	}
}

func TestIsTimeout(t *testing.T) {
	base := &TimeoutError{Command: "runc state web-1"}

	if !IsTimeout(base) {
		t.Error("expected IsTimeout to match a TimeoutError")
	}
	if !IsTimeout(fmt.Errorf("stop failed: %w", base)) {
		t.Error("expected IsTimeout to match a wrapped TimeoutError")
	}
	if IsTimeout(&NotFoundError{ID: "web-1"}) {
		t.Error("expected IsTimeout to reject other typed errors")
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&NotFoundError{ID: "web-1"}, "container not found: web-1"},
		{&CommandError{Command: "create", Stderr: "boom"}, "runtime command failed: create: boom"},
		{&TimeoutError{Command: "runc state web-1"}, "command timed out: runc state web-1"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
