package service

import (
	"errors"
	"testing"
)

func TestErrorCodeAndMessage(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk full")
	err := persistence("save location", cause)
	if Code(err) != "persistence" {
		t.Fatalf("code = %q", Code(err))
	}
	if !errors.Is(err, cause) || !errors.Is(err, ErrPersistence) {
		t.Fatal("expected error to match both kind and cause")
	}
	if Message(err) != "save location failed" {
		t.Fatalf("message = %q", Message(err))
	}

	if Code(errors.New("plain")) != "" {
		t.Fatal("plain error has a code")
	}
	if Message(errors.New("plain")) != "plain" {
		t.Fatal("plain error message changed")
	}
}
