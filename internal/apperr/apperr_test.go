package apperr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsMatchesKindSentinels(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindStorage, "store.SaveReport", cause)
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected storage kind match")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("storage error must not match not-found")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to stay reachable")
	}
	wrapped := fmt.Errorf("finalize: %w", err)
	if !errors.Is(wrapped, ErrStorage) {
		t.Fatalf("kind must survive fmt wrapping")
	}
	if got := KindOf(wrapped); got != KindStorage {
		t.Fatalf("KindOf = %q, want %q", got, KindStorage)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(KindIO, "op", nil) != nil {
		t.Fatalf("wrapping nil must return nil")
	}
}

func TestMessageUsesHeadlineAndInnermostCause(t *testing.T) {
	inner := NotFound("store.GetReport", "отчёт с ID %d не найден", 7)
	outer := Wrap(KindNotFound, "archive.GetByID", inner)
	msg := Message(outer)
	if !strings.HasPrefix(msg, "Не найдено") {
		t.Fatalf("unexpected headline: %q", msg)
	}
	if !strings.Contains(msg, "отчёт с ID 7 не найден") {
		t.Fatalf("cause missing from %q", msg)
	}
	if strings.Contains(msg, "store.GetReport") {
		t.Fatalf("op names must not leak into user text: %q", msg)
	}
	if Message(errors.New("plain")) != "plain" {
		t.Fatalf("unclassified errors render as-is")
	}
}
