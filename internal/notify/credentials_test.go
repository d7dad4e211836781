package notify

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kingrea/reportdesk/internal/apperr"
)

func TestCredentialsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telegram_config.json")
	missing, err := LoadCredentials(path)
	if err != nil || missing.Configured() {
		t.Fatalf("missing file should yield empty credentials: %+v %v", missing, err)
	}

	in := Credentials{BotToken: " 123:abc ", ChatID: "-42"}
	if err := SaveCredentials(path, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := LoadCredentials(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.BotToken != "123:abc" || out.ChatID != "-42" {
		t.Fatalf("unexpected credentials %+v", out)
	}

	if err := SaveCredentials(path, Credentials{BotToken: "9:z", ChatID: "7"}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	out, _ = LoadCredentials(path)
	if out.BotToken != "9:z" || out.ChatID != "7" {
		t.Fatalf("file not replaced: %+v", out)
	}
}

func TestLoadCredentialsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telegram_config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCredentials(path); !errors.Is(err, apperr.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestValidateCredentials(t *testing.T) {
	cases := []struct {
		token, chat string
		ok          bool
	}{
		{"123456789:ABCdef", "123456789", true},
		{"123456789:ABCdef", "-100123", true},
		{"", "1", false},
		{"123:abc", "", false},
		{"no-colon", "1", false},
		{"123:abc", "@channel", false},
		{"123:abc", "-", false},
		{"123:abc", "--123", false},
		{"123:abc", "1-23", false},
		{"123:abc", "12a", false},
	}
	for _, tc := range cases {
		err := ValidateCredentials(tc.token, tc.chat)
		if tc.ok && err != nil {
			t.Fatalf("ValidateCredentials(%q, %q): %v", tc.token, tc.chat, err)
		}
		if !tc.ok && !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("ValidateCredentials(%q, %q) expected validation error, got %v", tc.token, tc.chat, err)
		}
	}
}
