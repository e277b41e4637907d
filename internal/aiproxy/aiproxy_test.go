package aiproxy

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/lexdesk/internal/apperr"
)

func TestParseDataURL(t *testing.T) {
	mime, data, err := ParseDataURL("data:image/jpeg;base64,aGVsbG8=")
	if err != nil {
		t.Fatal(err)
	}
	if mime != "image/jpeg" || string(data) != "hello" {
		t.Errorf("got %q %q", mime, data)
	}

	mime, data, err = ParseDataURL("aGVsbG8=")
	if err != nil || mime != "image/png" || string(data) != "hello" {
		t.Errorf("bare payload: %q %q %v", mime, data, err)
	}

	for _, bad := range []string{"data:image/png;base64", "data:image/png;base64,!!!", ""} {
		if _, _, err := ParseDataURL(bad); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("ParseDataURL(%q) = %v", bad, err)
		}
	}
}

func TestNewGemini_MissingKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), "", "", ""); !errors.Is(err, ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey, got %v", err)
	}
}
