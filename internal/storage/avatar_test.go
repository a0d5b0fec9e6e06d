package storage

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestAvatarPath(t *testing.T) {
	userID := uuid.New()

	p, err := AvatarPath(userID, "Photo.PNG")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(p, userID.String()+"/") || !strings.HasSuffix(p, ".png") {
		t.Fatalf("unexpected path %q", p)
	}

	other, _ := AvatarPath(userID, "Photo.PNG")
	if other == p {
		t.Fatal("paths should be unique per upload")
	}

	p, err = AvatarPath(userID, "blob")
	if err != nil || !strings.HasSuffix(p, ".jpg") {
		t.Fatalf("missing extension should default to jpg, got %q %v", p, err)
	}

	if _, err := AvatarPath(userID, "script.sh"); !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage, got %v", err)
	}
}

func TestContentTypeFor(t *testing.T) {
	if got := ContentTypeFor("a/b.png", ""); got != "image/png" {
		t.Fatalf("got %q", got)
	}
	if got := ContentTypeFor("a/b.png", "image/webp"); got != "image/webp" {
		t.Fatalf("declared type should win, got %q", got)
	}
	if got := ContentTypeFor("a/b.bin", "application/octet-stream"); got != "application/octet-stream" {
		t.Fatalf("got %q", got)
	}
}
