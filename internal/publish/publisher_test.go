package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crossship/crossship/internal/artifact"
)

func testCredential(t *testing.T, token string) Credential {
	t.Helper()
	t.Setenv("TEST_PUBLISH_TOKEN", token)
	cred, err := ResolveCredential("TEST_PUBLISH_TOKEN")
	if err != nil {
		t.Fatalf("failed to resolve credential: %v", err)
	}
	return cred
}

func seedArtifact(t *testing.T, dir, name string) artifact.Artifact {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".tar.gz"), []byte("archive-bytes"), 0644); err != nil {
		t.Fatalf("failed to seed artifact: %v", err)
	}
	return artifact.Artifact{
		PathPattern: filepath.Join(dir, name+".*"),
		CrateName:   "codedx-client",
		Tag:         "v1.2.0",
		TargetLabel: "linux_x86_64",
	}
}

func TestPublisher_Publish_UploadsEveryMatch(t *testing.T) {
	dir := t.TempDir()
	art := seedArtifact(t, dir, "codedx-client-v1.2.0-linux_x86_64")
	// Second archive extension for the same logical artifact.
	if err := os.WriteFile(filepath.Join(dir, "codedx-client-v1.2.0-linux_x86_64.zip"), []byte("zip-bytes"), 0644); err != nil {
		t.Fatalf("failed to seed zip: %v", err)
	}

	var uploads []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sekrit" {
			t.Errorf("missing/wrong auth header: %q", got)
		}
		if !strings.HasPrefix(r.URL.Path, "/releases/v1.2.0/assets") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		uploads = append(uploads, r.URL.Query().Get("name"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	p := NewPublisher(srv.URL, false)
	cred := testCredential(t, "sekrit")

	if err := p.Publish(context.Background(), art, cred); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(uploads) != 2 {
		t.Fatalf("expected 2 uploads, got %v", uploads)
	}
}

func TestPublisher_Publish_NoArtifact(t *testing.T) {
	art := artifact.Artifact{
		PathPattern: filepath.Join(t.TempDir(), "missing.*"),
		Tag:         "v1.2.0",
	}

	p := NewPublisher("http://unused.invalid", false)
	err := p.Publish(context.Background(), art, testCredential(t, "x"))

	var noArt *NoArtifactError
	if !errors.As(err, &noArt) {
		t.Fatalf("expected NoArtifactError, got %v", err)
	}
}

func TestPublisher_Publish_TransportErrorOnServerFailure(t *testing.T) {
	dir := t.TempDir()
	art := seedArtifact(t, dir, "codedx-client-v1.2.0-linux_x86_64")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewPublisher(srv.URL, false)
	err := p.Publish(context.Background(), art, testCredential(t, "x"))

	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestPublisher_Publish_RequiresCredential(t *testing.T) {
	dir := t.TempDir()
	art := seedArtifact(t, dir, "codedx-client-v1.2.0-linux_x86_64")

	p := NewPublisher("http://unused.invalid", false)
	if err := p.Publish(context.Background(), art, Credential{}); err == nil {
		t.Fatal("expected error for empty credential")
	}
}

func TestCredential_NeverFormatsToken(t *testing.T) {
	cred := testCredential(t, "super-secret-token")

	for _, rendered := range []string{
		fmt.Sprintf("%v", cred),
		fmt.Sprintf("%s", cred),
		fmt.Sprintf("%#v", cred),
	} {
		if strings.Contains(rendered, "super-secret-token") {
			t.Fatalf("credential leaked through formatting: %q", rendered)
		}
	}
}

func TestResolveCredential_MissingEnv(t *testing.T) {
	t.Setenv("TEST_PUBLISH_TOKEN", "")
	if _, err := ResolveCredential("TEST_PUBLISH_TOKEN"); err == nil {
		t.Fatal("expected error for unset credential variable")
	}
}
