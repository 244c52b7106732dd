package publish

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/crossship/crossship/internal/artifact"
)

// TransportError indicates a network or authentication failure while
// talking to the release endpoint.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("upload to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NoArtifactError indicates the artifact glob matched no files at publish
// time. This is surfaced, never skipped: it means packaging upstream
// produced nothing.
type NoArtifactError struct {
	Pattern string
}

func (e *NoArtifactError) Error() string {
	return fmt.Sprintf("no artifact files match %q (packaging produced nothing?)", e.Pattern)
}

// Publisher uploads release artifacts to a release endpoint.
type Publisher struct {
	endpoint     string
	client       *http.Client
	showProgress bool
}

// NewPublisher creates a publisher for the given release endpoint base URL.
func NewPublisher(endpoint string, showProgress bool) *Publisher {
	return &Publisher{
		endpoint:     endpoint,
		client:       &http.Client{Timeout: 10 * time.Minute},
		showProgress: showProgress,
	}
}

// Publish uploads every file the artifact glob expands to, to the release
// identified by the artifact's tag. All matches are uploaded; zero matches
// is a NoArtifactError.
func (p *Publisher) Publish(ctx context.Context, art artifact.Artifact, cred Credential) error {
	if cred.Empty() {
		return fmt.Errorf("no credential resolved for upload")
	}

	files, err := art.Expand()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return &NoArtifactError{Pattern: art.PathPattern}
	}

	for _, file := range files {
		if err := p.uploadFile(ctx, art.Tag, file, cred); err != nil {
			return err
		}
	}
	return nil
}

// uploadFile streams one archive to the release endpoint.
func (p *Publisher) uploadFile(ctx context.Context, tag, path string, cred Credential) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat artifact: %w", err)
	}

	uploadURL := fmt.Sprintf("%s/releases/%s/assets?name=%s",
		p.endpoint, url.PathEscape(tag), url.QueryEscape(filepath.Base(path)))

	var body io.Reader = f
	if p.showProgress {
		bar := progressbar.DefaultBytes(info.Size(), fmt.Sprintf("Uploading %s", filepath.Base(path)))
		body = io.TeeReader(f, bar)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, body)
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "application/octet-stream")
	cred.authorize(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return &TransportError{URL: uploadURL, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{URL: uploadURL, Err: fmt.Errorf("endpoint returned %s", resp.Status)}
	}
	return nil
}
