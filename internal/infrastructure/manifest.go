package infrastructure

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/excreal/soaper-dl-v8/internal/domain"
	"go.uber.org/zap"
)

// ManifestResolver fetches a playlist document and turns it into the
// ordered segment sequence. Line order in the document IS the sequence
// index; everything downstream depends on that contract.
type ManifestResolver struct {
	client *http.Client
	logger *zap.Logger
}

// NewManifestResolver creates a new manifest resolver
func NewManifestResolver(client *http.Client, logger *zap.Logger) *ManifestResolver {
	return &ManifestResolver{
		client: client,
		logger: logger,
	}
}

// Resolve fetches manifestURL and parses it into segment descriptors.
// Relative references are resolved against the manifest's own base URL.
func (r *ManifestResolver) Resolve(ctx context.Context, manifestURL string) ([]domain.SegmentDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return nil, &domain.ManifestError{URL: manifestURL, Err: err}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &domain.ManifestError{URL: manifestURL, Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.ManifestError{URL: manifestURL, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	base, err := baseOf(manifestURL)
	if err != nil {
		return nil, &domain.ManifestError{URL: manifestURL, Err: err}
	}

	var segments []domain.SegmentDescriptor
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		src := line
		if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
			src = base + line
		}

		segments = append(segments, domain.SegmentDescriptor{
			SequenceIndex: len(segments),
			SourceURL:     src,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, &domain.ManifestError{URL: manifestURL, Retryable: true, Err: err}
	}

	if len(segments) == 0 {
		return nil, &domain.ManifestError{URL: manifestURL, Err: fmt.Errorf("manifest yielded no segment references")}
	}

	r.logger.Info("Manifest resolved",
		zap.String("url", manifestURL),
		zap.Int("segments", len(segments)))

	return segments, nil
}

// baseOf strips the final path component of a manifest URL, leaving the
// base every relative segment reference resolves against.
func baseOf(manifestURL string) (string, error) {
	u, err := url.Parse(manifestURL)
	if err != nil {
		return "", fmt.Errorf("parsing manifest url: %w", err)
	}
	u.Path = path.Dir(u.Path)
	u.RawQuery = ""
	return u.String() + "/", nil
}
