package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/excreal/soaper-dl-v8/internal/domain"
	"go.uber.org/zap"
)

// MediaLocator exchanges a page identifier for playback URLs. The site
// answers a form-encoded POST on a fixed resolver endpoint with a JSON
// body naming the manifest path, a fallback path and the subtitle tracks.
type MediaLocator struct {
	site   *domain.SiteConfig
	sub    *domain.SubtitleConfig
	client *http.Client
	logger *zap.Logger
}

// resolverResponse is the wire shape of the token-exchange reply
type resolverResponse struct {
	Val    string `json:"val"`
	ValBak string `json:"val_bak"`
	Subs   []struct {
		Name string `json:"name"`
		Path string `json:"path"`
	} `json:"subs"`
}

// NewMediaLocator creates a new media locator
func NewMediaLocator(site *domain.SiteConfig, sub *domain.SubtitleConfig, client *http.Client, logger *zap.Logger) *MediaLocator {
	return &MediaLocator{
		site:   site,
		sub:    sub,
		client: client,
		logger: logger,
	}
}

// PassToken derives the opaque resolver token from a page identifier.
// Pages look like "/episode_4056319.html"; the token is whatever sits
// between the last underscore and the ".html" suffix.
func PassToken(pageID string) string {
	token := pageID
	if i := strings.LastIndex(token, "_"); i >= 0 {
		token = token[i+1:]
	}
	return strings.TrimSuffix(token, ".html")
}

// Resolve performs the token exchange and returns the playback URLs.
// The subtitle URL is empty when no track matches the configured language;
// that is not an error.
func (l *MediaLocator) Resolve(ctx context.Context, ref domain.MediaReference) (*domain.PlaybackInfo, error) {
	endpoint := l.site.BaseURL + l.site.EpisodeResolverPath
	if ref.IsMovie {
		endpoint = l.site.BaseURL + l.site.MovieResolverPath
	}

	form := url.Values{"pass": {PassToken(ref.PageID)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &domain.ResolutionError{PageID: ref.PageID, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", l.site.BaseURL+ref.PageID)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &domain.ResolutionError{PageID: ref.PageID, Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.ResolutionError{
			PageID: ref.PageID,
			Err:    fmt.Errorf("resolver returned status %d", resp.StatusCode),
		}
	}

	var body resolverResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &domain.ResolutionError{PageID: ref.PageID, Err: fmt.Errorf("decoding resolver response: %w", err)}
	}

	manifestPath := body.Val
	if !strings.HasSuffix(manifestPath, ".m3u8") {
		l.logger.Debug("Primary path is not a manifest, using fallback",
			zap.String("val", body.Val),
			zap.String("val_bak", body.ValBak))
		manifestPath = body.ValBak
	}
	if manifestPath == "" {
		return nil, &domain.ResolutionError{PageID: ref.PageID, Err: fmt.Errorf("resolver returned no manifest path")}
	}

	info := &domain.PlaybackInfo{
		ManifestURL: l.site.BaseURL + manifestPath,
		SubtitleURL: l.pickSubtitle(body),
	}

	l.logger.Info("Resolved playback",
		zap.String("page", ref.PageID),
		zap.String("manifest", info.ManifestURL),
		zap.Bool("subtitle", info.SubtitleURL != ""))

	return info, nil
}

// pickSubtitle selects the first track whose name contains the configured
// language code. Subtitle paths on this site carry literal spaces and
// bracketed release tags; spaces get percent-encoded and brackets
// backslash-escaped the way the origin expects them.
func (l *MediaLocator) pickSubtitle(body resolverResponse) string {
	lang := strings.ToLower(l.sub.Language)
	if lang == "" {
		return ""
	}

	for _, s := range body.Subs {
		if !strings.Contains(strings.ToLower(s.Name), lang) {
			continue
		}
		path := s.Path
		path = strings.ReplaceAll(path, "[", `\[`)
		path = strings.ReplaceAll(path, "]", `\]`)
		path = strings.ReplaceAll(path, " ", "%20")
		return l.site.BaseURL + path
	}

	return ""
}
