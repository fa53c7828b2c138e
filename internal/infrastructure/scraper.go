package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/excreal/soaper-dl-v8/internal/domain"
	"go.uber.org/zap"
)

// SiteScraper extracts search results and episode lists from the site's
// HTML. This is plain text extraction; anything stream-related goes
// through the locator instead.
type SiteScraper struct {
	site   *domain.SiteConfig
	client *http.Client
	logger *zap.Logger
}

// NewSiteScraper creates a new site scraper
func NewSiteScraper(site *domain.SiteConfig, client *http.Client, logger *zap.Logger) *SiteScraper {
	return &SiteScraper{
		site:   site,
		client: client,
		logger: logger,
	}
}

var seasonRe = regexp.MustCompile(`Season\s*(\d+)`)

// Search queries the site and returns the result cards as titles.
func (s *SiteScraper) Search(ctx context.Context, query string) ([]*domain.Title, error) {
	searchURL := fmt.Sprintf("%s/search.html?keyword=%s", s.site.BaseURL, url.QueryEscape(query))

	doc, err := s.fetchDocument(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	var titles []*domain.Title
	doc.Find("div.thumbnail").Each(func(_ int, card *goquery.Selection) {
		anchor := card.Find("h5 a").First()
		href, ok := anchor.Attr("href")
		if !ok || href == "" {
			return
		}

		kind := domain.KindSeries
		if strings.HasPrefix(href, "/movie_") {
			kind = domain.KindMovie
		}

		titles = append(titles, &domain.Title{
			PagePath: href,
			Name:     strings.TrimSpace(anchor.Text()),
			Kind:     kind,
			Year:     strings.TrimSpace(card.Find("div.img-tip").First().Text()),
		})
	})

	s.logger.Info("Search complete",
		zap.String("query", query),
		zap.Int("results", len(titles)))

	return titles, nil
}

// Episodes scrapes a series page into episode records. The site lists
// episodes newest first inside each season block; numbering here is
// restored to ascending order so "season 1 episode 1" means what a
// human expects.
func (s *SiteScraper) Episodes(ctx context.Context, seriesPath string) ([]*domain.Episode, error) {
	doc, err := s.fetchDocument(ctx, s.site.BaseURL+seriesPath)
	if err != nil {
		return nil, err
	}

	var episodes []*domain.Episode
	doc.Find("div.alert-info-ex").Each(func(blockIdx int, block *goquery.Selection) {
		season := blockIdx + 1
		if m := seasonRe.FindStringSubmatch(block.Find("h4").First().Text()); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				season = n
			}
		}

		var inSeason []*domain.Episode
		block.Find("a").Each(func(_ int, anchor *goquery.Selection) {
			href, ok := anchor.Attr("href")
			if !ok || !strings.HasPrefix(href, "/episode_") {
				return
			}
			inSeason = append(inSeason, &domain.Episode{
				SeriesPath: seriesPath,
				Season:     season,
				Name:       strings.TrimSpace(anchor.Text()),
				PagePath:   href,
			})
		})

		// Newest first on the page; flip and number from 1.
		for i, j := 0, len(inSeason)-1; i < j; i, j = i+1, j-1 {
			inSeason[i], inSeason[j] = inSeason[j], inSeason[i]
		}
		for i, ep := range inSeason {
			ep.Number = i + 1
		}
		episodes = append(episodes, inSeason...)
	})

	if len(episodes) == 0 {
		return nil, fmt.Errorf("no episodes found at %s", seriesPath)
	}

	return episodes, nil
}

func (s *SiteScraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pageURL, err)
	}
	return doc, nil
}
