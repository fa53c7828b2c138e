package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/excreal/soaper-dl-v8/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const searchFixture = `<html><body>
<div class="thumbnail">
  <div class="img-tip label">2010</div>
  <h5><a href="/movie_tt1375666.html">Inception</a></h5>
</div>
<div class="thumbnail">
  <div class="img-tip label">2008</div>
  <h5><a href="/tv_breaking_bad.html">Breaking Bad</a></h5>
</div>
</body></html>`

const seriesFixture = `<html><body>
<div class="alert alert-info-ex">
  <h4>Season 2</h4>
  <div><a href="/episode_203.html">3. Bit by a Dead Bee</a></div>
  <div><a href="/episode_202.html">2. Grilled</a></div>
  <div><a href="/episode_201.html">1. Seven Thirty-Seven</a></div>
</div>
<div class="alert alert-info-ex">
  <h4>Season 1</h4>
  <div><a href="/episode_102.html">2. Cat's in the Bag...</a></div>
  <div><a href="/episode_101.html">1. Pilot</a></div>
</div>
</body></html>`

func newTestScraper(t *testing.T, html string) (*SiteScraper, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, html)
	}))
	t.Cleanup(server.Close)

	scraper := NewSiteScraper(testSiteConfig(server.URL), server.Client(), zap.NewNop())
	return scraper, server
}

func TestSearch(t *testing.T) {
	scraper, _ := newTestScraper(t, searchFixture)

	titles, err := scraper.Search(context.Background(), "test query")
	require.NoError(t, err)
	require.Len(t, titles, 2)

	assert.Equal(t, "Inception", titles[0].Name)
	assert.Equal(t, "/movie_tt1375666.html", titles[0].PagePath)
	assert.Equal(t, domain.KindMovie, titles[0].Kind)
	assert.Equal(t, "2010", titles[0].Year)

	assert.Equal(t, "Breaking Bad", titles[1].Name)
	assert.Equal(t, domain.KindSeries, titles[1].Kind)
}

func TestEpisodes_OrderRestored(t *testing.T) {
	scraper, _ := newTestScraper(t, seriesFixture)

	episodes, err := scraper.Episodes(context.Background(), "/tv_breaking_bad.html")
	require.NoError(t, err)
	require.Len(t, episodes, 5)

	// Page lists newest first; numbering must come back ascending.
	assert.Equal(t, 2, episodes[0].Season)
	assert.Equal(t, 1, episodes[0].Number)
	assert.Equal(t, "/episode_201.html", episodes[0].PagePath)

	assert.Equal(t, 2, episodes[2].Season)
	assert.Equal(t, 3, episodes[2].Number)
	assert.Equal(t, "/episode_203.html", episodes[2].PagePath)

	assert.Equal(t, 1, episodes[3].Season)
	assert.Equal(t, 1, episodes[3].Number)
	assert.Equal(t, "/episode_101.html", episodes[3].PagePath)

	for _, ep := range episodes {
		assert.Equal(t, "/tv_breaking_bad.html", ep.SeriesPath)
	}
}

func TestEpisodes_NoEpisodes(t *testing.T) {
	scraper, _ := newTestScraper(t, `<html><body><p>nothing here</p></body></html>`)

	_, err := scraper.Episodes(context.Background(), "/tv_empty.html")
	assert.Error(t, err)
}
