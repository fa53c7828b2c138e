package infrastructure

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/excreal/soaper-dl-v8/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestHistory_CreateAndFind(t *testing.T) {
	repo := newTestRepo(t)

	record := domain.NewRetrievalRecord("/movie_123.html", "Some.Movie", domain.ModeFull)
	require.NoError(t, repo.Create(record))

	found, err := repo.FindByID(record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.PageID, found.PageID)
	assert.Equal(t, domain.StatusQueued, found.Status)
}

func TestHistory_UpdateLifecycle(t *testing.T) {
	repo := newTestRepo(t)

	record := domain.NewRetrievalRecord("/episode_456.html", "Show.S01E02", domain.ModeFull)
	require.NoError(t, repo.Create(record))

	record.MarkProcessing()
	require.NoError(t, repo.Update(record))
	record.MarkCompleted("/out/Show.S01E02.mp4", "")
	require.NoError(t, repo.Update(record))

	found, err := repo.FindByID(record.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, found.Status)
	assert.Equal(t, "/out/Show.S01E02.mp4", found.OutputPath)
	assert.NotNil(t, found.CompletedAt)
}

func TestHistory_FindRecentAndStats(t *testing.T) {
	repo := newTestRepo(t)

	ok := domain.NewRetrievalRecord("/movie_1.html", "A", domain.ModeFull)
	ok.MarkProcessing()
	ok.MarkCompleted("/out/a.mp4", "")
	require.NoError(t, repo.Create(ok))

	bad := domain.NewRetrievalRecord("/movie_2.html", "B", domain.ModeFull)
	bad.MarkFailed(errors.New("no segments retrieved"))
	require.NoError(t, repo.Create(bad))

	records, err := repo.FindRecent(10)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(1), stats.Failed)
}

func TestCatalog_UpsertTitles(t *testing.T) {
	repo := newTestRepo(t)

	titles := []*domain.Title{
		{PagePath: "/movie_1.html", Name: "First", Kind: domain.KindMovie, Year: "2001"},
		{PagePath: "/tv_2.html", Name: "Second", Kind: domain.KindSeries},
	}
	require.NoError(t, repo.UpsertTitles(titles))

	// Re-upserting the same page path refreshes, not duplicates.
	titles[0].Name = "First (Remastered)"
	require.NoError(t, repo.UpsertTitles(titles[:1]))

	found, err := repo.FindTitle("/movie_1.html")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "First (Remastered)", found.Name)

	missing, err := repo.FindTitle("/movie_999.html")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCatalog_EpisodeMapping(t *testing.T) {
	repo := newTestRepo(t)

	episodes := []*domain.Episode{
		{SeriesPath: "/tv_show.html", Season: 1, Number: 1, Name: "Pilot", PagePath: "/episode_101.html"},
		{SeriesPath: "/tv_show.html", Season: 1, Number: 2, Name: "Two", PagePath: "/episode_102.html"},
		{SeriesPath: "/tv_show.html", Season: 2, Number: 1, Name: "Back", PagePath: "/episode_201.html"},
	}
	require.NoError(t, repo.ReplaceEpisodes("/tv_show.html", episodes))

	ep, err := repo.FindEpisode("/tv_show.html", 2, 1)
	require.NoError(t, err)
	require.NotNil(t, ep)
	assert.Equal(t, "/episode_201.html", ep.PagePath)

	none, err := repo.FindEpisode("/tv_show.html", 3, 1)
	require.NoError(t, err)
	assert.Nil(t, none)

	all, err := repo.ListEpisodes("/tv_show.html")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "/episode_101.html", all[0].PagePath)
}

func TestCatalog_ReplaceEpisodesDropsStaleRows(t *testing.T) {
	repo := newTestRepo(t)

	first := []*domain.Episode{
		{SeriesPath: "/tv_show.html", Season: 1, Number: 1, PagePath: "/episode_101.html"},
		{SeriesPath: "/tv_show.html", Season: 1, Number: 2, PagePath: "/episode_old.html"},
	}
	require.NoError(t, repo.ReplaceEpisodes("/tv_show.html", first))

	second := []*domain.Episode{
		{SeriesPath: "/tv_show.html", Season: 1, Number: 1, PagePath: "/episode_101.html"},
		{SeriesPath: "/tv_show.html", Season: 1, Number: 2, PagePath: "/episode_102.html"},
	}
	require.NoError(t, repo.ReplaceEpisodes("/tv_show.html", second))

	ep, err := repo.FindEpisode("/tv_show.html", 1, 2)
	require.NoError(t, err)
	require.NotNil(t, ep)
	assert.Equal(t, "/episode_102.html", ep.PagePath)
}
