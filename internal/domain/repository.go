package domain

// HistoryRepository defines the interface for retrieval-record persistence
type HistoryRepository interface {
	// Create creates a new retrieval record
	Create(record *RetrievalRecord) error

	// Update updates an existing retrieval record
	Update(record *RetrievalRecord) error

	// FindByID finds a retrieval record by ID
	FindByID(id string) (*RetrievalRecord, error)

	// FindRecent returns the most recent records, newest first
	FindRecent(limit int) ([]*RetrievalRecord, error)

	// GetStats returns retrieval statistics
	GetStats() (*RetrievalStats, error)
}

// CatalogRepository defines the interface for the search-result and
// episode-list bookkeeping the CLI leans on between invocations
type CatalogRepository interface {
	// UpsertTitles inserts or refreshes search results
	UpsertTitles(titles []*Title) error

	// FindTitle looks up a title by its page path
	FindTitle(pagePath string) (*Title, error)

	// ReplaceEpisodes replaces the stored episode list of a series
	ReplaceEpisodes(seriesPath string, episodes []*Episode) error

	// FindEpisode maps a (season, number) pair to its episode record
	FindEpisode(seriesPath string, season, number int) (*Episode, error)

	// ListEpisodes returns a series' episodes ordered by season and number
	ListEpisodes(seriesPath string) ([]*Episode, error)
}

// RetrievalStats represents retrieval statistics
type RetrievalStats struct {
	Total      int64 `json:"total"`
	Queued     int64 `json:"queued"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}
