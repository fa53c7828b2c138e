package infrastructure

import (
	"fmt"
	"time"

	"github.com/excreal/soaper-dl-v8/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SQLiteRepository implements HistoryRepository and CatalogRepository
// using SQLite
type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository creates a new SQLite repository
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.RetrievalRecord{}, &domain.Title{}, &domain.Episode{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Create creates a new retrieval record
func (r *SQLiteRepository) Create(record *domain.RetrievalRecord) error {
	return r.db.Create(record).Error
}

// Update updates an existing retrieval record
func (r *SQLiteRepository) Update(record *domain.RetrievalRecord) error {
	return r.db.Save(record).Error
}

// FindByID finds a retrieval record by ID
func (r *SQLiteRepository) FindByID(id string) (*domain.RetrievalRecord, error) {
	var record domain.RetrievalRecord
	err := r.db.First(&record, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindRecent returns the most recent retrieval records, newest first
func (r *SQLiteRepository) FindRecent(limit int) ([]*domain.RetrievalRecord, error) {
	var records []*domain.RetrievalRecord
	err := r.db.Order("created_at DESC").Limit(limit).Find(&records).Error
	return records, err
}

// GetStats returns retrieval statistics
func (r *SQLiteRepository) GetStats() (*domain.RetrievalStats, error) {
	stats := &domain.RetrievalStats{}

	if err := r.db.Model(&domain.RetrievalRecord{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	statusCounts := []struct {
		Status domain.RetrievalStatus
		Count  int64
	}{}

	if err := r.db.Model(&domain.RetrievalRecord{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch sc.Status {
		case domain.StatusQueued:
			stats.Queued = sc.Count
		case domain.StatusProcessing:
			stats.Processing = sc.Count
		case domain.StatusCompleted:
			stats.Completed = sc.Count
		case domain.StatusFailed:
			stats.Failed = sc.Count
		}
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ============================================================================
// CatalogRepository implementation
// ============================================================================

// UpsertTitles inserts or refreshes search results
func (r *SQLiteRepository) UpsertTitles(titles []*domain.Title) error {
	if len(titles) == 0 {
		return nil
	}

	now := time.Now()
	for _, t := range titles {
		t.SeenAt = now
	}

	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "page_path"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "kind", "year", "seen_at"}),
	}).Create(&titles).Error
}

// FindTitle looks up a title by its page path
func (r *SQLiteRepository) FindTitle(pagePath string) (*domain.Title, error) {
	var title domain.Title
	err := r.db.First(&title, "page_path = ?", pagePath).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &title, nil
}

// ReplaceEpisodes replaces the stored episode list of a series
func (r *SQLiteRepository) ReplaceEpisodes(seriesPath string, episodes []*domain.Episode) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("series_path = ?", seriesPath).Delete(&domain.Episode{}).Error; err != nil {
			return err
		}
		if len(episodes) == 0 {
			return nil
		}
		return tx.Create(&episodes).Error
	})
}

// FindEpisode maps a (season, number) pair to its episode record.
// Returns nil when the series has no such episode on record.
func (r *SQLiteRepository) FindEpisode(seriesPath string, season, number int) (*domain.Episode, error) {
	var episode domain.Episode
	err := r.db.Where("series_path = ? AND season = ? AND number = ?", seriesPath, season, number).
		First(&episode).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &episode, nil
}

// ListEpisodes returns a series' episodes ordered by season and number
func (r *SQLiteRepository) ListEpisodes(seriesPath string) ([]*domain.Episode, error) {
	var episodes []*domain.Episode
	err := r.db.Where("series_path = ?", seriesPath).
		Order("season ASC, number ASC").
		Find(&episodes).Error
	return episodes, err
}
