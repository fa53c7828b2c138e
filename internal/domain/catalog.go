package domain

import "time"

// Title is one search result: a movie or series page known to the site.
type Title struct {
	PagePath  string    `json:"page_path" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	Kind      MediaKind `json:"kind" gorm:"not null;index"`
	Year      string    `json:"year,omitempty"`
	SeenAt    time.Time `json:"seen_at"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Episode maps a human-facing (season, number) pair to its page path.
// The scraper restores ascending order; Number is 1-based within a season.
type Episode struct {
	ID         uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	SeriesPath string `json:"series_path" gorm:"not null;index:idx_series_episode,unique"`
	Season     int    `json:"season" gorm:"not null;index:idx_series_episode,unique"`
	Number     int    `json:"number" gorm:"not null;index:idx_series_episode,unique"`
	Name       string `json:"name"`
	PagePath   string `json:"page_path" gorm:"not null"`
}
