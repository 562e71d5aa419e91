package domain

import "fmt"

// Settings represents user configurable dashboard options. The blob is
// persisted per user and round-trips unchanged through export and import.
type Settings struct {
	APIBaseURL         string `json:"apiBaseUrl,omitempty"`
	RefreshIntervalSec int    `json:"refreshIntervalSeconds"`
	PageSize           int    `json:"pageSize"`
	ShowPayloads       bool   `json:"showPayloads"`
	AutoPlay           bool   `json:"autoPlay"`
	PlaybackIntervalMs int    `json:"playbackIntervalMs"`
	Theme              string `json:"theme,omitempty"`
}

const (
	minRefreshIntervalSec = 5
	maxPageSize           = 500
	minPlaybackIntervalMs = 100
)

// DefaultSettings returns the settings used before a user has saved any.
func DefaultSettings() Settings {
	return Settings{
		RefreshIntervalSec: 30,
		PageSize:           25,
		ShowPayloads:       true,
		PlaybackIntervalMs: 1000,
		Theme:              "light",
	}
}

// Validate rejects settings a user could only produce by hand-editing an
// imported blob.
func (s Settings) Validate() error {
	if s.RefreshIntervalSec < minRefreshIntervalSec {
		return fmt.Errorf("refreshIntervalSeconds must be at least %d", minRefreshIntervalSec)
	}
	if s.PageSize <= 0 || s.PageSize > maxPageSize {
		return fmt.Errorf("pageSize must be between 1 and %d", maxPageSize)
	}
	if s.PlaybackIntervalMs < minPlaybackIntervalMs {
		return fmt.Errorf("playbackIntervalMs must be at least %d", minPlaybackIntervalMs)
	}
	return nil
}
