// Package models holds the persisted records of the assistant's
// analysis history.
package models

import "time"

// CycleRun is one completed (or failed) analysis cycle.
type CycleRun struct {
	ID         string `gorm:"primaryKey;size:36"`
	Trigger    string `gorm:"size:16;not null;index"` // "schedule" or "manual"
	StartedAt  time.Time
	FinishedAt time.Time
	Processed  int
	AutoSent   int
	Drafted    int
	Skipped    int
	Error      string `gorm:"type:text"`
}
