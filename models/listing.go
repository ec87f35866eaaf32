package models

import "fmt"

// SnapshotID identifies a snapshot within one run: the 1-based position of
// its listing in the run's link list.
type SnapshotID int

// FileName is the upload name used when the snapshot is sent as a photo
func (id SnapshotID) FileName() string {
	return fmt.Sprintf("listing_%d.png", int(id))
}

// Snapshot is a full-page PNG of one rendered listing, held in memory only
type Snapshot struct {
	ID    SnapshotID
	URL   string
	Image []byte
}

// Outcome describes how a run ended
type Outcome string

const (
	OutcomeNoLinks   Outcome = "no_links"
	OutcomeNoBrowser Outcome = "no_browser"
	OutcomeCompleted Outcome = "completed"
)

// Report summarises one run
type Report struct {
	RunID       string
	Links       []string
	Captured    int
	Delivered   int
	Failed      int
	Discarded   int // snapshots captured but never delivered
	SummarySent bool
	Outcome     Outcome
}
