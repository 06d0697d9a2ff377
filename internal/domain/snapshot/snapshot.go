// internal/domain/snapshot/snapshot.go
package snapshot

import (
	"encoding/json"
	"time"
)

// DateLayout is the YYYY-MM-DD form used in request URLs and file names.
const DateLayout = "2006-01-02"

// Snapshot is the State of the Parties document returned by the API for a single date.
// Payload is kept as received; nothing inside it is inspected.
type Snapshot struct {
	Date      time.Time       // Always the 1st of a month
	Payload   json.RawMessage // Raw JSON body
	FetchedAt time.Time
}

// DateString returns the snapshot date formatted as YYYY-MM-DD.
func (s *Snapshot) DateString() string {
	return s.Date.Format(DateLayout)
}

// RunSummary aggregates the outcome of one full pass over the configured range.
type RunSummary struct {
	ID         int64 // SERIAL in DB, zero until recorded
	StartDate  time.Time
	EndDate    time.Time
	Months     int
	Successes  int
	Failures   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Attempted returns how many dates were tried during the run.
func (s *RunSummary) Attempted() int {
	return s.Successes + s.Failures
}
