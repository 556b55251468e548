package blastchill

import "time"

// Status values a batch can carry. Closed batches report the verdict stamped
// on their END record at write time; the reconciler never rescores.
const (
	StatusOK         = "OK"
	StatusOutOfRange = "OUT_OF_RANGE"
	StatusInProgress = "IN_PROGRESS"
)

// EventKind marks an event's role in a batch.
type EventKind string

const (
	KindStart EventKind = "START"
	KindEnd   EventKind = "END"
)

// Event is one blast-chill log row projected for reconciliation.
type Event struct {
	RecordID string
	Kind     EventKind
	BatchID  string
	FoodName string
	LoggedAt time.Time
	TempC    *float64
	Notes    string
	Status   string
	UserID   string
}

// Batch is one blast-chilling cycle, reconstructed at read time from START
// and END events. It is never persisted.
type Batch struct {
	// BatchID is the correlation key; synthetic (food name + record id) for
	// legacy events that carry none.
	BatchID  string
	FoodName string

	// Legacy marks a batch whose events carry no explicit batch id and were
	// matched by food name, which is ambiguous under concurrent same-named
	// batches.
	Legacy bool

	StartRecordID string
	StartAt       *time.Time
	StartTempC    *float64
	StartUserID   string

	EndRecordID string
	EndAt       *time.Time
	EndTempC    *float64
	EndUserID   string

	// Minutes is defined only when both boundaries are known and the END is
	// not before the START.
	Minutes *int

	Status string
	Notes  string
}

// Open reports whether the batch has no END yet.
func (b Batch) Open() bool {
	return b.EndAt == nil
}
