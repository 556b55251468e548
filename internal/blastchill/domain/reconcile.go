package blastchill

import (
	"math"
	"sort"
	"time"
)

// Reconcile pairs START and END events into batches.
//
// Events are sorted by logged time (record id as tie-break) so pairing is
// deterministic regardless of input order. STARTs wait in two pending maps:
// by batch id when they carry one, by food name otherwise (legacy rows). An
// END consumes the matching pending START, preferring batch id and falling
// back to food name, and closes the batch. An END with no START at all still
// yields a batch with nil start fields: compliance rows are never dropped.
// Whatever STARTs remain at the end are open batches.
//
// A later START silently replaces an unmatched earlier START with the same
// key. That matches the historical write pattern (a re-logged START acts as
// a correction); the displaced START still surfaces as its own open batch so
// no input row disappears from the output.
func Reconcile(events []Event) []Batch {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].LoggedAt.Equal(sorted[j].LoggedAt) {
			return sorted[i].RecordID < sorted[j].RecordID
		}
		return sorted[i].LoggedAt.Before(sorted[j].LoggedAt)
	})

	pendingByBatch := make(map[string]Event)
	pendingByName := make(map[string]Event)
	var displaced []Event
	var batches []Batch

	for _, event := range sorted {
		switch event.Kind {
		case KindStart:
			if event.BatchID != "" {
				if prev, ok := pendingByBatch[event.BatchID]; ok {
					displaced = append(displaced, prev)
				}
				pendingByBatch[event.BatchID] = event
			} else {
				if prev, ok := pendingByName[event.FoodName]; ok {
					displaced = append(displaced, prev)
				}
				pendingByName[event.FoodName] = event
			}
		case KindEnd:
			start, matched := consumeStart(pendingByBatch, pendingByName, event)
			batches = append(batches, closeBatch(start, matched, event))
		}
	}

	for _, start := range pendingByBatch {
		batches = append(batches, openBatch(start))
	}
	for _, start := range pendingByName {
		batches = append(batches, openBatch(start))
	}
	for _, start := range displaced {
		batches = append(batches, openBatch(start))
	}

	sort.SliceStable(batches, func(i, j int) bool {
		ti, tj := sortTime(batches[i]), sortTime(batches[j])
		if ti.Equal(tj) {
			return batches[i].BatchID < batches[j].BatchID
		}
		return ti.After(tj)
	})
	return batches
}

func consumeStart(byBatch, byName map[string]Event, end Event) (Event, bool) {
	if end.BatchID != "" {
		if start, ok := byBatch[end.BatchID]; ok {
			delete(byBatch, end.BatchID)
			return start, true
		}
	}
	if start, ok := byName[end.FoodName]; ok {
		delete(byName, end.FoodName)
		return start, true
	}
	return Event{}, false
}

func closeBatch(start Event, matched bool, end Event) Batch {
	batch := Batch{
		BatchID:     end.BatchID,
		FoodName:    end.FoodName,
		Legacy:      end.BatchID == "",
		EndRecordID: end.RecordID,
		EndAt:       timePtr(end.LoggedAt),
		EndTempC:    end.TempC,
		EndUserID:   end.UserID,
		Status:      end.Status,
		Notes:       end.Notes,
	}
	if batch.BatchID == "" {
		batch.BatchID = syntheticBatchID(end.FoodName, end.RecordID)
	}
	if !matched {
		return batch
	}

	batch.StartRecordID = start.RecordID
	batch.StartAt = timePtr(start.LoggedAt)
	batch.StartTempC = start.TempC
	batch.StartUserID = start.UserID
	if !end.LoggedAt.Before(start.LoggedAt) {
		minutes := ElapsedMinutes(start.LoggedAt, end.LoggedAt)
		batch.Minutes = &minutes
	}
	return batch
}

func openBatch(start Event) Batch {
	batch := Batch{
		BatchID:       start.BatchID,
		FoodName:      start.FoodName,
		Legacy:        start.BatchID == "",
		StartRecordID: start.RecordID,
		StartAt:       timePtr(start.LoggedAt),
		StartTempC:    start.TempC,
		StartUserID:   start.UserID,
		Status:        StatusInProgress,
		Notes:         start.Notes,
	}
	if batch.BatchID == "" {
		batch.BatchID = syntheticBatchID(start.FoodName, start.RecordID)
	}
	return batch
}

// ElapsedMinutes is the chill duration rounded to whole minutes.
func ElapsedMinutes(start, end time.Time) int {
	return int(math.Round(float64(end.Sub(start).Milliseconds()) / 60000))
}

func syntheticBatchID(foodName, recordID string) string {
	return foodName + "#" + recordID
}

func sortTime(b Batch) time.Time {
	if b.EndAt != nil {
		return *b.EndAt
	}
	if b.StartAt != nil {
		return *b.StartAt
	}
	return time.Time{}
}

func timePtr(t time.Time) *time.Time {
	u := t.UTC()
	return &u
}
