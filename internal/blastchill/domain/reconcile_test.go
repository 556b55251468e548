package blastchill

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

func startEvent(recordID, batchID, food string, at time.Time, tempC float64) Event {
	return Event{
		RecordID: recordID,
		Kind:     KindStart,
		BatchID:  batchID,
		FoodName: food,
		LoggedAt: at,
		TempC:    &tempC,
		UserID:   "user-start",
	}
}

func endEvent(recordID, batchID, food string, at time.Time, tempC float64, status string) Event {
	return Event{
		RecordID: recordID,
		Kind:     KindEnd,
		BatchID:  batchID,
		FoodName: food,
		LoggedAt: at,
		TempC:    &tempC,
		Status:   status,
		UserID:   "user-end",
	}
}

func TestReconcile_PairsByBatchID(t *testing.T) {
	events := []Event{
		startEvent("r1", "bc1", "Lasagne", t0, 65),
		endEvent("r2", "bc1", "Lasagne", t0.Add(40*time.Minute), 3, StatusOK),
	}

	batches := Reconcile(events)
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	b := batches[0]
	if b.Open() {
		t.Fatal("expected closed batch")
	}
	if b.BatchID != "bc1" {
		t.Fatalf("expected batch id bc1, got %s", b.BatchID)
	}
	if b.Minutes == nil || *b.Minutes != 40 {
		t.Fatalf("expected 40 minutes, got %v", b.Minutes)
	}
	if b.Status != StatusOK {
		t.Fatalf("expected persisted status OK, got %s", b.Status)
	}
	if b.StartUserID != "user-start" || b.EndUserID != "user-end" {
		t.Fatalf("user identities not carried: %q %q", b.StartUserID, b.EndUserID)
	}
}

func TestReconcile_UnmatchedEndIsPreserved(t *testing.T) {
	events := []Event{
		endEvent("r9", "bc-missing", "Soup", t0, 4, StatusOK),
	}

	batches := Reconcile(events)
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	b := batches[0]
	if b.StartAt != nil || b.StartTempC != nil {
		t.Fatal("expected nil start fields for unmatched END")
	}
	if b.EndAt == nil {
		t.Fatal("expected end fields set")
	}
	if b.Minutes != nil {
		t.Fatalf("expected nil minutes, got %d", *b.Minutes)
	}
}

func TestReconcile_UnmatchedStartIsOpen(t *testing.T) {
	events := []Event{
		startEvent("r1", "bc2", "Soup", t0, 70),
	}

	batches := Reconcile(events)
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	b := batches[0]
	if !b.Open() {
		t.Fatal("expected open batch")
	}
	if b.Status != StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", b.Status)
	}
	if b.Minutes != nil {
		t.Fatal("expected nil minutes for open batch")
	}
}

func TestReconcile_LegacyNameFallback(t *testing.T) {
	events := []Event{
		startEvent("r1", "", "Stew", t0, 68),
		endEvent("r2", "", "Stew", t0.Add(55*time.Minute), 4, StatusOK),
	}

	batches := Reconcile(events)
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	b := batches[0]
	if !b.Legacy {
		t.Fatal("expected legacy marker on name-matched batch")
	}
	if b.Minutes == nil || *b.Minutes != 55 {
		t.Fatalf("expected 55 minutes, got %v", b.Minutes)
	}
}

func TestReconcile_EndWithUnknownBatchIDFallsBackToName(t *testing.T) {
	events := []Event{
		startEvent("r1", "", "Pie", t0, 70),
		endEvent("r2", "bc-typo", "Pie", t0.Add(30*time.Minute), 3, StatusOK),
	}

	batches := Reconcile(events)
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	if batches[0].StartAt == nil {
		t.Fatal("expected END to fall back to name matching")
	}
}

func TestReconcile_DeterministicAcrossInputOrder(t *testing.T) {
	forward := []Event{
		startEvent("r1", "bc1", "Lasagne", t0, 65),
		endEvent("r2", "bc1", "Lasagne", t0.Add(40*time.Minute), 3, StatusOK),
		startEvent("r3", "bc2", "Soup", t0.Add(5*time.Minute), 70),
		startEvent("r4", "", "Stew", t0.Add(10*time.Minute), 68),
	}
	reversed := []Event{forward[3], forward[2], forward[1], forward[0]}

	a := Reconcile(forward)
	b := Reconcile(reversed)
	if len(a) != len(b) {
		t.Fatalf("batch counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].BatchID != b[i].BatchID || a[i].Status != b[i].Status {
			t.Fatalf("batch %d differs across input order: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestReconcile_EveryEventRepresented(t *testing.T) {
	events := []Event{
		startEvent("r1", "bc1", "Lasagne", t0, 65),
		startEvent("r2", "bc1", "Lasagne", t0.Add(2*time.Minute), 64), // displaces r1
		endEvent("r3", "bc1", "Lasagne", t0.Add(45*time.Minute), 3, StatusOK),
		endEvent("r4", "bc-none", "Custard", t0.Add(50*time.Minute), 5, StatusOutOfRange),
	}

	batches := Reconcile(events)

	seen := make(map[string]bool)
	for _, b := range batches {
		if b.StartRecordID != "" {
			seen[b.StartRecordID] = true
		}
		if b.EndRecordID != "" {
			seen[b.EndRecordID] = true
		}
	}
	for _, e := range events {
		if !seen[e.RecordID] {
			t.Fatalf("event %s not represented in any batch", e.RecordID)
		}
	}
}

func TestReconcile_LastStartWinsOnDuplicateKey(t *testing.T) {
	events := []Event{
		startEvent("r1", "bc1", "Lasagne", t0, 65),
		startEvent("r2", "bc1", "Lasagne", t0.Add(2*time.Minute), 60),
		endEvent("r3", "bc1", "Lasagne", t0.Add(42*time.Minute), 3, StatusOK),
	}

	batches := Reconcile(events)
	if len(batches) != 2 {
		t.Fatalf("expected closed batch + displaced open batch, got %d", len(batches))
	}

	var closed *Batch
	for i := range batches {
		if !batches[i].Open() {
			closed = &batches[i]
		}
	}
	if closed == nil {
		t.Fatal("expected a closed batch")
	}
	if closed.StartRecordID != "r2" {
		t.Fatalf("expected END to pair with latest START r2, got %s", closed.StartRecordID)
	}
	if closed.Minutes == nil || *closed.Minutes != 40 {
		t.Fatalf("expected 40 minutes from r2, got %v", closed.Minutes)
	}
}

func TestReconcile_SortsNewestFirst(t *testing.T) {
	events := []Event{
		startEvent("r1", "bc1", "Lasagne", t0, 65),
		endEvent("r2", "bc1", "Lasagne", t0.Add(40*time.Minute), 3, StatusOK),
		startEvent("r3", "bc2", "Soup", t0.Add(90*time.Minute), 70),
		startEvent("r4", "bc3", "Stew", t0.Add(20*time.Minute), 68),
		endEvent("r5", "bc3", "Stew", t0.Add(95*time.Minute), 2, StatusOK),
	}

	batches := Reconcile(events)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	// bc3 ends at +95m, bc2 opens at +90m, bc1 ends at +40m.
	if batches[0].BatchID != "bc3" || batches[1].BatchID != "bc2" || batches[2].BatchID != "bc1" {
		t.Fatalf("unexpected order: %s, %s, %s", batches[0].BatchID, batches[1].BatchID, batches[2].BatchID)
	}
}

func TestReconcile_NegativeDurationHasNilMinutes(t *testing.T) {
	events := []Event{
		startEvent("r1", "bc1", "Lasagne", t0, 65),
		endEvent("r2", "bc1", "Lasagne", t0.Add(-10*time.Minute), 3, StatusOutOfRange),
	}

	batches := Reconcile(events)
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	if batches[0].Minutes != nil {
		t.Fatalf("expected nil minutes for END before START, got %d", *batches[0].Minutes)
	}
}

func TestVerdict_Boundaries(t *testing.T) {
	thresholds := Thresholds{TargetTenthC: 50, MaxMinutes: 90}

	cases := []struct {
		name    string
		tempC   float64
		minutes int
		want    string
	}{
		{"at both limits", 5.0, 90, StatusOK},
		{"temp just over", 5.1, 90, StatusOutOfRange},
		{"time just over", 5.0, 91, StatusOutOfRange},
		{"well within", 2.5, 40, StatusOK},
		{"negative elapsed", 3.0, -1, StatusOutOfRange},
		{"zero elapsed", 3.0, 0, StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Verdict(tc.tempC, tc.minutes, thresholds); got != tc.want {
				t.Fatalf("Verdict(%v, %d) = %s, want %s", tc.tempC, tc.minutes, got, tc.want)
			}
		})
	}
}

func TestElapsedMinutes_Rounds(t *testing.T) {
	if got := ElapsedMinutes(t0, t0.Add(40*time.Minute+29*time.Second)); got != 40 {
		t.Fatalf("expected 40, got %d", got)
	}
	if got := ElapsedMinutes(t0, t0.Add(40*time.Minute+30*time.Second)); got != 41 {
		t.Fatalf("expected 41, got %d", got)
	}
}
