package recorder

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "log.sqlite3"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleInteraction() Interaction {
	return Interaction{
		BuildID:      "build-1",
		Source:       "web",
		Location:     "Washington, DC",
		Days:         []string{"Tuesday", "Wednesday", "Thursday", "Friday"},
		Context:      "TODAY'S FORECAST: sunny",
		SystemPrompt: "You are a helpful weather assistant.",
		Provider:     "primary",
		Model:        "model-a",
		RawResponse:  `{"description":"ok"}`,
		ParsedResult: []byte(`{"description":"ok"}`),
		Success:      true,
	}
}

func TestRecordAndLoad(t *testing.T) {
	store := openTestStore(t)

	id, err := store.Record(sampleInteraction())
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a non-zero id")
	}

	got, err := store.Load(id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := sampleInteraction()
	if got.BuildID != want.BuildID || got.Source != want.Source ||
		got.Location != want.Location || got.Context != want.Context ||
		got.SystemPrompt != want.SystemPrompt || got.Provider != want.Provider ||
		got.Model != want.Model || got.RawResponse != want.RawResponse {
		t.Errorf("loaded record differs: %+v", got)
	}
	if !got.Success {
		t.Error("success flag lost")
	}
	if len(got.Days) != 4 || got.Days[0] != "Tuesday" || got.Days[3] != "Friday" {
		t.Errorf("days = %v", got.Days)
	}
	if string(got.ParsedResult) != string(want.ParsedResult) {
		t.Errorf("parsed result = %q", got.ParsedResult)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at not set on insert")
	}
}

func TestRecordFailedAttempt(t *testing.T) {
	store := openTestStore(t)

	rec := sampleInteraction()
	rec.Success = false
	rec.ParsedResult = nil
	rec.RawResponse = "upstream said no"

	id, err := store.Record(rec)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := store.Load(id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Success {
		t.Error("failed attempt loaded as success")
	}
	if got.ParsedResult != nil {
		t.Errorf("parsed result should stay nil, got %q", got.ParsedResult)
	}
}

func TestRecordPreservesCreatedAt(t *testing.T) {
	store := openTestStore(t)

	rec := sampleInteraction()
	rec.CreatedAt = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	id, err := store.Record(rec)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	got, err := store.Load(id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, rec.CreatedAt)
	}
}

func TestLoadUnknownID(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Load(9999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIDsIncrement(t *testing.T) {
	store := openTestStore(t)

	first, err := store.Record(sampleInteraction())
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	second, err := store.Record(sampleInteraction())
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if second <= first {
		t.Errorf("ids not increasing: %d then %d", first, second)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.sqlite3")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	id, err := store.Record(sampleInteraction())
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	store.Close()

	// Reopening must keep existing rows readable.
	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer store.Close()
	if _, err := store.Load(id); err != nil {
		t.Fatalf("Load after reopen failed: %v", err)
	}
}
