package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hipnotiq/revisor/internal/store"
	"github.com/hipnotiq/revisor/internal/store/postgres"
	"github.com/hipnotiq/revisor/pkg/retry"
	"github.com/hipnotiq/revisor/pkg/script"
)

// testDSN returns the test database DSN from the environment, or skips the
// test if REVISOR_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("REVISOR_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("REVISOR_TEST_POSTGRES_DSN not set — skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore creates a fresh [postgres.Store] with a clean schema.
// It calls t.Cleanup to close the store when the test finishes.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	cleanPool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("open clean pool: %v", err)
	}
	t.Cleanup(cleanPool.Close)
	for _, table := range []string{"submissions", "audio_requests"} {
		if _, err := cleanPool.Exec(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			t.Fatalf("drop %s: %v", table, err)
		}
	}

	st, err := postgres.New(ctx, dsn)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(st.Close)
	return st
}

func TestStore_RequestRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	req := store.Request{
		ID:     "req-1",
		Title:  "Sueño profundo",
		Status: "transcribed",
		Sections: []script.Section{
			{
				SectionID: 0,
				Texts:     []string{"respira hondo", "cierra los ojos"},
				Audios: []script.Audio{
					{AudioID: 1, Completed: true, Transcription: "respira hondo"},
				},
			},
		},
		FetchedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	if err := st.SaveRequest(ctx, req); err != nil {
		t.Fatalf("SaveRequest: %v", err)
	}

	got, err := st.GetRequest(ctx, "req-1")
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if got.Title != req.Title || got.Status != req.Status {
		t.Errorf("got %+v", got)
	}
	if len(got.Sections) != 1 || len(got.Sections[0].Texts) != 2 {
		t.Fatalf("sections = %+v", got.Sections)
	}
	if got.Sections[0].Audios[0].Transcription != "respira hondo" {
		t.Errorf("transcription = %q", got.Sections[0].Audios[0].Transcription)
	}

	// Upsert replaces.
	req.Status = "reviewed"
	if err := st.SaveRequest(ctx, req); err != nil {
		t.Fatalf("SaveRequest (upsert): %v", err)
	}
	got, _ = st.GetRequest(ctx, "req-1")
	if got.Status != "reviewed" {
		t.Errorf("status after upsert = %q, want reviewed", got.Status)
	}
}

func TestStore_GetRequest_NotFound(t *testing.T) {
	st := newTestStore(t)

	if _, err := st.GetRequest(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_Submissions(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	text := "la luz desciende"
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ids := []string{"sub-a", "sub-b", "sub-c"}
	for i, id := range ids {
		sub := store.Submission{
			ID:        id,
			RequestID: "req-1",
			SessionID: "sess-1",
			Document: retry.Document{Sections: []retry.SectionRetry{
				{SectionID: 1, Texts: []retry.TextRetry{{Index: i, TextToUse: &text}}},
			}},
			SubmittedAt: base.Add(time.Duration(i) * time.Minute),
			Accepted:    i != 1,
			Detail:      map[bool]string{true: "", false: "synthesis cluster unavailable"}[i != 1],
		}
		if err := st.RecordSubmission(ctx, sub); err != nil {
			t.Fatalf("RecordSubmission %s: %v", id, err)
		}
	}

	subs, err := st.Submissions(ctx, "req-1", 0)
	if err != nil {
		t.Fatalf("Submissions: %v", err)
	}
	if len(subs) != 3 {
		t.Fatalf("len = %d, want 3", len(subs))
	}
	if subs[0].ID != "sub-c" || subs[2].ID != "sub-a" {
		t.Errorf("order = [%s %s %s], want newest first", subs[0].ID, subs[1].ID, subs[2].ID)
	}
	if subs[0].SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", subs[0].SessionID)
	}
	if subs[1].Accepted || subs[1].Detail == "" {
		t.Errorf("rejected submission lost its detail: %+v", subs[1])
	}
	if got := subs[0].Document.Sections[0].Texts[0]; got.TextToUse == nil || *got.TextToUse != text {
		t.Errorf("document round trip lost textToUse: %+v", got)
	}

	limited, err := st.Submissions(ctx, "req-1", 1)
	if err != nil {
		t.Fatalf("Submissions (limit): %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "sub-c" {
		t.Errorf("limited = %+v", limited)
	}
}
