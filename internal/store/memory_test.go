package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hipnotiq/revisor/internal/store"
	"github.com/hipnotiq/revisor/pkg/retry"
	"github.com/hipnotiq/revisor/pkg/script"
)

func TestMemory_SaveAndGetRequest(t *testing.T) {
	t.Parallel()

	m := store.NewMemory()
	ctx := context.Background()

	req := store.Request{
		ID:     "req-1",
		Title:  "Relajación nocturna",
		Status: "transcribed",
		Sections: []script.Section{
			{SectionID: 0, Texts: []string{"uno", "dos"}},
		},
		FetchedAt: time.Now(),
	}
	if err := m.SaveRequest(ctx, req); err != nil {
		t.Fatalf("SaveRequest: %v", err)
	}

	got, err := m.GetRequest(ctx, "req-1")
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if got.Title != req.Title || len(got.Sections) != 1 {
		t.Errorf("GetRequest = %+v", got)
	}

	// Saving again replaces the snapshot.
	req.Status = "reviewed"
	if err := m.SaveRequest(ctx, req); err != nil {
		t.Fatalf("SaveRequest (replace): %v", err)
	}
	got, _ = m.GetRequest(ctx, "req-1")
	if got.Status != "reviewed" {
		t.Errorf("Status after replace = %q, want reviewed", got.Status)
	}
}

func TestMemory_GetRequest_NotFound(t *testing.T) {
	t.Parallel()

	m := store.NewMemory()
	if _, err := m.GetRequest(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemory_Submissions(t *testing.T) {
	t.Parallel()

	m := store.NewMemory()
	ctx := context.Background()

	text := "texto corregido"
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		sub := store.Submission{
			ID:        string(rune('a' + i)),
			RequestID: "req-1",
			Document: retry.Document{Sections: []retry.SectionRetry{
				{SectionID: 0, Texts: []retry.TextRetry{{Index: i, TextToUse: &text}}},
			}},
			SubmittedAt: base.Add(time.Duration(i) * time.Minute),
			Accepted:    i != 1,
			Detail:      "",
		}
		if err := m.RecordSubmission(ctx, sub); err != nil {
			t.Fatalf("RecordSubmission #%d: %v", i, err)
		}
	}

	subs, err := m.Submissions(ctx, "req-1", 0)
	if err != nil {
		t.Fatalf("Submissions: %v", err)
	}
	if len(subs) != 3 {
		t.Fatalf("len = %d, want 3", len(subs))
	}
	// Newest first.
	if subs[0].ID != "c" || subs[2].ID != "a" {
		t.Errorf("order = [%s %s %s], want [c b a]", subs[0].ID, subs[1].ID, subs[2].ID)
	}
	if subs[1].Accepted {
		t.Error("submission b should be recorded as rejected")
	}

	limited, err := m.Submissions(ctx, "req-1", 2)
	if err != nil {
		t.Fatalf("Submissions (limit): %v", err)
	}
	if len(limited) != 2 || limited[0].ID != "c" {
		t.Errorf("limited = %+v", limited)
	}

	empty, err := m.Submissions(ctx, "unknown", 0)
	if err != nil {
		t.Fatalf("Submissions (unknown): %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("unknown request should yield empty non-nil slice, got %#v", empty)
	}
}
