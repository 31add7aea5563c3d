package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/ai-runner/internal/apperr"
	"github.com/ziadkadry99/ai-runner/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestLogAndGetByID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	entry := Entry{
		ID:        "test-1",
		ActorID:   "alice",
		Action:    ActionReferenceAdded,
		Base:      "law",
		Reference: "civil-code",
		Summary:   "added civil-code (pdf, 12 chunks)",
		Detail:    "1234 bytes",
	}
	if err := store.Log(ctx, entry); err != nil {
		t.Fatalf("Log: %v", err)
	}

	got, err := store.GetByID(ctx, "test-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ActorID != "alice" || got.Action != ActionReferenceAdded {
		t.Errorf("got actor=%q action=%q", got.ActorID, got.Action)
	}
	if got.Base != "law" || got.Reference != "civil-code" {
		t.Errorf("got base=%q reference=%q", got.Base, got.Reference)
	}
	if got.Detail != "1234 bytes" {
		t.Errorf("Detail = %q", got.Detail)
	}
	if time.Since(got.Timestamp) > time.Minute {
		t.Errorf("Timestamp = %v, expected now", got.Timestamp)
	}
}

func TestLogDefaults(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.Log(ctx, Entry{Action: ActionReferenceDeleted, Base: "law", Reference: "r"}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	entries, err := store.Query(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].ID == "" {
		t.Error("expected a generated ID")
	}
	if entries[0].ActorID != Anonymous {
		t.Errorf("ActorID = %q, want %q", entries[0].ActorID, Anonymous)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	store := setupStore(t)
	_, err := store.GetByID(context.Background(), "missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func seed(t *testing.T, store *Store) {
	t.Helper()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{ActorID: "alice", Action: ActionReferenceAdded, Base: "law", Reference: "a", Timestamp: base},
		{ActorID: "bob", Action: ActionReferenceAdded, Base: "birds", Reference: "b", Timestamp: base.Add(time.Hour)},
		{ActorID: "alice", Action: ActionReferenceDeleted, Base: "law", Reference: "a", Timestamp: base.Add(2 * time.Hour)},
	}
	for _, e := range entries {
		if err := store.Log(context.Background(), e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}
}

func TestQueryFilters(t *testing.T) {
	store := setupStore(t)
	seed(t, store)
	ctx := context.Background()
	since := time.Date(2026, 1, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter QueryFilter
		want   int
	}{
		{"all", QueryFilter{}, 3},
		{"by actor", QueryFilter{ActorID: "alice"}, 2},
		{"by base", QueryFilter{Base: "birds"}, 1},
		{"by action", QueryFilter{Action: ActionReferenceDeleted}, 1},
		{"since", QueryFilter{Since: &since}, 2},
		{"until", QueryFilter{Until: &since}, 1},
		{"limit", QueryFilter{Limit: 2}, 2},
		{"offset", QueryFilter{Offset: 2}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d entries, want %d", len(got), tt.want)
			}
		})
	}

	all, _ := store.Query(ctx, QueryFilter{})
	if all[0].Action != ActionReferenceDeleted {
		t.Errorf("newest entry first: got %q", all[0].Action)
	}
}

func TestDeleteBefore(t *testing.T) {
	store := setupStore(t)
	seed(t, store)

	n, err := store.DeleteBefore(context.Background(), time.Date(2026, 1, 1, 12, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d rows, want 1", n)
	}
}

func TestRoutes(t *testing.T) {
	store := setupStore(t)
	seed(t, store)
	if err := store.Log(context.Background(), Entry{ID: "known", Action: ActionReferenceAdded, Base: "law"}); err != nil {
		t.Fatal(err)
	}

	r := chi.NewRouter()
	RegisterRoutes(r, store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/audit/?db=law&actor=alice", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Entries []Entry `json:"entries"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Entries) != 2 {
		t.Errorf("got %d entries, want 2", len(body.Entries))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/audit/?since=yesterday", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad since: status = %d, want 400", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/audit/known", nil))
	if w.Code != http.StatusOK {
		t.Errorf("get known: status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/audit/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("get missing: status = %d, want 404", w.Code)
	}
}
