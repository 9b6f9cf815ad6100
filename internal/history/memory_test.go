package history

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

func rec(id string, started time.Time) Record {
	return Record{ID: id, Outcome: "ok", StartedAt: started}
}

func ids(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestMemoryStore_RecentNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore(4)
	base := time.Now()
	for i := range 3 {
		if err := s.Append(ctx, rec(strconv.Itoa(i), base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"2", "1", "0"}, ids(got)); diff != "" {
		t.Errorf("Recent mismatch (-want +got):\n%s", diff)
	}

	got, _ = s.Recent(ctx, 2)
	if diff := cmp.Diff([]string{"2", "1"}, ids(got)); diff != "" {
		t.Errorf("Recent(2) mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryStore_Overwrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore(3)
	for i := range 5 {
		_ = s.Append(ctx, rec(strconv.Itoa(i), time.Now()))
	}

	if s.Len() != 3 {
		t.Errorf("Len = %d, want 3", s.Len())
	}
	got, _ := s.Recent(ctx, 0)
	if diff := cmp.Diff([]string{"4", "3", "2"}, ids(got)); diff != "" {
		t.Errorf("Recent mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryStore_Prune(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore(4)
	now := time.Now()
	_ = s.Append(ctx, rec("old-1", now.Add(-3*time.Hour)))
	_ = s.Append(ctx, rec("new-1", now.Add(-time.Minute)))
	_ = s.Append(ctx, rec("old-2", now.Add(-2*time.Hour)))
	_ = s.Append(ctx, rec("new-2", now))
	_ = s.Append(ctx, rec("new-3", now)) // evicts old-1

	removed, err := s.Prune(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	got, _ := s.Recent(ctx, 0)
	if diff := cmp.Diff([]string{"new-3", "new-2", "new-1"}, ids(got)); diff != "" {
		t.Errorf("Recent after prune (-want +got):\n%s", diff)
	}

	// Appends continue in order after a prune.
	_ = s.Append(ctx, rec("new-4", now))
	got, _ = s.Recent(ctx, 1)
	if got[0].ID != "new-4" {
		t.Errorf("newest = %q, want new-4", got[0].ID)
	}
}

func TestMemoryStore_DefaultCapacity(t *testing.T) {
	t.Parallel()
	if s := NewMemoryStore(0); len(s.ring) != DefaultCapacity {
		t.Errorf("capacity = %d, want %d", len(s.ring), DefaultCapacity)
	}
}

func TestTruncateDetail(t *testing.T) {
	t.Parallel()

	short := "boom"
	if got := TruncateDetail(short); got != short {
		t.Errorf("short detail changed: %q", got)
	}

	long := strings.Repeat("é", maxDetail)
	got := TruncateDetail(long)
	if !utf8.ValidString(got) {
		t.Error("truncated detail is not valid UTF-8")
	}
	if len(got) > maxDetail+len("…") {
		t.Errorf("truncated length = %d", len(got))
	}
}
