package pending

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreTakeOnce(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	ctx := context.Background()
	want := Action{Kind: KindActualEnd, GroupID: -1, ShiftID: 12}

	if err := s.Put(ctx, -1, 42, want); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Take(ctx, -1, 7); ok {
		t.Errorf("another admin must not see the record")
	}
	got, ok, err := s.Take(ctx, -1, 42)
	if err != nil || !ok || got != want {
		t.Fatalf("Take = %+v, %v, %v", got, ok, err)
	}
	if _, ok, _ := s.Take(ctx, -1, 42); ok {
		t.Errorf("record must be consumed by the first reply")
	}
}

func TestMemoryStoreExpires(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	s.Put(ctx, 1, 2, Action{Kind: KindSchedule, ShiftID: 3})
	now = now.Add(2 * time.Minute)
	if _, ok, _ := s.Take(ctx, 1, 2); ok {
		t.Errorf("expired record returned")
	}
}

func TestMemoryStoreDrop(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()
	s.Put(ctx, 1, 2, Action{Kind: KindSchedule, ShiftID: 3})
	s.Drop(ctx, 1, 2)
	if _, ok, _ := s.Take(ctx, 1, 2); ok {
		t.Errorf("dropped record returned")
	}
}
