package store

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func newScreenshot(seq int) *Screenshot {
	return &Screenshot{
		ID:           uuid.New().String(),
		Path:         "/tmp/shots/x.jpg",
		Sequence:     seq,
		Threshold:    10,
		HistoryDepth: 3,
		FlaggedRatio: 0.25,
	}
}

func TestScreenshotRepository_NextSequence(t *testing.T) {
	s := newTestStore(t)
	repo := s.Screenshots()

	next, err := repo.NextSequence()
	if err != nil {
		t.Fatalf("NextSequence() error = %v", err)
	}
	if next != 0 {
		t.Errorf("NextSequence() on empty store = %d, want 0", next)
	}

	for _, seq := range []int{0, 1, 4} {
		if err := repo.Create(newScreenshot(seq)); err != nil {
			t.Fatalf("Create(%d) error = %v", seq, err)
		}
	}

	next, err = repo.NextSequence()
	if err != nil {
		t.Fatalf("NextSequence() error = %v", err)
	}
	if next != 5 {
		t.Errorf("NextSequence() = %d, want 5", next)
	}
}

func TestScreenshotRepository_CreateGet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Screenshots()

	sc := newScreenshot(0)
	if err := repo.Create(sc); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sc.CreatedAt.IsZero() {
		t.Error("Create() should set CreatedAt")
	}

	got, err := repo.GetByID(sc.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Path != sc.Path || got.Sequence != 0 || got.Threshold != 10 || got.HistoryDepth != 3 || got.FlaggedRatio != 0.25 {
		t.Errorf("GetByID() = %+v, want %+v", got, sc)
	}

	if _, err := repo.GetByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrNotFound", err)
	}
}

func TestScreenshotRepository_DuplicateSequence(t *testing.T) {
	s := newTestStore(t)
	repo := s.Screenshots()

	if err := repo.Create(newScreenshot(3)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(newScreenshot(3)); err == nil {
		t.Error("Create() with a duplicate sequence should fail")
	}
}

func TestScreenshotRepository_ListDelete(t *testing.T) {
	s := newTestStore(t)
	repo := s.Screenshots()

	shots, err := repo.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(shots) != 0 {
		t.Errorf("List() on empty store returned %d rows", len(shots))
	}

	first := newScreenshot(0)
	second := newScreenshot(1)
	for _, sc := range []*Screenshot{first, second} {
		if err := repo.Create(sc); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	shots, err = repo.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(shots) != 2 || shots[0].ID != second.ID {
		t.Fatalf("List() should return newest first, got %+v", shots)
	}

	if err := repo.Delete(first.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(first.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}

	shots, err = repo.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(shots) != 1 || shots[0].ID != second.ID {
		t.Errorf("List() after delete = %+v", shots)
	}
}

func TestScreenshotRepository_ListOrdersBySequence(t *testing.T) {
	s := newTestStore(t)
	repo := s.Screenshots()

	// inserted out of order, as after a deletion and a restart
	for _, seq := range []int{7, 2, 5, 0} {
		if err := repo.Create(newScreenshot(seq)); err != nil {
			t.Fatalf("Create(%d) error = %v", seq, err)
		}
	}

	shots, err := repo.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []int{7, 5, 2, 0}
	if len(shots) != len(want) {
		t.Fatalf("List() returned %d rows, want %d", len(shots), len(want))
	}
	for i, sc := range shots {
		if sc.Sequence != want[i] {
			t.Errorf("List()[%d].Sequence = %d, want %d", i, sc.Sequence, want[i])
		}
	}

	next, err := repo.NextSequence()
	if err != nil {
		t.Fatalf("NextSequence() error = %v", err)
	}
	if next != 8 {
		t.Errorf("NextSequence() = %d, want 8", next)
	}
}
