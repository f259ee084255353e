package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/yndnr/ovecore-go/internal/core/domain"
)

func newSection(space string, x float64) *domain.Section {
	return &domain.Section{
		Space: space,
		Rect:  domain.Rect{X: x, Y: 0, W: 10, H: 10},
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	store := New()
	ctx := context.Background()

	id, err := store.Create(ctx, newSection("Nine", 10))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != 0 {
		t.Fatalf("Create id = %d, want 0", id)
	}

	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != 0 || got.X != 10 || got.Space != "Nine" {
		t.Errorf("Get = %+v, want id 0 x 10 in Nine", got)
	}

	got.X = 99
	again, _ := store.Get(ctx, id)
	if again.X != 10 {
		t.Errorf("Get returned shared state, X = %v", again.X)
	}
}

func TestStore_CreateRequiresSpace(t *testing.T) {
	store := New()
	if _, err := store.Create(context.Background(), &domain.Section{}); !errors.Is(err, domain.ErrInvalidSpace) {
		t.Errorf("Create without space error = %v, want ErrInvalidSpace", err)
	}
}

func TestStore_DeleteTombstones(t *testing.T) {
	store := New()
	ctx := context.Background()

	first, _ := store.Create(ctx, newSection("Nine", 0))
	second, _ := store.Create(ctx, newSection("Nine", 10))

	if _, err := store.Delete(ctx, first); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, first); !errors.Is(err, domain.ErrInvalidSectionID) {
		t.Errorf("Get deleted error = %v, want ErrInvalidSectionID", err)
	}
	if _, err := store.Delete(ctx, first); !errors.Is(err, domain.ErrInvalidSectionID) {
		t.Errorf("second Delete error = %v, want ErrInvalidSectionID", err)
	}
	if _, err := store.Get(ctx, second); err != nil {
		t.Errorf("later id became invalid: %v", err)
	}

	third, _ := store.Create(ctx, newSection("Nine", 20))
	if third != 2 {
		t.Errorf("id after tombstone = %d, want 2", third)
	}
	if store.Count() != 2 {
		t.Errorf("Count() = %d, want 2", store.Count())
	}
}

func TestStore_ListBySpace(t *testing.T) {
	store := New()
	ctx := context.Background()

	store.Create(ctx, newSection("Nine", 0))
	store.Create(ctx, newSection("Wall", 0))
	store.Create(ctx, newSection("Nine", 10))

	if got := store.List(ctx, "Nine"); len(got) != 2 || got[0].ID != 0 || got[1].ID != 2 {
		t.Errorf("List(Nine) = %v, want ids [0 2]", ids(got))
	}
	if got := store.List(ctx, ""); len(got) != 3 {
		t.Errorf("List(all) len = %d, want 3", len(got))
	}
	if got := store.List(ctx, "Missing"); len(got) != 0 {
		t.Errorf("List(Missing) len = %d, want 0", len(got))
	}
	if got := store.ListIDs(ctx, []int{2, 7, 0, 2}); len(got) != 2 || got[0].ID != 0 {
		t.Errorf("ListIDs = %v, want [0 2]", ids(got))
	}
}

func TestStore_UpdateMovesSpaceIndex(t *testing.T) {
	store := New()
	ctx := context.Background()

	id, _ := store.Create(ctx, newSection("Nine", 0))
	moved := newSection("Wall", 5)
	moved.ID = id
	if err := store.Update(ctx, moved); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if got := store.List(ctx, "Nine"); len(got) != 0 {
		t.Errorf("List(Nine) after move = %v, want empty", ids(got))
	}
	if got := store.List(ctx, "Wall"); len(got) != 1 || got[0].X != 5 {
		t.Errorf("List(Wall) after move = %v", got)
	}
}

func TestStore_UpdateAllIsAtomic(t *testing.T) {
	store := New()
	ctx := context.Background()

	id, _ := store.Create(ctx, newSection("Nine", 0))
	update := newSection("Nine", 1)
	update.ID = id
	missing := newSection("Nine", 2)
	missing.ID = 42

	if err := store.UpdateAll(ctx, []*domain.Section{update, missing}); !errors.Is(err, domain.ErrInvalidSectionID) {
		t.Fatalf("UpdateAll error = %v, want ErrInvalidSectionID", err)
	}
	if got, _ := store.Get(ctx, id); got.X != 0 {
		t.Errorf("partial UpdateAll applied, X = %v", got.X)
	}
}

func TestStore_GroupLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()

	a, _ := store.Create(ctx, newSection("Nine", 0))
	b, _ := store.Create(ctx, newSection("Nine", 10))

	gid, err := store.CreateGroup(ctx, []int{a, b, a})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	g, err := store.GetGroup(ctx, gid)
	if err != nil {
		t.Fatalf("GetGroup: %v", err)
	}
	if len(g.Sections) != 2 {
		t.Errorf("group sections = %v, want 2 distinct ids", g.Sections)
	}

	if _, err := store.CreateGroup(ctx, []int{a, 9}); !errors.Is(err, domain.ErrInvalidSectionID) {
		t.Errorf("CreateGroup with unknown id error = %v", err)
	}
	if err := store.UpdateGroup(ctx, 5, []int{a}); !errors.Is(err, domain.ErrInvalidGroupID) {
		t.Errorf("UpdateGroup unknown group error = %v", err)
	}

	store.Delete(ctx, a)
	g, _ = store.GetGroup(ctx, gid)
	if len(g.Sections) != 1 || g.Sections[0] != b {
		t.Errorf("group after delete = %v, want [%d]", g.Sections, b)
	}

	store.Delete(ctx, b)
	if _, err := store.GetGroup(ctx, gid); !errors.Is(err, domain.ErrInvalidGroupID) {
		t.Errorf("emptied group error = %v, want ErrInvalidGroupID", err)
	}
	if got := store.Groups(ctx); len(got) != 0 {
		t.Errorf("Groups = %v, want none", got)
	}
}

func TestStore_Reset(t *testing.T) {
	store := New()
	ctx := context.Background()

	id, _ := store.Create(ctx, newSection("Nine", 0))
	store.CreateGroup(ctx, []int{id})
	store.Reset()

	if store.Count() != 0 || len(store.Groups(ctx)) != 0 {
		t.Fatalf("Reset left state behind")
	}
	if id, _ := store.Create(ctx, newSection("Nine", 0)); id != 0 {
		t.Errorf("id after Reset = %d, want 0", id)
	}
}

func ids(sections []*domain.Section) []int {
	out := make([]int, len(sections))
	for i, s := range sections {
		out[i] = s.ID
	}
	return out
}
