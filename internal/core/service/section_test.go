package service

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/yndnr/ovecore-go/internal/core/domain"
	"github.com/yndnr/ovecore-go/internal/storage/memory"
)

func TestSectionService_CreateLayout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.create(t, "Nine", 10, 0, 10, 10, nil)
	if id != 0 {
		t.Fatalf("id = %d, want 0", id)
	}

	section, err := f.sections.Get(ctx, id, false)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if section.Rect != (domain.Rect{X: 10, Y: 0, W: 10, H: 10}) {
		t.Errorf("Rect = %+v, want request geometry", section.Rect)
	}

	layouts := section.Spaces["Nine"]
	if len(layouts) != 9 {
		t.Fatalf("len(layouts) = %d, want 9", len(layouts))
	}
	want := domain.ClientLayout{Rect: domain.Rect{X: 0, Y: 0, W: 10, H: 10}, Offset: domain.Point{X: 10, Y: 0}}
	for i, l := range layouts {
		if i == 6 {
			if l != want {
				t.Errorf("layout[6] = %+v, want %+v", l, want)
			}
			continue
		}
		if !l.Empty {
			t.Errorf("layout[%d] = %+v, want empty", i, l)
		}
	}

	if got := f.notifier.actions(); !reflect.DeepEqual(got, []domain.Action{domain.ActionCreate}) {
		t.Errorf("announced %v, want [CREATE]", got)
	}
}

func TestSectionService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *CreateSectionRequest
		want error
	}{
		{"missing space", &CreateSectionRequest{X: ptr(0.0), Y: ptr(0.0), W: ptr(1.0), H: ptr(1.0)}, domain.ErrInvalidSpace},
		{"unknown space", &CreateSectionRequest{Space: "Nope", X: ptr(0.0), Y: ptr(0.0), W: ptr(1.0), H: ptr(1.0)}, domain.ErrInvalidSpace},
		{"missing dimension", &CreateSectionRequest{Space: "Nine", X: ptr(0.0), Y: ptr(0.0), W: ptr(1.0)}, domain.ErrInvalidDimensions},
		{"zero width", &CreateSectionRequest{Space: "Nine", X: ptr(0.0), Y: ptr(0.0), W: ptr(0.0), H: ptr(1.0)}, domain.ErrInvalidDimensions},
		{"app without url", &CreateSectionRequest{Space: "Nine", X: ptr(0.0), Y: ptr(0.0), W: ptr(1.0), H: ptr(1.0), App: &domain.App{}}, domain.ErrInvalidApp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.sections.Create(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("Create() error = %v, want %v", err, tt.want)
			}
		})
	}

	if f.sections.Count() != 0 {
		t.Errorf("rejected creates left %d sections", f.sections.Count())
	}
}

func TestSectionService_DeleteTombstones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	app := &domain.App{URL: "http://app/"}
	id := f.create(t, "Wall", 0, 0, 50, 50, app)
	gid, err := f.sections.CreateGroup(ctx, []int{id})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	if err := f.sections.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	f.sections.Wait()

	if _, err := f.sections.Get(ctx, id, false); !errors.Is(err, domain.ErrInvalidSectionID) {
		t.Errorf("Get deleted error = %v, want ErrInvalidSectionID", err)
	}
	if err := f.sections.Delete(ctx, id); !errors.Is(err, domain.ErrInvalidSectionID) {
		t.Errorf("second Delete error = %v, want ErrInvalidSectionID", err)
	}
	if _, err := f.sections.GetGroup(ctx, gid); !errors.Is(err, domain.ErrInvalidGroupID) {
		t.Errorf("emptied group error = %v, want ErrInvalidGroupID", err)
	}
	if f.apps.count("flush http://app 0") != 1 {
		t.Errorf("app calls = %v, want one flush of instance 0", f.apps.calls)
	}

	if next := f.create(t, "Wall", 0, 0, 10, 10, nil); next != 1 {
		t.Errorf("next id = %d, want 1", next)
	}
}

func TestSectionService_UpdateEmitsOnlyChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.create(t, "Wall", 0, 0, 50, 50, &domain.App{URL: "http://a"})
	f.notifier.reset()

	// Geometry only.
	if err := f.sections.Update(ctx, id, &UpdateSectionRequest{X: ptr(10.0)}); err != nil {
		t.Fatalf("Update geometry: %v", err)
	}
	msg := f.notifier.last()
	if msg.Action != domain.ActionUpdate || msg.Spaces == nil || msg.App != nil {
		t.Errorf("geometry update announced %+v, want spaces only", msg)
	}
	section, _ := f.sections.Get(ctx, id, false)
	if section.X != 10 || section.W != 50 {
		t.Errorf("Rect = %+v, want x 10 and untouched w", section.Rect)
	}

	// App only, new url flushes the old instance.
	f.notifier.reset()
	if err := f.sections.Update(ctx, id, &UpdateSectionRequest{App: &domain.App{URL: "http://b"}, AppSet: true}); err != nil {
		t.Fatalf("Update app: %v", err)
	}
	f.sections.Wait()
	if got := f.notifier.actions(); len(got) != 1 {
		t.Fatalf("app update announced %v, want one message", got)
	}
	msg = f.notifier.last()
	if msg.Spaces != nil || msg.App == nil || msg.App.URL != "http://b" {
		t.Errorf("app update announced %+v, want app only", msg)
	}
	if f.apps.count("flush http://a 0") != 1 {
		t.Errorf("app calls = %v, want flush of old app", f.apps.calls)
	}

	// No change.
	f.notifier.reset()
	if err := f.sections.Update(ctx, id, &UpdateSectionRequest{X: ptr(10.0)}); err != nil {
		t.Fatalf("Update no-op: %v", err)
	}
	if got := f.notifier.actions(); len(got) != 0 {
		t.Errorf("no-op update announced %v", got)
	}
}

func TestSectionService_UpdateToOtherSpace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.create(t, "Wall", 0, 0, 50, 50, nil)
	f.notifier.reset()

	if err := f.sections.Update(ctx, id, &UpdateSectionRequest{Space: ptr("Half")}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got := f.notifier.actions()
	if !reflect.DeepEqual(got, []domain.Action{domain.ActionDelete, domain.ActionCreate}) {
		t.Fatalf("announced %v, want [DELETE CREATE]", got)
	}
	section, _ := f.sections.Get(ctx, id, false)
	if _, ok := section.Spaces["Half"]; !ok || len(section.Spaces) != 1 {
		t.Errorf("Spaces keys = %v, want only Half", section.Spaces)
	}

	if err := f.sections.Update(ctx, id, &UpdateSectionRequest{Space: ptr("Nope")}); !errors.Is(err, domain.ErrInvalidSpace) {
		t.Errorf("Update unknown space error = %v", err)
	}
	if err := f.sections.Update(ctx, id, &UpdateSectionRequest{W: ptr(-1.0)}); !errors.Is(err, domain.ErrInvalidDimensions) {
		t.Errorf("Update negative width error = %v", err)
	}
}

func TestSectionService_TransformRejectsWholeBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.create(t, "Nine", 10, 0, 10, 10, nil)

	_, err := f.sections.Transform(ctx, &TransformRequest{Translate: &domain.Point{X: -11}})
	if !errors.Is(err, domain.ErrInvalidDimensions) {
		t.Fatalf("Transform error = %v, want ErrInvalidDimensions", err)
	}
	section, _ := f.sections.Get(ctx, id, false)
	if section.X != 10 {
		t.Errorf("X after rejected transform = %v, want 10", section.X)
	}

	// One section out of bounds rejects the other too.
	other := f.create(t, "Wall", 150, 0, 40, 40, nil)
	_, err = f.sections.Transform(ctx, &TransformRequest{Translate: &domain.Point{X: 15}})
	if !errors.Is(err, domain.ErrInvalidDimensions) {
		t.Fatalf("Transform error = %v, want ErrInvalidDimensions", err)
	}
	section, _ = f.sections.Get(ctx, id, false)
	if section.X != 10 {
		t.Errorf("partial transform applied, X = %v", section.X)
	}

	ids, err := f.sections.Transform(ctx, &TransformRequest{
		Scale:     &domain.Point{X: 0.5, Y: 0.5},
		Translate: &domain.Point{X: 5},
	})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("ids = %v, want both sections", ids)
	}
	got, _ := f.sections.Get(ctx, other, false)
	if got.Rect != (domain.Rect{X: 155, Y: 0, W: 20, H: 20}) {
		t.Errorf("transformed Rect = %+v", got.Rect)
	}

	if _, err := f.sections.Transform(ctx, &TransformRequest{}); !errors.Is(err, domain.ErrInvalidOperation) {
		t.Errorf("empty Transform error = %v, want ErrInvalidOperation", err)
	}
}

func TestSectionService_MoveTo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	small := f.create(t, "Wall", 0, 0, 50, 50, nil)
	f.create(t, "Wall", 120, 0, 50, 50, nil)

	if _, err := f.sections.MoveTo(ctx, &MoveRequest{SectionScope: SectionScope{Space: "Wall"}, To: "Half"}); !errors.Is(err, domain.ErrInvalidDimensions) {
		t.Fatalf("MoveTo error = %v, want ErrInvalidDimensions", err)
	}
	if got, _ := f.sections.List(ctx, &SectionFilter{Space: "Half"}); len(got) != 0 {
		t.Fatalf("rejected move left %d sections in Half", len(got))
	}

	gid, _ := f.sections.CreateGroup(ctx, []int{small})
	ids, err := f.sections.MoveTo(ctx, &MoveRequest{SectionScope: SectionScope{GroupID: &gid}, To: "Half"})
	if err != nil {
		t.Fatalf("MoveTo group: %v", err)
	}
	if !reflect.DeepEqual(ids, []int{small}) {
		t.Errorf("moved = %v, want [%d]", ids, small)
	}
	section, _ := f.sections.Get(ctx, small, false)
	if section.Space != "Half" || section.Rect != (domain.Rect{X: 0, Y: 0, W: 50, H: 50}) {
		t.Errorf("moved section = %+v", section)
	}

	if _, err := f.sections.MoveTo(ctx, &MoveRequest{To: "Nope"}); !errors.Is(err, domain.ErrInvalidSpace) {
		t.Errorf("MoveTo unknown space error = %v", err)
	}
}

func TestSectionService_ListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.create(t, "Wall", 0, 0, 50, 50, nil)
	b := f.create(t, "Wall", 60, 0, 80, 50, nil)
	f.create(t, "Half", 0, 0, 10, 10, nil)

	tests := []struct {
		name   string
		filter *SectionFilter
		want   []int
	}{
		{"all", nil, []int{0, 1, 2}},
		{"space", &SectionFilter{Space: "Wall"}, []int{a, b}},
		{"geometry", &SectionFilter{Space: "Wall", Geometry: &domain.Rect{X: 0, Y: 0, W: 100, H: 100}}, []int{a}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.sections.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			ids := make([]int, len(got))
			for i, s := range got {
				ids[i] = s.ID
			}
			if !reflect.DeepEqual(ids, tt.want) {
				t.Errorf("List() ids = %v, want %v", ids, tt.want)
			}
		})
	}

	if _, err := f.sections.List(ctx, &SectionFilter{GroupID: ptr(7)}); !errors.Is(err, domain.ErrInvalidGroupID) {
		t.Errorf("List unknown group error = %v", err)
	}
}

func TestSectionService_IncludeAppStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.create(t, "Wall", 0, 0, 50, 50, &domain.App{URL: "http://app", State: json.RawMessage(`{"v":1}`)})
	f.sections.Wait()

	section, err := f.sections.Get(ctx, id, true)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if section.App.States == nil || string(section.App.States.Load) != `{"v":1}` {
		t.Errorf("States = %+v, want live state", section.App.States)
	}

	f.apps.stateErr = errors.New("app down")
	section, err = f.sections.Get(ctx, id, true)
	if err != nil {
		t.Fatalf("Get with failing app: %v", err)
	}
	if section.App.States != nil {
		t.Errorf("States = %+v, want omitted", section.App.States)
	}
}

func TestSectionService_DeleteManyBatchesFlush(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	app := &domain.App{URL: "http://app"}
	f.create(t, "Wall", 0, 0, 10, 10, app)
	f.create(t, "Wall", 20, 0, 10, 10, app)
	f.create(t, "Half", 0, 0, 10, 10, &domain.App{URL: "http://other"})

	ids, err := f.sections.DeleteMany(ctx, &SectionScope{})
	if err != nil {
		t.Fatalf("DeleteMany: %v", err)
	}
	f.sections.Wait()

	if len(ids) != 3 {
		t.Errorf("deleted = %v, want 3 ids", ids)
	}
	if f.apps.count("flushall http://app") != 1 || f.apps.count("flushall http://other") != 1 {
		t.Errorf("app calls = %v, want one flush per app", f.apps.calls)
	}
	if f.sections.Count() != 0 {
		t.Errorf("Count = %d, want 0", f.sections.Count())
	}

	f.create(t, "Wall", 0, 0, 10, 10, app)
	keep := f.create(t, "Half", 0, 0, 10, 10, app)
	ids, err = f.sections.DeleteMany(ctx, &SectionScope{Space: "Wall"})
	if err != nil {
		t.Fatalf("DeleteMany(Wall): %v", err)
	}
	if !reflect.DeepEqual(ids, []int{3}) {
		t.Errorf("deleted = %v, want [3]", ids)
	}
	if _, err := f.sections.Get(ctx, keep, false); err != nil {
		t.Errorf("section outside scope deleted: %v", err)
	}
}

func TestSectionService_Refresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.create(t, "Wall", 0, 0, 10, 10, nil)
	f.notifier.reset()

	if err := f.sections.Refresh(ctx, id); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if msg := f.notifier.last(); msg.Action != domain.ActionRefresh || *msg.ID != id {
		t.Errorf("announced %+v, want REFRESH %d", msg, id)
	}
	if err := f.sections.Refresh(ctx, 9); !errors.Is(err, domain.ErrInvalidSectionID) {
		t.Errorf("Refresh unknown error = %v", err)
	}

	ids, err := f.sections.RefreshMany(ctx, &SectionScope{Space: "Wall"})
	if err != nil || len(ids) != 1 {
		t.Errorf("RefreshMany = %v, %v", ids, err)
	}
}

func TestSectionService_DelayedAppUpdate(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := NewSectionService(memory.New(), testSpaces(), notifier, newFakeApps(), WithUpdateDelay(20*time.Millisecond))
	t.Cleanup(svc.Wait)
	ctx := context.Background()

	_, err := svc.Create(ctx, &CreateSectionRequest{
		Space: "Wall", X: ptr(0.0), Y: ptr(0.0), W: ptr(10.0), H: ptr(10.0),
		App: &domain.App{URL: "http://app"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := notifier.actions(); !reflect.DeepEqual(got, []domain.Action{domain.ActionCreate}) {
		t.Fatalf("announced %v before delay, want [CREATE]", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(notifier.actions()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if msg := notifier.last(); msg.Action != domain.ActionUpdate || msg.App == nil {
		t.Fatalf("delayed message = %+v, want UPDATE with app", msg)
	}

	// Reset cancels pending announcements.
	svc.Create(ctx, &CreateSectionRequest{
		Space: "Wall", X: ptr(0.0), Y: ptr(0.0), W: ptr(10.0), H: ptr(10.0),
		App: &domain.App{URL: "http://app"},
	})
	svc.Reset()
	notifier.reset()
	time.Sleep(60 * time.Millisecond)
	if got := notifier.actions(); len(got) != 0 {
		t.Errorf("announced %v after Reset", got)
	}
}

func TestSectionService_Spaces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.create(t, "Half", 0, 0, 10, 10, nil)
	spaces, err := f.sections.Spaces(ctx, &id)
	if err != nil {
		t.Fatalf("Spaces: %v", err)
	}
	if len(spaces) != 1 || len(spaces["Half"]) != 1 {
		t.Errorf("Spaces(section) = %v, want only Half", spaces)
	}

	size, err := f.sections.SpaceGeometry("Wall")
	if err != nil || size != (domain.Size{W: 200, H: 100}) {
		t.Errorf("SpaceGeometry(Wall) = %+v, %v", size, err)
	}
	if _, err := f.sections.SpaceGeometry("Nope"); !errors.Is(err, domain.ErrInvalidSpace) {
		t.Errorf("SpaceGeometry unknown error = %v", err)
	}
}
