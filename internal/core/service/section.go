// Package service provides domain services for OVE core.
//
// SectionService handles the section and group registry of an instance.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/yndnr/ovecore-go/internal/core/domain"
	"github.com/yndnr/ovecore-go/internal/core/geometry"
)

// DefaultUpdateDelay is how long a new section's frame is given to size
// itself before its application binding is announced.
const DefaultUpdateDelay = 350 * time.Millisecond

// SectionRepository defines the storage interface for sections and groups.
type SectionRepository interface {
	// Create stores a new section and returns its id.
	Create(ctx context.Context, section *domain.Section) (int, error)

	// Get retrieves a live section by id.
	Get(ctx context.Context, id int) (*domain.Section, error)

	// Update replaces a live section.
	Update(ctx context.Context, section *domain.Section) error

	// UpdateAll replaces several live sections, all or nothing.
	UpdateAll(ctx context.Context, sections []*domain.Section) error

	// Delete tombstones a section and prunes it from groups.
	Delete(ctx context.Context, id int) (*domain.Section, error)

	// List returns the live sections of a space, or all when space is empty.
	List(ctx context.Context, space string) []*domain.Section

	// ListIDs returns the live sections among ids.
	ListIDs(ctx context.Context, ids []int) []*domain.Section

	// Count returns the number of live sections.
	Count() int

	// CreateGroup stores a new group and returns its id.
	CreateGroup(ctx context.Context, ids []int) (int, error)

	// UpdateGroup replaces the members of a group.
	UpdateGroup(ctx context.Context, id int, ids []int) error

	// GetGroup retrieves a live group.
	GetGroup(ctx context.Context, id int) (*domain.Group, error)

	// DeleteGroup tombstones a group.
	DeleteGroup(ctx context.Context, id int) error

	// Groups returns every live group.
	Groups(ctx context.Context) []*domain.Group

	// Reset drops all sections and groups.
	Reset()
}

// Notifier announces section lifecycle and application traffic to sockets.
// Implementations must not block.
type Notifier interface {
	// Announce sends a core lifecycle message to the sockets it targets.
	Announce(msg *domain.CoreMessage)

	// Deliver sends an application envelope to the sockets of its section.
	Deliver(env *domain.Envelope)
}

// AppClient talks to the application servers bound to sections.
type AppClient interface {
	// FlushInstance discards the application instance of one section.
	FlushInstance(ctx context.Context, appURL string, id int) error

	// FlushAll discards every instance held by an application server.
	FlushAll(ctx context.Context, appURL string) error

	// GetState fetches the current state of an instance.
	GetState(ctx context.Context, appURL string, id int) (json.RawMessage, error)

	// PostState replaces the state of an instance.
	PostState(ctx context.Context, appURL string, id int, state json.RawMessage) error

	// PostNamedState publishes a named state on the application server.
	PostNamedState(ctx context.Context, appURL, name string, state json.RawMessage) error
}

// SectionService handles section and group lifecycle operations.
//
// Every mutation is serialised by one lock shared with the
// ConnectionService attached to it.
type SectionService struct {
	mu sync.RWMutex

	repo     SectionRepository
	spaces   domain.Catalog
	notifier Notifier
	apps     AppClient
	conns    *ConnectionService

	run         *dispatcher
	updateDelay time.Duration
	timers      map[int]*time.Timer
	logger      *slog.Logger
}

// SectionOption configures a SectionService.
type SectionOption func(*SectionService)

// WithUpdateDelay sets the delay before a new binding is announced.
// A zero delay announces it together with the section.
func WithUpdateDelay(d time.Duration) SectionOption {
	return func(s *SectionService) {
		s.updateDelay = d
	}
}

// WithCallTimeout sets the timeout of every outbound call.
func WithCallTimeout(d time.Duration) SectionOption {
	return func(s *SectionService) {
		if d > 0 {
			s.run.timeout = d
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) SectionOption {
	return func(s *SectionService) {
		if logger != nil {
			s.logger = logger
			s.run.logger = logger
		}
	}
}

// WithObserver registers an observer of background call failures.
func WithObserver(o Observer) SectionOption {
	return func(s *SectionService) {
		if o != nil {
			s.run.observer = o
		}
	}
}

// NewSectionService creates a new SectionService.
func NewSectionService(repo SectionRepository, spaces domain.Catalog, notifier Notifier, apps AppClient, opts ...SectionOption) *SectionService {
	s := &SectionService{
		repo:        repo,
		spaces:      spaces,
		notifier:    notifier,
		apps:        apps,
		updateDelay: DefaultUpdateDelay,
		timers:      make(map[int]*time.Timer),
		logger:      slog.Default(),
		run: &dispatcher{
			timeout:  DefaultCallTimeout,
			logger:   slog.Default(),
			observer: nopObserver{},
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Wait blocks until all background application and replica calls return.
func (s *SectionService) Wait() {
	s.run.Wait()
}

// Reset drops every section, group and connection and cancels pending
// delayed announcements.
func (s *SectionService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.repo.Reset()
	if s.conns != nil {
		s.conns.resetLocked()
	}
}

// Count returns the number of live sections.
func (s *SectionService) Count() int {
	return s.repo.Count()
}

// ============================================================================
// Section Create Operation
// ============================================================================

// CreateSectionRequest contains parameters for section creation.
type CreateSectionRequest struct {
	Space      string      // Required
	X, Y, W, H *float64    // Required
	App        *domain.App // Optional
	Override   bool        // Issued by a primary or peer instance
}

// Create creates a new section and returns its id.
func (s *SectionService) Create(ctx context.Context, req *CreateSectionRequest) (int, error) {
	if req.Space == "" {
		return 0, domain.ErrInvalidSpace.WithDetails("space is required")
	}
	space, ok := s.spaces.Get(req.Space)
	if !ok {
		return 0, domain.ErrInvalidSpace.WithDetails("unknown space: " + req.Space)
	}
	if req.X == nil || req.Y == nil || req.W == nil || req.H == nil {
		return 0, domain.ErrInvalidDimensions.WithDetails("x, y, w and h are required")
	}
	rect := domain.Rect{X: *req.X, Y: *req.Y, W: *req.W, H: *req.H}
	if rect.IsDegenerate() {
		return 0, domain.ErrInvalidDimensions.WithDetails("w and h must be positive")
	}
	if err := req.App.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !req.Override && s.isSecondarySpaceLocked(req.Space) {
		return 0, domain.ErrSecondarySpace.WithDetails("space: " + req.Space)
	}

	section, err := s.createLocked(ctx, space, rect, req.App)
	if err != nil {
		return 0, err
	}
	if s.conns != nil {
		s.conns.sectionCreatedLocked(ctx, section)
	}

	s.logger.Debug("section created", "id", section.ID, "space", section.Space)
	return section.ID, nil
}

func (s *SectionService) createLocked(ctx context.Context, space *domain.Space, rect domain.Rect, app *domain.App) (*domain.Section, error) {
	section := &domain.Section{
		Space:  space.Name,
		Rect:   rect,
		Spaces: map[string][]domain.ClientLayout{space.Name: geometry.Layout(space, rect)},
		App:    app.Clone(),
	}

	id, err := s.repo.Create(ctx, section)
	if err != nil {
		return nil, err
	}
	section.ID = id

	s.announce(domain.ActionCreate, id, section.Spaces, nil)
	if section.App != nil {
		s.loadApp(id, section.App)
		s.scheduleAppUpdateLocked(id)
	}
	return section, nil
}

// ============================================================================
// Section Read Operations
// ============================================================================

// SectionFilter selects sections for a read.
type SectionFilter struct {
	Space            string
	GroupID          *int
	Geometry         *domain.Rect // Only sections lying entirely inside
	IncludeAppStates bool
}

// Get retrieves a section by id.
func (s *SectionService) Get(ctx context.Context, id int, includeAppStates bool) (*domain.Section, error) {
	s.mu.RLock()
	section, err := s.repo.Get(ctx, id)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	if includeAppStates {
		s.attachAppState(ctx, section)
	}
	return section, nil
}

// List retrieves the sections matching the filter in id order.
func (s *SectionService) List(ctx context.Context, filter *SectionFilter) ([]*domain.Section, error) {
	if filter == nil {
		filter = &SectionFilter{}
	}

	s.mu.RLock()
	var sections []*domain.Section
	if filter.GroupID != nil {
		group, err := s.repo.GetGroup(ctx, *filter.GroupID)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		sections = s.repo.ListIDs(ctx, group.Sections)
	} else {
		sections = s.repo.List(ctx, filter.Space)
	}
	s.mu.RUnlock()

	out := sections[:0]
	for _, section := range sections {
		if filter.GroupID != nil && filter.Space != "" && section.Space != filter.Space {
			continue
		}
		if filter.Geometry != nil && !geometry.Contains(*filter.Geometry, section.Rect) {
			continue
		}
		out = append(out, section)
	}

	if filter.IncludeAppStates {
		for _, section := range out {
			s.attachAppState(ctx, section)
		}
	}
	return out, nil
}

// attachAppState replaces the section's states with the live state of its
// application instance. A failed fetch omits the states.
func (s *SectionService) attachAppState(ctx context.Context, section *domain.Section) {
	if section.App == nil {
		return
	}

	state, err := s.apps.GetState(ctx, section.App.BaseURL(), section.ID)
	if err != nil || len(bytes.TrimSpace(state)) == 0 {
		s.logger.Debug("app state unavailable", "id", section.ID, "error", err)
		section.App.States = nil
		return
	}
	section.App.States = &domain.AppStates{Load: state}
}

// ============================================================================
// Section Update Operation
// ============================================================================

// UpdateSectionRequest contains the fields to change on a section.
// Nil fields are left untouched.
type UpdateSectionRequest struct {
	Space      *string
	X, Y, W, H *float64
	App        *domain.App
	AppSet     bool // App was supplied; a nil App removes the binding
	Override   bool
}

// Update applies a patch to a section.
func (s *SectionService) Update(ctx context.Context, id int, req *UpdateSectionRequest) error {
	if req.AppSet {
		if err := req.App.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !req.Override && s.isSecondarySpaceLocked(old.Space) {
		return domain.ErrSecondarySection.WithDetails(fmt.Sprintf("section %d", id))
	}

	target := old.Space
	if req.Space != nil {
		target = *req.Space
	}
	space, ok := s.spaces.Get(target)
	if !ok {
		return domain.ErrInvalidSpace.WithDetails("unknown space: " + target)
	}
	if target != old.Space && !req.Override && s.isSecondarySpaceLocked(target) {
		return domain.ErrSecondarySpace.WithDetails("space: " + target)
	}

	rect := old.Rect
	if req.X != nil {
		rect.X = *req.X
	}
	if req.Y != nil {
		rect.Y = *req.Y
	}
	if req.W != nil {
		rect.W = *req.W
	}
	if req.H != nil {
		rect.H = *req.H
	}
	if rect.IsDegenerate() {
		return domain.ErrInvalidDimensions.WithDetails("w and h must be positive")
	}

	app := old.App
	if req.AppSet {
		app = req.App
	}

	updated, err := s.updateLocked(ctx, old, space, rect, app)
	if err != nil {
		return err
	}
	if s.conns != nil && updated != old {
		s.conns.sectionUpdatedLocked(ctx, old, updated)
	}
	return nil
}

// updateLocked commits a new placement and binding for a section and
// announces only what changed. It returns old itself when nothing did.
func (s *SectionService) updateLocked(ctx context.Context, old *domain.Section, space *domain.Space, rect domain.Rect, app *domain.App) (*domain.Section, error) {
	moved := space.Name != old.Space
	geometryChanged := moved || rect != old.Rect
	appChanged := !sameApp(old.App, app)
	if !geometryChanged && !appChanged {
		return old, nil
	}

	updated := old.Clone()
	updated.Space = space.Name
	updated.Rect = rect
	updated.App = app.Clone()
	if geometryChanged {
		updated.Spaces = map[string][]domain.ClientLayout{space.Name: geometry.Layout(space, rect)}
	}
	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, err
	}

	if appChanged {
		if old.App != nil && (app == nil || app.BaseURL() != old.App.BaseURL()) {
			s.flushInstance(old.App, old.ID)
		}
		if app != nil {
			s.loadApp(old.ID, updated.App)
		}
	}

	id := old.ID
	switch {
	case moved || (appChanged && app == nil):
		s.cancelAppUpdateLocked(id)
		s.announce(domain.ActionDelete, id, old.Spaces, nil)
		s.announce(domain.ActionCreate, id, updated.Spaces, nil)
		if updated.App != nil {
			s.scheduleAppUpdateLocked(id)
		}
	default:
		if geometryChanged {
			s.announce(domain.ActionUpdate, id, updated.Spaces, nil)
		}
		if appChanged {
			s.cancelAppUpdateLocked(id)
			s.announce(domain.ActionUpdate, id, nil, updated.App)
		}
	}
	return updated, nil
}

func sameApp(a, b *domain.App) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ja, jb)
}

// ============================================================================
// Section Delete Operations
// ============================================================================

// Delete deletes a section. Deleting a replica removes only that replica.
func (s *SectionService) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	section, err := s.deleteLocked(ctx, id, true)
	if err != nil {
		return err
	}
	if s.conns != nil {
		s.conns.sectionDeletedLocked(ctx, section)
	}
	return nil
}

// SectionScope selects sections for a bulk operation. An empty scope
// selects every section.
type SectionScope struct {
	Space    string
	GroupID  *int
	Override bool
}

// DeleteMany deletes every section in scope and returns their ids.
// Application flushes are batched per application server.
func (s *SectionService) DeleteMany(ctx context.Context, scope *SectionScope) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sections, err := s.selectLocked(ctx, scope)
	if err != nil {
		return nil, err
	}
	scoped := scope.Space != "" || scope.GroupID != nil

	batches := make(map[string][]int)
	ids := make([]int, 0, len(sections))
	for _, section := range sections {
		removed, err := s.deleteLocked(ctx, section.ID, false)
		if err != nil {
			// Already cascaded away as the replica of an earlier section.
			continue
		}
		ids = append(ids, removed.ID)
		if removed.App != nil {
			url := removed.App.BaseURL()
			batches[url] = append(batches[url], removed.ID)
		}
		if s.conns != nil {
			s.conns.sectionDeletedLocked(ctx, removed)
		}
	}

	for url, batch := range batches {
		s.flushBatch(url, batch, !scoped)
	}
	return ids, nil
}

func (s *SectionService) deleteLocked(ctx context.Context, id int, flush bool) (*domain.Section, error) {
	section, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cancelAppUpdateLocked(id)
	if flush && section.App != nil {
		s.flushInstance(section.App, id)
	}
	s.announce(domain.ActionDelete, id, nil, nil)
	return section, nil
}

// selectLocked resolves a scope to live sections, rejecting scopes that
// name a space acting as a replication secondary.
func (s *SectionService) selectLocked(ctx context.Context, scope *SectionScope) ([]*domain.Section, error) {
	if scope == nil {
		scope = &SectionScope{}
	}
	if scope.Space != "" && !scope.Override && s.isSecondarySpaceLocked(scope.Space) {
		return nil, domain.ErrSecondarySpace.WithDetails("space: " + scope.Space)
	}

	if scope.GroupID == nil {
		return s.repo.List(ctx, scope.Space), nil
	}

	group, err := s.repo.GetGroup(ctx, *scope.GroupID)
	if err != nil {
		return nil, err
	}
	var out []*domain.Section
	for _, section := range s.repo.ListIDs(ctx, group.Sections) {
		if scope.Space != "" && section.Space != scope.Space {
			continue
		}
		if !scope.Override && s.isSecondarySpaceLocked(section.Space) {
			return nil, domain.ErrSecondarySpace.WithDetails("space: " + section.Space)
		}
		out = append(out, section)
	}
	return out, nil
}

// primariesOnly drops replicas from a selection; they follow their primary.
func (s *SectionService) primariesOnly(sections []*domain.Section) []*domain.Section {
	out := sections[:0]
	for _, section := range sections {
		if !s.isSecondarySpaceLocked(section.Space) {
			out = append(out, section)
		}
	}
	return out
}

// ============================================================================
// Bulk Geometry Operations
// ============================================================================

// TransformRequest scales then translates the sections in scope.
type TransformRequest struct {
	SectionScope
	Scale     *domain.Point
	Translate *domain.Point
}

// Transform applies a scale and/or translation to every section in scope.
// If any result falls outside its space the whole batch is rejected.
func (s *SectionService) Transform(ctx context.Context, req *TransformRequest) ([]int, error) {
	if req.Scale == nil && req.Translate == nil {
		return nil, domain.ErrInvalidOperation.WithDetails("scale or translate is required")
	}
	if req.Scale != nil && (req.Scale.X <= 0 || req.Scale.Y <= 0) {
		return nil, domain.ErrInvalidDimensions.WithDetails("scale must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sections, err := s.selectLocked(ctx, &req.SectionScope)
	if err != nil {
		return nil, err
	}
	if !req.Override {
		sections = s.primariesOnly(sections)
	}

	updated := make([]*domain.Section, 0, len(sections))
	for _, section := range sections {
		space, ok := s.spaces.Get(section.Space)
		if !ok {
			return nil, domain.ErrInvalidSpace.WithDetails("unknown space: " + section.Space)
		}
		rect := geometry.Transform(section.Rect, req.Scale, req.Translate)
		if !geometry.Within(rect, geometry.Bounds(space)) {
			return nil, domain.ErrInvalidDimensions.WithDetails(fmt.Sprintf("section %d out of bounds", section.ID))
		}
		next := section.Clone()
		next.Rect = rect
		next.Spaces = map[string][]domain.ClientLayout{space.Name: geometry.Layout(space, rect)}
		updated = append(updated, next)
	}

	if err := s.repo.UpdateAll(ctx, updated); err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(updated))
	for i, next := range updated {
		ids = append(ids, next.ID)
		s.announce(domain.ActionUpdate, next.ID, next.Spaces, nil)
		if s.conns != nil {
			s.conns.sectionUpdatedLocked(ctx, sections[i], next)
		}
	}
	return ids, nil
}

// MoveRequest moves the sections in scope into another space.
type MoveRequest struct {
	SectionScope
	To string
}

// MoveTo moves every section in scope to a target space, keeping its
// coordinates. If any section does not fit the batch is rejected.
func (s *SectionService) MoveTo(ctx context.Context, req *MoveRequest) ([]int, error) {
	target, ok := s.spaces.Get(req.To)
	if !ok {
		return nil, domain.ErrInvalidSpace.WithDetails("unknown space: " + req.To)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !req.Override && s.isSecondarySpaceLocked(req.To) {
		return nil, domain.ErrSecondarySpace.WithDetails("space: " + req.To)
	}
	sections, err := s.selectLocked(ctx, &req.SectionScope)
	if err != nil {
		return nil, err
	}
	if !req.Override {
		sections = s.primariesOnly(sections)
	}

	bounds := geometry.Bounds(target)
	var olds, updated []*domain.Section
	for _, section := range sections {
		if section.Space == target.Name {
			continue
		}
		if !geometry.Within(section.Rect, bounds) {
			return nil, domain.ErrInvalidDimensions.WithDetails(fmt.Sprintf("section %d does not fit %s", section.ID, target.Name))
		}
		next := section.Clone()
		next.Space = target.Name
		next.Spaces = map[string][]domain.ClientLayout{target.Name: geometry.Layout(target, next.Rect)}
		olds = append(olds, section)
		updated = append(updated, next)
	}

	if err := s.repo.UpdateAll(ctx, updated); err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(updated))
	for i, next := range updated {
		ids = append(ids, next.ID)
		s.cancelAppUpdateLocked(next.ID)
		s.announce(domain.ActionDelete, next.ID, olds[i].Spaces, nil)
		s.announce(domain.ActionCreate, next.ID, next.Spaces, nil)
		if next.App != nil {
			s.scheduleAppUpdateLocked(next.ID)
		}
		if s.conns != nil {
			s.conns.sectionUpdatedLocked(ctx, olds[i], next)
		}
	}
	return ids, nil
}

// ============================================================================
// Refresh Operations
// ============================================================================

// Refresh instructs the sockets showing a section to reload it.
func (s *SectionService) Refresh(ctx context.Context, id int) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	s.announce(domain.ActionRefresh, id, nil, nil)
	return nil
}

// RefreshMany instructs sockets to reload every section in scope.
func (s *SectionService) RefreshMany(ctx context.Context, scope *SectionScope) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if scope == nil {
		scope = &SectionScope{Override: true}
	} else {
		// Refreshing never mutates, so replicas may be refreshed too.
		scope.Override = true
	}
	sections, err := s.selectLocked(ctx, scope)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(sections))
	for _, section := range sections {
		ids = append(ids, section.ID)
		s.announce(domain.ActionRefresh, section.ID, nil, nil)
	}
	return ids, nil
}

// ============================================================================
// Group Operations
// ============================================================================

// CreateGroup creates a group of primary sections.
func (s *SectionService) CreateGroup(ctx context.Context, ids []int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateMembersLocked(ctx, ids); err != nil {
		return 0, err
	}
	return s.repo.CreateGroup(ctx, ids)
}

// UpdateGroup replaces the members of an existing group.
func (s *SectionService) UpdateGroup(ctx context.Context, id int, ids []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.repo.GetGroup(ctx, id); err != nil {
		return err
	}
	if err := s.validateMembersLocked(ctx, ids); err != nil {
		return err
	}
	return s.repo.UpdateGroup(ctx, id, ids)
}

// GetGroup retrieves a group.
func (s *SectionService) GetGroup(ctx context.Context, id int) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.repo.GetGroup(ctx, id)
}

// DeleteGroup deletes a group; its sections are untouched.
func (s *SectionService) DeleteGroup(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.repo.DeleteGroup(ctx, id)
}

// Groups returns every live group.
func (s *SectionService) Groups(ctx context.Context) []*domain.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.repo.Groups(ctx)
}

func (s *SectionService) validateMembersLocked(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return domain.ErrInvalidSectionID.WithDetails("group has no sections")
	}
	for _, id := range ids {
		section, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if s.isSecondarySpaceLocked(section.Space) {
			return domain.ErrSecondarySection.WithDetails(fmt.Sprintf("section %d", id))
		}
	}
	return nil
}

// ============================================================================
// Spaces
// ============================================================================

// Spaces returns the client regions of every space, or only of the space
// holding sectionID when it is set.
func (s *SectionService) Spaces(ctx context.Context, sectionID *int) (map[string][]domain.ClientRegion, error) {
	all := s.spaces.Layouts()
	if sectionID == nil {
		return all, nil
	}

	s.mu.RLock()
	section, err := s.repo.Get(ctx, *sectionID)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return map[string][]domain.ClientRegion{section.Space: all[section.Space]}, nil
}

// SpaceGeometry returns the bounding size of a space.
func (s *SectionService) SpaceGeometry(name string) (domain.Size, error) {
	space, ok := s.spaces.Get(name)
	if !ok {
		return domain.Size{}, domain.ErrInvalidSpace.WithDetails("unknown space: " + name)
	}
	return geometry.Bounds(space), nil
}

// ============================================================================
// Notifications and application calls
// ============================================================================

func (s *SectionService) announce(action domain.Action, id int, spaces map[string][]domain.ClientLayout, app *domain.App) {
	if s.notifier == nil {
		return
	}
	sid := id
	s.notifier.Announce(&domain.CoreMessage{Action: action, ID: &sid, Spaces: spaces, App: app})
}

// scheduleAppUpdateLocked announces a section's binding after the update
// delay, replacing any pending announcement for the same section.
func (s *SectionService) scheduleAppUpdateLocked(id int) {
	s.cancelAppUpdateLocked(id)
	if s.updateDelay <= 0 {
		s.announceAppLocked(id)
		return
	}

	var t *time.Timer
	t = time.AfterFunc(s.updateDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.timers[id] != t {
			return
		}
		delete(s.timers, id)
		s.announceAppLocked(id)
	})
	s.timers[id] = t
}

func (s *SectionService) cancelAppUpdateLocked(id int) {
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *SectionService) announceAppLocked(id int) {
	section, err := s.repo.Get(context.Background(), id)
	if err != nil || section.App == nil {
		return
	}
	s.announce(domain.ActionUpdate, id, nil, section.App)
}

// loadApp publishes a binding's cached named states and its inline state.
func (s *SectionService) loadApp(id int, app *domain.App) {
	url := app.BaseURL()
	if app.States != nil {
		for name, state := range app.States.Cache {
			s.run.Go("app.named_state", func(ctx context.Context) error {
				return s.apps.PostNamedState(ctx, url, name, state)
			})
		}
	}
	if state := app.InlineState(); state != nil {
		s.run.Go("app.state", func(ctx context.Context) error {
			return s.apps.PostState(ctx, url, id, state)
		})
	}
}

func (s *SectionService) flushInstance(app *domain.App, id int) {
	url := app.BaseURL()
	s.run.Go("app.flush", func(ctx context.Context) error {
		return s.apps.FlushInstance(ctx, url, id)
	})
}

// flushBatch flushes one application server, either wholesale or one
// instance at a time.
func (s *SectionService) flushBatch(url string, ids []int, all bool) {
	s.run.Go("app.flush", func(ctx context.Context) error {
		if all {
			return s.apps.FlushAll(ctx, url)
		}
		for _, id := range ids {
			if err := s.apps.FlushInstance(ctx, url, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SectionService) isSecondarySpaceLocked(space string) bool {
	return s.conns != nil && s.conns.isLocalSecondaryLocked(space)
}
