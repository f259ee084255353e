// Package service provides domain services for OVE core.
//
// ConnectionService replicates sections from a primary space to its
// secondary spaces.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yndnr/ovecore-go/internal/core/domain"
	"github.com/yndnr/ovecore-go/internal/core/geometry"
)

// ReplicaSpec is the section a primary asks a secondary to hold.
type ReplicaSpec struct {
	Space string
	Rect  domain.Rect
	App   *domain.App
}

// InstanceClient talks to remote OVE core instances. Every call is tagged
// as originating from a primary so the remote side does not re-validate it.
type InstanceClient interface {
	// SpaceGeometry fetches the bounding size of a remote space.
	SpaceGeometry(ctx context.Context, ep domain.Endpoint) (domain.Size, error)

	// CreateSection creates a replica and returns its remote id.
	CreateSection(ctx context.Context, ep domain.Endpoint, spec *ReplicaSpec) (int, error)

	// UpdateSection replaces a replica's placement and binding.
	UpdateSection(ctx context.Context, ep domain.Endpoint, id int, spec *ReplicaSpec) error

	// DeleteSection deletes one replica.
	DeleteSection(ctx context.Context, ep domain.Endpoint, id int) error

	// DeleteSpace deletes every section of a remote space.
	DeleteSpace(ctx context.Context, ep domain.Endpoint) error

	// Event forwards an application event to a remote section.
	Event(ctx context.Context, ep domain.Endpoint, id int, env *domain.Envelope) error

	// Cache forwards application state to a remote section.
	Cache(ctx context.Context, ep domain.Endpoint, id int, state json.RawMessage) error

	// Attach tells the instance hosting secondary that it replicates primary.
	Attach(ctx context.Context, primary, secondary domain.Endpoint) error

	// Detach undoes Attach.
	Detach(ctx context.Context, primary, secondary domain.Endpoint) error

	// RouteEvent asks the instance hosting primary to fan out an event
	// raised by replica id in the replica space.
	RouteEvent(ctx context.Context, primary, replica domain.Endpoint, id int, env *domain.Envelope) error

	// RouteCache asks the instance hosting primary to fan out state cached
	// by replica id in the replica space.
	RouteCache(ctx context.Context, primary, replica domain.Endpoint, id int, state json.RawMessage) error
}

// ConnectionService owns the replication links of an instance.
//
// The instance hosting the primary space owns a connection and its section
// map. An instance hosting a remote secondary holds an attached copy with
// no section map: it only rejects direct writes to the space and routes
// application traffic of its replicas back to the primary.
// State is guarded by the lock of the SectionService it is attached to.
type ConnectionService struct {
	sections *SectionService
	remote   InstanceClient
	self     domain.Endpoint

	conns []*domain.Connection
	sizes map[string]domain.Size
}

// NewConnectionService creates a ConnectionService and attaches it to the
// section registry. self carries this instance's public host and protocol.
func NewConnectionService(sections *SectionService, remote InstanceClient, self domain.Endpoint) *ConnectionService {
	c := &ConnectionService{
		sections: sections,
		remote:   remote,
		self:     self,
		sizes:    make(map[string]domain.Size),
	}

	sections.mu.Lock()
	sections.conns = c
	sections.mu.Unlock()

	return c
}

// Count returns the number of connections.
func (c *ConnectionService) Count() int {
	c.sections.mu.RLock()
	defer c.sections.mu.RUnlock()

	return len(c.conns)
}

// ============================================================================
// Connection lifecycle
// ============================================================================

// Connect links a secondary space to a primary space hosted here. Every
// section of the secondary is discarded and every primary section is
// mirrored into it.
func (c *ConnectionService) Connect(ctx context.Context, primary, secondary domain.Endpoint) (*domain.Connection, error) {
	primary = c.normalize(primary)
	secondary = c.normalize(secondary)

	if primary.Space == "" || secondary.Space == "" || primary.Same(secondary) {
		return nil, domain.ErrInvalidConnection.WithDetails("primary and secondary must differ")
	}
	if !c.isLocal(primary) {
		return nil, domain.ErrInvalidConnection.WithDetails("primary must be hosted on this instance")
	}
	primarySpace, ok := c.sections.spaces.Get(primary.Space)
	if !ok {
		return nil, domain.ErrInvalidSpace.WithDetails("unknown space: " + primary.Space)
	}

	var secondarySize domain.Size
	if c.isLocal(secondary) {
		space, ok := c.sections.spaces.Get(secondary.Space)
		if !ok {
			return nil, domain.ErrInvalidSpace.WithDetails("unknown space: " + secondary.Space)
		}
		secondarySize = geometry.Bounds(space)
	} else {
		callCtx, cancel := context.WithTimeout(ctx, c.sections.run.timeout)
		size, err := c.remote.SpaceGeometry(callCtx, secondary)
		cancel()
		if err != nil {
			return nil, domain.ErrInvalidConnection.WithDetails("secondary unreachable").WithCause(err)
		}
		secondarySize = size
	}

	c.sections.mu.Lock()
	conn, snapshot, err := c.registerLocked(ctx, primary, secondary, secondarySize)
	if err != nil {
		c.sections.mu.Unlock()
		return nil, err
	}

	if c.isLocal(secondary) {
		c.populateLocalLocked(ctx, conn, secondary, geometry.Bounds(primarySpace), snapshot)
		conn.IsInitialized = true
		out := conn.Clone()
		c.sections.mu.Unlock()
		return out, nil
	}
	c.sections.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, c.sections.run.timeout)
	err = c.remote.Attach(callCtx, primary, secondary)
	cancel()
	if err != nil {
		c.sections.mu.Lock()
		c.dropSecondaryLocked(conn, secondary)
		c.sections.mu.Unlock()
		return nil, domain.ErrInvalidConnection.WithDetails("secondary refused the connection").WithCause(err)
	}

	links := c.populateRemote(ctx, secondary, geometry.Bounds(primarySpace), secondarySize, snapshot)

	c.sections.mu.Lock()
	defer c.sections.mu.Unlock()

	// The registry was unlocked while populating: the secondary may have
	// been disconnected and primaries may have been deleted meanwhile.
	linked := c.hasSecondary(conn, secondary)
	for _, link := range links {
		if _, err := c.sections.repo.Get(ctx, link.Primary); err != nil || !linked {
			c.deleteReplicaLocked(ctx, link)
			continue
		}
		conn.SectionMap = append(conn.SectionMap, link)
	}
	conn.IsInitialized = true
	return conn.Clone(), nil
}

// registerLocked validates a new link and records it uninitialised. It
// returns the primary sections to mirror.
func (c *ConnectionService) registerLocked(ctx context.Context, primary, secondary domain.Endpoint, size domain.Size) (*domain.Connection, []*domain.Section, error) {
	for _, conn := range c.conns {
		if c.isSecondaryOf(conn, primary) {
			return nil, nil, domain.ErrSpaceConnected.WithDetails("primary is a secondary: " + primary.Space)
		}
		if conn.Primary.Same(secondary) {
			return nil, nil, domain.ErrSpaceConnected.WithDetails("secondary is a primary: " + secondary.Space)
		}
		if c.isSecondaryOf(conn, secondary) {
			return nil, nil, domain.ErrSpaceConnected.WithDetails("secondary already connected: " + secondary.Space)
		}
	}

	conn := c.byPrimaryLocked(primary.Space)
	if conn == nil {
		conn = &domain.Connection{Primary: primary}
		c.conns = append(c.conns, conn)
	}
	conn.Secondary = append(conn.Secondary, secondary)
	conn.IsInitialized = false
	c.sizes[endpointKey(secondary)] = size

	return conn, c.sections.repo.List(ctx, primary.Space), nil
}

func (c *ConnectionService) populateLocalLocked(ctx context.Context, conn *domain.Connection, secondary domain.Endpoint, from domain.Size, primaries []*domain.Section) {
	for _, section := range c.sections.repo.List(ctx, secondary.Space) {
		if _, err := c.sections.deleteLocked(ctx, section.ID, true); err != nil {
			c.sections.logger.Warn("clear secondary section", "id", section.ID, "error", err)
		}
	}

	for _, section := range primaries {
		if link, ok := c.createLocalReplicaLocked(ctx, section, secondary, from); ok {
			conn.SectionMap = append(conn.SectionMap, link)
		}
	}
}

// populateRemote clears a remote secondary and mirrors every primary
// section into it. It runs without the registry lock.
func (c *ConnectionService) populateRemote(ctx context.Context, secondary domain.Endpoint, from, to domain.Size, primaries []*domain.Section) []domain.SectionLink {
	logger := c.sections.logger
	ctx, cancel := context.WithTimeout(ctx, c.sections.run.timeout)
	defer cancel()

	if err := c.remote.DeleteSpace(ctx, secondary); err != nil {
		logger.Warn("clear remote secondary", "space", secondary.Space, "host", secondary.Host, "error", err)
	}

	links := make([]domain.SectionLink, 0, len(primaries))
	for _, section := range primaries {
		id, err := c.remote.CreateSection(ctx, secondary, replicaOf(section, secondary.Space, from, to))
		if err != nil {
			logger.Warn("create remote replica", "primary", section.ID, "space", secondary.Space, "error", err)
			continue
		}
		links = append(links, domain.SectionLink{Primary: section.ID, Secondary: id, Link: secondary})
		c.copyAppState(section, id)
	}
	return links
}

// Disconnect removes a secondary from the connection of a primary space,
// or the whole connection when secondary is empty. Replicas held by the
// removed secondaries are deleted.
func (c *ConnectionService) Disconnect(ctx context.Context, primary, secondary string) error {
	c.sections.mu.Lock()
	defer c.sections.mu.Unlock()

	conn := c.byPrimaryLocked(primary)
	if conn == nil {
		return domain.ErrInvalidConnection.WithDetails("no connection for primary: " + primary)
	}

	var removed []domain.Endpoint
	if secondary == "" {
		removed = append(removed, conn.Secondary...)
	} else {
		ep, ok := conn.SecondaryFor(secondary)
		if !ok {
			return domain.ErrInvalidConnection.WithDetails("not a secondary of " + primary + ": " + secondary)
		}
		removed = append(removed, ep)
	}

	for _, ep := range removed {
		links := conn.RemoveLinks(func(l domain.SectionLink) bool { return l.Link.Same(ep) })
		c.dropSecondaryLocked(conn, ep)
		for _, link := range links {
			c.deleteReplicaLocked(ctx, link)
		}
		if !c.isLocal(ep) {
			primaryEp := conn.Primary
			c.sections.run.Go("instance.detach", func(ctx context.Context) error {
				return c.remote.Detach(ctx, primaryEp, ep)
			})
		}
	}
	return nil
}

// Attach records that a local space replicates a primary hosted on another
// instance. That instance populates the space itself, so nothing is
// mirrored here. Attaching the same pair twice is a no-op.
func (c *ConnectionService) Attach(ctx context.Context, primary, secondary domain.Endpoint) (*domain.Connection, error) {
	if primary.Space == "" || secondary.Space == "" {
		return nil, domain.ErrInvalidConnection.WithDetails("primary and secondary are required")
	}
	if c.isLocal(primary) {
		return nil, domain.ErrInvalidConnection.WithDetails("attached primary must be hosted elsewhere")
	}
	if primary.Protocol == "" {
		primary.Protocol = "http"
	}
	if secondary.Host == "" {
		secondary = c.selfFor(secondary.Space)
	}
	if _, ok := c.sections.spaces.Get(secondary.Space); !ok {
		return nil, domain.ErrInvalidSpace.WithDetails("unknown space: " + secondary.Space)
	}

	c.sections.mu.Lock()
	defer c.sections.mu.Unlock()

	here := c.selfFor(secondary.Space)
	var attached *domain.Connection
	for _, conn := range c.conns {
		if conn.Primary.Same(here) {
			return nil, domain.ErrSpaceConnected.WithDetails("secondary is a primary: " + secondary.Space)
		}
		if c.isSecondaryOf(conn, here) {
			if conn.Primary.Same(primary) {
				return conn.Clone(), nil
			}
			return nil, domain.ErrSpaceConnected.WithDetails("secondary already connected: " + secondary.Space)
		}
		if conn.Primary.Same(primary) {
			attached = conn
		}
	}

	if attached == nil {
		attached = &domain.Connection{Primary: primary, IsInitialized: true}
		c.conns = append(c.conns, attached)
	}
	attached.Secondary = append(attached.Secondary, secondary)
	return attached.Clone(), nil
}

// Detach removes a local secondary from a connection attached by a remote
// primary. The primary deletes the replicas itself.
func (c *ConnectionService) Detach(ctx context.Context, primary, secondary string) error {
	c.sections.mu.Lock()
	defer c.sections.mu.Unlock()

	for _, conn := range c.conns {
		if c.isLocal(conn.Primary) || conn.Primary.Space != primary {
			continue
		}
		if ep, ok := conn.SecondaryFor(secondary); ok {
			c.dropSecondaryLocked(conn, ep)
			return nil
		}
	}
	return domain.ErrInvalidConnection.WithDetails("not attached: " + primary + " -> " + secondary)
}

// List returns every connection, or those involving space when set.
func (c *ConnectionService) List(space string) []*domain.Connection {
	c.sections.mu.RLock()
	defer c.sections.mu.RUnlock()

	out := make([]*domain.Connection, 0, len(c.conns))
	for _, conn := range c.conns {
		if space == "" || conn.HasSpace(space) {
			out = append(out, conn.Clone())
		}
	}
	return out
}

// ForSection returns the connection a local section belongs to, or nil.
func (c *ConnectionService) ForSection(ctx context.Context, id int) (*domain.Connection, error) {
	c.sections.mu.RLock()
	defer c.sections.mu.RUnlock()

	section, err := c.sections.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	conn, _ := c.membershipLocked(section)
	return conn.Clone(), nil
}

// ============================================================================
// Event and cache fan-out
// ============================================================================

type member struct {
	id int
	ep domain.Endpoint
}

// Event routes an application event raised by a local section to every
// other member of its connection. An overridden call was already routed by
// the sender and is only delivered locally. Events of a replica whose
// primary lives elsewhere are handed to the primary's instance.
func (c *ConnectionService) Event(ctx context.Context, id int, env *domain.Envelope, override bool) error {
	c.sections.mu.RLock()
	defer c.sections.mu.RUnlock()

	section, err := c.sections.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if override {
		c.deliverLocal(env, section.ID)
		return nil
	}

	if conn, replica, ok := c.attachedLocked(section.Space); ok {
		primary := conn.Primary
		c.sections.run.Go("instance.route_event", func(ctx context.Context) error {
			return c.remote.RouteEvent(ctx, primary, replica, section.ID, env)
		})
		return nil
	}

	c.eventToLocked(c.peersOfLocked(section), env)
	return nil
}

// RouteEvent fans out an event raised by a replica hosted on another
// instance. The replica itself is skipped.
func (c *ConnectionService) RouteEvent(ctx context.Context, replica domain.Endpoint, id int, env *domain.Envelope) error {
	c.sections.mu.RLock()
	defer c.sections.mu.RUnlock()

	members, err := c.peersOfRemoteLocked(replica, id)
	if err != nil {
		return err
	}
	c.eventToLocked(members, env)
	return nil
}

func (c *ConnectionService) eventToLocked(members []member, env *domain.Envelope) {
	for _, m := range members {
		if c.isLocal(m.ep) {
			c.deliverLocal(env, m.id)
			continue
		}
		c.sections.run.Go("instance.event", func(ctx context.Context) error {
			return c.remote.Event(ctx, m.ep, m.id, env)
		})
	}
}

// Cache pushes application state cached by a local section to every other
// member of its connection. The caller's own instance is not posted to.
func (c *ConnectionService) Cache(ctx context.Context, id int, state json.RawMessage, override bool) error {
	c.sections.mu.RLock()
	defer c.sections.mu.RUnlock()

	section, err := c.sections.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if override {
		c.postLocalState(section.ID, state)
		return nil
	}

	if conn, replica, ok := c.attachedLocked(section.Space); ok {
		primary := conn.Primary
		c.sections.run.Go("instance.route_cache", func(ctx context.Context) error {
			return c.remote.RouteCache(ctx, primary, replica, section.ID, state)
		})
		return nil
	}

	c.cacheToLocked(c.peersOfLocked(section), state)
	return nil
}

// RouteCache fans out state cached by a replica hosted on another
// instance. The replica itself is skipped.
func (c *ConnectionService) RouteCache(ctx context.Context, replica domain.Endpoint, id int, state json.RawMessage) error {
	c.sections.mu.RLock()
	defer c.sections.mu.RUnlock()

	members, err := c.peersOfRemoteLocked(replica, id)
	if err != nil {
		return err
	}
	c.cacheToLocked(members, state)
	return nil
}

func (c *ConnectionService) cacheToLocked(members []member, state json.RawMessage) {
	for _, m := range members {
		if c.isLocal(m.ep) {
			c.postLocalState(m.id, state)
			continue
		}
		c.sections.run.Go("instance.cache", func(ctx context.Context) error {
			return c.remote.Cache(ctx, m.ep, m.id, state)
		})
	}
}

func (c *ConnectionService) deliverLocal(env *domain.Envelope, id int) {
	if c.sections.notifier == nil {
		return
	}
	out := *env
	out.SectionID = domain.RefOf(id)
	c.sections.notifier.Deliver(&out)
}

func (c *ConnectionService) postLocalState(id int, state json.RawMessage) {
	section, err := c.sections.repo.Get(context.Background(), id)
	if err != nil || section.App == nil {
		return
	}
	url := section.App.BaseURL()
	c.sections.run.Go("app.state", func(ctx context.Context) error {
		return c.sections.apps.PostState(ctx, url, id, state)
	})
}

// peersOfLocked returns every member of the section's connection except
// the section itself.
func (c *ConnectionService) peersOfLocked(section *domain.Section) []member {
	conn, primaryID := c.membershipLocked(section)
	if conn == nil {
		return nil
	}
	return membersExcept(conn, primaryID, member{id: section.ID, ep: c.selfFor(section.Space)})
}

// peersOfRemoteLocked returns every member of the connection holding the
// remote replica id, except that replica.
func (c *ConnectionService) peersOfRemoteLocked(replica domain.Endpoint, id int) ([]member, error) {
	for _, conn := range c.conns {
		if !c.isLocal(conn.Primary) {
			continue
		}
		for _, link := range conn.SectionMap {
			if link.Secondary == id && link.Link.Same(replica) {
				return membersExcept(conn, link.Primary, member{id: id, ep: link.Link}), nil
			}
		}
	}
	return nil, domain.ErrInvalidSectionID.WithDetails("not a replica of this instance")
}

func membersExcept(conn *domain.Connection, primaryID int, self member) []member {
	all := []member{{id: primaryID, ep: conn.Primary}}
	for _, link := range conn.LinksForPrimary(primaryID) {
		all = append(all, member{id: link.Secondary, ep: link.Link})
	}

	out := all[:0]
	for _, m := range all {
		if m.id == self.id && m.ep.Same(self.ep) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// membershipLocked finds the connection of a local section and the id of
// its primary section.
func (c *ConnectionService) membershipLocked(section *domain.Section) (*domain.Connection, int) {
	for _, conn := range c.conns {
		if !c.isLocal(conn.Primary) {
			continue
		}
		if conn.Primary.Space == section.Space {
			if len(conn.LinksForPrimary(section.ID)) == 0 {
				return nil, 0
			}
			return conn, section.ID
		}
		for _, link := range conn.SectionMap {
			if link.Secondary == section.ID && c.isLocal(link.Link) && link.Link.Space == section.Space {
				return conn, link.Primary
			}
		}
	}
	return nil, 0
}

// ============================================================================
// Propagation hooks, called by SectionService with the lock held
// ============================================================================

func (c *ConnectionService) sectionCreatedLocked(ctx context.Context, section *domain.Section) {
	conn := c.byPrimaryLocked(section.Space)
	if conn == nil {
		return
	}
	from, ok := c.primarySize(conn)
	if !ok {
		return
	}

	for _, ep := range conn.Secondary {
		if c.isLocal(ep) {
			if link, ok := c.createLocalReplicaLocked(ctx, section, ep, from); ok {
				conn.SectionMap = append(conn.SectionMap, link)
			}
			continue
		}

		spec := replicaOf(section, ep.Space, from, c.sizes[endpointKey(ep)])
		primaryID := section.ID
		c.sections.run.Go("instance.create", func(ctx context.Context) error {
			id, err := c.remote.CreateSection(ctx, ep, spec)
			if err != nil {
				return err
			}
			return c.linkRemoteReplica(ctx, primaryID, id, ep)
		})
	}
}

// linkRemoteReplica records a replica created in the background. If the
// primary or the link went away meanwhile, the replica is deleted again.
func (c *ConnectionService) linkRemoteReplica(ctx context.Context, primaryID, replicaID int, ep domain.Endpoint) error {
	c.sections.mu.Lock()
	defer c.sections.mu.Unlock()

	primary, err := c.sections.repo.Get(ctx, primaryID)
	if err != nil {
		return c.remote.DeleteSection(ctx, ep, replicaID)
	}
	conn := c.byPrimaryLocked(primary.Space)
	if conn == nil || !c.hasSecondary(conn, ep) {
		return c.remote.DeleteSection(ctx, ep, replicaID)
	}
	conn.SectionMap = append(conn.SectionMap, domain.SectionLink{Primary: primaryID, Secondary: replicaID, Link: ep})
	c.copyAppState(primary, replicaID)
	return nil
}

func (c *ConnectionService) sectionUpdatedLocked(ctx context.Context, old, updated *domain.Section) {
	if old.Space != updated.Space {
		// Leaving or entering a primary space behaves as delete then create.
		c.sectionDeletedLocked(ctx, old)
		c.sectionCreatedLocked(ctx, updated)
		return
	}

	conn := c.byPrimaryLocked(updated.Space)
	if conn == nil {
		return
	}
	from, ok := c.primarySize(conn)
	if !ok {
		return
	}

	for _, link := range conn.LinksForPrimary(updated.ID) {
		spec := replicaOf(updated, link.Link.Space, from, c.sizes[endpointKey(link.Link)])
		if c.isLocal(link.Link) {
			c.updateLocalReplicaLocked(ctx, link.Secondary, spec)
			continue
		}
		c.sections.run.Go("instance.update", func(ctx context.Context) error {
			return c.remote.UpdateSection(ctx, link.Link, link.Secondary, spec)
		})
	}
}

func (c *ConnectionService) sectionDeletedLocked(ctx context.Context, section *domain.Section) {
	if conn := c.byPrimaryLocked(section.Space); conn != nil {
		links := conn.RemoveLinks(func(l domain.SectionLink) bool { return l.Primary == section.ID })
		for _, link := range links {
			c.deleteReplicaLocked(ctx, link)
		}
		return
	}

	for _, conn := range c.conns {
		conn.RemoveLinks(func(l domain.SectionLink) bool {
			return l.Secondary == section.ID && l.Link.Space == section.Space && c.isLocal(l.Link)
		})
	}
}

func (c *ConnectionService) createLocalReplicaLocked(ctx context.Context, section *domain.Section, ep domain.Endpoint, from domain.Size) (domain.SectionLink, bool) {
	space, ok := c.sections.spaces.Get(ep.Space)
	if !ok {
		return domain.SectionLink{}, false
	}
	spec := replicaOf(section, ep.Space, from, geometry.Bounds(space))

	replica, err := c.sections.createLocked(ctx, space, spec.Rect, spec.App)
	if err != nil {
		c.sections.logger.Warn("create replica", "primary", section.ID, "space", ep.Space, "error", err)
		return domain.SectionLink{}, false
	}
	c.copyAppState(section, replica.ID)
	return domain.SectionLink{Primary: section.ID, Secondary: replica.ID, Link: ep}, true
}

func (c *ConnectionService) updateLocalReplicaLocked(ctx context.Context, id int, spec *ReplicaSpec) {
	old, err := c.sections.repo.Get(ctx, id)
	if err != nil {
		return
	}
	space, ok := c.sections.spaces.Get(spec.Space)
	if !ok {
		return
	}
	if _, err := c.sections.updateLocked(ctx, old, space, spec.Rect, spec.App); err != nil {
		c.sections.logger.Warn("update replica", "id", id, "error", err)
	}
}

func (c *ConnectionService) deleteReplicaLocked(ctx context.Context, link domain.SectionLink) {
	if c.isLocal(link.Link) {
		if _, err := c.sections.deleteLocked(ctx, link.Secondary, true); err != nil {
			c.sections.logger.Debug("replica already gone", "id", link.Secondary)
		}
		return
	}
	c.sections.run.Go("instance.delete", func(ctx context.Context) error {
		return c.remote.DeleteSection(ctx, link.Link, link.Secondary)
	})
}

// copyAppState re-posts a primary's live application state to a replica.
func (c *ConnectionService) copyAppState(primary *domain.Section, replicaID int) {
	if primary.App == nil {
		return
	}
	url := primary.App.BaseURL()
	primaryID := primary.ID
	apps := c.sections.apps
	c.sections.run.Go("app.copy_state", func(ctx context.Context) error {
		state, err := apps.GetState(ctx, url, primaryID)
		if err != nil {
			return fmt.Errorf("fetch state of %d: %w", primaryID, err)
		}
		if len(state) == 0 {
			return nil
		}
		return apps.PostState(ctx, url, replicaID, state)
	})
}

// ============================================================================
// Helpers
// ============================================================================

// replicaOf rescales a section from its primary space into a secondary.
// Cached named states are already published and inline state is copied
// from the live instance, so neither is carried over.
func replicaOf(section *domain.Section, space string, from, to domain.Size) *ReplicaSpec {
	app := section.App.Clone()
	if app != nil {
		app.State = nil
		if app.States != nil {
			app.States.Cache = nil
			if app.States.Load == nil {
				app.States = nil
			}
		}
	}
	return &ReplicaSpec{
		Space: space,
		Rect:  geometry.Rescale(section.Rect, from, to),
		App:   app,
	}
}

func (c *ConnectionService) primarySize(conn *domain.Connection) (domain.Size, bool) {
	space, ok := c.sections.spaces.Get(conn.Primary.Space)
	if !ok {
		return domain.Size{}, false
	}
	return geometry.Bounds(space), true
}

func (c *ConnectionService) isLocalSecondaryLocked(space string) bool {
	here := c.selfFor(space)
	for _, conn := range c.conns {
		if c.isSecondaryOf(conn, here) {
			return true
		}
	}
	return false
}

// attachedLocked returns the attached connection a local space replicates
// and the space's endpoint as the primary knows it.
func (c *ConnectionService) attachedLocked(space string) (*domain.Connection, domain.Endpoint, bool) {
	for _, conn := range c.conns {
		if c.isLocal(conn.Primary) {
			continue
		}
		if ep, ok := conn.SecondaryFor(space); ok {
			return conn, ep, true
		}
	}
	return nil, domain.Endpoint{}, false
}

// byPrimaryLocked returns the connection of a primary space hosted here.
func (c *ConnectionService) byPrimaryLocked(space string) *domain.Connection {
	for _, conn := range c.conns {
		if conn.Primary.Space == space && c.isLocal(conn.Primary) {
			return conn
		}
	}
	return nil
}

// isSecondaryOf reports whether ep is a secondary of conn. Every secondary
// of an attached connection is local, whatever host the primary knows it by.
func (c *ConnectionService) isSecondaryOf(conn *domain.Connection, ep domain.Endpoint) bool {
	for _, s := range conn.Secondary {
		if s.Same(ep) {
			return true
		}
		if s.Space == ep.Space && c.isLocal(ep) && !c.isLocal(conn.Primary) {
			return true
		}
	}
	return false
}

func (c *ConnectionService) hasSecondary(conn *domain.Connection, ep domain.Endpoint) bool {
	for _, s := range conn.Secondary {
		if s.Same(ep) {
			return true
		}
	}
	return false
}

// dropSecondaryLocked removes a secondary and the connection once it has
// none left.
func (c *ConnectionService) dropSecondaryLocked(conn *domain.Connection, ep domain.Endpoint) {
	conn.RemoveSecondary(ep.Space)
	delete(c.sizes, endpointKey(ep))
	if len(conn.Secondary) == 0 {
		c.removeConnLocked(conn)
	}
}

func (c *ConnectionService) removeConnLocked(conn *domain.Connection) {
	for i, existing := range c.conns {
		if existing == conn {
			c.conns = append(c.conns[:i], c.conns[i+1:]...)
			return
		}
	}
}

func (c *ConnectionService) resetLocked() {
	c.conns = nil
	c.sizes = make(map[string]domain.Size)
}

func (c *ConnectionService) normalize(ep domain.Endpoint) domain.Endpoint {
	if ep.Host == "" {
		ep.Host = c.self.Host
	}
	if ep.Protocol == "" {
		ep.Protocol = c.self.Protocol
	}
	return ep
}

func (c *ConnectionService) isLocal(ep domain.Endpoint) bool {
	return ep.Host == "" || strings.EqualFold(ep.Host, c.self.Host)
}

func (c *ConnectionService) selfFor(space string) domain.Endpoint {
	return domain.Endpoint{Space: space, Host: c.self.Host, Protocol: c.self.Protocol}
}

func endpointKey(ep domain.Endpoint) string {
	return strings.ToLower(ep.Host) + "/" + ep.Space
}
