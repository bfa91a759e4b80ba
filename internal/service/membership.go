package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"client_go/internal/domain"
)

// MemberStatus is the phase of a membership change made from this client.
type MemberStatus int

const (
	// Loaded members came from the server.
	Loaded MemberStatus = iota
	// Pending members were added locally and await the server.
	Pending
	// Confirmed members were added locally and accepted by the server.
	Confirmed
	// RolledBack marks an add the server refused; the identity is no longer a member.
	RolledBack
)

func (s MemberStatus) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case RolledBack:
		return "rolled back"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

type Member struct {
	Identity string
	Status   MemberStatus
}

// MembershipSnapshot is what the group details screen renders.
type MembershipSnapshot struct {
	Metadata   domain.ThreadMetadata
	Members    []Member
	NonMembers []string
	// RolledBack lists identities whose add failed since the last Load.
	RolledBack []string
}

// GroupMembership backs the group details screen. Adds are applied locally
// first and either confirmed or rolled back once the server answers.
type GroupMembership struct {
	api      DirectoryAPI
	onChange func(MembershipSnapshot)

	mu         sync.RWMutex
	gen        uint64
	meta       domain.ThreadMetadata
	members    []Member
	friends    []string
	rolledBack []string
}

// NewGroupMembership builds the view. onChange, when set, receives a
// snapshot after every local change and runs without the lock held.
func NewGroupMembership(api DirectoryAPI, onChange func(MembershipSnapshot)) *GroupMembership {
	return &GroupMembership{api: api, onChange: onChange}
}

// Load fetches group metadata, members and the user's friends together.
// Any failure fails the whole load and leaves the previous state in place.
func (m *GroupMembership) Load(ctx context.Context, groupID string) (*domain.ThreadMetadata, error) {
	if strings.TrimSpace(groupID) == "" {
		return nil, fmt.Errorf("load group: %w", domain.ErrInvalidInput)
	}

	var (
		meta    *domain.ThreadMetadata
		members []string
		friends []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		meta, err = m.api.GetGroup(gctx, groupID)
		return err
	})
	g.Go(func() (err error) {
		members, err = m.api.GetGroupMembers(gctx, groupID)
		return err
	})
	g.Go(func() (err error) {
		friends, err = m.api.ListFriends(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if meta.GroupID == "" {
		meta.GroupID = groupID
	}

	m.mu.Lock()
	m.gen++
	m.meta = *meta
	m.members = make([]Member, 0, len(members))
	for _, id := range members {
		m.members = append(m.members, Member{Identity: id, Status: Loaded})
	}
	m.friends = append([]string{}, friends...)
	m.rolledBack = nil
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return &snap.Metadata, nil
}

// Members returns member identities in order, pending adds included.
func (m *GroupMembership) Members() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.members))
	for _, mem := range m.members {
		out = append(out, mem.Identity)
	}
	return out
}

// NonMembers returns the friends that are not (even provisionally) members.
func (m *GroupMembership) NonMembers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nonMembersLocked()
}

// Search filters the non-member friends.
func (m *GroupMembership) Search(query string) []string {
	return filterIdentities(m.NonMembers(), query)
}

func (m *GroupMembership) Status(identity string) (MemberStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.memberIndexLocked(identity); i >= 0 {
		return m.members[i].Status, true
	}
	if indexOf(m.rolledBack, identity) >= 0 {
		return RolledBack, true
	}
	return 0, false
}

func (m *GroupMembership) Snapshot() MembershipSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// AddMember appends identity as Pending and drops it from the non-members
// in the same update, then asks the server. On success the member becomes
// Confirmed; on failure it is removed again and the error returned.
func (m *GroupMembership) AddMember(ctx context.Context, identity string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return fmt.Errorf("add member: %w", domain.ErrInvalidInput)
	}

	m.mu.Lock()
	if m.meta.GroupID == "" {
		m.mu.Unlock()
		return fmt.Errorf("add member: group not loaded: %w", domain.ErrInvalidInput)
	}
	if m.memberIndexLocked(identity) >= 0 {
		m.mu.Unlock()
		return fmt.Errorf("add member %s: %w", identity, domain.ErrConflict)
	}
	groupID, gen := m.meta.GroupID, m.gen
	m.members = append(m.members, Member{Identity: identity, Status: Pending})
	if i := indexOf(m.rolledBack, identity); i >= 0 {
		m.rolledBack = append(m.rolledBack[:i:i], m.rolledBack[i+1:]...)
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)

	err := m.api.AddGroupMember(ctx, groupID, identity)

	m.mu.Lock()
	if m.gen != gen {
		// A Load replaced the state meanwhile.
		m.mu.Unlock()
		return err
	}
	i := m.memberIndexLocked(identity)
	if err == nil {
		if i >= 0 {
			m.members[i].Status = Confirmed
		}
	} else {
		if i >= 0 {
			m.members = append(m.members[:i:i], m.members[i+1:]...)
		}
		m.rolledBack = append(m.rolledBack, identity)
	}
	snap = m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)

	if err != nil {
		log.Printf("membership: add %s to group %s rolled back: %v", identity, groupID, err)
		return err
	}
	return nil
}

func (m *GroupMembership) memberIndexLocked(identity string) int {
	for i, mem := range m.members {
		if mem.Identity == identity {
			return i
		}
	}
	return -1
}

func (m *GroupMembership) nonMembersLocked() []string {
	out := make([]string, 0, len(m.friends))
	for _, f := range m.friends {
		if m.memberIndexLocked(f) < 0 {
			out = append(out, f)
		}
	}
	return out
}

func (m *GroupMembership) snapshotLocked() MembershipSnapshot {
	meta := m.meta
	meta.MemberIdentities = make([]string, 0, len(m.members))
	for _, mem := range m.members {
		meta.MemberIdentities = append(meta.MemberIdentities, mem.Identity)
	}
	return MembershipSnapshot{
		Metadata:   meta,
		Members:    append([]Member{}, m.members...),
		NonMembers: m.nonMembersLocked(),
		RolledBack: append([]string{}, m.rolledBack...),
	}
}

func (m *GroupMembership) notify(snap MembershipSnapshot) {
	if m.onChange != nil {
		m.onChange(snap)
	}
}
