package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"client_go/internal/domain"
)

// GroupList holds the groups of the session user. Load is meant to be
// called every time the groups screen gains focus.
type GroupList struct {
	api      GroupsAPI
	sessions SessionReader

	mu     sync.RWMutex
	groups []domain.GroupSummary
}

func NewGroupList(api GroupsAPI, sessions SessionReader) *GroupList {
	return &GroupList{api: api, sessions: sessions}
}

func (l *GroupList) Load(ctx context.Context) ([]domain.GroupSummary, error) {
	sess, err := l.sessions.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	groups, err := l.api.ListGroups(ctx, sess.UserIdentity)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.groups = append([]domain.GroupSummary{}, groups...)
	l.mu.Unlock()
	return groups, nil
}

func (l *GroupList) Groups() []domain.GroupSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.GroupSummary{}, l.groups...)
}

// GroupDraft backs the create-group screen: pick friends, name the group.
// Selection order is the order friends were first picked.
type GroupDraft struct {
	api DirectoryAPI

	mu       sync.RWMutex
	friends  []string
	selected []string
}

func NewGroupDraft(api DirectoryAPI) *GroupDraft {
	return &GroupDraft{api: api}
}

// Load fetches the candidate friends and resets the selection.
func (d *GroupDraft) Load(ctx context.Context) ([]string, error) {
	friends, err := d.api.ListFriends(ctx)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.friends = append([]string{}, friends...)
	d.selected = nil
	d.mu.Unlock()
	return friends, nil
}

func (d *GroupDraft) Search(query string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return filterIdentities(d.friends, query)
}

// Toggle flips identity in the selection and reports whether it is now selected.
func (d *GroupDraft) Toggle(identity string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, id := range d.selected {
		if id == identity {
			d.selected = append(d.selected[:i:i], d.selected[i+1:]...)
			return false
		}
	}
	d.selected = append(d.selected, identity)
	return true
}

func (d *GroupDraft) IsSelected(identity string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return indexOf(d.selected, identity) >= 0
}

func (d *GroupDraft) Selected() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string{}, d.selected...)
}

// Create sends the draft. The selection is kept on failure for a retry.
func (d *GroupDraft) Create(ctx context.Context, name string) (*domain.GroupSummary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("create group: name is required: %w", domain.ErrInvalidInput)
	}
	group, err := d.api.CreateGroup(ctx, name, d.Selected())
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.selected = nil
	d.mu.Unlock()
	return group, nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
