package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"client_go/internal/domain"
)

// FriendList holds the last-loaded friends of the session user.
type FriendList struct {
	api FriendsAPI

	mu      sync.RWMutex
	friends []string
}

func NewFriendList(api FriendsAPI) *FriendList {
	return &FriendList{api: api}
}

// Load replaces the list with the server's. On failure the previous list is kept.
func (l *FriendList) Load(ctx context.Context) ([]string, error) {
	friends, err := l.api.ListFriends(ctx)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.friends = append([]string{}, friends...)
	l.mu.Unlock()
	return friends, nil
}

func (l *FriendList) Friends() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string{}, l.friends...)
}

// Filter matches query against the last-loaded list without a round trip.
func (l *FriendList) Filter(query string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return filterIdentities(l.friends, query)
}

// FriendRequests tracks incoming requests. Responding always re-fetches the
// list rather than removing the answered entry locally.
type FriendRequests struct {
	api FriendsAPI

	mu       sync.RWMutex
	requests []domain.FriendRequest
}

func NewFriendRequests(api FriendsAPI) *FriendRequests {
	return &FriendRequests{api: api}
}

func (r *FriendRequests) Load(ctx context.Context) ([]domain.FriendRequest, error) {
	reqs, err := r.api.ListIncomingFriendRequests(ctx)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.requests = append([]domain.FriendRequest{}, reqs...)
	r.mu.Unlock()
	return reqs, nil
}

func (r *FriendRequests) Requests() []domain.FriendRequest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.FriendRequest{}, r.requests...)
}

func (r *FriendRequests) Send(ctx context.Context, targetIdentity string) error {
	target := strings.TrimSpace(targetIdentity)
	if target == "" {
		return fmt.Errorf("send friend request: %w", domain.ErrInvalidInput)
	}
	return r.api.SendFriendRequest(ctx, target)
}

// Respond accepts or rejects a request, then reloads the list.
func (r *FriendRequests) Respond(ctx context.Context, requestID string, accept bool) ([]domain.FriendRequest, error) {
	if strings.TrimSpace(requestID) == "" {
		return nil, fmt.Errorf("respond to friend request: %w", domain.ErrInvalidInput)
	}
	if err := r.api.RespondToFriendRequest(ctx, requestID, accept); err != nil {
		return nil, err
	}
	return r.Load(ctx)
}
