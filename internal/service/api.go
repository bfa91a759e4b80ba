package service

import (
	"context"

	"client_go/internal/domain"
)

// The interfaces below are the slices of api.Client each view needs.

type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*domain.Session, error)
	Register(ctx context.Context, p domain.Profile) error
}

type FriendsAPI interface {
	ListFriends(ctx context.Context) ([]string, error)
	SendFriendRequest(ctx context.Context, targetIdentity string) error
	ListIncomingFriendRequests(ctx context.Context) ([]domain.FriendRequest, error)
	RespondToFriendRequest(ctx context.Context, requestID string, accept bool) error
}

type GroupsAPI interface {
	ListGroups(ctx context.Context, ownerIdentity string) ([]domain.GroupSummary, error)
	CreateGroup(ctx context.Context, name string, memberIdentities []string) (*domain.GroupSummary, error)
	GetGroup(ctx context.Context, groupID string) (*domain.ThreadMetadata, error)
	GetGroupMembers(ctx context.Context, groupID string) ([]string, error)
	AddGroupMember(ctx context.Context, groupID, identity string) error
}

// DirectoryAPI covers the screens that mix friends and groups.
type DirectoryAPI interface {
	FriendsAPI
	GroupsAPI
}

type SessionReader interface {
	Current(ctx context.Context) (*domain.Session, error)
}

type SessionWriter interface {
	SessionReader
	Save(ctx context.Context, sess *domain.Session) error
	Clear(ctx context.Context) error
}
