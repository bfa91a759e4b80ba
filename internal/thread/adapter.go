package thread

import (
	"context"

	"client_go/internal/api"
	"client_go/internal/domain"
)

// Backend is the part of the API client a thread needs.
type Backend interface {
	GetGroup(ctx context.Context, groupID string) (*domain.ThreadMetadata, error)
	FetchDirectMessages(ctx context.Context, peerIdentity string) ([]domain.Message, error)
	SendDirectMessage(ctx context.Context, peerIdentity, content string, opts api.SendOptions) (*domain.Message, error)
	FetchGroupMessages(ctx context.Context, groupID string) ([]domain.Message, error)
	SendGroupMessage(ctx context.Context, groupID, content string, opts api.SendOptions) (*domain.Message, error)
}

// adapter hides the per-variant endpoint shapes from the engine.
type adapter interface {
	// fetchMetadata returns (nil, nil) for variants without metadata.
	fetchMetadata(ctx context.Context) (*domain.ThreadMetadata, error)
	fetchMessages(ctx context.Context) ([]domain.Message, error)
	send(ctx context.Context, content string, opts api.SendOptions) (*domain.Message, error)
}

func adapterFor(b Backend, ref domain.ThreadRef) adapter {
	if ref.Kind == domain.ThreadGroup {
		return groupAdapter{b: b, groupID: ref.GroupID}
	}
	return directAdapter{b: b, peer: ref.PeerIdentity}
}

type directAdapter struct {
	b    Backend
	peer string
}

func (a directAdapter) fetchMetadata(context.Context) (*domain.ThreadMetadata, error) {
	return nil, nil
}

func (a directAdapter) fetchMessages(ctx context.Context) ([]domain.Message, error) {
	return a.b.FetchDirectMessages(ctx, a.peer)
}

func (a directAdapter) send(ctx context.Context, content string, opts api.SendOptions) (*domain.Message, error) {
	return a.b.SendDirectMessage(ctx, a.peer, content, opts)
}

type groupAdapter struct {
	b       Backend
	groupID string
}

func (a groupAdapter) fetchMetadata(ctx context.Context) (*domain.ThreadMetadata, error) {
	return a.b.GetGroup(ctx, a.groupID)
}

func (a groupAdapter) fetchMessages(ctx context.Context) ([]domain.Message, error) {
	return a.b.FetchGroupMessages(ctx, a.groupID)
}

func (a groupAdapter) send(ctx context.Context, content string, opts api.SendOptions) (*domain.Message, error) {
	return a.b.SendGroupMessage(ctx, a.groupID, content, opts)
}
