package api

import (
	"context"
	"net/http"

	"client_go/internal/domain"
)

func (c *Client) ListFriends(ctx context.Context) ([]string, error) {
	var friends []string
	if err := c.do(ctx, request{
		op:     "list friends",
		method: http.MethodGet,
		path:   "/friends",
		authed: true,
	}, &friends); err != nil {
		return nil, err
	}
	if friends == nil {
		friends = []string{}
	}
	return friends, nil
}

func (c *Client) SendFriendRequest(ctx context.Context, targetIdentity string) error {
	return c.do(ctx, request{
		op:     "send friend request",
		method: http.MethodPost,
		path:   "/friends/add",
		body:   map[string]string{"receiverEmail": targetIdentity},
		authed: true,
	}, nil)
}

func (c *Client) ListIncomingFriendRequests(ctx context.Context) ([]domain.FriendRequest, error) {
	var reqs []domain.FriendRequest
	if err := c.do(ctx, request{
		op:     "list friend requests",
		method: http.MethodGet,
		path:   "/requests",
		authed: true,
	}, &reqs); err != nil {
		return nil, err
	}
	if reqs == nil {
		reqs = []domain.FriendRequest{}
	}
	return reqs, nil
}

func (c *Client) RespondToFriendRequest(ctx context.Context, requestID string, accept bool) error {
	path, op := "/requests/reject", "reject friend request"
	if accept {
		path, op = "/requests/accept", "accept friend request"
	}
	return c.do(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   path,
		body:   map[string]string{"id": requestID},
		authed: true,
	}, nil)
}
