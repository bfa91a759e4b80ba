package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"client_go/internal/domain"
)

// SendOptions tunes a send. Zero values are filled in by the client.
type SendOptions struct {
	// IdempotencyKey deduplicates repeated sends of one message; generated when empty.
	IdempotencyKey string
	// SentAt is the client timestamp carried by group sends; defaults to now.
	SentAt time.Time
}

func (c *Client) sendHeaders(opts SendOptions) map[string]string {
	key := opts.IdempotencyKey
	if key == "" {
		key = c.newKey()
	}
	return map[string]string{IdempotencyHeader: key}
}

func (c *Client) FetchDirectMessages(ctx context.Context, peerIdentity string) ([]domain.Message, error) {
	var msgs []domain.Message
	if err := c.do(ctx, request{
		op:     "fetch direct messages",
		method: http.MethodGet,
		path:   "/messages",
		query:  url.Values{"friend": {peerIdentity}},
		authed: true,
	}, &msgs); err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}

type directSendRequest struct {
	SenderEmail   string `json:"senderEmail"`
	ReceiverEmail string `json:"receiverEmail"`
	Content       string `json:"content"`
}

// SendDirectMessage sends content to peerIdentity as the session user and
// returns the server's record of the message.
func (c *Client) SendDirectMessage(ctx context.Context, peerIdentity, content string, opts SendOptions) (*domain.Message, error) {
	sess, err := c.auth.Current(ctx)
	if err != nil {
		return nil, wrapOp("send direct message", err)
	}
	var msg domain.Message
	if err := c.do(ctx, request{
		op:     "send direct message",
		method: http.MethodPost,
		path:   "/messages/send",
		body: directSendRequest{
			SenderEmail:   sess.UserIdentity,
			ReceiverEmail: peerIdentity,
			Content:       content,
		},
		authed:  true,
		headers: c.sendHeaders(opts),
	}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) FetchGroupMessages(ctx context.Context, groupID string) ([]domain.Message, error) {
	var msgs []domain.Message
	if err := c.do(ctx, request{
		op:     "fetch group messages",
		method: http.MethodGet,
		path:   groupPath(groupID, "/messages"),
		authed: true,
	}, &msgs); err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}

type groupSendRequest struct {
	Content     string `json:"content"`
	SenderEmail string `json:"senderEmail"`
	SentAt      string `json:"sentAt"`
	GroupID     string `json:"groupId"`
}

// SendGroupMessage posts content to the group as the session user.
func (c *Client) SendGroupMessage(ctx context.Context, groupID, content string, opts SendOptions) (*domain.Message, error) {
	sess, err := c.auth.Current(ctx)
	if err != nil {
		return nil, wrapOp("send group message", err)
	}
	sentAt := opts.SentAt
	if sentAt.IsZero() {
		sentAt = c.now()
	}
	var msg domain.Message
	if err := c.do(ctx, request{
		op:     "send group message",
		method: http.MethodPost,
		path:   groupPath(groupID, "/send"),
		body: groupSendRequest{
			Content:     content,
			SenderEmail: sess.UserIdentity,
			SentAt:      sentAt.UTC().Format(time.RFC3339Nano),
			GroupID:     groupID,
		},
		authed:  true,
		headers: c.sendHeaders(opts),
	}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
