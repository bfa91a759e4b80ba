package api

import (
	"context"
	"net/http"
	"net/url"

	"client_go/internal/domain"
)

func groupPath(groupID string, suffix string) string {
	return "/groups/" + url.PathEscape(groupID) + suffix
}

func (c *Client) ListGroups(ctx context.Context, ownerIdentity string) ([]domain.GroupSummary, error) {
	var groups []domain.GroupSummary
	if err := c.do(ctx, request{
		op:     "list groups",
		method: http.MethodGet,
		path:   "/groups",
		query:  url.Values{"email": {ownerIdentity}},
		authed: true,
	}, &groups); err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []domain.GroupSummary{}
	}
	return groups, nil
}

type createGroupRequest struct {
	Name  string   `json:"name"`
	Users []string `json:"users"`
}

// CreateGroup creates a group. Backends that answer with an empty body yield
// a summary carrying only the name.
func (c *Client) CreateGroup(ctx context.Context, name string, memberIdentities []string) (*domain.GroupSummary, error) {
	if memberIdentities == nil {
		memberIdentities = []string{}
	}
	var created domain.GroupSummary
	if err := c.do(ctx, request{
		op:           "create group",
		method:       http.MethodPost,
		path:         "/groups/create",
		body:         createGroupRequest{Name: name, Users: memberIdentities},
		authed:       true,
		optionalBody: true,
	}, &created); err != nil {
		return nil, err
	}
	if created.Name == "" {
		created.Name = name
	}
	return &created, nil
}

type groupDetail struct {
	GroupID domain.ID `json:"groupId"`
	Name    string    `json:"name"`
}

// GetGroup fetches group metadata. Membership is filled by GetGroupMembers.
func (c *Client) GetGroup(ctx context.Context, groupID string) (*domain.ThreadMetadata, error) {
	var detail groupDetail
	if err := c.do(ctx, request{
		op:     "get group",
		method: http.MethodGet,
		path:   groupPath(groupID, ""),
		authed: true,
	}, &detail); err != nil {
		return nil, err
	}
	return &domain.ThreadMetadata{GroupID: groupID, Name: detail.Name}, nil
}

func (c *Client) GetGroupMembers(ctx context.Context, groupID string) ([]string, error) {
	var members []string
	if err := c.do(ctx, request{
		op:     "get group members",
		method: http.MethodGet,
		path:   groupPath(groupID, "/members"),
		authed: true,
	}, &members); err != nil {
		return nil, err
	}
	if members == nil {
		members = []string{}
	}
	return members, nil
}

func (c *Client) AddGroupMember(ctx context.Context, groupID, identity string) error {
	return c.do(ctx, request{
		op:     "add group member",
		method: http.MethodPost,
		path:   groupPath(groupID, "/add-member"),
		body:   map[string]string{"email": identity},
		authed: true,
	}, nil)
}
