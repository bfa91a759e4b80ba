package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"client_go/internal/domain"
	"client_go/internal/service"
)

var friends = []string{"Alice@example.com", "bob@example.com", "carol@Example.org", "Ølaf@example.no"}

func loadedFriendList(t *testing.T) *service.FriendList {
	t.Helper()
	mockAPI := new(MockAPI)
	mockAPI.On("ListFriends", mock.Anything).Return(friends, nil).Once()

	l := service.NewFriendList(mockAPI)
	got, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, friends, got)
	return l
}

func TestFriendFilter(t *testing.T) {
	l := loadedFriendList(t)

	assert.Equal(t, []string{"Alice@example.com"}, l.Filter("ali"))
	assert.Equal(t, []string{"carol@Example.org"}, l.Filter(".ORG"))
	assert.Equal(t, []string{"Ølaf@example.no"}, l.Filter("øLAF"))
	assert.Equal(t, friends, l.Filter(""))
	assert.Equal(t, friends, l.Filter("   "))
	assert.Empty(t, l.Filter("zed"))
}

func TestFriendFilterIgnoresCase(t *testing.T) {
	l := loadedFriendList(t)

	for _, q := range []string{"a", "Ex", "bob", "CAROL", "example", "org", "o"} {
		got := l.Filter(q)
		assert.Equal(t, got, l.Filter(strings.ToLower(q)), q)
		assert.Equal(t, got, l.Filter(strings.ToUpper(q)), q)
		assert.Equal(t, got, l.Filter(q), q)
	}
	assert.Equal(t, friends, l.Friends())
}

func TestFriendListLoadFailureKeepsPrevious(t *testing.T) {
	mockAPI := new(MockAPI)
	mockAPI.On("ListFriends", mock.Anything).Return([]string{"bob@example.com"}, nil).Once()
	mockAPI.On("ListFriends", mock.Anything).Return(nil, domain.ErrNetwork).Once()

	l := service.NewFriendList(mockAPI)
	_, err := l.Load(context.Background())
	require.NoError(t, err)

	_, err = l.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.Equal(t, []string{"bob@example.com"}, l.Friends())
}

func TestFriendRequestsRespondReloads(t *testing.T) {
	ctx := context.Background()
	mockAPI := new(MockAPI)
	pending := []domain.FriendRequest{{ID: "1", SenderEmail: "bob@example.com"}, {ID: "2", SenderEmail: "carol@example.com"}}
	mockAPI.On("ListIncomingFriendRequests", mock.Anything).Return(pending, nil).Once()
	mockAPI.On("RespondToFriendRequest", mock.Anything, "1", true).Return(nil).Once()
	mockAPI.On("ListIncomingFriendRequests", mock.Anything).Return(pending[1:], nil).Once()

	r := service.NewFriendRequests(mockAPI)
	_, err := r.Load(ctx)
	require.NoError(t, err)

	got, err := r.Respond(ctx, "1", true)
	require.NoError(t, err)
	assert.Equal(t, pending[1:], got)
	assert.Equal(t, pending[1:], r.Requests())
	mockAPI.AssertExpectations(t)
}

func TestFriendRequestsRespondFailureDoesNotReload(t *testing.T) {
	ctx := context.Background()
	mockAPI := new(MockAPI)
	mockAPI.On("RespondToFriendRequest", mock.Anything, "9", false).
		Return(&domain.APIError{StatusCode: 404, Message: "request not found"})

	r := service.NewFriendRequests(mockAPI)
	_, err := r.Respond(ctx, "9", false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	mockAPI.AssertNotCalled(t, "ListIncomingFriendRequests", mock.Anything)
}

func TestFriendRequestsSend(t *testing.T) {
	ctx := context.Background()
	mockAPI := new(MockAPI)
	mockAPI.On("SendFriendRequest", mock.Anything, "dave@example.com").Return(nil).Once()

	r := service.NewFriendRequests(mockAPI)
	assert.NoError(t, r.Send(ctx, " dave@example.com "))
	assert.ErrorIs(t, r.Send(ctx, ""), domain.ErrInvalidInput)
	mockAPI.AssertExpectations(t)
}
