package thread_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"client_go/internal/api"
	"client_go/internal/domain"
	"client_go/internal/thread"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) GetGroup(ctx context.Context, groupID string) (*domain.ThreadMetadata, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ThreadMetadata), args.Error(1)
}

func (m *MockBackend) FetchDirectMessages(ctx context.Context, peer string) ([]domain.Message, error) {
	args := m.Called(ctx, peer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockBackend) SendDirectMessage(ctx context.Context, peer, content string, opts api.SendOptions) (*domain.Message, error) {
	args := m.Called(ctx, peer, content, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockBackend) FetchGroupMessages(ctx context.Context, groupID string) ([]domain.Message, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockBackend) SendGroupMessage(ctx context.Context, groupID, content string, opts api.SendOptions) (*domain.Message, error) {
	args := m.Called(ctx, groupID, content, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

type staticSessions struct {
	sess *domain.Session
}

func (s staticSessions) Current(context.Context) (*domain.Session, error) {
	if s.sess == nil {
		return nil, domain.ErrUnauthenticated
	}
	return s.sess, nil
}

var me = staticSessions{sess: &domain.Session{Token: "tok", UserIdentity: "me@example.com"}}

type anchors struct {
	mu  sync.Mutex
	got []thread.Anchor
}

func (a *anchors) record(x thread.Anchor) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.got = append(a.got, x)
}

func (a *anchors) all() []thread.Anchor {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]thread.Anchor{}, a.got...)
}

func newEngine(b *MockBackend, rec *anchors) *thread.Engine {
	return thread.NewEngine(b, me, thread.WithAnchor(rec.record))
}

func TestOpenDirectThread(t *testing.T) {
	ctx := context.Background()
	b := new(MockBackend)
	rec := &anchors{}
	hi := domain.Message{ID: 1, SenderEmail: "bob@example.com", Content: "hi"}
	b.On("FetchDirectMessages", mock.Anything, "bob@example.com").Return([]domain.Message{hi}, nil)

	e := newEngine(b, rec)
	assert.Equal(t, thread.Idle, e.State())

	require.NoError(t, e.Open(ctx, domain.DirectThread("bob@example.com")))

	assert.Equal(t, thread.Ready, e.State())
	assert.Equal(t, []domain.Message{hi}, e.Messages())
	assert.Equal(t, []thread.Anchor{{Index: 0, MessageID: 1}}, rec.all())
	assert.Equal(t, "bob@example.com", e.Title())
	assert.Nil(t, e.Metadata())
	assert.False(t, e.IsOwn(hi))
	b.AssertNotCalled(t, "GetGroup", mock.Anything, mock.Anything)
}

func TestOpenEmptyThreadAnchorsBeforeStart(t *testing.T) {
	b := new(MockBackend)
	rec := &anchors{}
	b.On("FetchDirectMessages", mock.Anything, "bob@example.com").Return([]domain.Message{}, nil)

	e := newEngine(b, rec)
	require.NoError(t, e.Open(context.Background(), domain.DirectThread("bob@example.com")))

	assert.Empty(t, e.Messages())
	assert.Equal(t, []thread.Anchor{{Index: -1}}, rec.all())
}

func TestOpenGroupThread(t *testing.T) {
	b := new(MockBackend)
	rec := &anchors{}
	msgs := []domain.Message{
		{ID: 1, SenderEmail: "alice@example.com", Content: "a", GroupID: "g1"},
		{ID: 2, SenderEmail: "me@example.com", Content: "b", GroupID: "g1"},
	}
	b.On("GetGroup", mock.Anything, "g1").Return(&domain.ThreadMetadata{GroupID: "g1", Name: "Hiking"}, nil)
	b.On("FetchGroupMessages", mock.Anything, "g1").Return(msgs, nil)

	e := newEngine(b, rec)
	require.NoError(t, e.Open(context.Background(), domain.GroupThread("g1")))

	assert.Equal(t, msgs, e.Messages())
	assert.Equal(t, "Hiking", e.Title())
	assert.True(t, e.IsOwn(msgs[1]))
	assert.Equal(t, []thread.Anchor{{Index: 1, MessageID: 2}}, rec.all())
	b.AssertExpectations(t)
}

func TestGroupTitleDefaultsWhenUnnamed(t *testing.T) {
	b := new(MockBackend)
	b.On("GetGroup", mock.Anything, "g1").Return(&domain.ThreadMetadata{GroupID: "g1"}, nil)
	b.On("FetchGroupMessages", mock.Anything, "g1").Return([]domain.Message{}, nil)

	e := newEngine(b, &anchors{})
	require.NoError(t, e.Open(context.Background(), domain.GroupThread("g1")))
	assert.Equal(t, thread.DefaultGroupTitle, e.Title())
}

func TestOpenGroupNotFoundDegrades(t *testing.T) {
	b := new(MockBackend)
	rec := &anchors{}
	b.On("GetGroup", mock.Anything, "gone").Return(nil, &domain.APIError{StatusCode: 404, Message: "group not found"})
	b.On("FetchGroupMessages", mock.Anything, "gone").Return([]domain.Message{{ID: 9, Content: "x"}}, nil)

	e := newEngine(b, rec)
	err := e.Open(context.Background(), domain.GroupThread("gone"))

	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, thread.Ready, e.State())
	assert.Empty(t, e.Messages())
	assert.Equal(t, err, e.Err())
	assert.Equal(t, thread.DefaultGroupTitle, e.Title())
	assert.Empty(t, rec.all())
}

func TestOpenKeepsMetadataWhenHistoryFails(t *testing.T) {
	b := new(MockBackend)
	b.On("GetGroup", mock.Anything, "g1").Return(&domain.ThreadMetadata{GroupID: "g1", Name: "Hiking"}, nil)
	b.On("FetchGroupMessages", mock.Anything, "g1").Return(nil, domain.ErrNetwork)

	e := newEngine(b, &anchors{})
	err := e.Open(context.Background(), domain.GroupThread("g1"))

	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.Empty(t, e.Messages())
	assert.Equal(t, "Hiking", e.Title())
}

func TestOpenReportsMetadataErrorFirst(t *testing.T) {
	b := new(MockBackend)
	b.On("GetGroup", mock.Anything, "g1").Return(nil, domain.ErrMalformedResponse)
	b.On("FetchGroupMessages", mock.Anything, "g1").Return(nil, domain.ErrNetwork)

	e := newEngine(b, &anchors{})
	err := e.Open(context.Background(), domain.GroupThread("g1"))

	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
	assert.NotErrorIs(t, err, domain.ErrNetwork)
}

func TestOpenWithoutSession(t *testing.T) {
	b := new(MockBackend)
	e := thread.NewEngine(b, staticSessions{})

	err := e.Open(context.Background(), domain.DirectThread("bob@example.com"))
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Equal(t, thread.Ready, e.State())
	b.AssertNotCalled(t, "FetchDirectMessages", mock.Anything, mock.Anything)
}

func TestOpenRejectsInvalidRef(t *testing.T) {
	e := thread.NewEngine(new(MockBackend), me)
	err := e.Open(context.Background(), domain.DirectThread(""))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, thread.Idle, e.State())
}

func TestAppendOnEmptyThread(t *testing.T) {
	ctx := context.Background()
	b := new(MockBackend)
	rec := &anchors{}
	sentAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	reply := &domain.Message{ID: 2, SenderEmail: "me@example.com", Content: "hello"}

	var opts api.SendOptions
	b.On("FetchDirectMessages", mock.Anything, "bob@example.com").Return([]domain.Message{}, nil)
	b.On("SendDirectMessage", mock.Anything, "bob@example.com", "hello", mock.Anything).
		Run(func(args mock.Arguments) { opts = args.Get(3).(api.SendOptions) }).
		Return(reply, nil).Once()

	e := thread.NewEngine(b, me, thread.WithAnchor(rec.record), thread.WithClock(func() time.Time { return sentAt }))
	require.NoError(t, e.Open(ctx, domain.DirectThread("bob@example.com")))

	got, err := e.Append(ctx, "hello")
	require.NoError(t, err)

	assert.Equal(t, reply, got)
	assert.Equal(t, []domain.Message{*reply}, e.Messages())
	assert.Equal(t, thread.Ready, e.State())
	assert.Nil(t, e.Pending())
	assert.NotEmpty(t, opts.IdempotencyKey)
	assert.Equal(t, sentAt, opts.SentAt)
	assert.Equal(t, []thread.Anchor{{Index: -1}, {Index: 0, MessageID: 2}}, rec.all())
	assert.True(t, e.IsOwn(*reply))
}

func TestAppendGrowsTailByOne(t *testing.T) {
	ctx := context.Background()
	history := []domain.Message{
		{ID: 1, SenderEmail: "alice@example.com", Content: "one", GroupID: "g1"},
		{ID: 2, SenderEmail: "bob@example.com", Content: "two", GroupID: "g1"},
	}
	b := new(MockBackend)
	b.On("GetGroup", mock.Anything, "g1").Return(&domain.ThreadMetadata{GroupID: "g1", Name: "Team"}, nil)
	b.On("FetchGroupMessages", mock.Anything, "g1").Return(history, nil)

	e := newEngine(b, &anchors{})
	require.NoError(t, e.Open(ctx, domain.GroupThread("g1")))

	for i, content := range []string{"three", "four", "five"} {
		reply := &domain.Message{ID: int64(3 + i), SenderEmail: "me@example.com", Content: content, GroupID: "g1"}
		b.On("SendGroupMessage", mock.Anything, "g1", content, mock.Anything).Return(reply, nil).Once()

		before := e.Messages()
		_, err := e.Append(ctx, content)
		require.NoError(t, err)

		after := e.Messages()
		require.Len(t, after, len(before)+1)
		assert.Equal(t, before, after[:len(before)])
		assert.Equal(t, *reply, after[len(after)-1])
	}
}

func TestFailedAppendLeavesMessagesUnchanged(t *testing.T) {
	ctx := context.Background()
	history := []domain.Message{{ID: 1, SenderEmail: "bob@example.com", Content: "hi"}}
	failures := []error{
		domain.ErrNetwork,
		domain.ErrMalformedResponse,
		&domain.APIError{StatusCode: 500, Message: "boom"},
		domain.ErrUnauthenticated,
	}

	for _, failure := range failures {
		b := new(MockBackend)
		rec := &anchors{}
		b.On("FetchDirectMessages", mock.Anything, "bob@example.com").Return(history, nil)
		b.On("SendDirectMessage", mock.Anything, "bob@example.com", "hello", mock.Anything).Return(nil, failure)

		e := newEngine(b, rec)
		require.NoError(t, e.Open(ctx, domain.DirectThread("bob@example.com")))

		_, err := e.Append(ctx, "hello")
		assert.ErrorIs(t, err, failure)
		assert.Equal(t, history, e.Messages())
		assert.Equal(t, thread.Ready, e.State())
		assert.Len(t, rec.all(), 1)
	}
}

func TestAppendRejectsBlankContent(t *testing.T) {
	ctx := context.Background()
	b := new(MockBackend)
	b.On("FetchDirectMessages", mock.Anything, "bob@example.com").Return([]domain.Message{}, nil)

	e := newEngine(b, &anchors{})
	require.NoError(t, e.Open(ctx, domain.DirectThread("bob@example.com")))

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := e.Append(ctx, content)
		assert.ErrorIs(t, err, domain.ErrEmptyMessage)
	}
	b.AssertNotCalled(t, "SendDirectMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAppendBeforeOpen(t *testing.T) {
	e := thread.NewEngine(new(MockBackend), me)
	_, err := e.Append(context.Background(), "hello")
	assert.ErrorIs(t, err, thread.ErrNotReady)
}

func TestCloseDiscardsInFlightOpen(t *testing.T) {
	b := new(MockBackend)
	rec := &anchors{}
	release := make(chan time.Time)
	b.On("FetchDirectMessages", mock.Anything, "bob@example.com").
		WaitUntil(release).
		Return([]domain.Message{{ID: 1, Content: "late"}}, nil)

	e := newEngine(b, rec)
	done := make(chan error, 1)
	go func() { done <- e.Open(context.Background(), domain.DirectThread("bob@example.com")) }()

	require.Eventually(t, func() bool { return e.State() == thread.Loading }, time.Second, 5*time.Millisecond)
	e.Close()
	close(release)

	assert.NoError(t, <-done)
	assert.Equal(t, thread.Closed, e.State())
	assert.Empty(t, e.Messages())
	assert.Empty(t, rec.all())

	_, err := e.Append(context.Background(), "hello")
	assert.ErrorIs(t, err, domain.ErrEngineClosed)
	assert.ErrorIs(t, e.Refresh(context.Background()), domain.ErrEngineClosed)
}

func TestRefreshRecoversDegradedOpen(t *testing.T) {
	ctx := context.Background()
	b := new(MockBackend)
	hi := domain.Message{ID: 1, SenderEmail: "bob@example.com", Content: "hi"}
	b.On("FetchDirectMessages", mock.Anything, "bob@example.com").Return(nil, domain.ErrNetwork).Once()
	b.On("FetchDirectMessages", mock.Anything, "bob@example.com").Return([]domain.Message{hi}, nil).Once()

	e := newEngine(b, &anchors{})
	assert.ErrorIs(t, e.Open(ctx, domain.DirectThread("bob@example.com")), domain.ErrNetwork)
	assert.Empty(t, e.Messages())

	require.NoError(t, e.Refresh(ctx))
	assert.Equal(t, []domain.Message{hi}, e.Messages())
	assert.NoError(t, e.Err())
}
