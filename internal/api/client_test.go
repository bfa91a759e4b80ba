package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"client_go/internal/api"
	"client_go/internal/domain"
)

type staticAuth struct {
	sess *domain.Session
}

func (a staticAuth) Current(context.Context) (*domain.Session, error) {
	if a.sess == nil {
		return nil, domain.ErrUnauthenticated
	}
	return a.sess, nil
}

var alice = staticAuth{sess: &domain.Session{Token: "tok-alice", UserIdentity: "alice@example.com"}}

func newTestClient(t *testing.T, h http.HandlerFunc) *api.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return api.NewClient(srv.URL+"/", 2*time.Second, alice)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestListFriendsSendsBearerToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/friends", r.URL.Path)
		assert.Equal(t, "Bearer tok-alice", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, []string{"bob@example.com", "carol@example.com"})
	})

	friends, err := c.ListFriends(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"bob@example.com", "carol@example.com"}, friends)
}

func TestUnauthenticatedMakesNoCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := api.NewClient(srv.URL, time.Second, staticAuth{})
	_, err := c.ListFriends(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = c.SendDirectMessage(context.Background(), "bob@example.com", "hi", api.SendOptions{})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.False(t, called)
}

func TestAPIErrorCarriesStatusAndMessage(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
		is      error
	}{
		{"json message", http.StatusNotFound, `{"message":"group not found"}`, "group not found", domain.ErrNotFound},
		{"json error", http.StatusConflict, `{"error":"already friends"}`, "already friends", domain.ErrConflict},
		{"plain text", http.StatusBadRequest, "bad email\n", "bad email", nil},
		{"empty", http.StatusInternalServerError, "", "Internal Server Error", nil},
		{"html", http.StatusBadGateway, "<html>oops</html>", "Bad Gateway", nil},
		{"expired token", http.StatusUnauthorized, `{"message":"token expired"}`, "token expired", domain.ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.GetGroup(context.Background(), "g1")

			var apiErr *domain.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.Equal(t, tt.status, domain.StatusOf(err))
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestLongErrorTextKeepsWholeRunes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(strings.Repeat("€", 100)))
	})

	_, err := c.GetGroup(context.Background(), "g1")

	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, utf8.ValidString(apiErr.Message))
	assert.Equal(t, strings.Repeat("€", 66), apiErr.Message)
}

func TestMalformedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/friends":
			_, _ = w.Write([]byte(`{"not":"a list"}`))
		case "/messages/send":
			w.WriteHeader(http.StatusOK)
		}
	})

	_, err := c.ListFriends(context.Background())
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)

	_, err = c.SendDirectMessage(context.Background(), "bob@example.com", "hi", api.SendOptions{})
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestTimeoutIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := api.NewClient(srv.URL, 50*time.Millisecond, alice)
	_, err := c.ListFriends(context.Background())
	assert.ErrorIs(t, err, domain.ErrNetwork)

	var apiErr *domain.APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestUnreachableServerIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := api.NewClient(url, time.Second, alice)
	_, err := c.ListIncomingFriendRequests(context.Background())
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestLoginReturnsSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "dave@example.com", body["email"])
		assert.Equal(t, "pw", body["password"])
		writeJSON(w, http.StatusOK, map[string]string{"jwt": "opaque-token"})
	})

	sess, err := c.Login(context.Background(), "dave@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", sess.Token)
	assert.Equal(t, "dave@example.com", sess.UserIdentity)
	assert.Nil(t, sess.ExpiresAt)
}

func TestLoginWithoutTokenIsMalformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{})
	})

	_, err := c.Login(context.Background(), "dave@example.com", "pw")
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestSendDirectMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/messages/send", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get(api.IdempotencyHeader))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{
			"senderEmail":   "alice@example.com",
			"receiverEmail": "bob@example.com",
			"content":       "hello",
		}, body)

		writeJSON(w, http.StatusOK, map[string]any{
			"id": 2, "senderEmail": "alice@example.com", "receiverEmail": "bob@example.com",
			"content": "hello", "sentAt": "2024-05-01T10:00:00",
		})
	})

	msg, err := c.SendDirectMessage(context.Background(), "bob@example.com", "hello", api.SendOptions{IdempotencyKey: "key-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), msg.ID)
	assert.Equal(t, "hello", msg.Content)
	require.NotNil(t, msg.SentAt)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), msg.SentAt.Time)
}

func TestSendGeneratesIdempotencyKey(t *testing.T) {
	var keys []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get(api.IdempotencyHeader))
		writeJSON(w, http.StatusOK, map[string]any{"id": len(keys), "content": "x"})
	})

	for i := 0; i < 2; i++ {
		_, err := c.SendGroupMessage(context.Background(), "g1", "x", api.SendOptions{})
		require.NoError(t, err)
	}
	require.Len(t, keys, 2)
	assert.NotEmpty(t, keys[0])
	assert.NotEqual(t, keys[0], keys[1])
}

func TestSendGroupMessagePayload(t *testing.T) {
	sentAt := time.Date(2024, 5, 1, 12, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/groups/g%201/send", r.URL.EscapedPath())

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hey all", body["content"])
		assert.Equal(t, "alice@example.com", body["senderEmail"])
		assert.Equal(t, "2024-05-01T10:30:00Z", body["sentAt"])
		assert.Equal(t, "g 1", body["groupId"])

		writeJSON(w, http.StatusOK, map[string]any{"id": 5, "groupId": 7, "senderEmail": "alice@example.com", "content": "hey all"})
	})

	msg, err := c.SendGroupMessage(context.Background(), "g 1", "hey all", api.SendOptions{SentAt: sentAt})
	require.NoError(t, err)
	assert.Equal(t, domain.ID("7"), msg.GroupID)
}

func TestFetchMessagesKeepsServerOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bob@example.com", r.URL.Query().Get("friend"))
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": 3, "senderEmail": "bob@example.com", "content": "c"},
			{"id": 1, "senderEmail": "alice@example.com", "content": "a"},
		})
	})

	msgs, err := c.FetchDirectMessages(context.Background(), "bob@example.com")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(3), msgs[0].ID)
	assert.Equal(t, int64(1), msgs[1].ID)
}

func TestFetchEmptyListIsNotNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("null"))
	})

	msgs, err := c.FetchGroupMessages(context.Background(), "g1")
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestCreateGroupToleratesEmptyBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name  string   `json:"name"`
			Users []string `json:"users"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Hiking", body.Name)
		assert.Equal(t, []string{}, body.Users)
		w.WriteHeader(http.StatusCreated)
	})

	g, err := c.CreateGroup(context.Background(), "Hiking", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hiking", g.Name)
	assert.Empty(t, g.GroupID)
}

func TestRespondToFriendRequestPath(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "17", body["id"])
	})

	require.NoError(t, c.RespondToFriendRequest(context.Background(), "17", true))
	require.NoError(t, c.RespondToFriendRequest(context.Background(), "17", false))
	assert.Equal(t, []string{"/requests/accept", "/requests/reject"}, paths)
}

func TestListIncomingRequestsAcceptsNumericIDs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":17,"senderEmail":"bob@example.com"},{"id":"a-2","senderEmail":"carol@example.com"}]`))
	})

	reqs, err := c.ListIncomingFriendRequests(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.FriendRequest{
		{ID: "17", SenderEmail: "bob@example.com"},
		{ID: "a-2", SenderEmail: "carol@example.com"},
	}, reqs)
}
