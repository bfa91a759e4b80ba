package devserver

import (
	"net/http"
	"strings"
)

// @Summary      List friends
// @Tags         friends
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  string
// @Router       /friends [get]
func handleListFriends(st *State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, st.friendsOf(CurrentUser(r)))
	}
}

type addFriendRequest struct {
	ReceiverEmail string `json:"receiverEmail"`
}

// @Summary      Send a friend request
// @Tags         friends
// @Security     BearerAuth
// @Accept       json
// @Param        input body addFriendRequest true "Receiver"
// @Success      201
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /friends/add [post]
func handleAddFriend(st *State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addFriendRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.ReceiverEmail) == "" {
			writeError(w, http.StatusBadRequest, "receiverEmail is required")
			return
		}
		if err := st.requestFriend(CurrentUser(r), req.ReceiverEmail); err != nil {
			writeStateError(w, err)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}
}

// @Summary      List incoming friend requests
// @Tags         friends
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  domain.FriendRequest
// @Router       /requests [get]
func handleListRequests(st *State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, st.incomingRequests(CurrentUser(r)))
	}
}

type answerRequest struct {
	ID string `json:"id"`
}

func handleAnswerRequest(st *State, accept bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := st.answerRequest(CurrentUser(r), req.ID, accept); err != nil {
			writeStateError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
