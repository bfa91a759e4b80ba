package devserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"client_go/internal/domain"
)

// @Summary      List groups
// @Tags         groups
// @Security     BearerAuth
// @Produce      json
// @Param        email query string false "Member email, defaults to the caller"
// @Success      200  {array}  domain.GroupSummary
// @Failure      403  {object}  map[string]string
// @Router       /groups [get]
func handleListGroups(st *State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := CurrentUser(r)
		if email := normEmail(r.URL.Query().Get("email")); email != "" && email != caller {
			writeError(w, http.StatusForbidden, "cannot list another user's groups")
			return
		}
		writeJSON(w, http.StatusOK, st.groupsOf(caller))
	}
}

type createGroupRequest struct {
	Name  string   `json:"name"`
	Users []string `json:"users"`
}

// @Summary      Create a group
// @Tags         groups
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body createGroupRequest true "Group"
// @Success      201  {object}  domain.GroupSummary
// @Failure      400  {object}  map[string]string
// @Router       /groups/create [post]
func handleCreateGroup(st *State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createGroupRequest
		if !decodeBody(w, r, &req) {
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		g, err := st.createGroup(CurrentUser(r), name, req.Users)
		if err != nil {
			writeStateError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, g)
	}
}

// @Summary      Get a group
// @Tags         groups
// @Security     BearerAuth
// @Produce      json
// @Param        groupID path string true "Group ID"
// @Success      200  {object}  domain.GroupSummary
// @Failure      404  {object}  map[string]string
// @Router       /groups/{groupID} [get]
func handleGetGroup(st *State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, _, err := st.group(chi.URLParam(r, "groupID"), CurrentUser(r))
		if err != nil {
			writeStateError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

func handleListMembers(st *State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, members, err := st.group(chi.URLParam(r, "groupID"), CurrentUser(r))
		if err != nil {
			writeStateError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, members)
	}
}

type addMemberRequest struct {
	Email string `json:"email"`
}

func handleAddMember(st *State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addMemberRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Email) == "" {
			writeError(w, http.StatusBadRequest, "email is required")
			return
		}
		if err := st.addMember(chi.URLParam(r, "groupID"), CurrentUser(r), req.Email); err != nil {
			writeStateError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleListGroupMessages(st *State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgs, err := st.groupMessages(chi.URLParam(r, "groupID"), CurrentUser(r))
		if err != nil {
			writeStateError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

type groupSendRequest struct {
	Content     string `json:"content"`
	SenderEmail string `json:"senderEmail"`
	SentAt      string `json:"sentAt"`
	GroupID     string `json:"groupId"`
}

// @Summary      Send a group message
// @Tags         groups
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        groupID path string true "Group ID"
// @Param        Idempotency-Key header string false "Client key; repeats replay the first response"
// @Param        input body groupSendRequest true "Message"
// @Success      200  {object}  domain.Message
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /groups/{groupID}/send [post]
func handleSendGroupMessage(st *State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := CurrentUser(r)
		groupID := chi.URLParam(r, "groupID")

		var req groupSendRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Content) == "" {
			writeError(w, http.StatusBadRequest, "content is required")
			return
		}
		if req.SenderEmail != "" && normEmail(req.SenderEmail) != caller {
			writeError(w, http.StatusForbidden, "senderEmail does not match the token")
			return
		}
		if req.GroupID != "" && req.GroupID != groupID {
			writeError(w, http.StatusBadRequest, "groupId does not match the path")
			return
		}

		var sentAt time.Time
		if req.SentAt != "" {
			parsed, err := domain.ParseTimestamp(req.SentAt)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid sentAt")
				return
			}
			sentAt = parsed
		}

		msg, err := st.sendGroup(groupID, caller, req.Content, sentAt)
		if err != nil {
			writeStateError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msg)
	}
}
