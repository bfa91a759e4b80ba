package devserver

import (
	"net/http"
	"strings"
)

// @Summary      List direct messages
// @Tags         messages
// @Security     BearerAuth
// @Produce      json
// @Param        friend query string true "Peer email"
// @Success      200  {array}  domain.Message
// @Failure      400  {object}  map[string]string
// @Router       /messages [get]
func handleListDirectMessages(st *State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		friend := normEmail(r.URL.Query().Get("friend"))
		if friend == "" {
			writeError(w, http.StatusBadRequest, "friend is required")
			return
		}
		writeJSON(w, http.StatusOK, st.directMessages(CurrentUser(r), friend))
	}
}

type directSendRequest struct {
	SenderEmail   string `json:"senderEmail"`
	ReceiverEmail string `json:"receiverEmail"`
	Content       string `json:"content"`
}

// @Summary      Send a direct message
// @Tags         messages
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Client key; repeats replay the first response"
// @Param        input body directSendRequest true "Message"
// @Success      200  {object}  domain.Message
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /messages/send [post]
func handleSendDirectMessage(st *State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := CurrentUser(r)

		var req directSendRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Content) == "" || strings.TrimSpace(req.ReceiverEmail) == "" {
			writeError(w, http.StatusBadRequest, "receiverEmail and content are required")
			return
		}
		if req.SenderEmail != "" && normEmail(req.SenderEmail) != caller {
			writeError(w, http.StatusForbidden, "senderEmail does not match the token")
			return
		}

		msg, err := st.sendDirect(caller, req.ReceiverEmail, req.Content)
		if err != nil {
			writeStateError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msg)
	}
}
