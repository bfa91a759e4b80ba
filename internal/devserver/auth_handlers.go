package devserver

import (
	"net/http"
	"strings"

	"client_go/internal/domain"
	"client_go/internal/security"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	JWT string `json:"jwt"`
}

// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body domain.Profile true "Register input"
// @Success      201  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /auth/register [post]
func handleRegister(st *State, hasher *security.PasswordHasher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.Profile
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.LastName) == "" ||
			strings.TrimSpace(req.Email) == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "name, lastName, email and password are required")
			return
		}

		hashed, err := hasher.Hash(req.Password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to hash password")
			return
		}
		if err := st.addUser(req, hashed); err != nil {
			writeStateError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"message": "registered"})
	}
}

// @Summary      Login
// @Description  Login with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body loginRequest true "Login input"
// @Success      200  {object}  loginResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /auth/login [post]
func handleLogin(st *State, tokens *security.TokenService, hasher *security.PasswordHasher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeBody(w, r, &req) {
			return
		}

		hashed, ok := st.passwordHash(req.Email)
		if !ok || !hasher.Matches(req.Password, hashed) {
			writeError(w, http.StatusUnauthorized, "incorrect email or password")
			return
		}

		token, err := tokens.CreateForUser(normEmail(req.Email))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to create token")
			return
		}
		writeJSON(w, http.StatusOK, loginResponse{JWT: token})
	}
}
