package http

import (
	"net/http"
	"strings"

	"caribook/internal/auth"
	"caribook/internal/log"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string       `json:"token"`
	Profile auth.Profile `json:"profile"`
}

type meResponse struct {
	auth.Profile
	ShowEarnings bool `json:"showEarnings"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, msgInvalidCredentials)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		BadRequestError("Email and password are required").Write(w)
		return
	}

	token, profile, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		log.FromContext(r.Context()).InfoContext(r.Context(), "Sign-in rejected",
			log.FieldOperation, log.OpSignIn,
			log.FieldClientIP, s.detector.ExtractClientIP(r))
		s.writeError(w, r, err, msgInvalidCredentials)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Signed in",
		log.FieldOperation, log.OpSignIn,
		log.FieldUserID, profile.UID,
		log.FieldRole, profile.Role)
	NewJSONResponse().Body(loginResponse{Token: token, Profile: profile}).Write(w)
}

// handleMe returns the caller's profile. ShowEarnings only hides figures in
// the client, the API itself does not restrict them.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	profile, _ := auth.FromContext(r.Context())
	NewJSONResponse().Body(meResponse{Profile: profile, ShowEarnings: profile.IsAdmin()}).Write(w)
}
