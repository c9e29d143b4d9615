package handlers

import (
	"net/http"

	"familia/internal/service"
)

// ProfileHandler handles the caller's own profile
type ProfileHandler struct {
	membership *service.MembershipService
	profile    *service.ProfileService
	maxSize    int64
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(membership *service.MembershipService, profile *service.ProfileService, maxSize int64) *ProfileHandler {
	return &ProfileHandler{
		membership: membership,
		profile:    profile,
		maxSize:    maxSize,
	}
}

type updateProfileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Me returns the caller with their family set
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.membership.GetUser(r.Context(), GetUserIDFromContext(r.Context()))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, user)
}

// UpdateMe changes the caller's username and email
func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.profile.UpdateProfile(r.Context(), GetUserIDFromContext(r.Context()), req.Username, req.Email)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, user)
}

// UploadPicture stores the multipart "picture" file as the caller's profile picture
func (h *ProfileHandler) UploadPicture(w http.ResponseWriter, r *http.Request) {
	// Leave room for the multipart framing around the file
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+64*1024)
	if err := r.ParseMultipartForm(h.maxSize); err != nil {
		respondWithMessage(w, http.StatusBadRequest, "Invalid upload")
		return
	}
	file, header, err := r.FormFile("picture")
	if err != nil {
		respondWithMessage(w, http.StatusBadRequest, "picture is required")
		return
	}
	defer file.Close()

	user, err := h.profile.UploadPicture(r.Context(), GetUserIDFromContext(r.Context()), header.Header.Get("Content-Type"), file)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, user)
}
