package handlers

import (
	"net/http"
	"strconv"

	"familia/internal/models"
	"familia/internal/qrcode"
	"familia/internal/service"
)

// FamilyHandler handles family membership and roster requests
type FamilyHandler struct {
	membership  *service.MembershipService
	roster      *service.RosterService
	invitations *service.InvitationService
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(membership *service.MembershipService, roster *service.RosterService, invitations *service.InvitationService) *FamilyHandler {
	return &FamilyHandler{
		membership:  membership,
		roster:      roster,
		invitations: invitations,
	}
}

type createFamilyRequest struct {
	FamilyName string `json:"familyName"`
}

// joinFamilyRequest accepts a bare family ID or the text of a join QR code
type joinFamilyRequest struct {
	FamilyID string `json:"familyId"`
}

type inviteRequest struct {
	Email string `json:"email"`
}

// CreateFamily creates a family with the caller as its first member
func (h *FamilyHandler) CreateFamily(w http.ResponseWriter, r *http.Request) {
	var req createFamilyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	family, err := h.membership.CreateFamily(r.Context(), GetUserIDFromContext(r.Context()), req.FamilyName)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusCreated, family)
}

// JoinFamily adds the caller to an existing family
func (h *FamilyHandler) JoinFamily(w http.ResponseWriter, r *http.Request) {
	var req joinFamilyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	familyID, err := qrcode.ParseJoinPayload(req.FamilyID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	ctx := r.Context()
	if err := h.membership.JoinFamily(ctx, GetUserIDFromContext(ctx), familyID); err != nil {
		respondWithError(w, r, err)
		return
	}
	family, err := h.membership.GetFamily(ctx, familyID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, family)
}

// SwitchFamily selects the caller's current family
func (h *FamilyHandler) SwitchFamily(w http.ResponseWriter, r *http.Request) {
	var req joinFamilyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	userID := GetUserIDFromContext(ctx)
	if err := h.membership.SwitchFamily(ctx, userID, req.FamilyID); err != nil {
		respondWithError(w, r, err)
		return
	}
	user, err := h.membership.GetUser(ctx, userID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, user)
}

// Members returns the resolved roster of a family the caller belongs to
func (h *FamilyHandler) Members(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	familyID := r.PathValue("id")
	if err := h.verifyAccess(r, familyID); err != nil {
		respondWithError(w, r, err)
		return
	}

	members, err := h.roster.FetchFamilyMembers(ctx, familyID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, members)
}

// QRCode renders a family's join code as a PNG
func (h *FamilyHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	familyID := r.PathValue("id")
	if err := h.verifyAccess(r, familyID); err != nil {
		respondWithError(w, r, err)
		return
	}

	size := qrcode.DefaultSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < minQRSize || n > maxQRSize {
			respondWithMessage(w, http.StatusBadRequest, "size must be between 64 and 1024")
			return
		}
		size = n
	}

	png, err := qrcode.FamilyJoinPNG(familyID, size)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(png)
}

// Invite emails a join link for the caller's current family
func (h *FamilyHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.invitations.InviteByEmail(r.Context(), GetUserIDFromContext(r.Context()), req.Email); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusAccepted, map[string]string{"email": req.Email})
}

// Partners returns the other members of the caller's current family
func (h *FamilyHandler) Partners(w http.ResponseWriter, r *http.Request) {
	partners, err := h.roster.ChatPartners(r.Context(), GetUserIDFromContext(r.Context()))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if partners == nil {
		partners = []models.User{}
	}
	respondSuccess(w, http.StatusOK, partners)
}

// verifyAccess reports a missing family before a missing membership
func (h *FamilyHandler) verifyAccess(r *http.Request, familyID string) error {
	ctx := r.Context()
	if _, err := h.membership.GetFamily(ctx, familyID); err != nil {
		return err
	}
	return h.membership.VerifyFamilyAccess(ctx, GetUserIDFromContext(ctx), familyID)
}
