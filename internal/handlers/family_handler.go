package handlers

import (
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/samber/lo"

	"selfmanager/internal/service"
)

// FamilyHandler handles family, membership and join request requests
type FamilyHandler struct {
	familyService *service.FamilyService
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(familyService *service.FamilyService) *FamilyHandler {
	return &FamilyHandler{familyService: familyService}
}

// ListFamilies lists the families the user owns or belongs to
func (h *FamilyHandler) ListFamilies(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	families, err := h.familyService.ListFamilies(user.ID)
	if err != nil {
		respondWithServiceError(w, "Error listing families", err)
		return
	}
	views := make([]FamilyView, 0, len(families))
	for i := range families {
		views = append(views, newFamilyView(&families[i]))
	}
	respondJSON(w, http.StatusOK, views)
}

// CreateFamily creates a family owned by the user
func (h *FamilyHandler) CreateFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req struct {
		Name             string `json:"name"`
		AllowJoinViaLink *bool  `json:"allow_join_via_link"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	family, err := h.familyService.CreateFamily(user.ID, req.Name, lo.FromPtrOr(req.AllowJoinViaLink, true))
	if err != nil {
		respondWithServiceError(w, "Error creating family", err)
		return
	}
	respondJSON(w, http.StatusCreated, newFamilyView(family))
}

// GetFamily returns one of the user's families
func (h *FamilyHandler) GetFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	family, err := h.familyService.GetFamily(user.ID, familyID)
	if err != nil {
		respondWithServiceError(w, "Error getting family", err)
		return
	}
	respondJSON(w, http.StatusOK, newFamilyView(family))
}

// UpdateFamily changes the family settings
func (h *FamilyHandler) UpdateFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Name             *string `json:"name"`
		AllowJoinViaLink *bool   `json:"allow_join_via_link"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	family, err := h.familyService.UpdateFamily(user.ID, familyID, service.FamilyUpdate{
		Name:             req.Name,
		AllowJoinViaLink: req.AllowJoinViaLink,
	})
	if err != nil {
		respondWithServiceError(w, "Error updating family", err)
		return
	}
	respondJSON(w, http.StatusOK, newFamilyView(family))
}

// DeleteFamily deletes a family the user owns
func (h *FamilyHandler) DeleteFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.familyService.DeleteFamily(user.ID, familyID); err != nil {
		respondWithServiceError(w, "Error deleting family", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Members lists a family's members
func (h *FamilyHandler) Members(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	members, err := h.familyService.ListMembers(user.ID, familyID)
	if err != nil {
		respondWithServiceError(w, "Error listing members", err)
		return
	}
	respondJSON(w, http.StatusOK, lo.Map(members, newFamilyMemberView))
}

// Join files a join request for the family with the given code
func (h *FamilyHandler) Join(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req struct {
		FamilyCode string `json:"family_code"`
		IsLink     bool   `json:"is_link"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.familyService.RequestToJoin(user.ID, req.FamilyCode, req.IsLink); err != nil {
		if service.IsNotFound(err) {
			respondWithError(w, http.StatusNotFound, "Invalid family code", "", nil)
			return
		}
		respondWithServiceError(w, "Error joining family", err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"detail": "Join request sent! Waiting for owner approval."})
}

// PendingRequests lists join requests awaiting the owner
func (h *FamilyHandler) PendingRequests(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	requests, err := h.familyService.PendingRequests(user.ID, familyID)
	if err != nil {
		respondWithServiceError(w, "Error listing join requests", err)
		return
	}
	respondJSON(w, http.StatusOK, lo.Map(requests, newJoinRequestView))
}

// HandleRequest approves or rejects a join request
func (h *FamilyHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		RequestID *int64 `json:"request_id"`
		Approve   *bool  `json:"approve"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RequestID == nil || req.Approve == nil {
		respondWithError(w, http.StatusBadRequest, "request_id and approve are required.", "", nil)
		return
	}

	if err := h.familyService.HandleRequest(user.ID, familyID, *req.RequestID, *req.Approve); err != nil {
		respondWithServiceError(w, "Error handling join request", err)
		return
	}

	detail := "Request rejected."
	if *req.Approve {
		detail = "Request accepted. Member added to family."
	}
	respondJSON(w, http.StatusOK, map[string]string{"detail": detail})
}

// ByCode looks a family up by its join code
func (h *FamilyHandler) ByCode(w http.ResponseWriter, r *http.Request) {
	family, err := h.familyService.GetByCode(r.URL.Query().Get("code"))
	if err != nil {
		respondWithServiceError(w, "Error looking up family", err)
		return
	}
	respondJSON(w, http.StatusOK, newFamilyView(family))
}

// TransferOwnership hands the family to another member
func (h *FamilyHandler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		NewOwnerID int64 `json:"new_owner_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	family, err := h.familyService.TransferOwnership(user.ID, familyID, req.NewOwnerID)
	if err != nil {
		respondWithServiceError(w, "Error transferring ownership", err)
		return
	}
	respondJSON(w, http.StatusOK, newFamilyView(family))
}

// RemoveMember deletes a membership: leaving, or removal by the owner
func (h *FamilyHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	memberID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.familyService.RemoveMember(user.ID, memberID); err != nil {
		respondWithServiceError(w, "Error removing member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var inviteTemplate = template.Must(template.New("invite").Parse(`<!DOCTYPE html>
<html>
<head>
	<title>Joining Family...</title>
	<meta name="viewport" content="width=device-width, initial-scale=1">
	<style>
		body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; display: flex; align-items: center; justify-content: center; height: 100vh; margin: 0; background: #f8fafc; }
		.card { background: white; padding: 2.5rem; border-radius: 1.5rem; box-shadow: 0 10px 25px -5px rgba(0, 0, 0, 0.1); text-align: center; max-width: 400px; width: 90%; }
		h2 { color: #1e293b; margin-top: 0; font-size: 1.5rem; }
		p { color: #64748b; line-height: 1.6; margin-bottom: 2rem; }
		.btn { display: inline-block; background: #6366f1; color: white; padding: 0.875rem 1.5rem; border-radius: 0.75rem; text-decoration: none; font-weight: 600; }
		.code { font-family: monospace; font-size: 1.25rem; letter-spacing: 0.2em; color: #1e293b; }
	</style>
</head>
<body>
	<div class="card">
		<h2>You're invited!</h2>
		<p>Opening Self Manager to join the family with code <span class="code">{{.Code}}</span>.</p>
		<a class="btn" href="{{.AppURL}}">Open App</a>
	</div>
	<script>window.location.href = {{.AppURL}};</script>
</body>
</html>`))

// Invite renders a page that hands a shared invite link over to the mobile app
func (h *FamilyHandler) Invite(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(strings.TrimSpace(r.PathValue("code")))
	data := struct {
		Code   string
		AppURL template.URL
	}{
		Code:   code,
		AppURL: template.URL("selfmanager://join/" + template.URLQueryEscaper(code)),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := inviteTemplate.Execute(w, data); err != nil {
		log.Printf("Error rendering invite page: %v", err)
	}
}
