package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/contactbook/apiserver/internal/services"
	"github.com/contactbook/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const timestampLayout = "2006-01-02 15:04:05"

// ContactHandler provides HTTP handlers for contacts.
type ContactHandler struct {
	contactService *services.ContactService
	location       *time.Location
}

// NewContactHandler constructs a handler that renders timestamps in loc.
func NewContactHandler(contactService *services.ContactService, loc *time.Location) *ContactHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ContactHandler{contactService: contactService, location: loc}
}

// ContactRouter registers contact routes on the given router. Every route
// requires authentication; mutations also require a role.
func ContactRouter(
	r chi.Router,
	contactService *services.ContactService,
	loc *time.Location,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewContactHandler(contactService, loc)

	r.Use(authMiddleware)
	r.Get("/", handler.ListContacts)
	r.With(requireRole(types.RoleAdmin, types.RoleEditor)).Post("/", handler.CreateContact)
	r.Route("/{contactID}", func(r chi.Router) {
		r.Get("/", handler.GetContact)
		r.With(requireRole(types.RoleAdmin, types.RoleEditor)).Put("/", handler.UpdateContact)
		r.With(requireRole(types.RoleAdmin)).Delete("/", handler.DeleteContact)
	})
}

func (h *ContactHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	filter := types.ContactFilter{Search: strings.TrimSpace(r.URL.Query().Get("q"))}

	contacts, err := h.contactService.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]ContactResponse, 0, len(contacts))
	for _, contact := range contacts {
		resp = append(resp, h.render(contact))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ContactHandler) GetContact(w http.ResponseWriter, r *http.Request) {
	id, err := parseContactID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	contact, err := h.contactService.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.render(contact))
}

func (h *ContactHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var patch types.ContactPatch
	if err := decodeObject(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := h.contactService.Create(r.Context(), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, ContactMessageResponse{
		Message: "Contact created successfully",
		Contact: h.render(created),
	})
}

func (h *ContactHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	id, err := parseContactID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var patch types.ContactPatch
	if err := decodeObject(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := h.contactService.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ContactMessageResponse{
		Message: "Contact updated successfully",
		Contact: h.render(updated),
	})
}

func (h *ContactHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	id, err := parseContactID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	deleted, err := h.contactService.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ContactMessageResponse{
		Message: "Contact deleted successfully",
		Contact: h.render(deleted),
	})
}

// ContactResponse is the wire shape of a contact.
type ContactResponse struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Lastname  *string `json:"lastname"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone"`
	Active    bool    `json:"active"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt *string `json:"updatedAt"`
}

type ContactMessageResponse struct {
	Message string          `json:"message"`
	Contact ContactResponse `json:"contact"`
}

func (h *ContactHandler) render(contact types.Contact) ContactResponse {
	resp := ContactResponse{
		ID:        contact.ID,
		Name:      contact.Name,
		Lastname:  contact.Lastname,
		Email:     contact.Email,
		Phone:     contact.Phone,
		Active:    contact.Active,
		CreatedAt: contact.CreatedAt.In(h.location).Format(timestampLayout),
	}
	if contact.UpdatedAt != nil {
		updatedAt := contact.UpdatedAt.In(h.location).Format(timestampLayout)
		resp.UpdatedAt = &updatedAt
	}
	return resp
}

func parseContactID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "contactID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, services.Malformed("Invalid contact id")
	}
	return id, nil
}
