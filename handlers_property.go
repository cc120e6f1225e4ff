package main

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/example/screenplay/internal/domain"
)

func propertyFromInput(id string, in domain.PropertyInput) domain.Property {
	return domain.Property{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Value:       strings.TrimSpace(in.Value),
		Description: strings.TrimSpace(in.Description),
	}
}

func (a *App) HandleCreateProperty(w http.ResponseWriter, r *http.Request) {
	var in domain.PropertyInput
	if err := decodeJSON(w, r, &in); err != nil {
		a.respondError(w, r, err, "Error creating property")
		return
	}
	if err := in.Validate(); err != nil {
		a.respondError(w, r, err, "Error creating property")
		return
	}

	p, err := a.DB.CreateProperty(r.Context(), propertyFromInput("", in))
	if err != nil {
		a.respondError(w, r, err, "Error creating property")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (a *App) HandleListProperties(w http.ResponseWriter, r *http.Request) {
	ps, err := a.DB.ListProperties(r.Context())
	if err != nil {
		a.respondError(w, r, err, "Error retrieving properties")
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (a *App) HandleGetProperty(w http.ResponseWriter, r *http.Request) {
	p, err := a.DB.GetProperty(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.respondError(w, r, notFound("Property", err), "Error retrieving property")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *App) HandleUpdateProperty(w http.ResponseWriter, r *http.Request) {
	var in domain.PropertyInput
	if err := decodeJSON(w, r, &in); err != nil {
		a.respondError(w, r, err, "Error updating property")
		return
	}
	if err := in.Validate(); err != nil {
		a.respondError(w, r, err, "Error updating property")
		return
	}

	p, err := a.DB.UpdateProperty(r.Context(), propertyFromInput(mux.Vars(r)["id"], in))
	if err != nil {
		a.respondError(w, r, notFound("Property", err), "Error updating property")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *App) HandleDeleteProperty(w http.ResponseWriter, r *http.Request) {
	if _, err := a.DB.DeleteProperty(r.Context(), mux.Vars(r)["id"]); err != nil {
		a.respondError(w, r, notFound("Property", err), "Error deleting property")
		return
	}
	writeMessage(w, http.StatusOK, "Property deleted successfully")
}
