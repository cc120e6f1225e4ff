package main

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/example/screenplay/internal/domain"
)

func (a *App) HandleCreateRelation(w http.ResponseWriter, r *http.Request) {
	var in domain.RelationInput
	if err := decodeJSON(w, r, &in); err != nil {
		a.respondError(w, r, err, "Error creating relation")
		return
	}
	if err := in.Validate(); err != nil {
		a.respondError(w, r, err, "Error creating relation")
		return
	}

	rel, err := a.DB.CreateRelation(r.Context(), domain.Relation{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
	})
	if err != nil {
		a.respondError(w, r, err, "Error creating relation")
		return
	}
	writeJSON(w, http.StatusCreated, rel)
}

func (a *App) HandleListRelations(w http.ResponseWriter, r *http.Request) {
	rels, err := a.DB.ListRelations(r.Context())
	if err != nil {
		a.respondError(w, r, err, "Error retrieving relations")
		return
	}
	writeJSON(w, http.StatusOK, rels)
}

func (a *App) HandleGetRelation(w http.ResponseWriter, r *http.Request) {
	rel, err := a.DB.GetRelation(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.respondError(w, r, notFound("Relation", err), "Error retrieving relation")
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

func (a *App) HandleUpdateRelation(w http.ResponseWriter, r *http.Request) {
	var in domain.RelationInput
	if err := decodeJSON(w, r, &in); err != nil {
		a.respondError(w, r, err, "Error updating relation")
		return
	}
	if err := in.Validate(); err != nil {
		a.respondError(w, r, err, "Error updating relation")
		return
	}

	rel, err := a.DB.UpdateRelation(r.Context(), domain.Relation{
		ID:          mux.Vars(r)["id"],
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
	})
	if err != nil {
		a.respondError(w, r, notFound("Relation", err), "Error updating relation")
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

// HandleDeleteRelation removes the relation only; characters referencing it
// keep the dangling id and the report skips it.
func (a *App) HandleDeleteRelation(w http.ResponseWriter, r *http.Request) {
	if _, err := a.DB.DeleteRelation(r.Context(), mux.Vars(r)["id"]); err != nil {
		a.respondError(w, r, notFound("Relation", err), "Error deleting relation")
		return
	}
	writeMessage(w, http.StatusOK, "Relation deleted successfully")
}
