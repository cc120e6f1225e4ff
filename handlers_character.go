package main

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/screenplay/internal/domain"
)

func (a *App) HandleCreateCharacter(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	var in domain.CharacterInput
	if err := decodeJSON(w, r, &in); err != nil {
		a.respondError(w, r, err, "Error creating character")
		return
	}
	if err := in.Validate(); err != nil {
		a.respondError(w, r, err, "Error creating character")
		return
	}

	c, err := a.DB.CreateCharacter(r.Context(), in.Character(user.ID))
	if err != nil {
		a.respondError(w, r, err, "Error creating character")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (a *App) HandleListCharacters(w http.ResponseWriter, r *http.Request) {
	cs, err := a.DB.ListCharacters(r.Context())
	if err != nil {
		a.respondError(w, r, err, "Error retrieving characters")
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (a *App) HandleGetCharacter(w http.ResponseWriter, r *http.Request) {
	c, err := a.DB.GetCharacter(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.respondError(w, r, notFound("Character", err), "Error retrieving character")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleUpdateCharacter applies a partial update; absent fields keep their value.
func (a *App) HandleUpdateCharacter(w http.ResponseWriter, r *http.Request) {
	var patch domain.CharacterPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		a.respondError(w, r, err, "Error updating character")
		return
	}
	if err := patch.Validate(); err != nil {
		a.respondError(w, r, err, "Error updating character")
		return
	}

	c, err := a.DB.GetCharacter(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.respondError(w, r, notFound("Character", err), "Error updating character")
		return
	}
	patch.Apply(&c)

	updated, err := a.DB.UpdateCharacter(r.Context(), c)
	if err != nil {
		a.respondError(w, r, notFound("Character", err), "Error updating character")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *App) HandleDeleteCharacter(w http.ResponseWriter, r *http.Request) {
	if _, err := a.DB.DeleteCharacter(r.Context(), mux.Vars(r)["id"]); err != nil {
		a.respondError(w, r, notFound("Character", err), "Error deleting character")
		return
	}
	writeMessage(w, http.StatusOK, "Character deleted successfully")
}
