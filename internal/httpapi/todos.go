package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"todo-tracker/internal/model"
	"todo-tracker/internal/service"
)

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	todos, err := s.todos.List(r.Context(), UserID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	writeJSON(w, http.StatusOK, todos)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text            string `json:"text"`
		RecurrenceType  string `json:"recurrenceType"`
		InteractionType string `json:"interactionType"`
		DurationGoal    int    `json:"durationGoal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if body.Text == "" {
		writeError(w, http.StatusBadRequest, "Please add a text field")
		return
	}

	todo, err := s.todos.Create(r.Context(), UserID(r), service.CreateInput{
		Text:            body.Text,
		RecurrenceType:  body.RecurrenceType,
		InteractionType: body.InteractionType,
		DurationGoal:    body.DurationGoal,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, todo)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	req, err := parseUpdateRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	todo, err := s.todos.Update(r.Context(), UserID(r), r.PathValue("id"), req, s.now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

// parseUpdateRequest resolves the request body into a tagged variant
// once, at the boundary: an empty body is the legacy toggle, an
// explicit completed field sets the status directly, and a body with
// only content fields is a pure edit with no status change.
func parseUpdateRequest(body []byte) (service.UpdateRequest, error) {
	var req service.UpdateRequest

	if len(bytes.TrimSpace(body)) == 0 {
		req.Status = service.StatusToggle
		return req, nil
	}

	var fields struct {
		Completed       *bool   `json:"completed"`
		Text            *string `json:"text"`
		RecurrenceType  *string `json:"recurrenceType"`
		InteractionType *string `json:"interactionType"`
		DurationGoal    *int    `json:"durationGoal"`
	}
	if err := json.Unmarshal(body, &fields); err != nil {
		return req, err
	}

	req.Text = fields.Text
	req.RecurrenceType = fields.RecurrenceType
	req.InteractionType = fields.InteractionType
	req.DurationGoal = fields.DurationGoal

	switch {
	case fields.Completed != nil:
		req.Status = service.StatusSet
		req.Completed = *fields.Completed
	case fields.Text == nil && fields.RecurrenceType == nil &&
		fields.InteractionType == nil && fields.DurationGoal == nil:
		// A bare {} carries no fields at all, same as an empty body.
		req.Status = service.StatusToggle
	default:
		req.Status = service.StatusNone
	}
	return req, nil
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.todos.Delete(r.Context(), UserID(r), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":      id,
		"message": "Todo successfully deleted",
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.todos.History(r.Context(), UserID(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []model.TodoHistory{}
	}
	writeJSON(w, http.StatusOK, entries)
}
