package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"todo-tracker/internal/httpapi"
	"todo-tracker/internal/model"
	"todo-tracker/internal/service"
)

var testSecret = []byte("test-secret")

// fakeStore is a minimal in-memory TodoStore for handler tests.
type fakeStore struct {
	todos   map[string]model.Todo
	history []model.TodoHistory
	seq     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{todos: make(map[string]model.Todo)}
}

func (f *fakeStore) Create(_ context.Context, todo *model.Todo) error {
	f.seq++
	todo.ID = fmt.Sprintf("todo-%d", f.seq)
	todo.CreatedAt = time.Now()
	todo.UpdatedAt = todo.CreatedAt
	f.todos[todo.ID] = *todo
	return nil
}

func (f *fakeStore) FindByID(_ context.Context, id string) (*model.Todo, error) {
	todo, ok := f.todos[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	return &todo, nil
}

func (f *fakeStore) ListByUser(_ context.Context, userID string) ([]model.Todo, error) {
	var out []model.Todo
	for _, todo := range f.todos {
		if todo.UserID == userID {
			out = append(out, todo)
		}
	}
	return out, nil
}

func (f *fakeStore) ListRecurring(context.Context) ([]model.Todo, error) {
	var out []model.Todo
	for _, todo := range f.todos {
		if todo.IsRecurring() {
			out = append(out, todo)
		}
	}
	return out, nil
}

func (f *fakeStore) LatestHistory(_ context.Context, todoID string) (*model.TodoHistory, error) {
	var latest *model.TodoHistory
	for i := range f.history {
		e := f.history[i]
		if e.TodoID == todoID && (latest == nil || !e.CompletedAt.Before(latest.CompletedAt)) {
			latest = &e
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := *latest
	return &out, nil
}

func (f *fakeStore) ListHistory(_ context.Context, todoID string) ([]model.TodoHistory, error) {
	var out []model.TodoHistory
	for _, e := range f.history {
		if e.TodoID == todoID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	return out, nil
}

func (f *fakeStore) CommitTransition(_ context.Context, todo *model.Todo, hist service.HistoryMutation) error {
	stored, ok := f.todos[todo.ID]
	if !ok {
		return service.ErrNotFound
	}
	if stored.Version != todo.Version {
		return service.ErrConflict
	}
	if hist.PurgeAll {
		f.dropHistory(func(e model.TodoHistory) bool { return e.TodoID == todo.ID })
	}
	if hist.RemoveID != "" {
		f.dropHistory(func(e model.TodoHistory) bool { return e.ID == hist.RemoveID })
	}
	if hist.Append != nil {
		f.seq++
		hist.Append.ID = fmt.Sprintf("hist-%d", f.seq)
		f.history = append(f.history, *hist.Append)
	}
	todo.Version++
	f.todos[todo.ID] = *todo
	return nil
}

func (f *fakeStore) dropHistory(match func(model.TodoHistory) bool) {
	kept := f.history[:0]
	for _, e := range f.history {
		if !match(e) {
			kept = append(kept, e)
		}
	}
	f.history = kept
}

func (f *fakeStore) DeleteWithHistory(_ context.Context, todo *model.Todo) error {
	if _, ok := f.todos[todo.ID]; !ok {
		return service.ErrNotFound
	}
	f.dropHistory(func(e model.TodoHistory) bool { return e.TodoID == todo.ID })
	delete(f.todos, todo.ID)
	return nil
}

func newTestServer(t *testing.T) (http.Handler, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	return httpapi.New(service.NewTodoService(store, time.UTC), testSecret), store
}

func signedToken(t *testing.T, secret []byte, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, httpapi.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeTodo(t *testing.T, rec *httptest.ResponseRecorder) model.Todo {
	t.Helper()
	var todo model.Todo
	if err := json.Unmarshal(rec.Body.Bytes(), &todo); err != nil {
		t.Fatalf("decode todo: %v\nbody: %s", err, rec.Body.String())
	}
	return todo
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	if rec := doRequest(t, srv, http.MethodGet, "/api/todos", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status %d, want 401", rec.Code)
	}
	if rec := doRequest(t, srv, http.MethodGet, "/api/todos", "not-a-jwt", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: status %d, want 401", rec.Code)
	}
	wrongKey := signedToken(t, []byte("other-secret"), "user-a")
	if rec := doRequest(t, srv, http.MethodGet, "/api/todos", wrongKey, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key: status %d, want 401", rec.Code)
	}
	if rec := doRequest(t, srv, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("health: status %d, want 200", rec.Code)
	}
}

func TestCreateAndList(t *testing.T) {
	srv, _ := newTestServer(t)
	token := signedToken(t, testSecret, "user-a")

	rec := doRequest(t, srv, http.MethodPost, "/api/todos", token,
		[]byte(`{"text":"water plants","recurrenceType":"daily"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeTodo(t, rec)
	if created.Text != "water plants" || created.Completed || created.CompletionCount != 0 {
		t.Fatalf("created = %+v", created)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/todos", token, []byte(`{"recurrenceType":"daily"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing text: status %d, want 400", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/todos", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	var todos []model.Todo
	if err := json.Unmarshal(rec.Body.Bytes(), &todos); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(todos) != 1 || todos[0].ID != created.ID {
		t.Fatalf("list = %+v", todos)
	}
}

func TestUpdateVariants(t *testing.T) {
	srv, store := newTestServer(t)
	token := signedToken(t, testSecret, "user-a")

	rec := doRequest(t, srv, http.MethodPost, "/api/todos", token,
		[]byte(`{"text":"water plants","recurrenceType":"daily"}`))
	created := decodeTodo(t, rec)

	// Empty body: legacy toggle.
	rec = doRequest(t, srv, http.MethodPut, "/api/todos/"+created.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle: status %d, body %s", rec.Code, rec.Body.String())
	}
	toggled := decodeTodo(t, rec)
	if !toggled.Completed || toggled.CompletionCount != 1 {
		t.Fatalf("toggled = %+v", toggled)
	}
	if len(store.history) != 1 || store.history[0].TallySnapshot != 1 {
		t.Fatalf("history = %+v", store.history)
	}

	// Content-only body: pure edit, no status change.
	rec = doRequest(t, srv, http.MethodPut, "/api/todos/"+created.ID, token,
		[]byte(`{"text":"water all plants"}`))
	edited := decodeTodo(t, rec)
	if edited.Text != "water all plants" {
		t.Fatalf("edited text = %q", edited.Text)
	}
	if !edited.Completed || edited.CompletionCount != 1 {
		t.Fatalf("content edit changed status: %+v", edited)
	}

	// Explicit completed=false: undo.
	rec = doRequest(t, srv, http.MethodPut, "/api/todos/"+created.ID, token,
		[]byte(`{"completed":false}`))
	undone := decodeTodo(t, rec)
	if undone.Completed || undone.CompletionCount != 0 || undone.LastCompletedAt != nil {
		t.Fatalf("undone = %+v", undone)
	}
	if len(store.history) != 0 {
		t.Fatalf("history not removed: %+v", store.history)
	}

	rec = doRequest(t, srv, http.MethodPut, "/api/todos/missing", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id: status %d, want 404", rec.Code)
	}
}

func TestOwnerIsolation(t *testing.T) {
	srv, store := newTestServer(t)
	tokenA := signedToken(t, testSecret, "user-a")
	tokenB := signedToken(t, testSecret, "user-b")

	rec := doRequest(t, srv, http.MethodPost, "/api/todos", tokenB, []byte(`{"text":"private"}`))
	private := decodeTodo(t, rec)

	if rec := doRequest(t, srv, http.MethodPut, "/api/todos/"+private.ID, tokenA, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("cross-owner update: status %d, want 403", rec.Code)
	}
	if stored, _ := store.FindByID(context.Background(), private.ID); stored.Completed {
		t.Fatal("forbidden update must not mutate")
	}
	if rec := doRequest(t, srv, http.MethodDelete, "/api/todos/"+private.ID, tokenA, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("cross-owner delete: status %d, want 403", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/todos", tokenA, nil)
	var todos []model.Todo
	if err := json.Unmarshal(rec.Body.Bytes(), &todos); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(todos) != 0 {
		t.Fatalf("user A sees user B's todos: %+v", todos)
	}
}

func TestDeleteResponse(t *testing.T) {
	srv, _ := newTestServer(t)
	token := signedToken(t, testSecret, "user-a")

	rec := doRequest(t, srv, http.MethodPost, "/api/todos", token, []byte(`{"text":"temp"}`))
	created := decodeTodo(t, rec)

	rec = doRequest(t, srv, http.MethodDelete, "/api/todos/"+created.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode delete body: %v", err)
	}
	if body["id"] != created.ID || body["message"] == "" {
		t.Fatalf("delete body = %v", body)
	}

	if rec := doRequest(t, srv, http.MethodDelete, "/api/todos/"+created.ID, token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: status %d, want 404", rec.Code)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	tokenA := signedToken(t, testSecret, "user-a")
	tokenB := signedToken(t, testSecret, "user-b")

	rec := doRequest(t, srv, http.MethodPost, "/api/todos", tokenA,
		[]byte(`{"text":"exercise","recurrenceType":"daily"}`))
	created := decodeTodo(t, rec)
	doRequest(t, srv, http.MethodPut, "/api/todos/"+created.ID, tokenA, nil)

	rec = doRequest(t, srv, http.MethodGet, "/api/todos/"+created.ID+"/history", tokenA, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history: status %d", rec.Code)
	}
	var entries []model.TodoHistory
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(entries) != 1 || entries[0].TallySnapshot != 1 {
		t.Fatalf("entries = %+v", entries)
	}

	if rec := doRequest(t, srv, http.MethodGet, "/api/todos/"+created.ID+"/history", tokenB, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("cross-owner history: status %d, want 403", rec.Code)
	}
}
