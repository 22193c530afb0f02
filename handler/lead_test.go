package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	leads "github.com/erino/leads-api"
)

// fakeLeadService is an in-memory LeadService that records the filter and
// page it was last asked for.
type fakeLeadService struct {
	store      map[string]leads.Lead
	lastFilter leads.Filter
	lastPage   leads.Page
}

func newFakeLeadService() *fakeLeadService {
	return &fakeLeadService{store: map[string]leads.Lead{}}
}

func (s *fakeLeadService) Create(_ context.Context, lead leads.Lead) error {
	for _, l := range s.store {
		if l.Email == lead.Email {
			return leads.ErrDuplicatedLead
		}
	}
	s.store[lead.ID] = lead
	return nil
}

func (s *fakeLeadService) GetByID(_ context.Context, id string) (leads.Lead, error) {
	l, ok := s.store[id]
	if !ok {
		return leads.Lead{}, leads.ErrLeadNotFound
	}
	return l, nil
}

func (s *fakeLeadService) Update(_ context.Context, lead leads.Lead) error {
	if _, ok := s.store[lead.ID]; !ok {
		return leads.ErrLeadNotFound
	}
	for id, l := range s.store {
		if id != lead.ID && l.Email == lead.Email {
			return leads.ErrDuplicatedLead
		}
	}
	s.store[lead.ID] = lead
	return nil
}

func (s *fakeLeadService) Delete(_ context.Context, id string) error {
	if _, ok := s.store[id]; !ok {
		return leads.ErrLeadNotFound
	}
	delete(s.store, id)
	return nil
}

func (s *fakeLeadService) List(_ context.Context, filter leads.Filter, page leads.Page) ([]leads.Lead, int, error) {
	s.lastFilter = filter
	s.lastPage = page

	var out []leads.Lead
	for _, l := range s.store {
		if filter.CreatedBy != "" && l.CreatedBy != filter.CreatedBy {
			continue
		}
		out = append(out, l)
	}
	return out, len(out), nil
}

func injectCaller(caller leads.User) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(rw, r.WithContext(withCaller(r.Context(), caller)))
		})
	}
}

func newLeadRouter(svc leads.LeadService, caller leads.User) http.Handler {
	lh := NewLeadHandler(svc, zap.NewNop().Sugar())
	r := chi.NewRouter()
	r.Use(injectCaller(caller))
	r.Route("/api/leads", func(r chi.Router) {
		r.Post("/", lh.Create)
		r.Get("/", lh.List)
		r.Get("/{id}", lh.GetByID)
		r.Put("/{id}", lh.Update)
		r.Delete("/{id}", lh.Delete)
	})
	return r
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["message"]
}

var (
	userA = leads.User{ID: uuid.NewString(), Name: "Alice", Role: leads.RoleUser}
	userB = leads.User{ID: uuid.NewString(), Name: "Bob", Role: leads.RoleUser}
	admin = leads.User{ID: uuid.NewString(), Name: "Root", Role: leads.RoleAdmin}
)

func TestLeadHandler_Create(t *testing.T) {
	svc := newFakeLeadService()
	router := newLeadRouter(svc, userA)

	rec := doJSON(t, router, http.MethodPost, "/api/leads",
		`{"first_name":"Jane","last_name":"Doe","email":"x@y.com","status":"new","source":"website"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created leads.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	// Ownership always comes from the session, and the response carries
	// the assigned owner.
	stored := svc.store[created.ID]
	assert.Equal(t, userA.ID, stored.CreatedBy)
	assert.False(t, stored.CreatedAt.IsZero())
	require.NotNil(t, created.Owner)
	assert.Equal(t, userA.ID, created.Owner.ID)
}

func TestLeadHandler_Create_OwnerForcedFromSession(t *testing.T) {
	svc := newFakeLeadService()
	router := newLeadRouter(svc, userA)

	// A payload naming another owner still creates, and the owner is the
	// session user, not the payload value.
	rec := doJSON(t, router, http.MethodPost, "/api/leads",
		`{"first_name":"Jane","last_name":"Doe","email":"x@y.com","created_by":"`+userB.ID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created leads.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	assert.Equal(t, userA.ID, svc.store[created.ID].CreatedBy)
	require.NotNil(t, created.Owner)
	assert.Equal(t, userA.ID, created.Owner.ID)
}

func TestLeadHandler_Create_MissingFields(t *testing.T) {
	svc := newFakeLeadService()
	router := newLeadRouter(svc, userA)

	rec := doJSON(t, router, http.MethodPost, "/api/leads",
		`{"first_name":"Jane","email":"x@y.com"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing required fields", message(t, rec))
	assert.Empty(t, svc.store)
}

func TestLeadHandler_Create_DuplicateEmail(t *testing.T) {
	svc := newFakeLeadService()
	router := newLeadRouter(svc, userA)

	payload := `{"first_name":"Jane","last_name":"Doe","email":"x@y.com"}`
	rec := doJSON(t, router, http.MethodPost, "/api/leads", payload)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/leads", payload)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email already exists for a lead", message(t, rec))
	assert.Len(t, svc.store, 1)
}

func TestLeadHandler_GetByID_AccessControl(t *testing.T) {
	svc := newFakeLeadService()
	leadID := uuid.NewString()
	svc.store[leadID] = leads.Lead{ID: leadID, Email: "x@y.com", CreatedBy: userA.ID}

	// A missing record is 404 for everyone; an existing record someone
	// else owns is 403, not 404.
	tests := []struct {
		name   string
		caller leads.User
		id     string
		want   int
	}{
		{"owner reads own lead", userA, leadID, http.StatusOK},
		{"other user is forbidden", userB, leadID, http.StatusForbidden},
		{"admin reads anything", admin, leadID, http.StatusOK},
		{"missing lead is not found", userB, uuid.NewString(), http.StatusNotFound},
		{"malformed id is rejected", userA, "not-a-uuid", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newLeadRouter(svc, tt.caller)
			rec := doJSON(t, router, http.MethodGet, "/api/leads/"+tt.id, "")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestLeadHandler_List_Scope(t *testing.T) {
	tests := []struct {
		name      string
		caller    leads.User
		target    string
		wantOwner string
	}{
		{"non-admin pinned to own records", userA, "/api/leads", userA.ID},
		{"non-admin cannot pick another owner", userA, "/api/leads?created_by=" + userB.ID, userA.ID},
		{"admin unscoped by default", admin, "/api/leads", ""},
		{"admin restricted to requested owner", admin, "/api/leads?created_by=" + userB.ID, userB.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeLeadService()
			router := newLeadRouter(svc, tt.caller)
			rec := doJSON(t, router, http.MethodGet, tt.target, "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantOwner, svc.lastFilter.CreatedBy)
		})
	}
}

func TestLeadHandler_List_PaginationClamped(t *testing.T) {
	svc := newFakeLeadService()
	router := newLeadRouter(svc, userA)

	rec := doJSON(t, router, http.MethodGet, "/api/leads?page=0&limit=200", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, leads.Page{Number: 1, Size: 100}, svc.lastPage)

	var result leads.PageResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 100, result.Limit)
	assert.NotNil(t, result.Data)
}

func TestLeadHandler_List_MalformedFilter(t *testing.T) {
	svc := newFakeLeadService()
	router := newLeadRouter(svc, userA)

	rec := doJSON(t, router, http.MethodGet, "/api/leads?score_eq=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeadHandler_Update_OwnerImmutable(t *testing.T) {
	svc := newFakeLeadService()
	leadID := uuid.NewString()
	svc.store[leadID] = leads.Lead{
		ID: leadID, FirstName: "Jane", LastName: "Doe",
		Email: "x@y.com", CreatedBy: userA.ID,
	}

	router := newLeadRouter(svc, userA)
	rec := doJSON(t, router, http.MethodPut, "/api/leads/"+leadID,
		`{"lead_value":500,"created_by":"`+userB.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	updated := svc.store[leadID]
	assert.Equal(t, 500.0, updated.LeadValue)
	assert.Equal(t, userA.ID, updated.CreatedBy)
}

func TestLeadHandler_Delete(t *testing.T) {
	svc := newFakeLeadService()
	leadID := uuid.NewString()
	svc.store[leadID] = leads.Lead{ID: leadID, Email: "x@y.com", CreatedBy: userA.ID}

	// Another user cannot delete, the owner can.
	rec := doJSON(t, newLeadRouter(svc, userB), http.MethodDelete, "/api/leads/"+leadID, "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Len(t, svc.store, 1)

	rec = doJSON(t, newLeadRouter(svc, userA), http.MethodDelete, "/api/leads/"+leadID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Deleted", message(t, rec))
	assert.Empty(t, svc.store)
}

func TestLeadLifecycle(t *testing.T) {
	svc := newFakeLeadService()

	// Caller A creates a lead.
	rec := doJSON(t, newLeadRouter(svc, userA), http.MethodPost, "/api/leads",
		`{"first_name":"Jane","last_name":"Doe","email":"x@y.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created leads.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// Caller B cannot read it, the admin can.
	rec = doJSON(t, newLeadRouter(svc, userB), http.MethodGet, "/api/leads/"+created.ID, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, newLeadRouter(svc, admin), http.MethodGet, "/api/leads/"+created.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// A bumps the lead value; the change sticks and the owner does not move.
	rec = doJSON(t, newLeadRouter(svc, userA), http.MethodPut, "/api/leads/"+created.ID,
		`{"lead_value":500}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, newLeadRouter(svc, userA), http.MethodGet, "/api/leads/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got leads.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 500.0, got.LeadValue)
	assert.Equal(t, userA.ID, svc.store[created.ID].CreatedBy)
}
