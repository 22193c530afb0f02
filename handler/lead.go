package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	leads "github.com/erino/leads-api"
)

type LeadHandler struct {
	service leads.LeadService
	log     *zap.SugaredLogger
}

func NewLeadHandler(service leads.LeadService, log *zap.SugaredLogger) *LeadHandler {
	return &LeadHandler{
		service: service,
		log:     log,
	}
}

func (lh LeadHandler) Create(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := CallerFromContext(ctx)
	if !ok {
		respondErr(ctx, rw, http.StatusUnauthorized, errors.New("not authenticated"))
		return
	}

	var lead leads.Lead
	if err := decode(r, &lead); err != nil {
		lh.log.Errorw("Create", "error", err.Error())
		respondErr(ctx, rw, http.StatusBadRequest, err)
		return
	}

	if err := lead.Validate(); err != nil {
		respondErr(ctx, rw, http.StatusBadRequest, err)
		return
	}

	if lead.Status == "" {
		lead.Status = leads.StatusNew
	}
	if lead.Source == "" {
		lead.Source = leads.SourceOther
	}

	now := time.Now().UTC()

	lead.ID = uuid.NewString()
	lead.CreatedAt = now
	lead.UpdatedAt = now
	// Ownership comes from the session, never from the payload.
	lead.CreatedBy = caller.ID
	lead.Owner = nil

	if err := lh.service.Create(ctx, lead); err != nil {
		lh.log.Errorw("Create", "error", err.Error())
		switch {
		case errors.Is(err, leads.ErrDuplicatedLead):
			respondErr(ctx, rw, http.StatusBadRequest, err)
		default:
			respondErr(ctx, rw, http.StatusInternalServerError, err)
		}
		return
	}

	lead.Owner = &leads.Owner{ID: caller.ID, Name: caller.Name, Email: caller.Email}

	respond(ctx, rw, http.StatusCreated, lead)
}

func (lh LeadHandler) List(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := CallerFromContext(ctx)
	if !ok {
		respondErr(ctx, rw, http.StatusUnauthorized, errors.New("not authenticated"))
		return
	}

	q := r.URL.Query()

	filter, err := leads.ParseFilter(q)
	if err != nil {
		respondErr(ctx, rw, http.StatusBadRequest, err)
		return
	}
	filter.Scope(caller, q.Get("created_by"))

	page := leads.ParsePage(q)

	data, total, err := lh.service.List(ctx, filter, page)
	if err != nil {
		lh.log.Errorw("List", "error", err.Error())
		respondErr(ctx, rw, http.StatusInternalServerError, err)
		return
	}

	respond(ctx, rw, http.StatusOK, leads.NewPageResult(data, page, total))
}

func (lh LeadHandler) GetByID(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	lead, ok := lh.fetch(ctx, rw, r)
	if !ok {
		return
	}

	respond(ctx, rw, http.StatusOK, lead)
}

func (lh LeadHandler) Update(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	lead, ok := lh.fetch(ctx, rw, r)
	if !ok {
		return
	}

	var upd leads.LeadUpdate
	if err := decode(r, &upd); err != nil {
		lh.log.Errorw("Update", "error", err.Error())
		respondErr(ctx, rw, http.StatusBadRequest, err)
		return
	}

	lead.Apply(upd)
	if err := lead.Validate(); err != nil {
		respondErr(ctx, rw, http.StatusBadRequest, err)
		return
	}
	lead.UpdatedAt = time.Now().UTC()

	if err := lh.service.Update(ctx, lead); err != nil {
		lh.log.Errorw("Update", "error", err.Error())
		switch {
		case errors.Is(err, leads.ErrDuplicatedLead):
			respondErr(ctx, rw, http.StatusBadRequest, err)
		case errors.Is(err, leads.ErrLeadNotFound):
			respondErr(ctx, rw, http.StatusNotFound, err)
		default:
			respondErr(ctx, rw, http.StatusInternalServerError, err)
		}
		return
	}

	respond(ctx, rw, http.StatusOK, lead)
}

func (lh LeadHandler) Delete(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	lead, ok := lh.fetch(ctx, rw, r)
	if !ok {
		return
	}

	if err := lh.service.Delete(ctx, lead.ID); err != nil {
		lh.log.Errorw("Delete", "error", err.Error())
		switch {
		case errors.Is(err, leads.ErrLeadNotFound):
			respondErr(ctx, rw, http.StatusNotFound, err)
		default:
			respondErr(ctx, rw, http.StatusInternalServerError, err)
		}
		return
	}

	respond(ctx, rw, http.StatusOK, map[string]string{"message": "Deleted"})
}

// fetch loads the addressed lead and runs the access gate. Existence is
// checked before ownership, so a missing record is a 404 for everyone and
// an existing record a caller does not own is a 403.
func (lh LeadHandler) fetch(ctx context.Context, rw http.ResponseWriter, r *http.Request) (leads.Lead, bool) {
	caller, ok := CallerFromContext(ctx)
	if !ok {
		respondErr(ctx, rw, http.StatusUnauthorized, errors.New("not authenticated"))
		return leads.Lead{}, false
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondErr(ctx, rw, http.StatusBadRequest, errors.New("ID is not in its proper form"))
		return leads.Lead{}, false
	}

	lead, err := lh.service.GetByID(ctx, id.String())
	if err != nil {
		switch {
		case errors.Is(err, leads.ErrLeadNotFound):
			respondErr(ctx, rw, http.StatusNotFound, err)
		default:
			lh.log.Errorw("GetByID", "error", err.Error())
			respondErr(ctx, rw, http.StatusInternalServerError, err)
		}
		return leads.Lead{}, false
	}

	if !caller.CanAccessLead(lead) {
		respondErr(ctx, rw, http.StatusForbidden, errors.New("forbidden"))
		return leads.Lead{}, false
	}

	return lead, true
}
