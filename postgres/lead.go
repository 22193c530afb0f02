package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	leads "github.com/erino/leads-api"
)

// lib/pq errorCodeNames
// https://github.com/lib/pq/blob/master/error.go#L178
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqerr *pq.Error
	return errors.As(err, &pqerr) && pqerr.Code == uniqueViolation
}

type LeadService struct {
	db *sqlx.DB
}

func NewLeadService(db *sqlx.DB) leads.LeadService {
	return &LeadService{
		db: db,
	}
}

// selectLeads resolves the owner alongside each lead so callers get the
// owner summary without a second query.
const selectLeads = `
	SELECT
		l.id, l.first_name, l.last_name, l.email, l.phone, l.company,
		l.city, l.state, l.source, l.status, l.score, l.lead_value,
		l.is_qualified, l.last_activity_at, l.created_at, l.updated_at,
		l.created_by,
		u.id AS owner_id, u.name AS owner_name, u.email AS owner_email
	FROM leads AS l
	LEFT JOIN users AS u ON u.id = l.created_by`

type leadRow struct {
	leads.Lead
	OwnerID    sql.NullString `db:"owner_id"`
	OwnerName  sql.NullString `db:"owner_name"`
	OwnerEmail sql.NullString `db:"owner_email"`
}

func (r leadRow) lead() leads.Lead {
	l := r.Lead
	if r.OwnerID.Valid {
		l.Owner = &leads.Owner{
			ID:    r.OwnerID.String,
			Name:  r.OwnerName.String,
			Email: r.OwnerEmail.String,
		}
	}
	return l
}

func (ls LeadService) Create(ctx context.Context, lead leads.Lead) error {
	const query = `
	INSERT INTO leads (
		id, first_name, last_name, email, phone, company, city, state,
		source, status, score, lead_value, is_qualified, last_activity_at,
		created_at, updated_at, created_by
	) VALUES (
		:id, :first_name, :last_name, :email, :phone, :company, :city, :state,
		:source, :status, :score, :lead_value, :is_qualified, :last_activity_at,
		:created_at, :updated_at, :created_by
	)`

	if _, err := ls.db.NamedExecContext(ctx, query, lead); err != nil {
		if isUniqueViolation(err) {
			return leads.ErrDuplicatedLead
		}
		return err
	}
	return nil
}

func (ls LeadService) GetByID(ctx context.Context, id string) (leads.Lead, error) {
	query := selectLeads + ` WHERE l.id = $1`

	var row leadRow
	if err := ls.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return leads.Lead{}, leads.ErrLeadNotFound
		}
		return leads.Lead{}, err
	}
	return row.lead(), nil
}

// Update writes every mutable column. The owner column is deliberately not
// part of the SET list.
func (ls LeadService) Update(ctx context.Context, lead leads.Lead) error {
	const query = `
	UPDATE leads SET
		first_name = :first_name,
		last_name = :last_name,
		email = :email,
		phone = :phone,
		company = :company,
		city = :city,
		state = :state,
		source = :source,
		status = :status,
		score = :score,
		lead_value = :lead_value,
		is_qualified = :is_qualified,
		last_activity_at = :last_activity_at,
		updated_at = :updated_at
	WHERE id = :id`

	res, err := ls.db.NamedExecContext(ctx, query, lead)
	if err != nil {
		if isUniqueViolation(err) {
			return leads.ErrDuplicatedLead
		}
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return leads.ErrLeadNotFound
	}
	return nil
}

func (ls LeadService) Delete(ctx context.Context, id string) error {
	res, err := ls.db.ExecContext(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return leads.ErrLeadNotFound
	}
	return nil
}

// List runs the count and the page fetch in one read-only transaction so
// both come from the same snapshot, then returns the page ordered by
// creation time descending.
func (ls LeadService) List(ctx context.Context, filter leads.Filter, page leads.Page) ([]leads.Lead, int, error) {
	where, args := whereClause(filter)

	countQuery := `SELECT COUNT(*) FROM leads AS l`
	listQuery := selectLeads
	if where != "" {
		countQuery += " WHERE " + where
		listQuery += " WHERE " + where
	}
	listQuery += fmt.Sprintf(" ORDER BY l.created_at DESC LIMIT $%d OFFSET $%d",
		len(args)+1, len(args)+2)

	tx, err := ls.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback()

	var total int
	if err := tx.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	var rows []leadRow
	listArgs := append(args, page.Size, page.Offset())
	if err := tx.SelectContext(ctx, &rows, listQuery, listArgs...); err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, err
	}

	out := make([]leads.Lead, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.lead())
	}
	return out, total, nil
}
