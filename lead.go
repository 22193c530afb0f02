package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrDuplicatedLead = errors.New("email already exists for a lead")
	ErrLeadNotFound   = errors.New("lead not found")
)

// ValidationError signals bad caller input: missing required fields,
// out-of-range values, or malformed filter parameters.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

// Invalidf builds a ValidationError with a formatted message.
func Invalidf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// Source identifies where a lead came from.
type Source string

const (
	SourceWebsite     Source = "website"
	SourceFacebookAds Source = "facebook_ads"
	SourceGoogleAds   Source = "google_ads"
	SourceReferral    Source = "referral"
	SourceEvents      Source = "events"
	SourceOther       Source = "other"
)

// Status tracks a lead through the sales pipeline.
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusQualified Status = "qualified"
	StatusLost      Status = "lost"
	StatusWon       Status = "won"
)

var validSources = map[Source]bool{
	SourceWebsite:     true,
	SourceFacebookAds: true,
	SourceGoogleAds:   true,
	SourceReferral:    true,
	SourceEvents:      true,
	SourceOther:       true,
}

var validStatuses = map[Status]bool{
	StatusNew:       true,
	StatusContacted: true,
	StatusQualified: true,
	StatusLost:      true,
	StatusWon:       true,
}

type Lead struct {
	ID             string     `db:"id" json:"id"`
	FirstName      string     `db:"first_name" json:"first_name"`
	LastName       string     `db:"last_name" json:"last_name"`
	Email          string     `db:"email" json:"email"`
	Phone          string     `db:"phone" json:"phone"`
	Company        string     `db:"company" json:"company"`
	City           string     `db:"city" json:"city"`
	State          string     `db:"state" json:"state"`
	Source         Source     `db:"source" json:"source"`
	Status         Status     `db:"status" json:"status"`
	Score          int        `db:"score" json:"score"`
	LeadValue      float64    `db:"lead_value" json:"lead_value"`
	IsQualified    bool       `db:"is_qualified" json:"is_qualified"`
	LastActivityAt *time.Time `db:"last_activity_at" json:"last_activity_at"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`

	// CreatedBy is the owning user's id. It is set at creation and never
	// changed by caller-supplied updates.
	CreatedBy string `db:"created_by" json:"-"`

	// Owner is the resolved owner summary, populated on reads.
	Owner *Owner `db:"-" json:"created_by,omitempty"`
}

// Owner is the subset of the owning user exposed alongside a lead.
type Owner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UnmarshalJSON accepts either an owner summary object or a bare user id,
// the shape clients send in create payloads. Writes discard the value
// either way, ownership comes from the session.
func (o *Owner) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &o.ID)
	}
	type alias Owner
	return json.Unmarshal(data, (*alias)(o))
}

// Validate checks the fields a caller is allowed to set.
func (l Lead) Validate() error {
	if l.FirstName == "" || l.LastName == "" || l.Email == "" {
		return Invalidf("missing required fields")
	}
	if l.Source != "" && !validSources[l.Source] {
		return Invalidf("invalid source: %q", l.Source)
	}
	if l.Status != "" && !validStatuses[l.Status] {
		return Invalidf("invalid status: %q", l.Status)
	}
	if l.Score < 0 || l.Score > 100 {
		return Invalidf("score must be between 0 and 100")
	}
	if l.LeadValue < 0 {
		return Invalidf("lead_value must not be negative")
	}
	return nil
}

// LeadUpdate carries a partial update. Nil fields are left untouched.
// There is deliberately no owner field here: ownership is immutable.
type LeadUpdate struct {
	FirstName      *string    `json:"first_name"`
	LastName       *string    `json:"last_name"`
	Email          *string    `json:"email"`
	Phone          *string    `json:"phone"`
	Company        *string    `json:"company"`
	City           *string    `json:"city"`
	State          *string    `json:"state"`
	Source         *Source    `json:"source"`
	Status         *Status    `json:"status"`
	Score          *int       `json:"score"`
	LeadValue      *float64   `json:"lead_value"`
	IsQualified    *bool      `json:"is_qualified"`
	LastActivityAt *time.Time `json:"last_activity_at"`
}

// Apply merges the provided fields of upd into l.
func (l *Lead) Apply(upd LeadUpdate) {
	if upd.FirstName != nil {
		l.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		l.LastName = *upd.LastName
	}
	if upd.Email != nil {
		l.Email = *upd.Email
	}
	if upd.Phone != nil {
		l.Phone = *upd.Phone
	}
	if upd.Company != nil {
		l.Company = *upd.Company
	}
	if upd.City != nil {
		l.City = *upd.City
	}
	if upd.State != nil {
		l.State = *upd.State
	}
	if upd.Source != nil {
		l.Source = *upd.Source
	}
	if upd.Status != nil {
		l.Status = *upd.Status
	}
	if upd.Score != nil {
		l.Score = *upd.Score
	}
	if upd.LeadValue != nil {
		l.LeadValue = *upd.LeadValue
	}
	if upd.IsQualified != nil {
		l.IsQualified = *upd.IsQualified
	}
	if upd.LastActivityAt != nil {
		l.LastActivityAt = upd.LastActivityAt
	}
}

type LeadService interface {
	Create(ctx context.Context, lead Lead) error
	GetByID(ctx context.Context, id string) (Lead, error)
	Update(ctx context.Context, lead Lead) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter Filter, page Page) ([]Lead, int, error)
}
