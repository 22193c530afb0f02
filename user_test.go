package leads

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_CanAccessLead(t *testing.T) {
	owned := Lead{ID: "l1", CreatedBy: "user-1"}
	orphan := Lead{ID: "l2"}

	tests := []struct {
		name   string
		caller User
		lead   Lead
		want   bool
	}{
		{"owner may access", User{ID: "user-1", Role: RoleUser}, owned, true},
		{"non-owner may not", User{ID: "user-2", Role: RoleUser}, owned, false},
		{"admin may access anything", User{ID: "admin-1", Role: RoleAdmin}, owned, true},
		{"nobody owns an orphan record", User{ID: "user-1", Role: RoleUser}, orphan, false},
		{"admin may access orphan records", User{ID: "admin-1", Role: RoleAdmin}, orphan, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.caller.CanAccessLead(tt.lead))
		})
	}
}

func TestLead_Validate(t *testing.T) {
	valid := Lead{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@example.com",
		Source:    SourceWebsite,
		Status:    StatusNew,
		Score:     50,
		LeadValue: 100,
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Lead)
	}{
		{"missing first name", func(l *Lead) { l.FirstName = "" }},
		{"missing last name", func(l *Lead) { l.LastName = "" }},
		{"missing email", func(l *Lead) { l.Email = "" }},
		{"unknown source", func(l *Lead) { l.Source = "carrier_pigeon" }},
		{"unknown status", func(l *Lead) { l.Status = "maybe" }},
		{"score above 100", func(l *Lead) { l.Score = 101 }},
		{"negative score", func(l *Lead) { l.Score = -1 }},
		{"negative lead value", func(l *Lead) { l.LeadValue = -0.01 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := valid
			tt.mutate(&l)
			err := l.Validate()
			assert.Error(t, err)
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestOwner_UnmarshalJSON(t *testing.T) {
	var l Lead
	err := json.Unmarshal([]byte(`{"email":"x@y.com","created_by":"user-1"}`), &l)
	assert.NoError(t, err)
	require.NotNil(t, l.Owner)
	assert.Equal(t, "user-1", l.Owner.ID)

	l = Lead{}
	err = json.Unmarshal([]byte(`{"created_by":{"id":"user-1","name":"Jane"}}`), &l)
	assert.NoError(t, err)
	require.NotNil(t, l.Owner)
	assert.Equal(t, "user-1", l.Owner.ID)
	assert.Equal(t, "Jane", l.Owner.Name)

	l = Lead{}
	err = json.Unmarshal([]byte(`{"created_by":null}`), &l)
	assert.NoError(t, err)
}

func TestLead_ApplyLeavesOwnerAlone(t *testing.T) {
	l := Lead{FirstName: "Jane", CreatedBy: "user-1"}
	v := 500.0
	name := "Janet"
	l.Apply(LeadUpdate{FirstName: &name, LeadValue: &v})

	assert.Equal(t, "Janet", l.FirstName)
	assert.Equal(t, 500.0, l.LeadValue)
	assert.Equal(t, "user-1", l.CreatedBy)
}
