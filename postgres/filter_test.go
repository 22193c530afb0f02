package postgres

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	leads "github.com/erino/leads-api"
)

func TestWhereClause_Empty(t *testing.T) {
	clause, args := whereClause(leads.Filter{})
	assert.Empty(t, clause)
	assert.Empty(t, args)
}

func TestWhereClause_TextConditions(t *testing.T) {
	clause, args := whereClause(leads.Filter{
		Email: &leads.TextCond{Value: "a@b.com"},
		City:  &leads.TextCond{Value: "lis", Substring: true},
	})

	assert.Equal(t, "l.email = $1 AND l.city ILIKE $2", clause)
	require.Len(t, args, 2)
	assert.Equal(t, "a@b.com", args[0])
	assert.Equal(t, "%lis%", args[1])
}

func TestWhereClause_EscapesLikeWildcards(t *testing.T) {
	_, args := whereClause(leads.Filter{
		Company: &leads.TextCond{Value: `50%_off\`, Substring: true},
	})

	require.Len(t, args, 1)
	assert.Equal(t, `%50\%\_off\\%`, args[0])
}

func TestWhereClause_SetCondition(t *testing.T) {
	clause, args := whereClause(leads.Filter{
		Status: leads.SetCond{"new", "won"},
	})

	assert.Equal(t, "l.status = ANY($1)", clause)
	require.Len(t, args, 1)
	assert.Equal(t, pq.Array([]string{"new", "won"}), args[0])
}

func TestWhereClause_NumberBounds(t *testing.T) {
	gt, lt := 10.0, 90.0
	clause, args := whereClause(leads.Filter{
		Score: &leads.NumberCond{Gt: &gt, Lt: &lt},
	})

	assert.Equal(t, "l.score > $1 AND l.score < $2", clause)
	assert.Equal(t, []interface{}{10.0, 90.0}, args)
}

func TestWhereClause_DateBounds(t *testing.T) {
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	next := day.AddDate(0, 0, 1)
	clause, args := whereClause(leads.Filter{
		CreatedAt: &leads.DateCond{Gte: &day, Lt: &next},
	})

	assert.Equal(t, "l.created_at >= $1 AND l.created_at < $2", clause)
	assert.Equal(t, []interface{}{day, next}, args)
}

func TestWhereClause_CombinedOrderAndNumbering(t *testing.T) {
	eq := 42.0
	qualified := true
	clause, args := whereClause(leads.Filter{
		Email:       &leads.TextCond{Value: "acme", Substring: true},
		Status:      leads.SetCond{"new"},
		Score:       &leads.NumberCond{Eq: &eq},
		IsQualified: &qualified,
		CreatedBy:   "user-1",
	})

	assert.Equal(t,
		"l.email ILIKE $1 AND l.status = ANY($2) AND l.score = $3 AND "+
			"l.is_qualified = $4 AND l.created_by = $5",
		clause)
	require.Len(t, args, 5)
	assert.Equal(t, "user-1", args[4])
}
