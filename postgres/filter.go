package postgres

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	leads "github.com/erino/leads-api"
)

// whereClause renders a compiled filter as a SQL predicate over the leads
// table (aliased l), with positional arguments. The returned clause omits
// the WHERE keyword and is empty when the filter matches everything.
func whereClause(f leads.Filter) (string, []interface{}) {
	var b predicateBuilder
	b.text("l.email", f.Email)
	b.text("l.company", f.Company)
	b.text("l.city", f.City)
	b.set("l.status", f.Status)
	b.set("l.source", f.Source)
	b.number("l.score", f.Score)
	b.number("l.lead_value", f.LeadValue)
	b.date("l.created_at", f.CreatedAt)
	b.date("l.last_activity_at", f.LastActivityAt)
	if f.IsQualified != nil {
		b.add("l.is_qualified = %s", *f.IsQualified)
	}
	if f.CreatedBy != "" {
		b.add("l.created_by = %s", f.CreatedBy)
	}
	return strings.Join(b.conds, " AND "), b.args
}

type predicateBuilder struct {
	conds []string
	args  []interface{}
}

// add appends one condition; expr must hold a single %s that receives the
// positional placeholder for arg.
func (b *predicateBuilder) add(expr string, arg interface{}) {
	b.args = append(b.args, arg)
	b.conds = append(b.conds, fmt.Sprintf(expr, fmt.Sprintf("$%d", len(b.args))))
}

func (b *predicateBuilder) text(col string, c *leads.TextCond) {
	if c == nil {
		return
	}
	if c.Substring {
		b.add(col+" ILIKE %s", "%"+escapeLike(c.Value)+"%")
		return
	}
	b.add(col+" = %s", c.Value)
}

func (b *predicateBuilder) set(col string, c leads.SetCond) {
	if len(c) == 0 {
		return
	}
	b.add(col+" = ANY(%s)", pq.Array([]string(c)))
}

func (b *predicateBuilder) number(col string, c *leads.NumberCond) {
	if c == nil {
		return
	}
	if c.Eq != nil {
		b.add(col+" = %s", *c.Eq)
	}
	if c.Gt != nil {
		b.add(col+" > %s", *c.Gt)
	}
	if c.Gte != nil {
		b.add(col+" >= %s", *c.Gte)
	}
	if c.Lt != nil {
		b.add(col+" < %s", *c.Lt)
	}
	if c.Lte != nil {
		b.add(col+" <= %s", *c.Lte)
	}
}

func (b *predicateBuilder) date(col string, c *leads.DateCond) {
	if c == nil {
		return
	}
	if c.Gt != nil {
		b.add(col+" > %s", *c.Gt)
	}
	if c.Gte != nil {
		b.add(col+" >= %s", *c.Gte)
	}
	if c.Lt != nil {
		b.add(col+" < %s", *c.Lt)
	}
	if c.Lte != nil {
		b.add(col+" <= %s", *c.Lte)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(v string) string {
	return likeEscaper.Replace(v)
}
