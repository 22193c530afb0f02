package leads

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// TextCond matches a text field either exactly or by case-insensitive
// substring.
type TextCond struct {
	Value     string
	Substring bool
}

// SetCond matches when the field equals any of the listed values.
type SetCond []string

// NumberCond constrains a numeric field. Nil bounds are absent; Gt/Lt are
// exclusive, Gte/Lte inclusive. An exact match never coexists with bounds,
// the compiler's merge order guarantees it.
type NumberCond struct {
	Eq  *float64
	Gt  *float64
	Lt  *float64
	Gte *float64
	Lte *float64
}

// DateCond constrains a timestamp field. Gt/Lt are exclusive, Gte/Lte
// inclusive. Bounds of both kinds may coexist and all apply.
type DateCond struct {
	Gt  *time.Time
	Gte *time.Time
	Lt  *time.Time
	Lte *time.Time
}

// Filter is the compiled form of a caller's list query. A zero Filter
// matches every lead.
type Filter struct {
	Email          *TextCond
	Company        *TextCond
	City           *TextCond
	Status         SetCond
	Source         SetCond
	Score          *NumberCond
	LeadValue      *NumberCond
	CreatedAt      *DateCond
	LastActivityAt *DateCond
	IsQualified    *bool

	// CreatedBy restricts results to a single owner. It is set by Scope,
	// never by ParseFilter.
	CreatedBy string
}

// Scope narrows f to what the caller is allowed to see. Non-admins are
// always pinned to their own records, regardless of any owner parameter
// they supplied. Admins may optionally restrict to one owner.
func (f *Filter) Scope(caller User, owner string) {
	if caller.Role != RoleAdmin {
		f.CreatedBy = caller.ID
		return
	}
	if owner != "" {
		f.CreatedBy = owner
	}
}

type fieldKind int

const (
	kindText fieldKind = iota
	kindSet
	kindNumber
	kindDate
	kindBool
)

// filterFields declares the query parameters the compiler accepts and the
// operator family each field belongs to. The parameter names derive from
// the prefix: text fields take _eq/_contains, set fields the bare name and
// _in, numeric fields _eq/_gt/_lt/_between, date fields
// _on/_before/_after/_between.
var filterFields = []struct {
	prefix string
	kind   fieldKind
}{
	{"email", kindText},
	{"company", kindText},
	{"city", kindText},
	{"status", kindSet},
	{"source", kindSet},
	{"score", kindNumber},
	{"lead_value", kindNumber},
	{"created", kindDate},
	{"last_activity", kindDate},
	{"is_qualified", kindBool},
}

// ParseFilter compiles a flat query-parameter mapping into a Filter.
// Operators for the same field merge in a fixed order, so a later operator
// can override an earlier one (e.g. _contains beats _eq, _between beats
// _gt/_lt). Malformed numeric or date values yield a ValidationError.
func ParseFilter(q url.Values) (Filter, error) {
	var f Filter
	for _, fld := range filterFields {
		switch fld.kind {
		case kindText:
			f.setText(fld.prefix, parseTextCond(q, fld.prefix))
		case kindSet:
			f.setSet(fld.prefix, parseSetCond(q, fld.prefix))
		case kindNumber:
			c, err := parseNumberCond(q, fld.prefix)
			if err != nil {
				return Filter{}, err
			}
			f.setNumber(fld.prefix, c)
		case kindDate:
			c, err := parseDateCond(q, fld.prefix)
			if err != nil {
				return Filter{}, err
			}
			f.setDate(fld.prefix, c)
		case kindBool:
			// Presence-gated: absent means unfiltered, any present
			// value other than "true"/"1" means false.
			if _, ok := q[fld.prefix]; ok {
				v := q.Get(fld.prefix)
				b := v == "true" || v == "1"
				f.IsQualified = &b
			}
		}
	}
	return f, nil
}

func (f *Filter) setText(prefix string, c *TextCond) {
	switch prefix {
	case "email":
		f.Email = c
	case "company":
		f.Company = c
	case "city":
		f.City = c
	}
}

func (f *Filter) setSet(prefix string, c SetCond) {
	switch prefix {
	case "status":
		f.Status = c
	case "source":
		f.Source = c
	}
}

func (f *Filter) setNumber(prefix string, c *NumberCond) {
	switch prefix {
	case "score":
		f.Score = c
	case "lead_value":
		f.LeadValue = c
	}
}

func (f *Filter) setDate(prefix string, c *DateCond) {
	switch prefix {
	case "created":
		f.CreatedAt = c
	case "last_activity":
		f.LastActivityAt = c
	}
}

func parseTextCond(q url.Values, name string) *TextCond {
	var c *TextCond
	if v := q.Get(name + "_eq"); v != "" {
		c = &TextCond{Value: v}
	}
	// A substring match replaces an exact one when both are given.
	if v := q.Get(name + "_contains"); v != "" {
		c = &TextCond{Value: v, Substring: true}
	}
	return c
}

func parseSetCond(q url.Values, name string) SetCond {
	var c SetCond
	if v := q.Get(name); v != "" {
		c = SetCond{v}
	}
	// _in replaces the single-value form when both are given.
	if v := q.Get(name + "_in"); v != "" {
		c = SetCond(strings.Split(v, ","))
	}
	return c
}

func parseNumberCond(q url.Values, name string) (*NumberCond, error) {
	var c *NumberCond
	if v := q.Get(name + "_eq"); v != "" {
		n, err := parseNumber(name+"_eq", v)
		if err != nil {
			return nil, err
		}
		c = &NumberCond{Eq: &n}
	}
	// A bound drops a previous exact match but merges with the other
	// bound; gt is evaluated before lt.
	if v := q.Get(name + "_gt"); v != "" {
		n, err := parseNumber(name+"_gt", v)
		if err != nil {
			return nil, err
		}
		if c == nil || c.Eq != nil {
			c = &NumberCond{}
		}
		c.Gt = &n
	}
	if v := q.Get(name + "_lt"); v != "" {
		n, err := parseNumber(name+"_lt", v)
		if err != nil {
			return nil, err
		}
		if c == nil || c.Eq != nil {
			c = &NumberCond{}
		}
		c.Lt = &n
	}
	// _between replaces whatever was built so far with a closed range.
	if v := q.Get(name + "_between"); v != "" {
		lo, hi, err := splitPair(name+"_between", v)
		if err != nil {
			return nil, err
		}
		a, err := parseNumber(name+"_between", lo)
		if err != nil {
			return nil, err
		}
		b, err := parseNumber(name+"_between", hi)
		if err != nil {
			return nil, err
		}
		c = &NumberCond{Gte: &a, Lte: &b}
	}
	return c, nil
}

func parseDateCond(q url.Values, prefix string) (*DateCond, error) {
	var c *DateCond
	// _on expands to the whole day: [day 00:00, next day 00:00).
	if v := q.Get(prefix + "_on"); v != "" {
		d, err := parseDate(prefix+"_on", v)
		if err != nil {
			return nil, err
		}
		next := d.AddDate(0, 0, 1)
		c = &DateCond{Gte: &d, Lt: &next}
	}
	// _before/_after are exclusive bounds merged into the condition.
	if v := q.Get(prefix + "_before"); v != "" {
		d, err := parseDate(prefix+"_before", v)
		if err != nil {
			return nil, err
		}
		if c == nil {
			c = &DateCond{}
		}
		c.Lt = &d
	}
	if v := q.Get(prefix + "_after"); v != "" {
		d, err := parseDate(prefix+"_after", v)
		if err != nil {
			return nil, err
		}
		if c == nil {
			c = &DateCond{}
		}
		c.Gt = &d
	}
	// _between replaces everything with a closed range.
	if v := q.Get(prefix + "_between"); v != "" {
		lo, hi, err := splitPair(prefix+"_between", v)
		if err != nil {
			return nil, err
		}
		a, err := parseDate(prefix+"_between", lo)
		if err != nil {
			return nil, err
		}
		b, err := parseDate(prefix+"_between", hi)
		if err != nil {
			return nil, err
		}
		c = &DateCond{Gte: &a, Lte: &b}
	}
	return c, nil
}

func splitPair(key, v string) (string, string, error) {
	parts := strings.Split(v, ",")
	if len(parts) != 2 {
		return "", "", Invalidf("%s must be two comma-separated values", key)
	}
	return parts[0], parts[1], nil
}

func parseNumber(key, v string) (float64, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, Invalidf("invalid number for %s: %q", key, v)
	}
	return n, nil
}

// parseDate accepts RFC3339 timestamps or plain dates, both read as UTC.
func parseDate(key, v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.UTC)
	if err != nil {
		return time.Time{}, Invalidf("invalid date for %s: %q", key, v)
	}
	return t, nil
}
