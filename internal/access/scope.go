package access

import (
	"math"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// DefaultPageSize applies when no page size is configured.
const DefaultPageSize = 10

// matchNone is the constraint of a caller who may see nothing.
var matchNone = sq.Expr("1 = 0")

// ListParams is the caller-supplied part of a list request.
type ListParams struct {
	Page   int
	Search string
	Values map[string]string
}

// Query is the final constraint and window handed to a repository. The same
// Where feeds both the page fetch and the count.
type Query struct {
	Where   sq.And
	Page    int
	Limit   uint64
	Offset  uint64
	OrderBy string
}

// Apply adds the constraint to a select builder.
func (q Query) Apply(b sq.SelectBuilder) sq.SelectBuilder {
	if len(q.Where) == 0 {
		return b
	}
	return b.Where(q.Where)
}

// Narrow appends a server-side constraint. It can only shrink the result set.
func (q Query) Narrow(c sq.Sqlizer) Query {
	q.Where = append(append(sq.And{}, q.Where...), c)
	return q
}

// Window adds the ordering and page window to a select builder.
func (q Query) Window(b sq.SelectBuilder) sq.SelectBuilder {
	if q.OrderBy != "" {
		b = b.OrderBy(q.OrderBy)
	}
	return b.Limit(q.Limit).Offset(q.Offset)
}

// Scope derives the list constraint for p. The mandatory ownership constraint
// comes first and caller-supplied filters can only narrow it further.
func (pol Policy) Scope(p Principal, params ListParams, pageSize int) Query {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page := params.Page
	// Pages past the largest addressable offset are malformed input.
	if page < 1 || page > math.MaxInt32/pageSize {
		page = 1
	}
	q := Query{
		Page:    page,
		Limit:   uint64(pageSize),
		Offset:  uint64((page - 1) * pageSize),
		OrderBy: pol.OrderBy,
	}

	if mandatory := pol.mandatory(p); mandatory != nil {
		q.Where = append(q.Where, mandatory)
	}
	if search := strings.TrimSpace(params.Search); search != "" && pol.SearchColumn != "" {
		q.Where = append(q.Where, sq.ILike{pol.SearchColumn: "%" + escapeLike(search) + "%"})
	}
	for _, prm := range pol.Params {
		value, ok := params.Values[prm.Name]
		value = strings.TrimSpace(value)
		if !ok || value == "" || !prm.permits(p.Role) || !prm.accepts(value) {
			continue
		}
		if c := pol.paramConstraint(prm, value); c != nil {
			q.Where = append(q.Where, c)
		}
	}
	return q
}

// mandatory returns nil for unrestricted callers and matchNone for callers
// with no usable ownership fact.
func (pol Policy) mandatory(p Principal) sq.Sqlizer {
	if p.Role == RoleAdmin {
		return nil
	}
	if pol.isOpenTo(p) {
		return nil
	}
	grant, ok := pol.Grants[ActionView]
	if !ok {
		return matchNone
	}
	var alternatives sq.Or
	if grant.Sides&SideOwner != 0 {
		if c := axisConstraint(p, pol.Owner, grant.L1Only); c != nil {
			alternatives = append(alternatives, c)
		}
	}
	if grant.Sides&SideCounterparty != 0 && pol.Counterparty != nil {
		if c := axisConstraint(p, *pol.Counterparty, grant.L1Only); c != nil {
			alternatives = append(alternatives, c)
		}
	}
	switch len(alternatives) {
	case 0:
		return matchNone
	case 1:
		return alternatives[0]
	default:
		return alternatives
	}
}

func axisConstraint(p Principal, axis Axis, l1Only bool) sq.Sqlizer {
	switch {
	case containsRole(axis.L1, p.Role):
		if p.InstitutionID == "" || axis.InstitutionColumn == "" {
			return nil
		}
		return sq.Eq{axis.InstitutionColumn: p.InstitutionID}
	case !l1Only && containsRole(axis.L2, p.Role):
		if p.ID == "" || axis.PersonColumn == "" {
			return nil
		}
		return sq.Eq{axis.PersonColumn: p.ID}
	default:
		return nil
	}
}

func (pol Policy) paramConstraint(prm Param, value string) sq.Sqlizer {
	switch prm.Kind {
	case ParamInstitutionOr:
		if pol.Counterparty == nil || pol.Owner.InstitutionColumn == "" || pol.Counterparty.InstitutionColumn == "" {
			return nil
		}
		return sq.Or{
			sq.Eq{pol.Owner.InstitutionColumn: value},
			sq.Eq{pol.Counterparty.InstitutionColumn: value},
		}
	case ParamBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil
		}
		return sq.Eq{prm.Column: b}
	default:
		if prm.Column == "" {
			return nil
		}
		return sq.Eq{prm.Column: value}
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
