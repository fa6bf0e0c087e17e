// Package stmt holds the bound statement model the router works on. A SQL
// binder produces it; the router never looks at SQL text.
package stmt

type Kind int

const (
	Select = Kind(iota)
	Insert
	Update
	Delete
	DDL
	Other
)

func (k Kind) String() string {
	switch k {
	case Select:
		return "SELECT"
	case Insert:
		return "INSERT"
	case Update:
		return "UPDATE"
	case Delete:
		return "DELETE"
	case DDL:
		return "DDL"
	default:
		return "OTHER"
	}
}

// IsDML reports whether k modifies rows.
func (k Kind) IsDML() bool {
	return k == Insert || k == Update || k == Delete
}

type TableRef struct {
	Schema string
	Name   string
	Alias  string
}

// RefName is the name columns use to refer to the table.
func (t TableRef) RefName() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

type InsertContext struct {
	Table   string
	Columns []string
	Rows    [][]Expr
}

// ColumnIndex returns the position of column in the insert column list, or -1.
// Names are compared after applying norm.
func (ic *InsertContext) ColumnIndex(column string, norm func(string) string) int {
	column = norm(column)
	for i, c := range ic.Columns {
		if norm(c) == column {
			return i
		}
	}
	return -1
}

type Statement struct {
	Kind Kind
	SQL  string

	// Tables lists every table referenced, in order of appearance.
	Tables []TableRef
	Where  Expr

	Insert *InsertContext
	Select *SelectContext

	HasSubQuery bool
	ParamCount  int
}

// TableNames returns referenced table names without duplicates, in order.
func (s *Statement) TableNames() []string {
	seen := map[string]struct{}{}
	var res []string
	for _, t := range s.Tables {
		if _, ok := seen[t.Name]; ok {
			continue
		}
		seen[t.Name] = struct{}{}
		res = append(res, t.Name)
	}
	return res
}

// ResolveQualifier maps a column qualifier onto a table name. An empty
// result means the qualifier matches no table.
func (s *Statement) ResolveQualifier(qualifier string) string {
	for _, t := range s.Tables {
		if t.Alias != "" && t.Alias == qualifier {
			return t.Name
		}
	}
	for _, t := range s.Tables {
		if t.Name == qualifier {
			return t.Name
		}
	}
	return ""
}
