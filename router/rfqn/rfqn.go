package rfqn

import (
	"fmt"
	"strings"
)

// RelationFQN is a possibly schema-qualified table name.
type RelationFQN struct {
	RelationName string
	SchemaName   string
}

func (n RelationFQN) String() string {
	if len(n.SchemaName) < 1 {
		return n.RelationName
	}
	return n.SchemaName + "." + n.RelationName
}

func ParseFQN(str string) (*RelationFQN, error) {
	parts := strings.Split(str, ".")
	if len(str) == 0 || len(strings.TrimSpace(str)) == 0 {
		return nil, fmt.Errorf("invalid qualified name='%v' (case0)", str)
	}
	if len(parts) == 1 {
		return &RelationFQN{RelationName: parts[0]}, nil
	} else if len(parts) == 2 {
		schema := parts[0]
		table := parts[1]
		if len(schema) == 0 || len(table) == 0 ||
			strings.TrimSpace(schema) != schema || strings.TrimSpace(table) != table {
			return nil, fmt.Errorf("invalid qualified name='%v'  (case2)", str)
		}
		return &RelationFQN{SchemaName: schema, RelationName: table}, nil
	}
	return nil, fmt.Errorf("invalid qualified name='%v' (case1)", str)
}

// Normalizer maps identifiers from statements and rules to one canonical form
// before they are compared. Quoting rules differ between databases, so the
// router does not guess one.
type Normalizer func(ident string) string

func AsIs(ident string) string  { return ident }
func Lower(ident string) string { return strings.ToLower(ident) }
func Upper(ident string) string { return strings.ToUpper(ident) }

func NormalizerByName(name string) (Normalizer, error) {
	switch strings.ToLower(name) {
	case "", "as_is":
		return AsIs, nil
	case "lower":
		return Lower, nil
	case "upper":
		return Upper, nil
	default:
		return nil, fmt.Errorf("unknown identifier case %q", name)
	}
}

// Normalize applies norm to both parts of the name.
func (n RelationFQN) Normalize(norm Normalizer) RelationFQN {
	return RelationFQN{RelationName: norm(n.RelationName), SchemaName: norm(n.SchemaName)}
}
