package datanode

import (
	"fmt"
	"strings"

	"github.com/shardgate/shardgate/pkg/inline"
)

// DataNode is one physical table: a table inside a datasource.
type DataNode struct {
	DataSource string
	Table      string
}

func (dn DataNode) String() string {
	return dn.DataSource + "." + dn.Table
}

// Parse parses "ds.table".
func Parse(s string) (DataNode, error) {
	ds, tbl, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok || ds == "" || tbl == "" || strings.Contains(tbl, ".") {
		return DataNode{}, fmt.Errorf("invalid data node %q, expected <datasource>.<table>", s)
	}
	return DataNode{DataSource: ds, Table: tbl}, nil
}

// ParseActualDataNodes expands an inline actual-data-nodes expression.
// Duplicate nodes are rejected.
func ParseActualDataNodes(expr string) ([]DataNode, error) {
	items, err := inline.Expand(expr)
	if err != nil {
		return nil, err
	}
	seen := make(map[DataNode]struct{}, len(items))
	res := make([]DataNode, 0, len(items))
	for _, it := range items {
		dn, err := Parse(it)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[dn]; ok {
			return nil, fmt.Errorf("duplicate data node %q", dn)
		}
		seen[dn] = struct{}{}
		res = append(res, dn)
	}
	return res, nil
}
