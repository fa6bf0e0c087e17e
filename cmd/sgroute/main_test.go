package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shardgate/shardgate/pkg/models/sgerror"
	"github.com/shardgate/shardgate/router/rfqn"
)

const testCfg = `
log_level: error
data_sources:
  ds0:
    driver: sqlite3
    dsn: "file:{{dir}}/ds0.db?_busy_timeout=5000"
  ds1:
    driver: sqlite3
    dsn: "file:{{dir}}/ds1.db?_busy_timeout=5000"
sharding:
  tables:
    t_order:
      actual_data_nodes: "ds${0..1}.t_order_${0..1}"
      database_strategy:
        type: standard
        sharding_column: user_id
        algorithm_name: mod2
      table_strategy:
        type: standard
        sharding_column: order_id
        algorithm_name: mod2
  algorithms:
    mod2:
      type: MOD
      props:
        sharding-count: 2
  cache:
    enabled: true
`

func writeCfg(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "router.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(strings.ReplaceAll(testCfg, "{{dir}}", dir)), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	params, hintDBVals, hintTblVals, hintDS = nil, nil, nil, ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestParseParam(t *testing.T) {
	assert := assert.New(t)

	type tcase struct {
		raw string
		exp any
	}

	for _, tt := range []tcase{
		{raw: "10", exp: int64(10)},
		{raw: "-3", exp: int64(-3)},
		{raw: "2.5", exp: 2.5},
		{raw: "abc", exp: "abc"},
		{raw: "'10'", exp: "10"},
		{raw: "null", exp: nil},
	} {
		assert.Equal(tt.exp, parseParam(tt.raw), tt.raw)
	}
}

func TestSplitHint(t *testing.T) {
	assert := assert.New(t)

	table, v, err := splitHint("t_order=7", rfqn.AsIs)
	assert.NoError(err)
	assert.Equal("t_order", table)
	n, ok := v.Int64()
	assert.True(ok)
	assert.Equal(int64(7), n)

	table, _, err = splitHint("Sales.T_Order='a'", rfqn.Lower)
	assert.NoError(err)
	assert.Equal("t_order", table)

	_, _, err = splitHint("t_order", rfqn.AsIs)
	assert.True(sgerror.HasCode(err, sgerror.SG_CONFIG))

	_, _, err = splitHint("=1", rfqn.AsIs)
	assert.True(sgerror.HasCode(err, sgerror.SG_CONFIG))
}

func TestParseProps(t *testing.T) {
	assert := assert.New(t)

	props, err := parseProps([]string{"worker-id=3", "sequence-name=orders"})
	assert.NoError(err)
	id, ok, err := props.GetInt("worker-id")
	assert.NoError(err)
	assert.True(ok)
	assert.Equal(int64(3), id)
	name, _ := props.GetString("sequence-name")
	assert.Equal("orders", name)

	_, err = parseProps([]string{"=x"})
	assert.Error(err)
}

func TestRouteCommand(t *testing.T) {
	assert := assert.New(t)
	path := writeCfg(t)

	out, err := run(t, "route", "-c", path, "-p", "1", "-p", "2",
		"select * from t_order where user_id = ? and order_id = ?")
	assert.NoError(err)
	assert.Contains(out, "shape: single-table")
	assert.Contains(out, "ds1: t_order -> t_order_0")
}

func TestQueryCommand(t *testing.T) {
	assert := assert.New(t)
	path := writeCfg(t)

	_, err := run(t, "query", "-c", path, "create table t_order (order_id bigint, user_id int, amount int)")
	assert.NoError(err)

	out, err := run(t, "query", "-c", path, "insert into t_order (order_id, user_id, amount) values (1, 1, 10), (2, 2, 20), (3, 3, 30)")
	assert.NoError(err)
	assert.Contains(out, "3 rows affected")

	out, err = run(t, "query", "-c", path, "select user_id, amount from t_order order by amount desc")
	assert.NoError(err)
	assert.Equal("user_id\tamount\n3\t30\n2\t20\n1\t10\n(3 rows)\n", out)
}

func TestKeygenCommand(t *testing.T) {
	assert := assert.New(t)

	out, err := run(t, "keygen", "--type", "UUID", "-n", "3")
	assert.NoError(err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(lines, 3)
	for _, l := range lines {
		assert.Len(l, 32)
	}
	assert.NotEqual(lines[0], lines[1])
}
