// Package inline implements inline expressions used in sharding rules:
// data node lists such as "ds${0..1}.t_order_${['a','b']}" and
// algorithm expressions such as "t_order_${order_id % 4}".
package inline

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/shardgate/shardgate/pkg/models/hashfunction"
	"github.com/shardgate/shardgate/pkg/models/shvalue"
)

// segment is either literal text or the body of a ${...} placeholder.
type segment struct {
	text        string
	placeholder bool
}

// maxExpansion bounds the number of strings Expand may produce.
const maxExpansion = 1 << 16

// maxExactFloat is the largest integer magnitude float64 represents exactly.
const maxExactFloat = 1 << 53

// exactInt carries integers govaluate would round when converting to float64.
// Arithmetic operators reject it; mod() and hash() handle it exactly.
type exactInt int64

// Split splits expr on top-level commas, ignoring commas inside placeholders.
func Split(expr string) []string {
	var res []string
	depth := 0
	start := 0
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				if s := strings.TrimSpace(expr[start:i]); s != "" {
					res = append(res, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(expr[start:]); s != "" {
		res = append(res, s)
	}
	return res
}

// parse cuts expr into literal and placeholder segments. Both "${...}" and
// "$->{...}" open a placeholder.
func parse(expr string) ([]segment, error) {
	var segs []segment
	var lit strings.Builder
	for i := 0; i < len(expr); {
		open := 0
		switch {
		case strings.HasPrefix(expr[i:], "${"):
			open = 2
		case strings.HasPrefix(expr[i:], "$->{"):
			open = 4
		}
		if open == 0 {
			lit.WriteByte(expr[i])
			i++
			continue
		}
		depth := 1
		j := i + open
		for ; j < len(expr) && depth > 0; j++ {
			switch expr[j] {
			case '{':
				depth++
			case '}':
				depth--
			}
		}
		if depth != 0 {
			return nil, fmt.Errorf("unterminated placeholder in %q", expr)
		}
		if lit.Len() > 0 {
			segs = append(segs, segment{text: lit.String()})
			lit.Reset()
		}
		segs = append(segs, segment{text: strings.TrimSpace(expr[i+open : j-1]), placeholder: true})
		i = j
	}
	if lit.Len() > 0 {
		segs = append(segs, segment{text: lit.String()})
	}
	return segs, nil
}

// HasPlaceholder reports whether expr contains any ${...} placeholder.
func HasPlaceholder(expr string) bool {
	return strings.Contains(expr, "${") || strings.Contains(expr, "$->{")
}

// Expand expands every placeholder of every comma separated item of expr and
// returns the cartesian product in declaration order.
func Expand(expr string) ([]string, error) {
	var res []string
	for _, item := range Split(expr) {
		expanded, err := expandOne(item)
		if err != nil {
			return nil, err
		}
		res = append(res, expanded...)
		if len(res) > maxExpansion {
			return nil, fmt.Errorf("expression %q expands to more than %d items", expr, maxExpansion)
		}
	}
	return res, nil
}

func expandOne(item string) ([]string, error) {
	segs, err := parse(item)
	if err != nil {
		return nil, err
	}
	acc := []string{""}
	for _, seg := range segs {
		choices := []string{seg.text}
		if seg.placeholder {
			choices, err = enumerate(seg.text)
			if err != nil {
				return nil, fmt.Errorf("expand %q: %w", item, err)
			}
		}
		if len(acc)*len(choices) > maxExpansion {
			return nil, fmt.Errorf("expression %q expands to more than %d items", item, maxExpansion)
		}
		next := make([]string, 0, len(acc)*len(choices))
		for _, prefix := range acc {
			for _, c := range choices {
				next = append(next, prefix+c)
			}
		}
		acc = next
	}
	return acc, nil
}

// enumerate lists the values of a placeholder body: "lo..hi" or "[a, 'b', ...]".
func enumerate(body string) ([]string, error) {
	if lo, hi, ok := strings.Cut(body, ".."); ok {
		from, err := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid range start %q", lo)
		}
		to, err := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid range end %q", hi)
		}
		if to < from {
			return nil, fmt.Errorf("empty range %d..%d", from, to)
		}
		if to-from >= maxExpansion {
			return nil, fmt.Errorf("range %d..%d is too large", from, to)
		}
		res := make([]string, 0, to-from+1)
		for i := from; i <= to; i++ {
			res = append(res, strconv.FormatInt(i, 10))
		}
		return res, nil
	}
	if strings.HasPrefix(body, "[") && strings.HasSuffix(body, "]") {
		var res []string
		for _, it := range strings.Split(body[1:len(body)-1], ",") {
			it = strings.TrimSpace(it)
			it = strings.Trim(it, `'"`)
			if it != "" {
				res = append(res, it)
			}
		}
		if len(res) == 0 {
			return nil, fmt.Errorf("empty list %q", body)
		}
		return res, nil
	}
	return nil, fmt.Errorf("cannot enumerate %q", body)
}

var functions = map[string]govaluate.ExpressionFunction{
	"mod": func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("mod expects 2 arguments, got %d", len(args))
		}
		a, err := toInt(args[0])
		if err != nil {
			return nil, err
		}
		b, err := toInt(args[1])
		if err != nil {
			return nil, err
		}
		if b == 0 {
			return nil, fmt.Errorf("mod by zero")
		}
		r := a % b
		if r < 0 {
			r += b
		}
		return float64(r), nil
	},
	"hash": func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("hash expects 1 argument, got %d", len(args))
		}
		v, err := fromEval(args[0])
		if err != nil {
			return nil, err
		}
		h, err := hashfunction.ApplyHashFunction(v, hashfunction.HashFunctionMurmur)
		if err != nil {
			return nil, err
		}
		return float64(h), nil
	},
	"abs": func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("abs expects 1 argument, got %d", len(args))
		}
		f, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("abs expects a number, got %T", args[0])
		}
		return math.Abs(f), nil
	},
}

func toInt(v any) (int64, error) {
	switch vv := v.(type) {
	case exactInt:
		return int64(vv), nil
	case float64:
		if vv != math.Trunc(vv) {
			return 0, fmt.Errorf("%v is not an integer", vv)
		}
		return int64(vv), nil
	case string:
		return strconv.ParseInt(vv, 10, 64)
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}

func fromEval(v any) (shvalue.Value, error) {
	switch vv := v.(type) {
	case exactInt:
		return shvalue.Int(int64(vv)), nil
	case float64:
		if vv == math.Trunc(vv) && math.Abs(vv) < maxExactFloat {
			return shvalue.Int(int64(vv)), nil
		}
		return shvalue.Float(vv), nil
	default:
		return shvalue.FromAny(v)
	}
}

// Expression is a compiled algorithm expression.
type Expression struct {
	source string
	segs   []segment
	exprs  []*govaluate.EvaluableExpression
}

// Compile parses expr. Placeholder bodies are govaluate expressions and may
// use the functions mod(a, b), hash(x) and abs(x).
func Compile(expr string) (*Expression, error) {
	segs, err := parse(expr)
	if err != nil {
		return nil, err
	}
	e := &Expression{source: expr, segs: segs, exprs: make([]*govaluate.EvaluableExpression, len(segs))}
	for i, seg := range segs {
		if !seg.placeholder {
			continue
		}
		ev, err := govaluate.NewEvaluableExpressionWithFunctions(seg.text, functions)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", seg.text, err)
		}
		e.exprs[i] = ev
	}
	return e, nil
}

func (e *Expression) String() string { return e.source }

// Vars lists the variables the expression refers to.
func (e *Expression) Vars() []string {
	var res []string
	seen := map[string]struct{}{}
	for _, ev := range e.exprs {
		if ev == nil {
			continue
		}
		for _, v := range ev.Vars() {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				res = append(res, v)
			}
		}
	}
	return res
}

// Evaluate substitutes every placeholder with its value under params.
func (e *Expression) Evaluate(params map[string]shvalue.Value) (string, error) {
	args := make(map[string]any, len(params))
	for k, v := range params {
		args[k] = toEval(v)
	}
	var sb strings.Builder
	for i, seg := range e.segs {
		if !seg.placeholder {
			sb.WriteString(seg.text)
			continue
		}
		res, err := e.exprs[i].Evaluate(args)
		if err != nil {
			return "", fmt.Errorf("evaluate %q: %w", seg.text, err)
		}
		sb.WriteString(format(res))
	}
	return sb.String(), nil
}

// Evaluate compiles and evaluates expr once.
func Evaluate(expr string, params map[string]shvalue.Value) (string, error) {
	e, err := Compile(expr)
	if err != nil {
		return "", err
	}
	return e.Evaluate(params)
}

func toEval(v shvalue.Value) any {
	switch v.Kind() {
	case shvalue.KindInt:
		n, _ := v.Int64()
		if n > -maxExactFloat && n < maxExactFloat {
			return n
		}
		return exactInt(n)
	case shvalue.KindUint:
		u := v.Any().(uint64)
		if u < maxExactFloat {
			return u
		}
		if u <= math.MaxInt64 {
			return exactInt(u)
		}
		return float64(u)
	case shvalue.KindBytes:
		return v.Str()
	default:
		return v.Any()
	}
}

func format(v any) string {
	switch vv := v.(type) {
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	case exactInt:
		return strconv.FormatInt(int64(vv), 10)
	case string:
		return vv
	default:
		return fmt.Sprint(vv)
	}
}
