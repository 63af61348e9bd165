package pipeline

import (
	"math"
	"strconv"
	"strings"
)

// Coerce turns a raw parameter string into a typed value. The precedence is
// fixed: boolean, integer, float, numeric expression containing the constant
// pi, plain string, bracketed list (elements coerced recursively). Coerce is
// total: any ambiguity falls back to returning the raw string unchanged.
func Coerce(raw string) any {
	switch {
	case strings.EqualFold(raw, "true"):
		return true
	case strings.EqualFold(raw, "false"):
		return false
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if strings.Contains(raw, "pi") {
		if f, ok := evalPiExpr(raw); ok {
			return f
		}
		return raw
	}
	if !strings.HasPrefix(raw, "[") {
		return raw
	}
	parts := strings.Split(raw, ",")
	parts[0] = strings.TrimPrefix(parts[0], "[")
	last := len(parts) - 1
	parts[last] = strings.TrimSuffix(parts[last], "]")
	list := make([]any, len(parts))
	for i, part := range parts {
		list[i] = Coerce(part)
	}
	return list
}

// evalPiExpr evaluates a small arithmetic expression over numbers and the
// constant pi (+, -, *, /, parentheses). It reports false on anything it
// cannot evaluate so Coerce can fall back to the raw string.
func evalPiExpr(s string) (float64, bool) {
	p := exprParser{input: strings.ReplaceAll(s, " ", "")}
	v, ok := p.expr()
	if !ok || p.pos != len(p.input) {
		return 0, false
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) expr() (float64, bool) {
	v, ok := p.term()
	if !ok {
		return 0, false
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			rhs, ok := p.term()
			if !ok {
				return 0, false
			}
			v += rhs
		case '-':
			p.pos++
			rhs, ok := p.term()
			if !ok {
				return 0, false
			}
			v -= rhs
		default:
			return v, true
		}
	}
}

func (p *exprParser) term() (float64, bool) {
	v, ok := p.factor()
	if !ok {
		return 0, false
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			rhs, ok := p.factor()
			if !ok {
				return 0, false
			}
			v *= rhs
		case '/':
			p.pos++
			rhs, ok := p.factor()
			if !ok || rhs == 0 {
				return 0, false
			}
			v /= rhs
		default:
			return v, true
		}
	}
}

func (p *exprParser) factor() (float64, bool) {
	switch {
	case p.peek() == '-':
		p.pos++
		v, ok := p.factor()
		return -v, ok
	case p.peek() == '(':
		p.pos++
		v, ok := p.expr()
		if !ok || p.peek() != ')' {
			return 0, false
		}
		p.pos++
		return v, true
	case strings.HasPrefix(p.input[p.pos:], "pi"):
		p.pos += 2
		return math.Pi, true
	default:
		start := p.pos
		for p.pos < len(p.input) {
			c := p.input[p.pos]
			if (c < '0' || c > '9') && c != '.' {
				break
			}
			p.pos++
		}
		if start == p.pos {
			return 0, false
		}
		v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
}
