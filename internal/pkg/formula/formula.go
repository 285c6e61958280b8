// Package formula evaluates the restricted arithmetic expressions payroll
// variables are configured with: numeric literals, identifiers, the four
// operators, unary minus and parentheses. Anything else is rejected - formula
// text is company-entered configuration and must never reach anything
// resembling code execution.
package formula

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Eval evaluates a formula with identifiers resolved from bindings. Unknown
// identifiers, malformed syntax and division by zero are errors.
func Eval(src string, bindings map[string]decimal.Decimal) (decimal.Decimal, error) {
	return run(src, bindings, false)
}

// Check parses a formula without evaluating it: it accepts any identifier and
// ignores the operand values, reporting only syntax errors. Used at catalog
// administration time, before the referenced codes exist or have values.
func Check(src string) error {
	_, err := run(src, nil, true)
	return err
}

func run(src string, bindings map[string]decimal.Decimal, checkOnly bool) (decimal.Decimal, error) {
	p := &parser{src: src, bindings: bindings, checkOnly: checkOnly}
	value, err := p.parseExpr()
	if err != nil {
		return decimal.Zero, err
	}
	p.skipSpaces()
	if p.pos < len(p.src) {
		return decimal.Zero, fmt.Errorf("unexpected character %q at position %d", p.src[p.pos], p.pos)
	}
	return value, nil
}

type parser struct {
	src       string
	pos       int
	bindings  map[string]decimal.Decimal
	checkOnly bool
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

// expr = term (('+' | '-') term)*
func (p *parser) parseExpr() (decimal.Decimal, error) {
	left, err := p.parseTerm()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		p.skipSpaces()
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return decimal.Zero, err
		}
		if op == '+' {
			left = left.Add(right)
		} else {
			left = left.Sub(right)
		}
	}
}

// term = factor (('*' | '/') factor)*
func (p *parser) parseTerm() (decimal.Decimal, error) {
	left, err := p.parseFactor()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		p.skipSpaces()
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return decimal.Zero, err
		}
		if op == '*' {
			left = left.Mul(right)
		} else {
			if p.checkOnly {
				// Operand values are placeholders during a syntax check.
				continue
			}
			if right.IsZero() {
				return decimal.Zero, fmt.Errorf("division by zero")
			}
			left = left.Div(right)
		}
	}
}

// factor = number | identifier | '(' expr ')' | '-' factor
func (p *parser) parseFactor() (decimal.Decimal, error) {
	p.skipSpaces()
	c := p.peek()
	switch {
	case c == '-':
		p.pos++
		value, err := p.parseFactor()
		if err != nil {
			return decimal.Zero, err
		}
		return value.Neg(), nil
	case c == '(':
		p.pos++
		value, err := p.parseExpr()
		if err != nil {
			return decimal.Zero, err
		}
		p.skipSpaces()
		if p.peek() != ')' {
			return decimal.Zero, fmt.Errorf("missing closing parenthesis at position %d", p.pos)
		}
		p.pos++
		return value, nil
	case c >= '0' && c <= '9':
		return p.parseNumber()
	case isIdentStart(c):
		return p.parseIdentifier()
	case c == 0:
		return decimal.Zero, fmt.Errorf("unexpected end of formula")
	default:
		return decimal.Zero, fmt.Errorf("unexpected character %q at position %d", c, p.pos)
	}
}

func (p *parser) parseNumber() (decimal.Decimal, error) {
	start := p.pos
	seenDot := false
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '.' {
			if seenDot {
				return decimal.Zero, fmt.Errorf("malformed number at position %d", start)
			}
			seenDot = true
			p.pos++
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		p.pos++
	}
	value, err := decimal.NewFromString(p.src[start:p.pos])
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed number %q at position %d", p.src[start:p.pos], start)
	}
	return value, nil
}

func (p *parser) parseIdentifier() (decimal.Decimal, error) {
	start := p.pos
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	if p.checkOnly {
		return decimal.Zero, nil
	}
	name := p.src[start:p.pos]
	value, ok := p.bindings[name]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown variable %q", name)
	}
	return value, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || ('0' <= c && c <= '9')
}

// References returns the identifiers a formula depends on without evaluating
// it, used by the catalog administration layer to reject formulas referencing
// unknown codes.
func References(src string) []string {
	src = strings.TrimSpace(src)
	var names []string
	seen := make(map[string]bool)
	for i := 0; i < len(src); {
		c := src[i]
		if !isIdentStart(c) {
			i++
			continue
		}
		start := i
		for i < len(src) && isIdentPart(src[i]) {
			i++
		}
		name := src[start:i]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}
