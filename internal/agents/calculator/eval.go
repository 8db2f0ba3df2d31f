package calculator

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// functions is the allow-list of callable names inside an expression.
// Anything outside this table is rejected, which is what keeps the
// evaluator safe against arbitrary identifiers.
var functions = map[string]func(args []float64) (float64, error){
	"sqrt":  unary("sqrt", math.Sqrt),
	"sin":   unary("sin", math.Sin),
	"cos":   unary("cos", math.Cos),
	"tan":   unary("tan", math.Tan),
	"log":   unary("log", math.Log),
	"log10": unary("log10", math.Log10),
	"abs":   unary("abs", math.Abs),
	"pow": func(args []float64) (float64, error) {
		if len(args) != 2 {
			return 0, fmt.Errorf("pow expects 2 arguments, got %d", len(args))
		}
		return math.Pow(args[0], args[1]), nil
	},
	"round": func(args []float64) (float64, error) {
		switch len(args) {
		case 1:
			return math.Round(args[0]), nil
		case 2:
			shift := math.Pow(10, args[1])
			return math.Round(args[0]*shift) / shift, nil
		default:
			return 0, fmt.Errorf("round expects 1 or 2 arguments, got %d", len(args))
		}
	},
}

var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

func unary(name string, fn func(float64) float64) func(args []float64) (float64, error) {
	return func(args []float64) (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("%s expects 1 argument, got %d", name, len(args))
		}
		return fn(args[0]), nil
	}
}

// Eval evaluates a mathematical expression. It supports +, -, *, /, %,
// ^ (power), parentheses, the allow-listed functions and constants, and
// the "N% of M" percentage form.
func Eval(expression string) (float64, error) {
	expr := strings.TrimSpace(expression)
	if expr == "" {
		return 0, fmt.Errorf("invalid expression: empty")
	}

	// "15% of 200" is a sentence, not an operator expression.
	if strings.Contains(expr, "%") && strings.Contains(expr, " of ") {
		parts := strings.SplitN(expr, " of ", 2)
		pct, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(parts[0], "%", "")), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid expression: bad percentage %q", parts[0])
		}
		val, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid expression: bad value %q", parts[1])
		}
		return (pct / 100) * val, nil
	}

	// Unicode square root reads as the sqrt function.
	expr = strings.ReplaceAll(expr, "√", "sqrt")
	expr = strings.ReplaceAll(expr, "**", "^")

	p := &parser{input: expr}
	v, err := p.parseExpr()
	if err != nil {
		return 0, fmt.Errorf("invalid expression: %w", err)
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("invalid expression: unexpected %q at position %d", p.input[p.pos], p.pos)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid expression: result is not a finite number")
	}
	return v, nil
}

// parser is a small recursive descent parser over the expression text.
//
// expr   = term   { ('+'|'-') term }
// term   = power  { ('*'|'/'|'%') power }
// power  = factor [ '^' power ]          (right associative)
// factor = number | name | name '(' expr {',' expr} ')' | '(' expr ')' | ('+'|'-') factor
type parser struct {
	input string
	pos   int
}

func (p *parser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *parser) parseTerm() (float64, error) {
	left, err := p.parsePower()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '*':
			p.pos++
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			left *= right
		case '/':
			p.pos++
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		case '%':
			p.pos++
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("modulo by zero")
			}
			left = math.Mod(left, right)
		default:
			return left, nil
		}
	}
}

func (p *parser) parsePower() (float64, error) {
	base, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.peek() == '^' {
		p.pos++
		exp, err := p.parsePower()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *parser) parseFactor() (float64, error) {
	p.skipSpace()
	switch c := p.peek(); {
	case c == '+':
		p.pos++
		return p.parseFactor()
	case c == '-':
		p.pos++
		v, err := p.parseFactor()
		return -v, err
	case c == '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	case c >= '0' && c <= '9' || c == '.':
		return p.parseNumber()
	case unicode.IsLetter(rune(c)) || c == '_':
		return p.parseName()
	default:
		return 0, fmt.Errorf("unexpected character %q at position %d", c, p.pos)
	}
}

func (p *parser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c >= '0' && c <= '9' || c == '.' {
			p.pos++
			continue
		}
		break
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", p.input[start:p.pos])
	}
	return v, nil
}

func (p *parser) parseName() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := rune(p.input[p.pos])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' {
			p.pos++
			continue
		}
		break
	}
	name := p.input[start:p.pos]

	p.skipSpace()
	if p.peek() != '(' {
		if v, ok := constants[name]; ok {
			return v, nil
		}
		return 0, fmt.Errorf("unknown identifier %q", name)
	}

	fn, ok := functions[name]
	if !ok {
		return 0, fmt.Errorf("unknown function %q", name)
	}

	p.pos++ // consume '('
	var args []float64
	p.skipSpace()
	if p.peek() != ')' {
		for {
			v, err := p.parseExpr()
			if err != nil {
				return 0, err
			}
			args = append(args, v)
			p.skipSpace()
			if p.peek() == ',' {
				p.pos++
				continue
			}
			break
		}
	}
	if p.peek() != ')' {
		return 0, fmt.Errorf("missing closing parenthesis in call to %s", name)
	}
	p.pos++
	return fn(args)
}

func (p *parser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}
