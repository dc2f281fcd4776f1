package expr

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

var functions = map[string]func(float64) float64{
	"sin":  math.Sin,
	"cos":  math.Cos,
	"tan":  math.Tan,
	"exp":  math.Exp,
	"log":  math.Log,
	"sqrt": math.Sqrt,
	"abs":  math.Abs,
}

var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

// Parse parses an arithmetic expression
func Parse(src string) (*Expression, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("empty expression")
	}
	e, err := parser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expression %q: %w", src, err)
	}
	return e, nil
}

var equationPrefix = regexp.MustCompile(`(?i)^\s*(?:y|f\(x\))\s*=\s*`)

// StripEquation removes a leading "y =" or "f(x) =" and returns the right-hand side
func StripEquation(equation string) string {
	return strings.TrimSpace(equationPrefix.ReplaceAllString(equation, ""))
}

// Func compiles an equation into a function of x. The returned function is not
// safe for concurrent use.
func Func(equation string) (func(x float64) (float64, error), error) {
	e, err := Parse(StripEquation(equation))
	if err != nil {
		return nil, err
	}
	vars := map[string]float64{}
	return func(x float64) (float64, error) {
		vars["x"] = x
		return e.Eval(vars)
	}, nil
}

// Eval evaluates the expression. Identifiers resolve to vars first, then to
// the built-in constants.
func (e *Expression) Eval(vars map[string]float64) (float64, error) {
	v, err := e.Head.eval(vars)
	if err != nil {
		return 0, err
	}
	for _, t := range e.Tail {
		rhs, err := t.Term.eval(vars)
		if err != nil {
			return 0, err
		}
		if t.Op == "-" {
			v -= rhs
		} else {
			v += rhs
		}
	}
	return v, nil
}

func (t *Term) eval(vars map[string]float64) (float64, error) {
	v, err := t.Head.eval(vars)
	if err != nil {
		return 0, err
	}
	for _, m := range t.Tail {
		var rhs float64
		if m.Explicit != nil {
			rhs, err = m.Explicit.eval(vars)
		} else {
			rhs, err = m.Implicit.eval(vars)
		}
		if err != nil {
			return 0, err
		}
		if m.Op == "/" {
			v /= rhs
		} else {
			v *= rhs
		}
	}
	return v, nil
}

func (u *Unary) eval(vars map[string]float64) (float64, error) {
	v, err := u.Power.eval(vars)
	if err != nil {
		return 0, err
	}
	for _, s := range u.Signs {
		if s == "-" {
			v = -v
		}
	}
	return v, nil
}

func (p *Power) eval(vars map[string]float64) (float64, error) {
	base, err := p.Base.eval(vars)
	if err != nil {
		return 0, err
	}
	if p.Exponent == nil {
		return base, nil
	}
	exp, err := p.Exponent.eval(vars)
	if err != nil {
		return 0, err
	}
	return math.Pow(base, exp), nil
}

func (p *Primary) eval(vars map[string]float64) (float64, error) {
	switch {
	case p.Number != nil:
		return *p.Number, nil
	case p.Call != nil:
		return p.Call.eval(vars)
	case p.Ident != nil:
		name := strings.ToLower(*p.Ident)
		if v, ok := vars[name]; ok {
			return v, nil
		}
		if v, ok := constants[name]; ok {
			return v, nil
		}
		return 0, fmt.Errorf("unknown identifier %q", *p.Ident)
	case p.Group != nil:
		return p.Group.Eval(vars)
	}
	return 0, fmt.Errorf("empty expression node")
}

func (c *Call) eval(vars map[string]float64) (float64, error) {
	fn, ok := functions[strings.ToLower(c.Name)]
	if !ok {
		return 0, fmt.Errorf("unknown function %q", c.Name)
	}
	if len(c.Args) != 1 {
		return 0, fmt.Errorf("%s takes 1 argument, got %d", c.Name, len(c.Args))
	}
	arg, err := c.Args[0].Eval(vars)
	if err != nil {
		return 0, err
	}
	return fn(arg), nil
}
