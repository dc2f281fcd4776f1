package sage

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GeometryParams carries the measurements used by Geometry
type GeometryParams struct {
	Radius float64 // circle
	A      float64 // triangle side lengths
	B      float64
	C      float64
	Width  float64 // rectangle
	Height float64
	Sides  int     // regular polygon
	Side   float64 // regular polygon side length
}

// Geometry builds the program computing area and perimeter facts for a shape:
// circle, triangle (Heron's formula), rectangle or polygon (regular).
func Geometry(shape string, p GeometryParams) (string, error) {
	var b strings.Builder
	switch shape {
	case "circle":
		b.WriteString("var('r')\n")
		b.WriteString("area = pi * r^2\n")
		b.WriteString("circumference = 2 * pi * r\n")
		b.WriteString("print(f\"Area: {area}\")\n")
		b.WriteString("print(f\"Circumference: {circumference}\")\n")
		fmt.Fprintf(&b, "r0 = %s\n", num(p.Radius))
		b.WriteString("print(f\"With r = {r0}:\")\n")
		b.WriteString("print(f\"Area = {pi * r0^2}\")\n")
		b.WriteString("print(f\"Circumference = {2 * pi * r0}\")\n")

	case "triangle":
		b.WriteString("var('a', 'b', 'c')\n")
		b.WriteString("s = (a + b + c) / 2\n")
		b.WriteString("area = sqrt(s * (s - a) * (s - b) * (s - c))\n")
		b.WriteString("print(f\"Area (Heron's formula): {area}\")\n")
		fmt.Fprintf(&b, "a0, b0, c0 = %s, %s, %s\n", num(p.A), num(p.B), num(p.C))
		b.WriteString("print(f\"With sides {a0}, {b0}, {c0}:\")\n")
		b.WriteString("s0 = (a0 + b0 + c0) / 2\n")
		b.WriteString("print(f\"Area = {sqrt(s0 * (s0 - a0) * (s0 - b0) * (s0 - c0))}\")\n")
		b.WriteString("print(f\"Perimeter = {a0 + b0 + c0}\")\n")

	case "rectangle":
		b.WriteString("var('w', 'h')\n")
		b.WriteString("print(f\"Area: {w * h}\")\n")
		b.WriteString("print(f\"Perimeter: {2 * (w + h)}\")\n")
		b.WriteString("print(f\"Diagonal: {sqrt(w^2 + h^2)}\")\n")
		fmt.Fprintf(&b, "w0, h0 = %s, %s\n", num(p.Width), num(p.Height))
		b.WriteString("print(f\"With w = {w0}, h = {h0}:\")\n")
		b.WriteString("print(f\"Area = {w0 * h0}\")\n")
		b.WriteString("print(f\"Perimeter = {2 * (w0 + h0)}\")\n")
		b.WriteString("print(f\"Diagonal = {sqrt(w0^2 + h0^2)}\")\n")

	case "polygon":
		if p.Sides < 3 {
			return "", fmt.Errorf("polygon needs at least 3 sides, got %d", p.Sides)
		}
		b.WriteString("var('n', 's')\n")
		b.WriteString("area = (n * s^2) / (4 * tan(pi / n))\n")
		b.WriteString("print(f\"Area (regular n-gon): {area}\")\n")
		b.WriteString("print(f\"Perimeter: {n * s}\")\n")
		fmt.Fprintf(&b, "n0, s0 = %d, %s\n", p.Sides, num(p.Side))
		b.WriteString("print(f\"With n = {n0}, s = {s0}:\")\n")
		b.WriteString("print(f\"Area = {(n0 * s0^2) / (4 * tan(pi / n0))}\")\n")
		b.WriteString("print(f\"Perimeter = {n0 * s0}\")\n")

	default:
		return "", fmt.Errorf("no geometry program for %q", shape)
	}
	return b.String(), nil
}

// Solve builds a program solving equation for variable. A single "=" is
// rewritten to Sage's "==".
func Solve(equation, variable string) string {
	variable = orX(variable)
	eq := strings.TrimSpace(equation)
	if !strings.Contains(eq, "==") {
		eq = strings.Replace(eq, "=", "==", 1)
	}
	return fmt.Sprintf("var('%s')\neq = %s\nsolutions = solve(eq, %s)\nprint(f\"Solutions: {solutions}\")\n",
		variable, eq, variable)
}

// Derivative builds a program differentiating expr order times
func Derivative(expr, variable string, order int) string {
	variable = orX(variable)
	if order < 1 {
		order = 1
	}
	return fmt.Sprintf("var('%[1]s')\nf(%[1]s) = %[2]s\ndf = diff(f, %[1]s, %[3]d)\nprint(f\"Derivative: {df}\")\n",
		variable, strings.TrimSpace(expr), order)
}

// Bounds are definite integration limits
type Bounds struct {
	Lower float64
	Upper float64
}

// Integral builds a program integrating expr, definite when bounds is set
func Integral(expr, variable string, bounds *Bounds) string {
	variable = orX(variable)
	head := fmt.Sprintf("var('%[1]s')\nf(%[1]s) = %[2]s\n", variable, strings.TrimSpace(expr))
	if bounds != nil {
		return head + fmt.Sprintf("result = integral(f, %s, %s, %s)\nprint(f\"Definite integral: {result}\")\n",
			variable, num(bounds.Lower), num(bounds.Upper))
	}
	return head + fmt.Sprintf("result = integral(f, %s)\nprint(f\"Indefinite integral: {result}\")\n", variable)
}

// MatrixOp names a matrix operation
type MatrixOp string

const (
	OpMultiply    MatrixOp = "multiply"
	OpDeterminant MatrixOp = "determinant"
	OpInverse     MatrixOp = "inverse"
)

// Matrix builds a program applying op to a (and b for multiply)
func Matrix(op MatrixOp, a, b [][]float64) (string, error) {
	ja, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("failed to encode matrix: %w", err)
	}
	switch op {
	case OpMultiply:
		if b == nil {
			return "", fmt.Errorf("multiply needs two matrices")
		}
		jb, err := json.Marshal(b)
		if err != nil {
			return "", fmt.Errorf("failed to encode matrix: %w", err)
		}
		return fmt.Sprintf("A = matrix(%s)\nB = matrix(%s)\nresult = A * B\nprint(f\"Result: {result}\")\n", ja, jb), nil
	case OpDeterminant:
		return fmt.Sprintf("A = matrix(%s)\nprint(f\"Determinant: {A.determinant()}\")\n", ja), nil
	case OpInverse:
		return fmt.Sprintf("A = matrix(%s)\nprint(f\"Inverse: {A.inverse()}\")\n", ja), nil
	}
	return "", fmt.Errorf("unknown matrix operation %q", op)
}

func orX(variable string) string {
	if strings.TrimSpace(variable) == "" {
		return "x"
	}
	return strings.TrimSpace(variable)
}

func num(v float64) string {
	return fmt.Sprintf("%g", v)
}
