// Package interpreter turns free-text drawing instructions, typed by a person
// or produced by an LLM, into shape commands.
//
// It is a pattern matcher, not a grammar: an ordered list of rules is tried top
// to bottom and the first rule whose keywords appear in the instruction wins.
// Keyword tests are case-insensitive substring checks, so "rect" also fires for
// "rectangle" and "correct". Numeric extraction always uses the first match.
package interpreter

import (
	"fmt"
	"strings"

	"blackboard/entities/shape"
	"blackboard/tools/errs"
	"blackboard/tools/logger"
)

// Context describes the surface an instruction is interpreted against
type Context struct {
	Viewport shape.Viewport

	// Emit receives commands a rule draws as a side effect before returning
	// its result. Only the graph rule uses it. Nil drops them.
	Emit func(shape.Command) error
}

// Interpreter holds an ordered rule list. It keeps no state between calls.
type Interpreter struct {
	rules []Rule
	log   *logger.Logger
}

// New creates an interpreter with the default rules
func New(log *logger.Logger) *Interpreter {
	return NewWithRules(DefaultRules(), log)
}

// NewWithRules creates an interpreter with a custom rule list
func NewWithRules(rules []Rule, log *logger.Logger) *Interpreter {
	if log == nil {
		log = logger.Default()
	}
	return &Interpreter{
		rules: rules,
		log:   log.WithPrefix("interpreter"),
	}
}

// Parse maps an instruction to a shape command. It fails with
// errs.ErrInvalidInstruction for blank input, errs.ErrUnrecognizedInstruction
// when no rule applies and errs.ErrInvalidGeometry when the extracted numbers
// do not describe a valid shape.
func (i *Interpreter) Parse(instruction string, ctx Context) (shape.Command, error) {
	trimmed := strings.TrimSpace(instruction)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty instruction", errs.ErrInvalidInstruction)
	}
	if ctx.Viewport.Width <= 0 || ctx.Viewport.Height <= 0 {
		ctx.Viewport = shape.DefaultViewport
	}

	in := Input{Text: instruction, Lower: strings.ToLower(trimmed), Context: ctx}

	for _, r := range i.rules {
		if !r.Match(in.Lower) {
			continue
		}
		cmd, ok, err := r.Extract(in)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.Name, err)
		}
		if !ok {
			i.log.Debug("rule %s matched keywords but extracted nothing", r.Name)
			continue
		}
		if err := cmd.Validate(); err != nil {
			return nil, err
		}
		i.log.Debug("%q -> %s (rule %s)", instruction, cmd.Kind(), r.Name)
		return cmd, nil
	}

	return nil, fmt.Errorf("%w: %q", errs.ErrUnrecognizedInstruction, instruction)
}

// ParseValue is Parse for loosely typed input such as a decoded JSON field.
// Anything that is not a string, nil included, is an invalid instruction.
func (i *Interpreter) ParseValue(v any, ctx Context) (shape.Command, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%w: expected a string, got %T", errs.ErrInvalidInstruction, v)
	}
	return i.Parse(s, ctx)
}
