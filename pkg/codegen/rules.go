package codegen

import (
	"fmt"
	"slices"
	"strings"

	"github.com/chazu/blockstudio/pkg/graph"
)

// rule validates a block and returns its text. For containers the text is
// the header without the opening brace.
type rule func(e *emitter, b *graph.Block, depth int) (string, error)

var rules = map[graph.Kind]rule{
	graph.KindStart:        func(*emitter, *graph.Block, int) (string, error) { return "", nil },
	graph.KindDeclaration:  declaration,
	graph.KindArithmetic:   arithmetic,
	graph.KindDelay:        call("delay", "ms"),
	graph.KindCondition:    comparison("if"),
	graph.KindForLoop:      forLoop,
	graph.KindWhileLoop:    comparison("while"),
	graph.KindDigitalRead:  read("digitalRead"),
	graph.KindAnalogRead:   read("analogRead"),
	graph.KindDigitalWrite: write("digitalWrite"),
	graph.KindAnalogWrite:  write("analogWrite"),
	graph.KindSerialRead:   serialRead,
	graph.KindSerialWrite:  call("Serial.println", "value"),
}

func fail(b *graph.Block, field, value, reason string) error {
	return &ValidationError{Block: b.ID, Kind: b.Kind, Field: field, Value: value, Reason: reason}
}

func field(b *graph.Block, name string) string {
	return strings.TrimSpace(b.Field(name))
}

// operand accepts an integer literal or a declared variable.
func (e *emitter) operand(b *graph.Block, name string) (string, error) {
	v := field(b, name)
	switch {
	case v == "":
		return "", fail(b, name, v, "is empty")
	case IsIntLiteral(v):
		return v, nil
	case hasLeadingZero(v):
		return "", fail(b, name, v, "has a leading zero and would be read as octal")
	case !IsIdentifier(v):
		return "", fail(b, name, v, "is neither an integer nor a variable name")
	case !e.reg.Has(v):
		return "", fail(b, name, v, "is not a declared variable")
	}
	return v, nil
}

// variable accepts only a declared variable, for assignment targets.
func (e *emitter) variable(b *graph.Block, name string) (string, error) {
	v := field(b, name)
	if v == "" {
		return "", fail(b, name, v, "is empty")
	}
	if !e.reg.Has(v) {
		return "", fail(b, name, v, "is not a declared variable")
	}
	return v, nil
}

// choice accepts one of the field's fixed choices.
func choice(b *graph.Block, name string) (string, error) {
	v := field(b, name)
	spec, _ := b.Kind.Field(name)
	if !slices.Contains(spec.Choices, v) {
		return "", fail(b, name, v, fmt.Sprintf("is not one of %s", strings.Join(spec.Choices, " ")))
	}
	return v, nil
}

func declaration(e *emitter, b *graph.Block, _ int) (string, error) {
	name := field(b, "name")
	switch {
	case name == "":
		return "", fail(b, "name", name, "is empty")
	case !IsIdentifier(name):
		return "", fail(b, "name", name, "is not a valid identifier")
	case IsReserved(name):
		return "", fail(b, "name", name, "is a reserved word")
	case IsLoopCounter(name):
		return "", fail(b, "name", name, "is reserved for loop counters")
	}
	value, err := e.operand(b, "value")
	if err != nil {
		return "", err
	}
	if e.reg.Has(name) {
		return "", fail(b, "name", name, "is already declared")
	}
	e.reg = e.reg.Declare(name)
	return fmt.Sprintf("int %s = %s;", name, value), nil
}

func arithmetic(e *emitter, b *graph.Block, _ int) (string, error) {
	target, err := e.variable(b, "target")
	if err != nil {
		return "", err
	}
	left, err := e.operand(b, "left")
	if err != nil {
		return "", err
	}
	op, err := choice(b, "op")
	if err != nil {
		return "", err
	}
	right, err := e.operand(b, "right")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s = %s %s %s;", target, left, op, right), nil
}

func comparison(keyword string) rule {
	return func(e *emitter, b *graph.Block, _ int) (string, error) {
		left, err := e.operand(b, "left")
		if err != nil {
			return "", err
		}
		cmp, err := choice(b, "cmp")
		if err != nil {
			return "", err
		}
		right, err := e.operand(b, "right")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s (%s %s %s)", keyword, left, cmp, right), nil
	}
}

func forLoop(e *emitter, b *graph.Block, depth int) (string, error) {
	n, err := e.operand(b, "count")
	if err != nil {
		return "", err
	}
	i := LoopCounter(depth)
	return fmt.Sprintf("for (int %s = 0; %s < %s; ++%s)", i, i, n, i), nil
}

// call emits fn(<field>); for a single integer-or-variable argument.
func call(fn, name string) rule {
	return func(e *emitter, b *graph.Block, _ int) (string, error) {
		v, err := e.operand(b, name)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s(%s);", fn, v), nil
	}
}

func read(fn string) rule {
	return func(e *emitter, b *graph.Block, _ int) (string, error) {
		target, err := e.variable(b, "target")
		if err != nil {
			return "", err
		}
		pin, err := e.operand(b, "pin")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s = %s(%s);", target, fn, pin), nil
	}
}

func write(fn string) rule {
	return func(e *emitter, b *graph.Block, _ int) (string, error) {
		pin, err := e.operand(b, "pin")
		if err != nil {
			return "", err
		}
		var v string
		if spec, _ := b.Kind.Field("value"); len(spec.Choices) > 0 {
			v, err = choice(b, "value")
		} else {
			v, err = e.operand(b, "value")
		}
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s(%s, %s);", fn, pin, v), nil
	}
}

func serialRead(e *emitter, b *graph.Block, _ int) (string, error) {
	target, err := e.variable(b, "target")
	if err != nil {
		return "", err
	}
	return target + " = Serial.read();", nil
}
