package graph

import "fmt"

// Kind enumerates the block kinds.
type Kind int

const (
	KindStart Kind = iota
	KindDeclaration
	KindArithmetic
	KindDelay
	KindCondition
	KindForLoop
	KindWhileLoop
	KindDigitalRead
	KindAnalogRead
	KindDigitalWrite
	KindAnalogWrite
	KindSerialRead
	KindSerialWrite
)

// Block geometry in scene units.
const (
	BlockWidth      = 160.0
	BlockHeight     = 40.0
	ContainerWidth  = 180.0
	ContainerChrome = 80.0 // height of an empty container

	// Children are stacked flush starting at this parent-relative offset.
	ChildInsetX = 20.0
	ChildInsetY = 40.0

	// Margins of the interior slot rectangle inside a container.
	SlotInsetX = 10.0
	SlotInsetY = 30.0
)

// FieldSpec describes one editable field of a block kind. A field with
// Choices is fixed-choice; otherwise it is free text.
type FieldSpec struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Choices []string `json:"choices,omitempty"`
	Default string   `json:"default"`
}

type kindSpec struct {
	name      string
	label     string
	container bool
	fields    []FieldSpec
}

var (
	comparisons = []string{"==", "!=", ">", ">=", "<", "<="}
	operators   = []string{"+", "-", "*", "/", "%"}
	levels      = []string{"LOW", "HIGH"}
)

var kinds = [...]kindSpec{
	KindStart: {name: "start", label: "Start"},
	KindDeclaration: {name: "declaration", label: "Variable", fields: []FieldSpec{
		{Name: "name", Label: "name"},
		{Name: "value", Label: "=", Default: "0"},
	}},
	KindArithmetic: {name: "arithmetic", label: "Arithmetic", fields: []FieldSpec{
		{Name: "target", Label: "target"},
		{Name: "left", Label: "="},
		{Name: "op", Label: "op", Choices: operators, Default: "+"},
		{Name: "right", Label: "right"},
	}},
	KindDelay: {name: "delay", label: "Sleep", fields: []FieldSpec{
		{Name: "ms", Label: "ms", Default: "1000"},
	}},
	KindCondition: {name: "condition", label: "If", container: true, fields: []FieldSpec{
		{Name: "left", Label: "left"},
		{Name: "cmp", Label: "cmp", Choices: comparisons, Default: "=="},
		{Name: "right", Label: "right"},
	}},
	KindForLoop: {name: "for-loop", label: "Repeat", container: true, fields: []FieldSpec{
		{Name: "count", Label: "times", Default: "1"},
	}},
	KindWhileLoop: {name: "while-loop", label: "While", container: true, fields: []FieldSpec{
		{Name: "left", Label: "left"},
		{Name: "cmp", Label: "cmp", Choices: comparisons, Default: "=="},
		{Name: "right", Label: "right"},
	}},
	KindDigitalRead: {name: "digital-read", label: "Digital read", fields: []FieldSpec{
		{Name: "target", Label: "target"},
		{Name: "pin", Label: "pin"},
	}},
	KindAnalogRead: {name: "analog-read", label: "Analog read", fields: []FieldSpec{
		{Name: "target", Label: "target"},
		{Name: "pin", Label: "pin"},
	}},
	KindDigitalWrite: {name: "digital-write", label: "Digital write", fields: []FieldSpec{
		{Name: "pin", Label: "pin"},
		{Name: "value", Label: "value", Choices: levels, Default: "LOW"},
	}},
	KindAnalogWrite: {name: "analog-write", label: "Analog write", fields: []FieldSpec{
		{Name: "pin", Label: "pin"},
		{Name: "value", Label: "value", Default: "0"},
	}},
	KindSerialRead: {name: "serial-read", label: "Listen", fields: []FieldSpec{
		{Name: "target", Label: "target"},
	}},
	KindSerialWrite: {name: "serial-write", label: "Say", fields: []FieldSpec{
		{Name: "value", Label: "value"},
	}},
}

// Kinds returns every block kind in palette order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	for i := range kinds {
		out[i] = Kind(i)
	}
	return out
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k >= 0 && int(k) < len(kinds)
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kinds[k].name
}

// Label returns the palette caption of k.
func (k Kind) Label() string {
	if !k.Valid() {
		return k.String()
	}
	return kinds[k].label
}

// IsContainer reports whether blocks of kind k own an ordered child list.
func (k Kind) IsContainer() bool {
	return k.Valid() && kinds[k].container
}

// Fields returns the field schema of k. The slice must not be modified.
func (k Kind) Fields() []FieldSpec {
	if !k.Valid() {
		return nil
	}
	return kinds[k].fields
}

// Field returns the schema of the named field.
func (k Kind) Field(name string) (FieldSpec, bool) {
	for _, f := range k.Fields() {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// DefaultSize returns the frame size a new block of kind k starts with.
func (k Kind) DefaultSize() (w, h float64) {
	if k.IsContainer() {
		return ContainerWidth, ContainerChrome
	}
	return BlockWidth, BlockHeight
}

// ParseKind resolves a kind by its name ("digital-write"). Underscores are
// accepted in place of hyphens.
func ParseKind(name string) (Kind, error) {
	for i, spec := range kinds {
		if spec.name == name || underscored(spec.name) == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

func underscored(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] == '-' {
			b[i] = '_'
		}
	}
	return string(b)
}
