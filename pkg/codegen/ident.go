package codegen

import (
	"regexp"
	"strconv"
)

var (
	identPattern   = regexp.MustCompile(`^[a-zA-Z_]\w*$`)
	counterPattern = regexp.MustCompile(`^i\d+$`)
	intPattern     = regexp.MustCompile(`^[+-]?(0|[1-9]\d*)$`)
	octalPattern   = regexp.MustCompile(`^[+-]?0\d+$`)
)

// reserved holds the C++ keywords plus the Arduino core names a sketch
// cannot redeclare.
var reserved = map[string]bool{}

func init() {
	for _, w := range []string{
		"alignas", "alignof", "and", "and_eq", "asm", "atomic_cancel", "atomic_commit",
		"atomic_noexcept", "auto", "bitand", "bitor", "bool", "break", "case", "catch",
		"char", "char8_t", "char16_t", "char32_t", "class", "compl", "concept", "const",
		"constexpr", "const_cast", "continue", "co_await", "co_return", "co_yield",
		"decltype", "default", "delete", "do", "double", "dynamic_cast", "else", "enum",
		"explicit", "export", "extern", "false", "float", "for", "friend", "goto", "if",
		"inline", "int", "long", "mutable", "namespace", "new", "noexcept", "not",
		"not_eq", "nullptr", "operator", "or", "or_eq", "private", "protected", "public",
		"register", "reinterpret_cast", "requires", "return", "short", "signed", "sizeof",
		"static", "static_assert", "static_cast", "struct", "switch", "synchronized",
		"template", "this", "thread_local", "throw", "true", "try", "typedef", "typeid",
		"typename", "union", "unsigned", "using", "virtual", "void", "volatile",
		"wchar_t", "while", "xor", "xor_eq",

		"HIGH", "LOW", "INPUT", "OUTPUT", "INPUT_PULLUP", "Serial", "setup", "loop",
	} {
		reserved[w] = true
	}
}

// IsIdentifier reports whether s is lexically a C++ identifier.
func IsIdentifier(s string) bool {
	return identPattern.MatchString(s)
}

// IsReserved reports whether s is a keyword or a reserved Arduino name.
func IsReserved(s string) bool {
	return reserved[s]
}

// IsLoopCounter reports whether s collides with the generated loop counter
// names (i0, i1, ...).
func IsLoopCounter(s string) bool {
	return counterPattern.MatchString(s)
}

// IsIntLiteral reports whether s is an optionally signed decimal integer
// without leading zeros.
func IsIntLiteral(s string) bool {
	return intPattern.MatchString(s)
}

// hasLeadingZero reports whether s is a digit string that C++ would read as
// an octal literal.
func hasLeadingZero(s string) bool {
	return octalPattern.MatchString(s)
}

// LoopCounter returns the counter name used by a loop at the given nesting
// depth.
func LoopCounter(depth int) string {
	return "i" + strconv.Itoa(depth)
}
