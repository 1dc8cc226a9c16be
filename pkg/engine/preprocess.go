package engine

import "strings"

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// preprocessSource rewrites block-script source into something zygomys
// accepts:
//
//   - :keyword becomes the string literal "__kw_keyword", so keywords need no
//     global symbols and can carry hyphens (:digital-write).
//   - kebab-case identifiers become snake_case (attach-below becomes
//     attach_below); zygomys would read the hyphen as subtraction.
//   - ; line comments become // comments.
//
// String literals are copied untouched.
func preprocessSource(source string) string {
	var out strings.Builder
	out.Grow(len(source) + len(source)/4)
	b := []byte(source)
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c == '"' || c == '`':
			end := scanString(b, i)
			out.Write(b[i:end])
			i = end

		case c == ';':
			for i < len(b) && b[i] == ';' {
				i++
			}
			out.WriteString("//")
			for i < len(b) && b[i] != '\n' {
				out.WriteByte(b[i])
				i++
			}

		case c == ':' && i+1 < len(b) && b[i+1] == '=':
			out.WriteString(":=")
			i += 2

		case c == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out.WriteString(`"` + kwPrefix)
			out.Write(b[i+1 : j])
			out.WriteByte('"')
			i = j

		case c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out.WriteByte('_')
			i++

		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

// scanString returns the index just past the string literal opening at i.
// Double-quoted strings honour backslash escapes; backtick strings do not.
func scanString(b []byte, i int) int {
	quote := b[i]
	j := i + 1
	for j < len(b) && b[j] != quote {
		if quote == '"' && b[j] == '\\' && j+1 < len(b) {
			j++
		}
		j++
	}
	if j < len(b) {
		j++
	}
	return j
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isIdentChar(c) || c == '-'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}
