package sketch

import (
	"fmt"
	"strings"
)

const indent = "  "

// Wrap places statements inside setup(), after serial initialisation and
// pin configuration, and appends an empty loop().
func Wrap(statements string, p Profile) string {
	var b strings.Builder
	b.WriteString("void setup() {\n")
	fmt.Fprintf(&b, "%sSerial.begin(%d);\n", indent, p.Baud)
	fmt.Fprintf(&b, "%sdelay(10);\n", indent)
	for n, mode := range p.Modes() {
		fmt.Fprintf(&b, "%spinMode(%d, %s);\n", indent, n, mode)
	}
	if statements != "" {
		for _, line := range strings.Split(statements, "\n") {
			if line == "" {
				b.WriteString("\n")
				continue
			}
			b.WriteString(indent + line + "\n")
		}
	}
	b.WriteString("}\n\nvoid loop() {}\n")
	return b.String()
}
