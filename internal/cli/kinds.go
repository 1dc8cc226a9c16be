package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/chazu/blockstudio/pkg/graph"
)

func newKindsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the block kinds and their fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(e.out, renderKinds())
			return nil
		},
	}
}

func renderKinds() string {
	nameCol := lipgloss.NewStyle().Width(15)
	labelCol := lipgloss.NewStyle().Width(16)

	var b strings.Builder
	b.WriteString(headerStyle.Render(nameCol.Render("KIND")+labelCol.Render("LABEL")+"FIELDS") + "\n")
	for _, k := range graph.Kinds() {
		name := k.String()
		if k.IsContainer() {
			name += "*"
		}
		b.WriteString(nameCol.Render(name) + labelCol.Render(k.Label()) + describeFields(k) + "\n")
	}
	b.WriteString(mutedStyle.Render("* container: holds a nested sequence") + "\n")
	return b.String()
}

func describeFields(k graph.Kind) string {
	specs := k.Fields()
	if len(specs) == 0 {
		return mutedStyle.Render("-")
	}
	parts := make([]string, len(specs))
	for i, f := range specs {
		s := f.Name
		if f.Default != "" {
			s += "=" + f.Default
		}
		if len(f.Choices) > 0 {
			s += " {" + strings.Join(f.Choices, " ") + "}"
		}
		parts[i] = s
	}
	return strings.Join(parts, ", ")
}
