package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shaiso/Treework/internal/domain"
)

// NewValidateCmd создаёт команду validate: проверить спецификацию
// графа без выполнения.
func NewValidateCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "validate GRAPH_FILE",
		Short: "Validate a graph spec without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			spec, err := loadSpec(args[0])
			if err != nil {
				return err
			}

			out.GraphSpec(spec)

			out.Success(fmt.Sprintf("Graph %q is valid: %d node(s)", specName(spec), len(spec.Nodes)))
			return nil
		},
	}
}

func specName(spec *domain.GraphSpec) string {
	if spec.Name != "" {
		return spec.Name
	}
	return "unnamed"
}
