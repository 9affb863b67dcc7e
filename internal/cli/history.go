package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/Treework/internal/domain"
	"github.com/shaiso/Treework/internal/repo"
)

// NewHistoryCmd создаёт группу команд для просмотра истории запусков,
// сохранённой наблюдателем при `run --with-db`.
func NewHistoryCmd(outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect node run history recorded in PostgreSQL",
	}

	cmd.AddCommand(
		newHistoryListCmd(outputFn),
		newHistoryShowCmd(outputFn),
	)

	return cmd
}

func newHistoryListCmd(outputFn func() *Output) *cobra.Command {
	var nodeID string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent node runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			ctx := cmd.Context()

			pool, err := repo.NewPool(ctx)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			runRepo := repo.NewNodeRunRepo(pool)

			var runs []domain.NodeRun
			if nodeID != "" {
				id, err := uuid.Parse(nodeID)
				if err != nil {
					return fmt.Errorf("parse node id %q: %w", nodeID, err)
				}
				runs, err = runRepo.ListByNode(ctx, id, limit)
				if err != nil {
					return err
				}
			} else {
				runs, err = runRepo.ListRecent(ctx, limit)
				if err != nil {
					return err
				}
			}

			out.NodeRuns(runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&nodeID, "node", "", "Filter by node ID")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of results")

	return cmd
}

func newHistoryShowCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show a single node run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			ctx := cmd.Context()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parse run id %q: %w", args[0], err)
			}

			pool, err := repo.NewPool(ctx)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			run, err := repo.NewNodeRunRepo(pool).GetByID(ctx, id)
			if err != nil {
				return err
			}

			out.NodeRuns([]domain.NodeRun{*run})
			return nil
		},
	}
}
