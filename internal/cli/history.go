package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"deqcore/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Owner string
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored reports for an owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Owner, "owner", defaultOwner(), "owner id")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum number of records (0 for all)")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	out := opts.formatter(cmd)

	s, err := opts.openStore(opts.cfg.Storage, opts.logger)
	if err != nil {
		return out.Error(WrapExitError(ExitFailure, "open store", err))
	}
	defer s.Close()

	records, err := s.ListByOwner(cmd.Context(), opts.Owner, opts.Limit)
	if err != nil {
		return out.Error(WrapExitError(ExitFailure, "list records", err))
	}
	return out.Success(records, renderHistory(opts.Owner, records))
}

func renderHistory(owner string, records []*store.Record) string {
	if len(records) == 0 {
		return fmt.Sprintf("No records for %s", owner)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-36s  %-8s  %-6s  %-12s  %s\n", "ID", "KIND", "FORMAT", "CIRCUIT", "CREATED")
	for _, r := range records {
		id := r.CircuitID
		if len(id) > 12 {
			id = id[:12]
		}
		fmt.Fprintf(&sb, "%-36s  %-8s  %-6s  %-12s  %s\n", r.ID, r.Kind, r.Format, id, r.CreatedAt.Local().Format(time.DateTime))
	}
	return strings.TrimRight(sb.String(), "\n")
}
