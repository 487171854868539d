package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewSpoolCmd создаёт группу команд для работы с отложенными пачками.
func NewSpoolCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spool",
		Short: "Manage spooled batches",
	}

	cmd.AddCommand(
		newSpoolListCmd(clientFn, outputFn),
		newSpoolRedriveCmd(clientFn, outputFn),
	)

	return cmd
}

func newSpoolListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List spooled batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			entries, err := client.ListSpool(limit)
			if err != nil {
				return err
			}

			headers := []string{"ID", "SOURCE", "RECORDS", "ATTEMPTS", "CREATED", "LAST_ERROR"}
			rows := make([][]string, len(entries))
			for i, e := range entries {
				rows[i] = []string{
					e.ID,
					e.Source,
					strconv.Itoa(e.RecordCount),
					strconv.Itoa(e.Attempts),
					e.CreatedAt,
					truncate(e.LastError, 60),
				}
			}

			out.Print(headers, rows, entries)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newSpoolRedriveCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redrive [ENTRY_ID]",
		Short: "Republish spooled batches to the broker",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var result *RedriveResponse
			var err error
			if len(args) == 1 {
				result, err = client.RedriveSpoolEntry(args[0])
			} else {
				result, err = client.RedriveSpool()
			}
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Redriven %d batches, %d failed", result.Redriven, result.Failed))
			return nil
		},
	}

	return cmd
}
