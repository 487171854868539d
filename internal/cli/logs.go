package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewLogsCmd создаёт группу команд для работы с записями логов.
func NewLogsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Query stored log records",
	}

	cmd.AddCommand(
		newLogsListCmd(clientFn, outputFn),
		newLogsShowCmd(clientFn, outputFn),
		newLogsSourcesCmd(clientFn, outputFn),
		newLogsPurgeCmd(clientFn, outputFn),
	)

	return cmd
}

func newLogsListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var level string
	var source string
	var since string
	var until string
	var query string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List log records",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			records, err := client.ListRecords(ListRecordsOpts{
				Level:  level,
				Source: source,
				Since:  since,
				Until:  until,
				Query:  query,
				Limit:  limit,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "TIMESTAMP", "LEVEL", "SOURCE", "MESSAGE"}
			rows := make([][]string, len(records))
			for i, r := range records {
				rows[i] = []string{r.ID, r.Timestamp, r.Level, r.Source, truncate(r.Message, 80)}
			}

			out.Print(headers, rows, records)
			return nil
		},
	}

	cmd.Flags().StringVar(&level, "level", "", "Filter by exact level (DEBUG, INFO, WARN, ERROR)")
	cmd.Flags().StringVar(&source, "source", "", "Filter by source name")
	cmd.Flags().StringVar(&since, "since", "", "Oldest timestamp to include (RFC3339)")
	cmd.Flags().StringVar(&until, "until", "", "Newest timestamp to include (RFC3339)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Substring match on message text")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newLogsShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show RECORD_ID",
		Short: "Show one log record with attributes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			record, err := client.GetRecord(args[0])
			if err != nil {
				return err
			}

			// Одиночную запись всегда печатаем в JSON: атрибуты
			// в таблицу не укладываются.
			out.JSON(record)
			return nil
		},
	}

	return cmd
}

func newLogsSourcesCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List known log sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			sources, err := client.ListSources()
			if err != nil {
				return err
			}

			headers := []string{"SOURCE", "RECORDS", "LAST_SEEN"}
			rows := make([][]string, len(sources))
			for i, s := range sources {
				rows[i] = []string{s.Source, strconv.FormatInt(s.Count, 10), s.LastSeen}
			}

			out.Print(headers, rows, sources)
			return nil
		},
	}

	return cmd
}

func newLogsPurgeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var before string
	var source string

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete log records older than a timestamp",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if before == "" {
				return fmt.Errorf("--before is required")
			}

			result, err := client.PurgeRecords(before, source)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Deleted %d records", result.Deleted))
			return nil
		},
	}

	cmd.Flags().StringVar(&before, "before", "", "Delete records older than this timestamp (RFC3339)")
	cmd.Flags().StringVar(&source, "source", "", "Limit purge to one source")

	return cmd
}

// truncate обрезает строку до n символов для табличного вывода.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
