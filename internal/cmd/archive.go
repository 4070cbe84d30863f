package cmd

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/stepcheck/internal/archive"
	"github.com/Iron-Ham/stepcheck/internal/config"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect frames archived by the classifier server",
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived detections, newest first",
	RunE:  runArchiveList,
}

var (
	archiveDir   string
	archiveLimit int
)

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archiveListCmd)

	archiveCmd.PersistentFlags().StringVar(&archiveDir, "dir", "", "Archive directory (default from server.archive_dir)")
	archiveListCmd.Flags().IntVarP(&archiveLimit, "limit", "n", 20, "Number of records to show (0 for all)")
}

func runArchiveList(cmd *cobra.Command, args []string) error {
	dir := archiveDir
	if dir == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		dir = cfg.Server.ArchiveDir
	}
	if dir == "" {
		return fmt.Errorf("no archive directory: set server.archive_dir or pass --dir")
	}

	store, err := archive.Open(dir)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	recs, err := store.List(cmd.Context(), archiveLimit)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No archived detections.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TIME\tSTEP\tEXPECTED\tDETECTED\tCONF\tMATCHED\tFILE")
	for _, r := range recs {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%.2f\t%v\t%s\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.StepIndex,
			r.ExpectedClass,
			orDash(r.DetectedClass),
			r.Confidence,
			r.Matched,
			filepath.Base(r.ImagePath),
		)
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
