package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/stepcheck/internal/assembly"
	"github.com/Iron-Ham/stepcheck/internal/config"
)

var stepsCmd = &cobra.Command{
	Use:   "steps [file]",
	Short: "Validate and list the assembly steps",
	Long: `Validate and list the assembly steps.

Reads the steps file given as argument, or assembly.steps_file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSteps,
}

func init() {
	rootCmd.AddCommand(stepsCmd)
}

func runSteps(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		path = cfg.Assembly.StepsFile
	}

	file, err := assembly.LoadFile(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tNAME\tCLASS\tBOXES")
	for _, s := range file.ToSteps() {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", s.Index+1, s.Name, s.ClassLabel, len(s.Part.Bounds))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	switch {
	case file.Camera == nil || file.Screen == nil:
		_, _ = fmt.Fprintln(out, "\nNo camera/screen block: alignment checks are disabled.")
	default:
		_, _ = fmt.Fprintf(out, "\nScreen %dx%d, alignment checks enabled.\n", file.Screen.Width, file.Screen.Height)
	}
	return nil
}
