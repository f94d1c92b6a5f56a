package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "snip [input]",
		Short:        "Trim a clip out of a video interactively",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) == 1 {
				input = args[0]
			}
			return run(cmd, input)
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.Flags().String("out", "", "Output directory for generated clip names (env SNIP_OUT_DIR, default out)")
	root.Flags().String("output", "", "Explicit output file; asks before overwriting")
	root.Flags().Int("merge", 1, "Initial number of audio inputs to merge (1-4)")
	root.Flags().Bool("no-preview", false, "Do not open an ffplay window")
	root.Flags().String("log", "", "Append logs to this file (env SNIP_LOG_FILE)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
