package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/forPelevin/snip/internal/pipeline"
	"github.com/forPelevin/snip/internal/shell"
)

func run(cmd *cobra.Command, input string) error {
	outDir, _ := cmd.Flags().GetString("out")
	output, _ := cmd.Flags().GetString("output")
	merge, _ := cmd.Flags().GetInt("merge")
	noPreview, _ := cmd.Flags().GetBool("no-preview")
	logPath, _ := cmd.Flags().GetString("log")

	if outDir == "" {
		outDir = getenvDefault("SNIP_OUT_DIR", "out")
	}
	if logPath == "" {
		logPath = os.Getenv("SNIP_LOG_FILE")
	}

	logf, closeLog, err := openLog(logPath)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interactive := input == ""
	for {
		if interactive {
			input, err = shell.PromptPath(os.Stdin, cmd.OutOrStdout())
			if err != nil {
				return err
			}
		}
		absIn, err := filepath.Abs(input)
		if err != nil {
			return err
		}

		cfg := pipeline.Config{
			Input:   absIn,
			Output:  output,
			Merge:   merge,
			OutDir:  outDir,
			Preview: !noPreview,
			Color:   colorEnabled(),
			Logf:    logf,

			FFmpegPath:  getenvDefault("SNIP_FFMPEG", "ffmpeg"),
			FFprobePath: getenvDefault("SNIP_FFPROBE", "ffprobe"),
			FFplayPath:  getenvDefault("SNIP_FFPLAY", "ffplay"),
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}

		err = pipeline.Run(ctx, cfg)
		if interactive && errors.Is(err, pipeline.ErrProbe) {
			fmt.Fprintf(cmd.OutOrStdout(), "%v\n", firstLine(err))
			continue
		}
		return err
	}
}

func openLog(path string) (func(string, ...any), func(), error) {
	if path == "" {
		return func(string, ...any) {}, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	l := log.New(f, "snip: ", log.LstdFlags)
	return l.Printf, func() { _ = f.Close() }, nil
}

// colorEnabled follows NO_COLOR (https://no-color.org) and TERM=dumb.
func colorEnabled() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) &&
		os.Getenv("NO_COLOR") == "" &&
		strings.ToLower(os.Getenv("TERM")) != "dumb"
}

func firstLine(err error) string {
	s, _, _ := strings.Cut(err.Error(), "\n")
	return s
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
