package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/forPelevin/quicktrim/internal/logger"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	log, err := logger.New(getenvDefault("QUICKTRIM_LOG_MODE", "dev"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:          "quicktrim",
		Short:        "Trim a video by editing its transcript",
		SilenceUsage: true,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.PersistentFlags().String("cache", ".cache", "Cache directory for audio and raw transcripts")
	_ = root.PersistentFlags().MarkHidden("cache")

	transcribe := &cobra.Command{
		Use:   "transcribe <input>",
		Short: "Transcribe a video into a new edit session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd, log, args[0])
		},
	}
	transcribe.Flags().String("out", "out", "Output directory")
	transcribe.Flags().String("provider", "", "Transcription provider: elevenlabs, whispercpp or gcp (default $QUICKTRIM_PROVIDER or elevenlabs)")

	show := &cobra.Command{
		Use:   "show <session>",
		Short: "Print the session transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args[0])
		},
	}
	show.Flags().String("mode", "paragraph", "View mode: paragraph or segment")

	edit := &cobra.Command{
		Use:   "edit <session>",
		Short: "Cut or restore words and segments",
		Long: "Cut or restore words and segments. Indices are the ones printed by " +
			"`show --mode segment`. Segment flags apply first, then word flags, then filler words.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, log, args[0])
		},
	}
	edit.Flags().IntSlice("remove-segment", nil, "Remove segment N")
	edit.Flags().IntSlice("restore-segment", nil, "Restore segment N")
	edit.Flags().StringSlice("toggle-word", nil, "Toggle word S:W")
	edit.Flags().StringSlice("restore-word", nil, "Restore word S:W")
	edit.Flags().StringSlice("add-filler", nil, "Register a filler word and cut every match")
	edit.Flags().StringSlice("remove-filler", nil, "Unregister a filler word and restore every match")

	plan := &cobra.Command{
		Use:   "plan <session>",
		Short: "Print the removed ranges, keep intervals and clips as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, args[0])
		},
	}

	export := &cobra.Command{
		Use:   "export <session>",
		Short: "Render the trimmed video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, log, args[0])
		},
	}
	export.Flags().String("out", "", "Output file (default next to the session)")
	export.Flags().Bool("preview", false, "Fast low-resolution render")
	export.Flags().Bool("subtitles", false, "Burn karaoke captions of the kept words")

	root.AddCommand(transcribe, show, edit, plan, export)

	if err := root.Execute(); err != nil {
		log.Error(err.Error(), "command", commandName(root))
		log.Sync()
		os.Exit(1)
	}
	log.Sync()
}
