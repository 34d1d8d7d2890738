package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/quicktrim/internal/domain/edit"
	"github.com/forPelevin/quicktrim/internal/logger"
	"github.com/forPelevin/quicktrim/internal/pipeline"
	"github.com/forPelevin/quicktrim/internal/ports/adapters/elevenlabs"
)

func runTranscribe(cmd *cobra.Command, log *logger.Logger, input string) error {
	outDir, _ := cmd.Flags().GetString("out")
	provider, _ := cmd.Flags().GetString("provider")
	if provider == "" {
		provider = getenvDefault("QUICKTRIM_PROVIDER", pipeline.ProviderElevenLabs)
	}

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	cfg := baseConfig(cmd, log)
	cfg.OutDir = outDir
	cfg.Provider = strings.ToLower(strings.TrimSpace(provider))
	cfg.Log = log.With("provider", cfg.Provider, "input", absIn)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Hour)
	defer cancel()

	path, err := pipeline.Transcribe(ctx, cfg, absIn)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func runShow(cmd *cobra.Command, sessionPath string) error {
	modeFlag, _ := cmd.Flags().GetString("mode")
	mode, err := edit.ParseViewMode(modeFlag)
	if err != nil {
		return err
	}
	out, err := pipeline.Show(sessionPath, mode)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

func runEdit(cmd *cobra.Command, log *logger.Logger, sessionPath string) error {
	var ops pipeline.EditOps
	ops.RemoveSegments, _ = cmd.Flags().GetIntSlice("remove-segment")
	ops.RestoreSegments, _ = cmd.Flags().GetIntSlice("restore-segment")
	ops.AddFillers, _ = cmd.Flags().GetStringSlice("add-filler")
	ops.RemoveFillers, _ = cmd.Flags().GetStringSlice("remove-filler")

	var err error
	toggle, _ := cmd.Flags().GetStringSlice("toggle-word")
	if ops.ToggleWords, err = parseWordRefs(toggle); err != nil {
		return err
	}
	restore, _ := cmd.Flags().GetStringSlice("restore-word")
	if ops.RestoreWords, err = parseWordRefs(restore); err != nil {
		return err
	}

	s, err := pipeline.Edit(baseConfig(cmd, log), sessionPath, ops)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), edit.Render(s.Transcript, edit.ViewParagraph))
	return nil
}

func runPlan(cmd *cobra.Command, sessionPath string) error {
	plan, err := pipeline.Plan(sessionPath)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}

func runExport(cmd *cobra.Command, log *logger.Logger, sessionPath string) error {
	out, _ := cmd.Flags().GetString("out")
	preview, _ := cmd.Flags().GetBool("preview")
	subs, _ := cmd.Flags().GetBool("subtitles")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Hour)
	defer cancel()

	cfg := baseConfig(cmd, log.With("session", sessionPath, "preview", preview, "subtitles", subs))
	res, err := pipeline.Export(ctx, cfg, sessionPath, pipeline.ExportOptions{
		Output:    out,
		Preview:   preview,
		Subtitles: subs,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Output)
	return nil
}

func baseConfig(cmd *cobra.Command, log *logger.Logger) pipeline.Config {
	cacheDir, _ := cmd.Flags().GetString("cache")
	return pipeline.Config{
		CacheDir: cacheDir,
		Log:      log,

		FFmpegPath:  getenvDefault("FFMPEG_BIN", "ffmpeg"),
		FFprobePath: getenvDefault("FFPROBE_BIN", "ffprobe"),

		ElevenLabs: elevenlabs.Config{
			APIKey:       os.Getenv("ELEVENLABS_API_KEY"),
			Model:        os.Getenv("ELEVENLABS_MODEL"),
			BaseURL:      os.Getenv("ELEVENLABS_BASE_URL"),
			AllowedHosts: elevenlabs.ParseAllowedHosts(os.Getenv("ELEVENLABS_ALLOWED_HOSTS")),
		},

		WhisperBin:   getenvDefault("WHISPER_BIN", ".cache/bin/whisper.cpp"),
		WhisperModel: getenvDefault("WHISPER_MODEL", ".cache/models/ggml-base.bin"),

		GCPLanguage: getenvDefault("GCP_SPEECH_LANGUAGE", "en-US"),
	}
}

func parseWordRefs(vals []string) ([]pipeline.WordRef, error) {
	out := make([]pipeline.WordRef, 0, len(vals))
	for _, v := range vals {
		r, err := pipeline.ParseWordRef(v)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// commandName names the subcommand os.Args selected, for the failure log.
func commandName(root *cobra.Command) string {
	cmd, _, err := root.Find(os.Args[1:])
	if err != nil || cmd == nil {
		return root.Name()
	}
	return cmd.CommandPath()
}
