package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"orpheus/config"
	"orpheus/core/musicgen"
	"orpheus/core/pipeline"
)

var (
	generatePrompt   string
	generateDuration string
	generateLyrics   bool
	generateCompress bool
	generateNoFades  bool
	generateNoAlign  bool
	generateFade     float64
	generateOutput   string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one track from the command line",
	Long:  `Runs the full generation pipeline once, without the server, and writes the WAV to disk.`,
	Run: func(cmd *cobra.Command, args []string) {
		if generatePrompt == "" {
			log.Fatal("a prompt is required, pass it with --prompt")
		}

		cfg := config.Load()

		generator := musicgen.NewClient(&musicgen.Config{
			APIBaseURL: cfg.ModelAPIURL,
			APIKey:     cfg.ModelAPIKey,
			Model:      cfg.ModelName,
			SampleRate: cfg.SampleRate,
			Timeout:    time.Duration(cfg.ModelTimeoutSec) * time.Second,
		})
		pl, err := pipeline.New(generator, cfg.SampleRate)
		if err != nil {
			log.Fatalf("failed to build pipeline: %v", err)
		}

		req := pipeline.Request{
			Prompt:      generatePrompt,
			UseLyrics:   generateLyrics,
			Duration:    generateDuration,
			ApplyFades:  !generateNoFades,
			Normalize:   true,
			Compress:    generateCompress,
			AlignToBeat: !generateNoAlign && cfg.AlignToBeat,
			FadeSeconds: generateFade,
		}

		fmt.Printf("Generating %s track for prompt: %q\n", generateDuration, generatePrompt)

		ctx, cancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.ModelTimeoutSec)*time.Second*10)
		defer cancel()

		result, err := pl.Run(ctx, req, func(stage string, segment, total int) {
			if total > 0 {
				fmt.Printf("  %s segment %d/%d\n", stage, segment, total)
			} else {
				fmt.Printf("  %s\n", stage)
			}
		})
		if err != nil {
			log.Fatalf("generation failed: %v", err)
		}

		out := generateOutput
		if out == "" {
			name := strings.ReplaceAll(strings.ToLower(generatePrompt), " ", "_")
			if len(name) > 40 {
				name = name[:40]
			}
			out = filepath.Join(cfg.OutputDir, name+".wav")
		}
		if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
			log.Fatalf("failed to create output directory: %v", err)
		}
		if err := os.WriteFile(out, result.WAV, 0644); err != nil {
			log.Fatalf("failed to write output: %v", err)
		}

		meta := result.Metadata
		fmt.Printf("Wrote %s (%.1fs, %d Hz, %d segments)\n",
			out, meta.DurationSec, meta.SampleRate, meta.NumSegments)
		fmt.Printf("Plan: %s\n", meta.Plan.Description)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&generatePrompt, "prompt", "p", "", "text prompt describing the track")
	generateCmd.Flags().StringVarP(&generateDuration, "duration", "d", "short", "track length: short, medium or long")
	generateCmd.Flags().BoolVar(&generateLyrics, "lyrics", false, "condition the model on generated lyrics")
	generateCmd.Flags().BoolVar(&generateCompress, "compress", false, "apply dynamic range compression")
	generateCmd.Flags().BoolVar(&generateNoFades, "no-fades", false, "skip the edge fade in/out")
	generateCmd.Flags().BoolVar(&generateNoAlign, "no-align", false, "skip beat grid alignment")
	generateCmd.Flags().Float64Var(&generateFade, "fade", 0, "crossfade length in seconds (0 uses the configured default)")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "output WAV path (defaults to the output directory)")
}
