package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kdelwat9/snap2mealie/internal/artifacts"
	"github.com/kdelwat9/snap2mealie/internal/assemble"
	"github.com/kdelwat9/snap2mealie/internal/browser"
	"github.com/kdelwat9/snap2mealie/internal/caption"
	"github.com/kdelwat9/snap2mealie/internal/chat"
	"github.com/kdelwat9/snap2mealie/internal/extract"
	"github.com/kdelwat9/snap2mealie/internal/locator"
	"github.com/kdelwat9/snap2mealie/internal/mealie"
)

// newScrapeCmd creates and configures the `scrape` command.
func newScrapeCmd() *cobra.Command {
	var (
		captionFile  string
		captionText  string
		thumbnail    string
		grabThumb    bool
		sendToMealie bool
	)

	scrapeCmd := &cobra.Command{
		Use:   "scrape [post-url]",
		Short: "Extracts a structured recipe from a social-media post caption",
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their Viper keys so command-line values override
			// the config file and environment.
			if err := viper.BindPFlag("assembly.step_probe", cmd.Flags().Lookup("step-probe")); err != nil {
				return err
			}
			if err := viper.BindPFlag("assembly.output_file", cmd.Flags().Lookup("output")); err != nil {
				return err
			}
			return viper.BindPFlag("assembly.language", cmd.Flags().Lookup("language"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			// Re-read the flag-bound assembly keys after binding.
			cfg.Assembly.StepProbe = viper.GetBool("assembly.step_probe")
			cfg.Assembly.OutputFile = viper.GetString("assembly.output_file")
			cfg.Assembly.Language = viper.GetString("assembly.language")

			postURL := ""
			if len(args) > 0 {
				postURL = args[0]
			}

			src, err := captionSource(captionFile, captionText, thumbnail)
			if err != nil {
				return err
			}

			text, thumbnailPath, err := src.Caption(ctx, postURL)
			if err != nil {
				return fmt.Errorf("caption retrieval failed: %w", err)
			}
			logger.Info("Caption retrieved.", zap.Int("chars", len(text)))

			chrome, err := browser.NewChrome(ctx, cfg.Browser, logger)
			if err != nil {
				return fmt.Errorf("failed to launch browser: %w", err)
			}
			// The browser process is always released, including on errors and
			// interrupts that unwind this function.
			defer chrome.Close()

			if thumbnailPath == "" && grabThumb && postURL != "" {
				thumbnailPath = captureThumbnail(ctx, chrome, postURL)
			}

			if err := chrome.OpenChat(ctx, cfg.Locator); err != nil {
				return fmt.Errorf("failed to open chat page: %w", err)
			}

			var sink *artifacts.Sink
			if cfg.Artifacts.Enabled {
				sink = artifacts.NewSink(cfg.Artifacts.Dir, logger)
			}

			loc := locator.New(chrome, cfg.Locator, sink, logger)
			channel := chat.NewChannel(chrome, loc, cfg.Chat, logger)
			extractor := extract.New(sink, logger)
			session := chat.NewSession(chrome, channel, loc, extractor, logger)
			assembler := assemble.New(session, cfg.Assembly, logger)

			doc, err := assembler.Assemble(ctx, text)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Warn("Run aborted by user signal.")
					return fmt.Errorf("run aborted by user signal")
				}
				return fmt.Errorf("recipe assembly failed: %w", err)
			}

			jsonLD, err := doc.JSONLD()
			if err != nil {
				return fmt.Errorf("failed to finalize recipe document: %w", err)
			}

			if cfg.Assembly.OutputFile != "" {
				if err := writeSinkPayload(cfg.Assembly.OutputFile, jsonLD); err != nil {
					return err
				}
				logger.Info("Recipe payload written.", zap.String("path", cfg.Assembly.OutputFile))
			}

			if sendToMealie {
				client := mealie.NewClient(cfg.Mealie, logger)
				slug, err := client.CreateRecipe(ctx, jsonLD)
				if err != nil {
					return fmt.Errorf("mealie submission failed: %w", err)
				}
				if thumbnailPath != "" {
					if err := client.UploadThumbnail(ctx, slug, thumbnailPath); err != nil {
						logger.Warn("Thumbnail upload failed.", zap.Error(err))
					}
				}
				fmt.Printf("\nRecipe created: %s\n", slug)
			}

			logger.Info("Scrape completed.", zap.String("session_id", session.ID()))
			return nil
		},
	}

	scrapeCmd.Flags().StringVar(&captionFile, "caption-file", "", "read the post caption from a local text file")
	scrapeCmd.Flags().StringVar(&captionText, "caption", "", "use the given caption text directly")
	scrapeCmd.Flags().StringVar(&thumbnail, "thumbnail", "", "local image to attach to the created recipe")
	scrapeCmd.Flags().BoolVar(&grabThumb, "capture-thumbnail", false, "screenshot the post's video as the recipe thumbnail")
	scrapeCmd.Flags().BoolVar(&sendToMealie, "send", false, "submit the finished recipe to the configured Mealie instance")
	scrapeCmd.Flags().Bool("step-probe", false, "ask for the instruction step count and fetch each step individually")
	scrapeCmd.Flags().StringP("output", "o", "final_recipe.json", "file to write the final sink payload to")
	scrapeCmd.Flags().String("language", "en", "language code the model is asked to answer in")

	return scrapeCmd
}

// captionSource picks the caption source from the mutually exclusive flags.
func captionSource(file, text, thumbnail string) (caption.Source, error) {
	switch {
	case file != "" && text != "":
		return nil, fmt.Errorf("--caption-file and --caption are mutually exclusive")
	case file != "":
		return caption.NewFileSource(file, thumbnail, logger), nil
	case text != "":
		return caption.LiteralSource{Text: text, ThumbnailPath: thumbnail}, nil
	default:
		return nil, fmt.Errorf("a caption is required: pass --caption-file or --caption")
	}
}

// captureThumbnail visits the post page and screenshots its video. Failures
// only cost the thumbnail, never the run.
func captureThumbnail(ctx context.Context, chrome *browser.Chrome, postURL string) string {
	if err := chrome.Visit(ctx, postURL); err != nil {
		logger.Warn("Could not reach post page for thumbnail capture.", zap.Error(err))
		return ""
	}
	path, err := chrome.CaptureVideoThumbnail(ctx)
	if err != nil {
		logger.Warn("Thumbnail capture failed.", zap.Error(err))
		return ""
	}
	return path
}

// writeSinkPayload persists the sink envelope for inspection or replay.
func writeSinkPayload(path, jsonLD string) error {
	envelope := map[string]interface{}{
		"includeTags": false,
		"data":        jsonLD,
	}
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sink payload: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write sink payload: %w", err)
	}
	return nil
}
