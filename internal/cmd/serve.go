package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/stepcheck/internal/archive"
	"github.com/Iron-Ham/stepcheck/internal/checkserver"
	"github.com/Iron-Ham/stepcheck/internal/config"
	"github.com/Iron-Ham/stepcheck/internal/event"
	"github.com/Iron-Ham/stepcheck/internal/inference"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the /check_piece classifier server",
	Long: `Run the /check_piece classifier server.

Frames posted to /check_piece are cropped to the play area and sent to the
object-detection service at server.inference_url. The best detection of the
expected class is reported with its centre in full-frame pixels.

With server.archive_dir set, every annotated frame is kept on disk and indexed;
see 'stepcheck archive list'.`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	detector := inference.NewClient(cfg.Server.InferenceURL,
		inference.WithTimeout(cfg.Server.InferenceTimeout()),
		inference.WithLogger(logger),
	)

	bus := event.NewBus(logger)
	opts := []checkserver.Option{
		checkserver.WithMatchThreshold(cfg.Server.MatchThreshold),
		checkserver.WithCrop(cfg.Server.CropTopRatio, cfg.Server.CropBottomRatio),
		checkserver.WithBus(bus),
		checkserver.WithLogger(logger),
	}
	if cfg.Server.ArchiveDir != "" {
		store, err := archive.Open(cfg.Server.ArchiveDir)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		opts = append(opts, checkserver.WithArchive(store))

		bus.Subscribe(event.TypeDetectionArchived, func(e event.Event) {
			if a, ok := e.(event.DetectionArchivedEvent); ok {
				logger.Debug("detection archived", "record_id", a.RecordID, "path", a.ImagePath)
			}
		})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := detector.CheckHealth(ctx); err != nil {
		logger.Warn("inference service not ready", "url", cfg.Server.InferenceURL, "error", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Serving /check_piece on %s (inference: %s)\n", addr, cfg.Server.InferenceURL)
	return checkserver.New(detector, opts...).ListenAndServe(ctx, addr)
}
