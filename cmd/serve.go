package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/facewatch/internal/annotate"
	"github.com/kozaktomas/facewatch/internal/capture"
	"github.com/kozaktomas/facewatch/internal/config"
	"github.com/kozaktomas/facewatch/internal/events"
	"github.com/kozaktomas/facewatch/internal/livefeed"
	"github.com/kozaktomas/facewatch/internal/pipeline"
	"github.com/kozaktomas/facewatch/internal/recognition"
	"github.com/kozaktomas/facewatch/internal/video"
	"github.com/kozaktomas/facewatch/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the facewatch web server.

Known faces are loaded from the configured gallery at startup. The server
annotates uploaded images and videos, serves the live webcam feed and pushes
recognition events over WebSocket (/ws) and Server-Sent Events (/events).`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8000, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort applies the flags; WEB_PORT and WEB_HOST take precedence.
func resolveServeHostPort(cmd *cobra.Command, cfg *config.WebConfig) {
	if os.Getenv("WEB_PORT") == "" {
		cfg.Port = mustFlag("port", cmd.Flags().GetInt)
	}
	if os.Getenv("WEB_HOST") == "" {
		cfg.Host = mustFlag("host", cmd.Flags().GetString)
	}
}

func openCamera(cfg config.CameraConfig) livefeed.CameraOpener {
	return func() (livefeed.Camera, error) {
		src, err := capture.OpenCamera(cfg.Device, cfg.Width, cfg.Height)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
}

func openVideoFile(path string) (video.FrameSource, error) {
	src, err := capture.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return src, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	resolveServeHostPort(cmd, &cfg.Web)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := openGalleryRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	// A failed load is logged and retried on the next recognition request.
	_ = rt.loader.EnsureLoaded(ctx)

	recognizer := recognition.NewRecognizer(rt.detector, recognition.NewMatcher(cfg.Recognition.Threshold), rt.store)
	hub := events.NewHub()

	if err := os.MkdirAll(cfg.Video.UploadDir, 0o750); err != nil {
		return fmt.Errorf("creating upload directory: %w", err)
	}
	registry := video.NewRegistry(cfg.Video.UploadDir, cfg.Video.Retention)
	go registry.RunJanitor(ctx, cfg.Video.SweepInterval)

	live := livefeed.NewController(
		openCamera(cfg.Camera),
		pipeline.NewProcessor(recognizer, annotate.Banded),
		hub,
		cfg.Camera.GCInterval,
	)

	server := web.NewServer(cfg, web.Deps{
		Recognizer: recognizer,
		Gallery:    rt.store,
		Loader:     rt.loader,
		Videos:     registry,
		Streamer:   video.NewStreamer(registry, openVideoFile, pipeline.NewProcessor(recognizer, annotate.Outline)),
		Live:       live,
		Hub:        hub,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("Shutting down")
		live.Stop()
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Error during shutdown")
		}
	}()

	log.WithFields(log.Fields{
		"url":        "http://" + cfg.Web.Host + ":" + strconv.Itoa(cfg.Web.Port),
		"gallery":    cfg.Gallery.Backend,
		"recognizer": cfg.Recognition.Backend,
		"identities": rt.store.Count(),
	}).Info("facewatch ready")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
