package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/facewatch/internal/config"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "facewatch",
	Short: "Face recognition web service for images, videos and a live webcam",
	Long: `facewatch recognizes known people in uploaded images, uploaded videos and a
live webcam feed. Known people are loaded from an object store (Firebase/GCS,
S3 or a local directory) laid out as <prefix>/<person>/<photo>.jpg.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(logLevel)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// setupLogging configures logrus. The flag wins over LOG_LEVEL.
func setupLogging(flagLevel string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	level := flagLevel
	if level == "" {
		level = config.Load().LogLevel
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("Unknown log level, using info")
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
}
