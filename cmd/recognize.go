package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/facewatch/internal/annotate"
	"github.com/kozaktomas/facewatch/internal/config"
	"github.com/kozaktomas/facewatch/internal/database/postgres"
	"github.com/kozaktomas/facewatch/internal/imaging"
	"github.com/kozaktomas/facewatch/internal/recognition"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Recognize the known people in an image file",
	Long: `Detect the faces in an image, match them against the gallery and print
the result.

Examples:
  # Print the faces found in a photo
  facewatch recognize party.jpg

  # Save an annotated copy
  facewatch recognize party.jpg --output party-annotated.jpg

  # Use a stricter threshold and JSON output
  facewatch recognize party.jpg --threshold 0.35 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Float64("threshold", 0, "Maximum Euclidean distance for a match (0 = MATCH_THRESHOLD)")
	recognizeCmd.Flags().String("output", "", "Write an annotated JPEG to this path")
	recognizeCmd.Flags().Bool("json", false, "Output as JSON")
	recognizeCmd.Flags().Bool("nearest", false, "Also show the nearest cached gallery photo per face (needs DATABASE_URL)")
}

type recognizeResult struct {
	recognition.RecognizedFace
	NearestObject   string  `json:"nearest_object,omitempty"`
	NearestDistance float64 `json:"nearest_distance,omitempty"`
}

func runRecognize(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	threshold := mustFlag("threshold", cmd.Flags().GetFloat64)
	if threshold <= 0 {
		threshold = cfg.Recognition.Threshold
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	rt, err := openGalleryRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.loader.EnsureLoaded(ctx); err != nil {
		return fmt.Errorf("loading gallery: %w", err)
	}

	recognizer := recognition.NewRecognizer(rt.detector, recognition.NewMatcher(threshold), rt.store)
	faces, err := recognizer.RecognizeBytes(ctx, data)
	if err != nil {
		return err
	}

	results := make([]recognizeResult, len(faces))
	for i, f := range faces {
		results[i].RecognizedFace = f
	}
	if mustFlag("nearest", cmd.Flags().GetBool) {
		if err := addNearest(ctx, rt, data, results); err != nil {
			return err
		}
	}

	if out := mustFlag("output", cmd.Flags().GetString); out != "" {
		annotated, err := annotate.Annotate(data, faces, annotate.Outline)
		if err != nil {
			return fmt.Errorf("annotating image: %w", err)
		}
		if err := os.WriteFile(out, annotated, 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
		log.WithField("path", out).Info("Annotated image saved")
	}

	if mustFlag("json", cmd.Flags().GetBool) {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No faces found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDISTANCE\tBOX (T,R,B,L)\tNEAREST")
	fmt.Fprintln(w, "----\t--------\t-------------\t-------")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%.3f\t%d,%d,%d,%d\t%s\n",
			r.Name, r.Distance, r.Top, r.Right, r.Bottom, r.Left, r.NearestObject)
	}
	w.Flush()
	return nil
}

// addNearest looks every detected face up in the pgvector cache.
func addNearest(ctx context.Context, rt *galleryRuntime, data []byte, results []recognizeResult) error {
	pool := postgres.GetGlobalPool()
	if pool == nil {
		return errors.New("--nearest requires DATABASE_URL")
	}
	repo := postgres.NewEncodingRepository(pool)

	jpegData, err := imaging.AsJPEG(data)
	if err != nil {
		return err
	}
	detected, err := rt.detector.Detect(ctx, jpegData)
	if err != nil {
		return fmt.Errorf("detecting faces: %w", err)
	}
	for i := range results {
		if i >= len(detected) {
			break
		}
		nearest, distance, err := repo.Nearest(ctx, rt.model, detected[i].Embedding)
		if err != nil {
			return err
		}
		if nearest != nil {
			results[i].NearestObject = nearest.ObjectName
			results[i].NearestDistance = distance
		}
	}
	return nil
}
