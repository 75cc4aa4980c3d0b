package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/facewatch/internal/config"
	"github.com/kozaktomas/facewatch/internal/gallery"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Inspect and sync the known-people gallery",
}

var galleryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the people and photos in the gallery",
	Long: `List the gallery images grouped by person, as they would be loaded by serve.
Objects that are not .jpg/.jpeg files nested exactly one level below the
prefix are ignored.

With DATABASE_URL set, the number of cached encodings per person is shown too.`,
	Args: cobra.NoArgs,
	RunE: runGalleryList,
}

var gallerySyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Compute embeddings for every gallery image",
	Long: `Compute the face embedding of every gallery image and report people and
photos without a usable face. With DATABASE_URL set the embeddings are stored
in the PostgreSQL cache (and stale cache rows are pruned), so the next serve
starts without recomputing them.`,
	Args: cobra.NoArgs,
	RunE: runGallerySync,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
	galleryCmd.AddCommand(galleryListCmd)
	galleryCmd.AddCommand(gallerySyncCmd)

	galleryListCmd.Flags().Bool("json", false, "Output as JSON")
}

type galleryPerson struct {
	Name   string   `json:"name"`
	Files  []string `json:"files"`
	Cached int      `json:"cached,omitempty"`
}

// groupObjects groups objects by person in first-seen order.
func groupObjects(objects []gallery.Object) []galleryPerson {
	var people []galleryPerson
	index := make(map[string]int)
	for _, obj := range objects {
		idx, ok := index[obj.Person]
		if !ok {
			idx = len(people)
			index[obj.Person] = idx
			people = append(people, galleryPerson{Name: obj.Person})
		}
		people[idx].Files = append(people[idx].Files, obj.Filename)
	}
	return people
}

func runGalleryList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	objects, err := gallery.Open(ctx, &cfg.Gallery)
	if err != nil {
		return fmt.Errorf("opening gallery: %w", err)
	}
	defer objects.Close()

	listed, err := gallery.NewLoader(objects, cfg.Gallery.Prefix, nil, nil, nil).ListObjects(ctx)
	if err != nil {
		return fmt.Errorf("listing gallery: %w", err)
	}
	people := groupObjects(listed)

	cache, err := openCache(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	if cache != nil {
		cached, err := cache.ListPersons(ctx)
		if err != nil {
			return fmt.Errorf("reading encoding cache: %w", err)
		}
		for i := range people {
			people[i].Cached = cached[people[i].Name]
		}
	}

	if mustFlag("json", cmd.Flags().GetBool) {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(people)
	}

	if len(people) == 0 {
		fmt.Printf("No gallery images found under %q\n", cfg.Gallery.Prefix)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PERSON\tPHOTOS\tCACHED")
	fmt.Fprintln(w, "------\t------\t------")
	for _, p := range people {
		fmt.Fprintf(w, "%s\t%d\t%d\n", p.Name, len(p.Files), p.Cached)
	}
	w.Flush()

	fmt.Printf("\n%d people, %d photos\n", len(people), len(listed))
	return nil
}

func runGallerySync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	rt, err := openGalleryRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	listed, err := rt.loader.ListObjects(ctx)
	if err != nil {
		return fmt.Errorf("listing gallery: %w", err)
	}
	if len(listed) == 0 {
		fmt.Printf("No gallery images found under %q\n", cfg.Gallery.Prefix)
		return nil
	}

	bar := progressbar.NewOptions(len(listed),
		progressbar.OptionSetDescription("Encoding faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	identities, err := rt.loader.Fetch(ctx, func(done, total int) {
		bar.Set(done)
	})
	bar.Finish()
	fmt.Println()
	if err != nil {
		return fmt.Errorf("encoding gallery: %w", err)
	}

	encoded := make(map[string]int, len(identities))
	total := 0
	for _, id := range identities {
		encoded[id.Name] = len(id.Encodings)
		total += len(id.Encodings)
	}

	var incomplete []string
	for _, p := range groupObjects(listed) {
		if encoded[p.Name] < len(p.Files) {
			incomplete = append(incomplete, fmt.Sprintf("%s (%d/%d)", p.Name, encoded[p.Name], len(p.Files)))
		}
	}
	sort.Strings(incomplete)

	fmt.Printf("Encoded %d of %d photos for %d people\n", total, len(listed), len(identities))
	if len(incomplete) > 0 {
		fmt.Println("Photos without a detectable face:")
		for _, line := range incomplete {
			fmt.Printf("  %s\n", line)
		}
	}
	if rt.cache != nil {
		count, err := rt.cache.Count(ctx)
		if err == nil {
			fmt.Printf("Encoding cache holds %d embeddings\n", count)
		}
	}
	return nil
}
