package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/richinsley/comfymeta/metadata"
	"github.com/richinsley/comfymeta/pnginfo"
)

var (
	errTooLarge    = errors.New("input exceeds max_input_bytes")
	errNotComfy    = errors.New("no ComfyUI prompt and workflow found")
	errFilesFailed = errors.New("some files could not be parsed")
)

// fileRecord is one entry of the output when several files are parsed.
type fileRecord struct {
	File   string           `json:"file"`
	Record *metadata.Record `json:"record,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func (a *app) newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse FILE...",
		Short: "Print the generation parameters of ComfyUI images",
		Long: `Parse reads PNG images saved by ComfyUI, or JSON exports holding their
"prompt" and "workflow" documents, and prints one record per file.`,
		Example: `  comfymeta parse image.png
  comfymeta parse --output yaml *.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.runParse,
	}
}

func (a *app) runParse(cmd *cobra.Command, args []string) error {
	results := make([]fileRecord, len(args))

	var bar *progressbar.ProgressBar
	if a.cfg.Progress && len(args) > 1 {
		bar = progressbar.NewOptions(len(args),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetDescription("parsing"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(a.cfg.Workers)
	for i, path := range args {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = fileRecord{File: path}
			r, err := parseFile(path, a.cfg.MaxInputBytes)
			if err != nil {
				results[i].Error = err.Error()
			} else {
				results[i].Record = r
			}
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if bar != nil {
		_ = bar.Finish()
	}

	failed := 0
	for _, res := range results {
		if res.Error != "" {
			failed++
			slog.Warn("skipping file", "path", res.File, "error", res.Error)
		}
	}

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		if failed == 0 {
			if err := writeValue(out, a.cfg.Output, results[0].Record); err != nil {
				return err
			}
		}
	} else if err := writeValue(out, a.cfg.Output, results); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errFilesFailed, failed, len(args))
	}
	return nil
}

// parseFile reads one input, picking the PNG or JSON adapter by signature.
func parseFile(path string, limit int64) (*metadata.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	exif, err := readExif(f, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if !metadata.CanParse(exif) {
		return nil, fmt.Errorf("%s: %w", path, errNotComfy)
	}

	r, err := metadata.Parse(exif)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func readExif(r io.Reader, limit int64) (metadata.Exif, error) {
	data, err := readLimited(r, limit)
	if err != nil {
		return metadata.Exif{}, err
	}
	if pnginfo.IsPNG(data) {
		return metadata.ExifFromPNG(bytes.NewReader(data))
	}
	return metadata.ExifFromJSON(data)
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errTooLarge
	}
	return data, nil
}
