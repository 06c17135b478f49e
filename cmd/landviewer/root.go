package main

import (
	"encoding/json"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/gregleeform/landviewer/internal/colorfilter"
	img "github.com/gregleeform/landviewer/internal/image"
	"github.com/gregleeform/landviewer/internal/session"
	"github.com/gregleeform/landviewer/internal/version"
	"github.com/gregleeform/landviewer/pkg/geometry"
)

func newRootCmd(log *slog.Logger) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "landviewer",
		Short:         "Align and render cadastral overlays onto field photos",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newRenderCmd(log))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version.String())
		},
	}
}

type renderOptions struct {
	photoPath   string
	overlayPath string
	sessionPath string
	outPath     string
	maxDim      int
}

func newRenderCmd(log *slog.Logger) *cobra.Command {
	var (
		opts  renderOptions
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "render --photo <file> --overlay <file> --out <file>",
		Short: "Composite an overlay onto a photo and write the result as PNG",
		Long: `Render loads a field photo and a cadastral overlay, replays the session
document (rotation, crop, colour filters, correspondence points, opacity,
line strength) and writes the composited raster as PNG. Without a session
document the overlay is placed at the default centred position.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := renderOnce(log, opts); err != nil {
				return err
			}
			log.Info("render complete", "out", opts.outPath)
			if !watch {
				return nil
			}
			return watchAndRender(log, opts)
		},
	}

	cmd.Flags().StringVar(&opts.photoPath, "photo", "", "field photo (png/jpeg/tiff)")
	cmd.Flags().StringVar(&opts.overlayPath, "overlay", "", "cadastral overlay (png/jpeg/tiff)")
	cmd.Flags().StringVar(&opts.sessionPath, "session", "", "session document (json)")
	cmd.Flags().StringVar(&opts.outPath, "out", "", "output path (png)")
	cmd.Flags().IntVar(&opts.maxDim, "max-dim", img.DefaultMaxDimension, "downscale inputs above this dimension, 0 disables")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep running and re-render when an input file changes")
	cmd.MarkFlagRequired("photo")
	cmd.MarkFlagRequired("overlay")
	cmd.MarkFlagRequired("out")

	return cmd
}

// sessionDoc is the on-disk session document. Absent fields keep the
// session defaults.
type sessionDoc struct {
	Rotation    float64            `json:"rotation"`
	Crop        *img.CropRegion    `json:"crop,omitempty"`
	Opacity     *float64           `json:"opacity,omitempty"`
	Strength    float64            `json:"strength"`
	ShowOverlay *bool              `json:"show_overlay,omitempty"`
	Points      *[4][2]float64     `json:"points,omitempty"`
	Keep        []colorfilter.Rule `json:"keep,omitempty"`
	Remove      []colorfilter.Rule `json:"remove,omitempty"`
}

func loadSessionDoc(path string) (sessionDoc, error) {
	var doc sessionDoc
	if path == "" {
		return doc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("read session document: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse session document: %w", err)
	}
	return doc, nil
}

func renderOnce(log *slog.Logger, opts renderOptions) error {
	photo, err := img.Load(opts.photoPath)
	if err != nil {
		return fmt.Errorf("load photo: %w", err)
	}
	overlay, err := img.Load(opts.overlayPath)
	if err != nil {
		return fmt.Errorf("load overlay: %w", err)
	}
	if opts.maxDim > 0 {
		if img.ShouldSuggestResize(photo, opts.maxDim) {
			photo = img.ResizedCopy(photo, opts.maxDim)
			log.Info("photo downscaled", "max_dim", opts.maxDim)
		}
		if img.ShouldSuggestResize(overlay, opts.maxDim) {
			overlay = img.ResizedCopy(overlay, opts.maxDim)
			log.Info("overlay downscaled", "max_dim", opts.maxDim)
		}
	}

	doc, err := loadSessionDoc(opts.sessionPath)
	if err != nil {
		return err
	}

	s := session.New(photo, overlay, log)
	defer s.Close()

	if doc.Rotation != 0 {
		s.SetRotation(doc.Rotation)
	}
	if doc.Crop != nil {
		if err := s.SetCrop(*doc.Crop); err != nil {
			return fmt.Errorf("apply crop: %w", err)
		}
	}
	if len(doc.Keep) > 0 || len(doc.Remove) > 0 {
		ch := s.Subscribe()
		if err := s.SetFilters(doc.Keep, doc.Remove); err != nil {
			return fmt.Errorf("apply colour filters: %w", err)
		}
		if err := awaitFilter(ch); err != nil {
			return err
		}
	}
	if doc.Opacity != nil {
		s.SetOpacity(*doc.Opacity)
	}
	s.SetStrength(doc.Strength)
	if doc.ShowOverlay != nil {
		s.SetVisible(*doc.ShowOverlay)
	}
	if doc.Points != nil {
		var q geometry.Quad
		for i, p := range doc.Points {
			q[i] = geometry.NewPoint2D(p[0], p[1])
		}
		s.SetPoints(q)
	}

	out := s.Render()
	f, err := os.Create(opts.outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := png.Encode(f, out); err != nil {
		f.Close()
		return fmt.Errorf("encode output: %w", err)
	}
	return f.Close()
}

// awaitFilter blocks until the background colour filter commits or fails.
func awaitFilter(ch <-chan session.Update) error {
	deadline := time.After(2 * time.Minute)
	for {
		select {
		case u, ok := <-ch:
			if !ok {
				return session.ErrClosed
			}
			switch u.Kind {
			case session.UpdateOverlay:
				return nil
			case session.UpdateFailure:
				return fmt.Errorf("colour filter: %w", u.Err)
			}
		case <-deadline:
			return fmt.Errorf("colour filter did not complete")
		}
	}
}

const watchDebounce = 200 * time.Millisecond

// watchAndRender re-renders whenever one of the input files is rewritten.
// Events are debounced since editors and exporters tend to emit bursts of
// writes for a single save.
func watchAndRender(log *slog.Logger, opts renderOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()

	inputs := map[string]bool{
		filepath.Clean(opts.photoPath):   true,
		filepath.Clean(opts.overlayPath): true,
	}
	if opts.sessionPath != "" {
		inputs[filepath.Clean(opts.sessionPath)] = true
	}
	dirs := map[string]bool{}
	for path := range inputs {
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		log.Info("watching directory", "dir", dir)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	var pending <-chan time.Time
	for {
		select {
		case <-sig:
			log.Info("stopping watch")
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "err", err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !inputs[filepath.Clean(ev.Name)] {
				continue
			}
			pending = time.After(watchDebounce)
		case <-pending:
			pending = nil
			if err := renderOnce(log, opts); err != nil {
				log.Warn("render failed, keeping previous output", "err", err)
				continue
			}
			log.Info("render complete", "out", opts.outPath)
		}
	}
}
