package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/syssam/derive/catalog"
	"github.com/syssam/derive/engine"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Manifest string
	Output   string
	Watch    bool
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate Go source of pre-rendered statements",
		Long: `Generate compiles every operation of a manifest for the manifest's
target and writes a Go file declaring the rendered statements. With
--watch the file is regenerated whenever the manifest or the schema it
names changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.Manifest, "manifest", "f", "", "operation manifest (YAML)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file, standard output when empty")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "regenerate on change")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

func runGenerate(ctx context.Context, opts *GenerateOptions, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Watch && opts.Output == "" {
		return errors.New("--watch requires --output")
	}
	if err := generate(ctx, opts, w); err != nil {
		return err
	}
	if !opts.Watch {
		return nil
	}
	return watch(ctx, opts.logger(), opts.watched(), func() {
		if err := generate(ctx, opts, w); err != nil {
			opts.logger().Error("regenerate failed", "manifest", opts.Manifest, "error", err)
		}
	})
}

func generate(ctx context.Context, opts *GenerateOptions, w io.Writer) error {
	log := opts.logger()
	start := time.Now()
	if opts.Output != "" {
		c, err := catalog.WriteFile(ctx, opts.Manifest, opts.Output, engine.WithLogger(log))
		if err != nil {
			return err
		}
		log.Info("generated catalog", "output", opts.Output, "statements", len(c.Entries), "took", time.Since(start))
		return nil
	}
	m, err := catalog.Load(opts.Manifest)
	if err != nil {
		return err
	}
	reg, err := m.Registry()
	if err != nil {
		return err
	}
	c, err := catalog.Compile(ctx, m, reg, engine.WithLogger(log))
	if err != nil {
		return err
	}
	src, err := catalog.Generate(c)
	if err != nil {
		return err
	}
	_, err = w.Write(src)
	return err
}

// watched returns the files whose changes trigger a regeneration.
func (o *GenerateOptions) watched() []string {
	files := []string{o.Manifest}
	if m, err := catalog.Load(o.Manifest); err == nil && m.Schema != "" {
		files = append(files, m.SchemaPath())
	}
	return files
}

// watch calls fn after every write to one of files, until ctx is done.
// Directories are watched rather than files, so editors that replace
// files on save are followed.
func watch(ctx context.Context, log *slog.Logger, files []string, fn func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()
	names := make(map[string]bool, len(files))
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		names[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}
	log.Info("watching for changes", "files", files)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil || !names[abs] || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			log.Debug("file changed", "file", ev.Name, "op", ev.Op.String())
			fn()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)
		}
	}
}
