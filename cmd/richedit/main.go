// Command richedit runs the post editor core on a stored post read from
// stdin.
//
// Usage:
//
//	richedit normalize < post.html          # check strictly and re-serialize
//	richedit markdown < post.html           # export as Markdown
//	richedit uploads < post.html            # tag the images to upload
//	richedit -config editor.yaml -minify normalize < post.html
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gamedesk/richedit/config"
	"github.com/gamedesk/richedit/editor"
	"github.com/gamedesk/richedit/model"
	"github.com/gamedesk/richedit/schema/cms"
)

func main() {
	configPath := flag.String("config", "", "path to the editor YAML config file")
	minified := flag.Bool("minify", false, "minify the HTML output")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: richedit [-config file] [-minify] normalize|markdown|uploads < post.html")
		flag.PrintDefaults()
	}
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	opts := options{configPath: *configPath, minify: *minified}
	if err := run(flag.Arg(0), opts, os.Stdin, os.Stdout, logger); err != nil {
		logger.Error("richedit: fatal", "error", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	minify     bool
}

func loadConfig(opts options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return nil, err
		}
	}
	if opts.minify {
		cfg.Output.Minify = true
	}
	return cfg, nil
}

func run(command string, opts options, in io.Reader, out io.Writer, logger *slog.Logger) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read post: %w", err)
	}
	raw := string(data)
	sessionOpts := []editor.Option{editor.WithConfig(cfg), editor.WithLogger(logger)}

	switch command {
	case "normalize":
		return runNormalize(raw, sessionOpts, out)
	case "markdown":
		return runMarkdown(raw, sessionOpts, out)
	case "uploads":
		return runUploads(raw, sessionOpts, out, logger)
	}
	return fmt.Errorf("unknown command %q", command)
}

// runNormalize refuses posts that would lose content in the editor.
func runNormalize(raw string, opts []editor.Option, out io.Writer) error {
	if _, err := model.DOMParserFromSchema(cms.Schema).Parse(raw, model.ParseStrict); err != nil {
		return fmt.Errorf("normalize: %w", err)
	}
	s, err := editor.New(raw, opts...)
	if err != nil {
		return err
	}
	text, err := s.HTML()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, text)
	return err
}

func runMarkdown(raw string, opts []editor.Option, out io.Writer) error {
	s, err := editor.New(raw, opts...)
	if err != nil {
		return err
	}
	text, err := s.Markdown()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, text)
	return err
}

// runUploads pastes the post into an empty session, which tags its foreign
// images, and lists the tags.
func runUploads(raw string, opts []editor.Option, out io.Writer, logger *slog.Logger) error {
	s, err := editor.New("", opts...)
	if err != nil {
		return err
	}
	ids, err := s.Paste(editor.Clipboard{HTML: raw})
	if err != nil {
		return err
	}
	logger.Info("images tagged for upload", "count", len(ids))
	for _, upload := range s.PendingUploads() {
		if _, err := fmt.Fprintf(out, "%s\t%s\n", upload.ID, upload.Src); err != nil {
			return err
		}
	}
	return nil
}
