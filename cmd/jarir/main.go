// Command jarir decrypts downloaded Jarir Reader packages and rebuilds them
// as EPUB, Markdown or PDF files.
//
// It only decrypts books for which the account already holds the keys; it
// does not download anything.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	jarir "github.com/abdumu/jarir-reader"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

type globalFlags struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "jarir",
		Short:         "Decrypt and rebuild Jarir Reader books",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "YAML configuration file")

	root.AddCommand(
		newDecryptCmd(g),
		newSpliceCmd(),
		newRenderCmd(g),
		newReconstructCmd(g),
		newInspectCmd(),
	)
	return root
}

// loadConfig reads --config when given, otherwise the defaults, with the
// environment overrides applied in both cases.
func (g *globalFlags) loadConfig() (*jarir.Config, error) {
	if g.configPath != "" {
		return jarir.LoadConfig(g.configPath)
	}
	cfg := jarir.DefaultConfig()
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

func newDecryptCmd(g *globalFlags) *cobra.Command {
	var keyFlag string
	cmd := &cobra.Command{
		Use:   "decrypt <archive> <workdir>",
		Short: "Extract and decrypt a package into a working directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			key, err := parseKey(keyFlag)
			if err != nil {
				return err
			}
			if key == nil {
				key = jarir.DefaultBookKey
			}
			logger := cfg.NewLogger()
			return jarir.DecryptArchiveContext(cmd.Context(), args[0], args[1], key,
				jarir.WithArchiveLogger(logger), jarir.WithMaxEntrySize(cfg.MaxEntryBytes()))
		},
	}
	cmd.Flags().StringVar(&keyFlag, "key", "", "book key as comma-separated signed bytes (default: the shared key)")
	return cmd
}

func newSpliceCmd() *cobra.Command {
	var header, token string
	cmd := &cobra.Command{
		Use:   "splice <body> <out.zip>",
		Short: "Join a downloaded body with its encrypted header",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := jarir.SpliceFile(args[0], header, token, args[1])
			if err != nil {
				return err
			}
			if key != nil {
				fmt.Fprintln(cmd.OutOrStdout(), formatKey(key))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&header, "header", "", "base64 encrypted header")
	cmd.Flags().StringVar(&token, "token", "", "account token")
	cmd.MarkFlagRequired("header")
	cmd.MarkFlagRequired("token")
	return cmd
}

func newRenderCmd(g *globalFlags) *cobra.Command {
	var (
		epubPath string
		markdown bool
		text     bool
		title    string
	)
	cmd := &cobra.Command{
		Use:   "render <workdir> <outdir>",
		Short: "Render a decrypted EPUB working directory into chapter files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			logger := cfg.NewLogger()
			workDir, outDir := args[0], args[1]

			m, err := jarir.ReadManifest(workDir)
			if err != nil {
				return err
			}
			chapters, err := jarir.BuildChapters(workDir, m,
				jarir.WithRenderer(jarir.NewRenderer(logger)), jarir.WithChapterLogger(logger))
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			for _, ch := range chapters {
				p := filepath.Join(outDir, ch.Filename+".xhtml")
				if err := os.WriteFile(p, jarir.ChapterDocument(ch, m.Language), 0o644); err != nil {
					return err
				}
			}
			if markdown {
				if err := jarir.NewMarkdownConverter().WriteMarkdown(outDir, chapters); err != nil {
					return err
				}
			}
			if text {
				if err := jarir.WriteText(outDir, chapters); err != nil {
					return err
				}
			}
			if epubPath != "" {
				if title == "" {
					title = filepath.Base(workDir)
				}
				pub := jarir.Publication{
					Title:     title,
					Language:  m.Language,
					Chapters:  chapters,
					ImagesDir: filepath.Join(workDir, "Images"),
				}
				if err := jarir.WriteEPUB(epubPath, pub); err != nil {
					return err
				}
			}
			logger.Info("rendered chapters", "count", len(chapters), "dir", outDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&epubPath, "epub", "", "also package the chapters as this EPUB file")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "also write Markdown files")
	cmd.Flags().BoolVar(&text, "text", false, "also write plain text files")
	cmd.Flags().StringVar(&title, "title", "", "book title for the EPUB metadata")
	return cmd
}

func newReconstructCmd(g *globalFlags) *cobra.Command {
	var (
		book    jarir.Book
		keyFlag string
		token   string
	)
	cmd := &cobra.Command{
		Use:   "reconstruct",
		Short: "Splice, decrypt and package a downloaded book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if keyFlag != "" {
				if book.Key, err = parseKey(keyFlag); err != nil {
					return err
				}
			}

			engine, err := jarir.New(*cfg)
			if err != nil {
				return err
			}
			defer engine.Close()

			res, err := engine.Reconstruct(cmd.Context(), book, token)
			if err != nil {
				if jarir.IsRetryable(err) {
					return fmt.Errorf("%w (downloading the book again may help)", err)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.OutputPath)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&book.ID, "id", "", "book id; names <books>/<id>.zip")
	f.StringVar(&book.Title, "title", "", "book title")
	f.StringSliceVar(&book.Authors, "author", nil, "book author (repeatable)")
	f.StringVar(&book.Type, "type", "", "book type when the manifest has none (epub, pdf)")
	f.StringVar(&book.URL, "url", "", "download URL, recorded in the store")
	f.StringVar(&book.Cover, "cover", "", "local cover image")
	f.StringVar(&book.Header, "header", "", "base64 encrypted header for split downloads")
	f.StringVar(&token, "token", "", "account token for the header")
	f.StringVar(&keyFlag, "key", "", "book key as comma-separated signed bytes")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("title")
	return cmd
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.epub>",
		Short: "Print the metadata and navigation of an EPUB",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := jarir.InspectEPUB(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			md := info.Metadata
			fmt.Fprintf(out, "Title:      %s\n", md.Title)
			fmt.Fprintf(out, "Authors:    %s\n", strings.Join(md.Authors, ", "))
			fmt.Fprintf(out, "Language:   %s\n", md.Language)
			fmt.Fprintf(out, "Identifier: %s\n", md.Identifier)
			fmt.Fprintf(out, "Version:    %s\n", md.Version)
			fmt.Fprintf(out, "Chapters:   %d\n", len(info.Chapters))
			for i, t := range info.Chapters {
				fmt.Fprintf(out, "  %3d. %s\n", i+1, t)
			}
			for _, w := range info.Warnings {
				slog.Warn("epub check", "warning", w)
			}
			return nil
		},
	}
}

// parseKey reads a key written as comma-separated signed bytes. An empty
// string yields nil, which selects the shared default key.
func parseKey(s string) (jarir.BookKey, error) {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "[]"))
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	key := make(jarir.BookKey, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid key byte %q: %w", p, errors.Unwrap(err))
		}
		key = append(key, int8(v))
	}
	return key, nil
}

func formatKey(k jarir.BookKey) string {
	parts := make([]string, len(k))
	for i, b := range k {
		parts[i] = strconv.Itoa(int(b))
	}
	return strings.Join(parts, ",")
}
