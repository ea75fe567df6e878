// Command pdftext extracts plain text from a PDF file.
//
// Usage:
//
//	pdftext [-d] [-o output.txt] [--config config.yaml] input.pdf
package main

import (
	"fmt"
	"os"

	"github.com/cortexdoc/pdftext"
	"github.com/cortexdoc/pdftext/internal/lexer"
	"github.com/spf13/cobra"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		debug      bool
		output     string
		configPath string
		divider    string
	)

	cmd := &cobra.Command{
		Use:   "pdftext <input.pdf>",
		Short: "Extract plain text from a PDF file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			opts := pdftext.Options{Divider: cfg.Divider, Debug: cfg.Debug}
			if divider != "" {
				opts.Divider = divider
			}
			if debug {
				opts.Debug = true
			}

			return run(args[0], output, opts)
		},
	}

	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "enable diagnostic logging to stderr")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write extracted text to this path instead of stdout")
	cmd.Flags().StringVar(&configPath, "config", "", "optional YAML config file (divider, debug)")
	cmd.Flags().StringVar(&divider, "divider", "", "override the page/fallback divider")

	return cmd
}

func run(inputPath, outputPath string, opts pdftext.Options) error {
	//nolint:gosec // Input path is an operator-supplied CLI argument, not arbitrary.
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", inputPath, err)
	}

	docs := lexer.ParseDocument(data)
	text := pdftext.ExtractText(docs, opts)

	if outputPath == "" {
		fmt.Print(text)
		return nil
	}

	out := append([]byte{}, utf8BOM...)
	out = append(out, text...)
	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outputPath, err)
	}
	return nil
}
