package cmd

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuzeguitarist/text2qr/internal/app"
	"github.com/yuzeguitarist/text2qr/internal/qr"
)

func newEncodeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "encode [text]",
		Short: "Encode text as a QR code (PNG or SVG by file extension, or to the terminal)",
		Long: "Encode text as a QR code. Text comes from the argument, --text, or stdin.\n" +
			"Without --out the code is drawn on the terminal, or written as PNG when stdout is redirected.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, _ := cmd.Flags().GetString("text")
			if len(args) == 1 {
				text = args[0]
			}
			if text == "" && !app.IsTerminal(cmd.InOrStdin()) {
				b, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 1<<16))
				if err != nil {
					return err
				}
				text = string(b)
			}
			enc, err := encoderFromFlags(cmd)
			if err != nil {
				return err
			}
			sym, err := enc.Encode(text)
			if err != nil {
				return err
			}
			return writeSymbol(cmd, sym)
		},
	}
	c.Flags().String("text", "", "text to encode")
	addOutputFlags(c)
	return c
}

func addOutputFlags(c *cobra.Command) {
	c.Flags().StringP("out", "o", "", "output file (.png or .svg), - for PNG on stdout")
	c.Flags().String("level", "", "error correction: low, medium, high, highest (or L, M, Q, H)")
	c.Flags().Int("size", 0, "module size in pixels (default from config)")
	c.Flags().Int("px", 0, "fixed image width in pixels instead of module scaling")
	c.Flags().Bool("terminal", false, "draw the code on the terminal")
	c.Flags().Bool("inverse", false, "invert terminal colors for light backgrounds")
}

func encoderFromFlags(cmd *cobra.Command) (*qr.Encoder, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	enc, err := cfg.Encoder()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("level") {
		s, _ := cmd.Flags().GetString("level")
		l, err := qr.ParseLevel(s)
		if err != nil {
			return nil, err
		}
		enc = enc.With(qr.WithLevel(l))
	}
	if cmd.Flags().Changed("size") {
		n, _ := cmd.Flags().GetInt("size")
		enc = enc.With(qr.WithModuleSize(n))
	}
	if px, _ := cmd.Flags().GetInt("px"); px != 0 {
		enc = enc.With(qr.WithSize(px))
	}
	return enc, nil
}

// writeSymbol renders sym according to the output flags.
func writeSymbol(cmd *cobra.Command, sym *qr.Symbol) error {
	stdout := cmd.OutOrStdout()
	out, _ := cmd.Flags().GetString("out")
	terminal, _ := cmd.Flags().GetBool("terminal")
	inverse, _ := cmd.Flags().GetBool("inverse")

	if out == "" && (terminal || app.IsTerminal(stdout)) {
		fmt.Fprint(stdout, sym.Terminal(inverse))
		return nil
	}
	if out == "" || out == "-" {
		return sym.WritePNG(stdout)
	}

	var b []byte
	if strings.HasSuffix(strings.ToLower(out), ".svg") {
		b = sym.SVG()
	} else {
		var buf bytes.Buffer
		if err := sym.WritePNG(&buf); err != nil {
			return err
		}
		b = buf.Bytes()
	}
	if err := app.AtomicWriteFile(out, 0644, b); err != nil {
		return err
	}
	if terminal {
		fmt.Fprint(stdout, sym.Terminal(inverse))
	}
	fmt.Fprintf(stdout, "Wrote: %s (version %d, level %s)\n", filepath.Clean(out), sym.Version, sym.Level.Letter())
	return nil
}

