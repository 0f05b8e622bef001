package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"finitefield.org/shopper-web/internal/frontmatter"
	"finitefield.org/shopper-web/internal/markdown"
)

func newRenderCmd() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render a markdown document to HTML",
		Long:  "Reads a markdown file (or stdin when the argument is -), drops its front matter and prints the rendered HTML.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if args[0] == "-" {
				raw, err = io.ReadAll(cmd.InOrStdin())
			} else {
				raw, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			_, body := frontmatter.Parse(string(raw))
			if plain {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), markdown.Strip(body))
			} else {
				_, err = fmt.Fprint(cmd.OutOrStdout(), markdown.Render(body))
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print plain text instead of HTML")
	return cmd
}
