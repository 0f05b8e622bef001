package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"finitefield.org/shopper-web/internal/cms"
)

var errInvalidContent = errors.New("content failed validation")

func newValidateCmd() *cobra.Command {
	var contentDir, collectionsDir string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check content records against the collection schemas",
		Long: `Validates the unified YAML records under --content and, when --collections
is set, every record of the file-backed collections. Exits non-zero when any
record fails its schema.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			validator, err := cms.NewValidator()
			if err != nil {
				return fmt.Errorf("compile content schemas: %w", err)
			}
			out := cmd.OutOrStdout()

			failures, err := cms.NewUnifiedTier(contentDir).Check(cmd.Context(), validator)
			if err != nil {
				return fmt.Errorf("check %s: %w", contentDir, err)
			}
			if collectionsDir != "" {
				more, err := cms.NewCollectionTier(cms.NewDirSource(collectionsDir), validator).Check(cmd.Context())
				if err != nil {
					return fmt.Errorf("check %s: %w", collectionsDir, err)
				}
				failures = append(failures, more...)
			}

			for _, f := range failures {
				fmt.Fprintf(out, "FAIL %v\n", f)
			}
			if len(failures) > 0 {
				return fmt.Errorf("%w: %d record(s)", errInvalidContent, len(failures))
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&contentDir, "content", "content", "content directory")
	cmd.Flags().StringVar(&collectionsDir, "collections", "", "file-backed collections directory")
	return cmd
}
