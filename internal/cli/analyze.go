package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tobsdb/sqlanalyzer/internal/render"
	"github.com/tobsdb/sqlanalyzer/pkg/catalog"
	"github.com/tobsdb/sqlanalyzer/pkg/client"
	"github.com/tobsdb/sqlanalyzer/pkg/session"
	"github.com/tobsdb/sqlanalyzer/pkg/types"
)

var ErrInvalidStatement = errors.New("statement is invalid")

var errorModes = map[string]types.ErrorMessageMode{
	"one-line": types.ErrorMessageOneLine,
	"payload":  types.ErrorMessageWithPayload,
	"caret":    types.ErrorMessageMultiLineWithCaret,
}

var locationModes = map[string]types.ParseLocationRecordType{
	"none":        types.ParseLocationRecordNone,
	"full":        types.ParseLocationRecordFullNodeScope,
	"code-search": types.ParseLocationRecordCodeSearch,
}

func NewAnalyzeCommand() *cobra.Command {
	var conn connectFlags
	var error_mode, location_mode string
	var max_features bool

	cmd := &cobra.Command{
		Use:   "analyze SQL",
		Short: "Resolve a statement against a catalog",
		Long: `Register the catalog from --catalog (see "sqlanalyzer catalog validate"),
analyze the statement against it and print the output columns and the tables
and columns it references. Pass - to read the statement from stdin.

An invalid statement prints its 0-based line, character and message and
exits non-zero.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetConfig(cmd.Context())
			if cfg.CatalogFile == "" {
				return errors.New("no catalog: set --catalog or catalog_file")
			}
			mode, ok := errorModes[error_mode]
			if !ok {
				return fmt.Errorf("invalid --error-mode %q", error_mode)
			}
			location, ok := locationModes[location_mode]
			if !ok {
				return fmt.Errorf("invalid --location-mode %q", location_mode)
			}

			sql, err := readStatement(cmd, args)
			if err != nil {
				return err
			}
			cat, err := catalog.LoadSpecFile(cfg.CatalogFile)
			if err != nil {
				return err
			}

			s, err := conn.open(cmd.Context(), cfg, session.Options{
				DefaultLanguage:         !max_features,
				ErrorMessageMode:        mode,
				ParseLocationRecordType: location,
			})
			if err != nil {
				return err
			}
			defer s.Close(context.Background())

			if _, err := s.Register(cmd.Context(), cat); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			res, err := s.Analyze(cmd.Context(), sql)
			if err == nil {
				if cfg.Output == "json" {
					return render.JSON(w, res)
				}
				render.Analysis(w, res)
				return nil
			}

			failure := client.InspectAnalyzeError(err)
			if failure.Outcome != client.OutcomeFailedParsed {
				return err
			}
			if cfg.Output == "json" {
				if err := render.JSON(w, render.NewFailureJSON(failure)); err != nil {
					return err
				}
			} else {
				render.Failure(w, failure)
			}
			return ErrInvalidStatement
		},
	}

	conn.register(cmd)
	cmd.Flags().String("catalog", "", "catalog spec file (yaml)")
	cmd.Flags().StringVar(&error_mode, "error-mode", "one-line", "error message mode (one-line|payload|caret)")
	cmd.Flags().StringVar(&location_mode, "location-mode", "full", "reference location recording (none|full|code-search)")
	cmd.Flags().BoolVar(&max_features, "max-features", false, "enable every optional language feature and statement kind")
	return cmd
}
