package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rowkit/internal/entity"
	"github.com/roach88/rowkit/internal/paging"
	"github.com/roach88/rowkit/internal/repo"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Filters      string // raw JSON filter spec
	Orders       string // raw JSON order spec
	Page         int
	PerPage      int
	MinPerPage   int
	DefaultOrder string
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <schemas-dir> <entity>",
		Short: "Compile a page request to SQL",
		Long: `Compile a filter and order spec for one entity to the parameterized
statements a page read would run, without touching a database.

Malformed specs compile like any client input: they are ignored, and
every sanitized or skipped entry is reported as a warning.

Examples:
  rowkit compile ./schemas Customer --filters '[{"cols":"name","ops":"Like","vals":"ada"}]'
  rowkit compile ./schemas Customer --orders '[{"cols":"name","ops":"Desc"}]' --page 3`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filters, "filters", "", "filter spec JSON")
	cmd.Flags().StringVar(&opts.Orders, "orders", "", "order spec JSON")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.PerPage, "per-page", 0, "rows per page (0 uses --min-per-page)")
	cmd.Flags().IntVar(&opts.MinPerPage, "min-per-page", paging.MinPerPage, "per-page floor")
	cmd.Flags().StringVar(&opts.DefaultOrder, "default-order", "", `order used when the request has no orders, e.g. "id DESC"`)

	return cmd
}

func runCompile(opts *CompileOptions, schemasDir, entityName string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	schemas, err := loadSchemasOrFail(formatter, schemasDir)
	if err != nil {
		return err
	}
	s, lerr := findEntity(schemas, entityName)
	if lerr != nil {
		return formatter.Fail(ExitCommandError, lerr.Code, lerr.Message, nil)
	}

	r := repo.New(nil, s, nil,
		repo.WithMinPerPage(opts.MinPerPage),
		repo.WithDefaultOrder(opts.DefaultOrder),
	)
	stmts := r.Statements(paging.Page[entity.Entity]{
		Page:    opts.Page,
		PerPage: opts.PerPage,
		Filters: opts.Filters,
		Orders:  opts.Orders,
	})

	if formatter.Format == "json" {
		return formatter.Success(stmts)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "total:  %s\n", stmts.Total)
	fmt.Fprintf(w, "count:  %s\n", stmts.Count)
	fmt.Fprintf(w, "        args %v\n", stmts.CountArgs)
	fmt.Fprintf(w, "select: %s\n", stmts.Select)
	fmt.Fprintf(w, "        args %v\n", stmts.SelectArgs)
	for _, warning := range stmts.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return nil
}
