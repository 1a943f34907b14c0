package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rowkit/internal/compiler"
	"github.com/roach88/rowkit/internal/store"
)

// MigrateResult holds the outcome for every schema.
type MigrateResult struct {
	Dialect string                `json:"dialect"`
	Tables  []store.MigrateResult `json:"tables"`
}

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	Accept bool // record changed schemas as current
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate <schemas-dir>",
		Short: "Create tables for every schema",
		Long: `Create a table for every entity schema in the configured database.

Existing tables are never altered. A schema whose storage layout differs
from the one registered when its table was created is reported as changed
until the table is altered by hand and the run repeated with --accept.

Exit codes:
  0 - All tables present and unchanged
  1 - One or more schemas changed since their table was created
  2 - Command error (invalid schemas, database unreachable, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Accept, "accept", false, "record changed schemas as current")

	return cmd
}

func runMigrate(opts *MigrateOptions, schemasDir string, cmd *cobra.Command) error {
	env, err := loadEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	schemas, err := env.loadSchemas(schemasDir)
	if err != nil {
		return err
	}
	if verrs := compiler.Validate(schemas); compiler.HasErrors(verrs) {
		for _, v := range verrs {
			if !v.Warning {
				return env.out.Fail(ExitCommandError, v.Code, v.Error(), verrs)
			}
		}
	}

	ctx := cmd.Context()
	q, err := env.openStore(ctx)
	if err != nil {
		return err
	}
	defer q.Close()

	result := MigrateResult{Dialect: q.Dialect(), Tables: make([]store.MigrateResult, 0, len(schemas))}
	changed := 0
	for _, s := range schemas {
		r, err := store.Migrate(ctx, q, s)
		if err != nil {
			return env.out.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		if r.Changed && opts.Accept {
			if err := store.Register(ctx, q, s); err != nil {
				return env.out.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
			}
			env.logger.Info("schema change accepted", "entity", r.Entity, "table", r.Table)
			r.Changed = false
		}
		env.logger.Info("table migrated", "entity", r.Entity, "table", r.Table, "created", r.Created, "changed", r.Changed)
		if r.Changed {
			changed++
		}
		result.Tables = append(result.Tables, r)
	}

	if env.out.Format == "json" {
		if err := env.out.Success(result); err != nil {
			return err
		}
	} else {
		w := env.out.Writer
		for _, r := range result.Tables {
			switch {
			case r.Created:
				fmt.Fprintf(w, "+ %s (%s) created\n", r.Table, r.Entity)
			case r.Changed:
				fmt.Fprintf(w, "! %s (%s) schema changed since the table was created; alter it by hand\n", r.Table, r.Entity)
			default:
				fmt.Fprintf(w, "= %s (%s) up to date\n", r.Table, r.Entity)
			}
		}
	}

	if changed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d schema(s) changed", changed))
	}
	return nil
}
