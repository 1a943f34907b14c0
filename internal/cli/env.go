package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/rowkit/internal/config"
	"github.com/roach88/rowkit/internal/crypt"
	"github.com/roach88/rowkit/internal/logging"
	"github.com/roach88/rowkit/internal/repo"
	"github.com/roach88/rowkit/internal/schema"
	"github.com/roach88/rowkit/internal/store"
)

// env is what a command needs beyond its flags: configuration, a logger
// on stderr, and an output formatter.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	out    *OutputFormatter
}

// loadEnv reads configuration and builds the logger. --verbose forces the
// debug level.
func loadEnv(opts *RootOptions, cmd *cobra.Command) (*env, error) {
	out := newFormatter(opts, cmd)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, out.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, out.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}

	return &env{
		cfg:    cfg,
		logger: logging.New(level, cfg.Log.Format, cmd.ErrOrStderr()),
		out:    out,
	}, nil
}

// codec builds the field codec from the configured keys. Without keys it
// returns nil, which is only an error when a schema has ciphered fields.
func (e *env) codec(schemas ...*schema.Schema) (*crypt.Codec, error) {
	ring, err := e.cfg.Crypto.Keyring()
	if errors.Is(err, config.ErrNoKeys) {
		for _, s := range schemas {
			if s.HasEncrypted() {
				return nil, e.out.Fail(ExitCommandError, ErrCodeCrypto, s.Name+" has encrypted fields but no keys are configured", nil)
			}
		}
		return nil, nil
	}
	if err != nil {
		return nil, e.out.Fail(ExitCommandError, ErrCodeCrypto, err.Error(), nil)
	}
	return crypt.NewCodec(ring), nil
}

// openStore opens the configured database.
func (e *env) openStore(ctx context.Context) (store.Querier, error) {
	q, err := store.Open(ctx, e.cfg.Database.Driver, e.cfg.Database.DSN)
	if err != nil {
		return nil, e.out.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	e.logger.Debug("store opened", "driver", e.cfg.Database.Driver, "dialect", q.Dialect())
	return q, nil
}

// repoOptions carries the configured paging defaults, with defaultOrder
// overriding the configured default order when set.
func (e *env) repoOptions(defaultOrder string) []repo.Option {
	if defaultOrder == "" {
		defaultOrder = e.cfg.Paging.DefaultOrder
	}
	return []repo.Option{
		repo.WithLogger(e.logger),
		repo.WithMinPerPage(e.cfg.Paging.MinPerPage),
		repo.WithDefaultOrder(defaultOrder),
	}
}

// loadSchemas loads a schemas directory and reports the first load error.
func (e *env) loadSchemas(dir string) ([]*schema.Schema, error) {
	return loadSchemasOrFail(e.out, dir)
}

func loadSchemasOrFail(out *OutputFormatter, dir string) ([]*schema.Schema, error) {
	result, errs := LoadSchemas(dir, LoadModeFailFast)
	if len(errs) > 0 {
		var loadErr *LoadError
		if errors.As(errs[0], &loadErr) {
			return nil, out.Fail(ExitCommandError, loadErr.Code, loadErr.Message, nil)
		}
		return nil, out.Fail(ExitCommandError, ErrCodeGeneric, errs[0].Error(), nil)
	}
	out.VerboseLog("Loaded %d schema(s) from %d file(s) in %s", len(result.Schemas), result.FileCount, dir)
	return result.Schemas, nil
}
