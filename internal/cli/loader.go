package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/spanrule/internal/compiler"
	"github.com/roach88/spanrule/internal/config"
	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/rule"
	"github.com/roach88/spanrule/internal/script"
	"github.com/roach88/spanrule/internal/store"
	"github.com/roach88/spanrule/internal/stream"
)

// inputs is a compiled script and the document it applies to. Both share
// one type system.
type inputs struct {
	Script   *rule.Script
	Document *stream.Document
	Types    *ir.TypeSystem
}

// loadConfig reads the configuration named by --config. --verbose lowers
// the log level to debug.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	if opts.Config != "" {
		if _, err := os.Stat(opts.Config); err != nil {
			return nil, WrapExitError(ExitCommandError, ErrCodeNotFound, "config file not found", err)
		}
	}
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	if opts.Verbose {
		cfg.Log.Level = slog.LevelDebug
	}
	return cfg, nil
}

// newLogger builds the command logger on w and installs it as the slog
// default.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	logger := cfg.Logger(w)
	slog.SetDefault(logger)
	return logger
}

// loadScript compiles the script at path into ts, after the descriptor at
// typesPath when given.
func loadScript(path, typesPath string, ts *ir.TypeSystem, logger *slog.Logger) (*rule.Script, error) {
	if err := requireFile(path, "script"); err != nil {
		return nil, err
	}
	opts := []script.Option{script.WithLogger(logger)}
	if typesPath != "" {
		if err := requireFile(typesPath, "types"); err != nil {
			return nil, err
		}
		d, err := compiler.Load(typesPath)
		if err != nil {
			return nil, WrapExitError(ExitFailure, ErrCodeDescriptor, "failed to load types", err)
		}
		opts = append(opts, script.WithDescriptor(d))
	}
	sc, err := script.Load(path, ts, opts...)
	if err != nil {
		return nil, WrapExitError(ExitFailure, ErrCodeScript, "failed to compile script", err)
	}
	return sc, nil
}

// loadInputs compiles the script, then loads the document over the same
// type system.
func loadInputs(scriptPath, docPath, typesPath string, logger *slog.Logger) (*inputs, error) {
	ts := ir.NewTypeSystem()
	sc, err := loadScript(scriptPath, typesPath, ts, logger)
	if err != nil {
		return nil, err
	}
	if err := requireFile(docPath, "document"); err != nil {
		return nil, err
	}
	doc, err := stream.LoadDocument(docPath, ts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeDocument, "failed to load document", err)
	}
	return &inputs{Script: sc, Document: doc, Types: ts}, nil
}

// openStore opens the database at path. An empty path means no store.
func openStore(path string) (*store.Store, error) {
	if path == "" {
		return nil, nil
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	return st, nil
}

// openExistingStore opens a database that must already exist.
func openExistingStore(path string) (*store.Store, error) {
	if err := requireFile(path, "database"); err != nil {
		return nil, err
	}
	return openStore(path)
}

func requireFile(path, what string) error {
	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewExitError(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("%s not found: %s", what, path))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("cannot access %s", what), err)
	}
	return nil
}

func closeStore(st *store.Store, logger *slog.Logger) {
	if st == nil {
		return
	}
	if err := st.Close(); err != nil {
		logger.Error("error closing database", "error", err)
	}
}
