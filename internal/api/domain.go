package api

import (
	"fmt"

	"github.com/JaimeStill/labrecon/internal/aliases"
	"github.com/JaimeStill/labrecon/internal/config"
	"github.com/JaimeStill/labrecon/internal/engine"
	"github.com/JaimeStill/labrecon/internal/reconciliations"
)

// Domain holds all domain systems that comprise the API. Exactly one of
// Aliases and AliasFile is set unless aliases are disabled.
type Domain struct {
	Aliases         aliases.System
	AliasFile       *aliases.FileSource
	Reconciliations reconciliations.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) (*Domain, error) {
	conn := runtime.Database.Connection()
	dialect := runtime.Dialect()
	domain := &Domain{}

	var source engine.AliasSource
	switch runtime.Aliases.Source {
	case config.AliasSourceDatabase:
		domain.Aliases = aliases.New(conn, dialect, runtime.Logger, runtime.Pagination)
		source = domain.Aliases
	case config.AliasSourceFile:
		fs, err := aliases.NewFileSource(runtime.Aliases.File, runtime.Logger)
		if err != nil {
			return nil, fmt.Errorf("alias file: %w", err)
		}
		if runtime.Aliases.WatchEnabled() {
			fs.Start(runtime.Lifecycle)
		}
		domain.AliasFile = fs
		source = fs
	}

	domain.Reconciliations = reconciliations.New(
		reconciliations.NewStore(conn, dialect),
		source,
		runtime.Thresholds,
		runtime.Logger,
		runtime.Pagination,
	)

	return domain, nil
}
