package cmd

import (
	"context"
	"os"

	"github.com/ardnew/weft/cli/cmd/repl"
	"github.com/ardnew/weft/log"
)

// Repl starts the interactive rendering shell over the attributes and
// template groups given on the command line.
type Repl struct{}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) {
		cancel(*err)
	}(&err)

	scope, err := loadScope(ctx)
	if err != nil {
		return err
	}

	group, err := loadGroup(ctx)
	if err != nil {
		return err
	}

	cacheDir := os.TempDir()

	if ktx := kongContextFrom(ctx); ktx != nil {
		if dir, ok := ktx.Model.Vars()[CacheIdentifier]; ok && dir != "" {
			cacheDir = dir
		}
	}

	return repl.Run(
		ctx, scope, group, fileResolverFrom(ctx), cacheDir, log.Default(),
	)
}
