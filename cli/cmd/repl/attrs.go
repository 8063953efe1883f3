package repl

import (
	"context"
	"errors"
	"os"

	"github.com/ardnew/weft/lang"
)

// ErrReadAttrs indicates an attribute file could not be read.
var ErrReadAttrs = errors.New("read attribute file")

// loadAttrFile merges attribute bindings from a YAML file into scope.
func loadAttrFile(ctx context.Context, scope *lang.Scope, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Join(ErrReadAttrs, err)
	}

	return scope.LoadYAML(ctx, data)
}
