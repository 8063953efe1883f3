package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"

	"github.com/ardnew/weft/lang"
)

// Fmt reparses input and reprints it in canonical syntax.
type Fmt struct {
	Template Template `cmd:"" default:"withargs" help:"Reprint a template in canonical syntax (default)."`
	Group    Group    `cmd:""                    help:"Reprint a template group in canonical syntax."`
	Attrs    Attrs    `cmd:""                    help:"Print the merged attribute bindings as YAML."`
}

// Template reprints template source in canonical syntax.
type Template struct {
	Source string `arg:"" default:"-" help:"Template file or '-' for stdin." name:"source"`
}

// Run executes the fmt template command.
func (f *Template) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	file, err := openInput(fileResolverFrom(ctx)(f.Source))
	if err != nil {
		return err
	}

	defer file.Close()

	t, err := lang.ParseReader(ctx, bufio.NewReader(file))
	if err != nil {
		return ErrReadSource.Wrap(err).
			With(slog.String("source", f.Source))
	}

	err = t.Format(ctx, os.Stdout)
	if err != nil {
		return ErrWriteOutput.Wrap(err)
	}

	_, err = os.Stdout.WriteString("\n")

	return err
}

// Group reprints a template group file in canonical syntax.
type Group struct {
	Source string `arg:"" default:"-" help:"Group file or '-' for stdin." name:"source"`
}

// Run executes the fmt group command.
func (g *Group) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	file, err := openInput(fileResolverFrom(ctx)(g.Source))
	if err != nil {
		return err
	}

	defer file.Close()

	group, err := lang.ParseGroupReader(ctx, bufio.NewReader(file))
	if err != nil {
		return ErrReadSource.Wrap(err).
			With(slog.String("source", g.Source))
	}

	err = group.Format(ctx, os.Stdout)
	if err != nil {
		return ErrWriteOutput.Wrap(err)
	}

	return nil
}

// Attrs prints the merged attribute bindings from every attribute file as
// a YAML or JSON mapping.
type Attrs struct {
	Indent int  `default:"2" help:"Indent width for output"         short:"i"`
	JSON   bool `            help:"Emit JSON instead of YAML" short:"j"`
}

// Run executes the fmt attrs command.
func (a *Attrs) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	scope, err := loadScope(ctx)
	if err != nil {
		return err
	}

	if a.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", strings.Repeat(" ", a.Indent))

		err = enc.Encode(scope)
		if err != nil {
			return ErrWriteOutput.Wrap(err)
		}

		return nil
	}

	err = scope.FormatYAML(ctx, os.Stdout, a.Indent)
	if err != nil {
		return ErrWriteOutput.Wrap(err)
	}

	return nil
}
