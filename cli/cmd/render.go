package cmd

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/ardnew/weft/lang"
	"github.com/ardnew/weft/log"
)

// Render compiles template files and renders them against the attribute
// scope, writing output in order.
type Render struct {
	Templates []string `arg:"" help:"Template file(s) or '-' for stdin" name:"template" optional:""`

	Expr   string `help:"Render template source given inline"          short:"e"`
	Output string `help:"Output file (default stdout)"                 short:"o"`
	Depth  int    `help:"Maximum template nesting depth" default:"100"`
}

// Run executes the render command.
func (r *Render) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	scope, err := loadScope(ctx)
	if err != nil {
		return err
	}

	group, err := loadGroup(ctx)
	if err != nil {
		return err
	}

	opts := []lang.Option{
		lang.WithGroup(group),
		lang.WithMaxDepth(r.Depth),
		lang.WithLogger(log.Default()),
	}

	out, closeOut, err := r.openOutput()
	if err != nil {
		return err
	}

	defer closeOut()

	if r.Expr != "" {
		t, err := lang.ParseString(ctx, r.Expr, opts...)
		if err != nil {
			return ErrRender.Wrap(err)
		}

		return r.write(ctx, t, scope, out, opts)
	}

	sources := r.Templates
	if len(sources) == 0 {
		sources = []string{stdinSource}
	}

	resolve := fileResolverFrom(ctx)

	for _, source := range sources {
		t, err := r.compile(ctx, resolve(source), opts)
		if err != nil {
			return err
		}

		err = r.write(ctx, t, scope, out, opts)
		if err != nil {
			return err
		}
	}

	return nil
}

// compile parses one template source file.
func (r *Render) compile(
	ctx context.Context,
	source string,
	opts []lang.Option,
) (*lang.Template, error) {
	file, err := openInput(source)
	if err != nil {
		return nil, err
	}

	defer file.Close()

	log.TraceContext(ctx, "compile template", slog.String("source", source))

	t, err := lang.ParseReader(ctx, bufio.NewReader(file), opts...)
	if err != nil {
		return nil, ErrRender.Wrap(err).
			With(slog.String("source", source))
	}

	return t, nil
}

// write renders one compiled template to the output.
func (r *Render) write(
	ctx context.Context,
	t *lang.Template,
	scope *lang.Scope,
	out io.Writer,
	opts []lang.Option,
) error {
	err := t.Write(ctx, out, scope, opts...)
	if err != nil {
		return ErrRender.Wrap(err)
	}

	return nil
}

// openOutput opens the destination writer and its cleanup function.
func (r *Render) openOutput() (io.Writer, func(), error) {
	if r.Output == "" || r.Output == stdinSource {
		w := bufio.NewWriter(os.Stdout)

		return w, func() { _ = w.Flush() }, nil
	}

	file, err := os.Create(r.Output)
	if err != nil {
		return nil, nil, ErrWriteOutput.Wrap(err).
			With(slog.String("file", r.Output))
	}

	w := bufio.NewWriter(file)

	return w, func() {
		_ = w.Flush()
		_ = file.Close()
	}, nil
}
