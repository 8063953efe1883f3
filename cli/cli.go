package cli

import (
	"context"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/weft/cli/cmd"
	"github.com/ardnew/weft/pkg"
)

// CLI is the top-level command-line interface for weft.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	Attrs   []string         `help:"Attribute file(s) in YAML, or '-' for stdin" name:"attrs"  short:"a"`
	Groups  []string         `help:"Template group file(s) to load"              name:"groups" short:"g"`
	Version kong.VersionFlag `help:"Print version and exit"                                    short:"V"`

	Fmt  cmd.Fmt  `cmd:"" help:"Rewrite templates or groups in canonical syntax"`
	Init cmd.Init `cmd:"" help:"Generate a default configuration file"`
	Repl cmd.Repl `cmd:"" help:"Interactive rendering shell"`

	Render cmd.Render `cmd:"" default:"withargs" help:"Render templates against attributes"`
}

// Run executes the weft CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon
// completion.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	var cli CLI

	err := mkdirAllRequired()
	if err != nil {
		return err
	}

	configFilePath := configPath(baseConfig)

	vars := kong.Vars{
		cmd.ConfigIdentifier: configFilePath,
		cmd.CacheIdentifier:  cacheDir(),
		"version":            pkg.Name + " " + strings.TrimSpace(pkg.Version),
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Pre-scan for logger flags to ensure early configuration regardless
	// of flag position. TextUnmarshaler on logFormat/logLevel handles
	// those flags during normal parsing, but this early scan also catches
	// boolean flags like --log-pretty.
	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group()},
		),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				NoExpandSubcommands: true,
			}),
		kong.Configuration(kong.JSON, configFilePath+".json"),
		kong.Configuration(resolveYAML(ctx), configFilePath+".yaml"),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	// Stuff additional context values for use by commands
	ctx = cmd.WithContext(ctx, ktx)
	ctx = cmd.WithAttrFiles(ctx, cli.Attrs)
	ctx = cmd.WithGroupFiles(ctx, cli.Groups)
	ctx = cmd.WithFileResolver(ctx, resolveTemplateFile)

	// Finalize logger configuration with all parsed values including
	// TimeLayout and Caller which don't use TextUnmarshaler.
	defer cli.Log.start(ctx)()

	// [pprofConfig.start] is no-op unless built with tag pprof and enabled.
	defer cli.Pprof.start(ctx)()

	return ktx.Run(ctx, &cli)
}
