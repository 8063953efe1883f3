package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/weft/log"
	"github.com/ardnew/weft/profile"
)

// defaultConfigIndent is the number of spaces to use for indentation
// when generating the default configuration file.
const defaultConfigIndent = 2

// Init generates a default configuration file with current flag values.
type Init struct {
	Force bool `help:"Overwrite existing configuration file" short:"f"`
}

// Run executes the init command.
func (i *Init) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	ktx := kongContextFrom(ctx)

	confBase, ok := ktx.Model.Vars()[ConfigIdentifier]
	if !ok {
		panic("internal error: config path undefined")
	}

	confPath := confBase + ".yaml"

	_, err = os.Stat(confPath)
	if err == nil && !i.Force {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			With(slog.Bool("exists", true)).
			Wrap(ErrFileExists)
	}

	file, err := os.Create(confPath)
	if err != nil {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			Wrap(err)
	}
	defer file.Close()

	data, err := yaml.MarshalContext(
		ctx, i.flagSettings(ctx), yaml.Indent(defaultConfigIndent),
	)
	if err != nil {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			Wrap(err)
	}

	_, err = file.Write(data)
	if err != nil {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			Wrap(err)
	}

	log.DebugContext(
		ctx,
		"initialized configuration file",
		slog.String("path", confPath),
	)

	return nil
}

// flagSettings collects the current flag values as an ordered YAML mapping,
// skipping hidden flags and flags that are unset or have no sensible
// persisted form.
func (i *Init) flagSettings(ctx context.Context) yaml.MapSlice {
	ktx := kongContextFrom(ctx)

	ignore := []string{"help", "force", profile.Tag}

	var settings yaml.MapSlice

	for _, flag := range ktx.Model.Flags {
		skip := flag.Hidden ||
			slices.ContainsFunc(ignore, func(s string) bool {
				return strings.HasPrefix(flag.Name, s)
			})
		if skip {
			continue
		}

		val := flagSetting(ktx.FlagValue(flag))
		if val == nil {
			continue
		}

		settings = append(settings, yaml.MapItem{
			Key:   flag.Name,
			Value: val,
		})
	}

	return settings
}

// flagSetting normalizes a flag value for the configuration file.
// Empty strings and empty slices return nil so they are omitted.
func flagSetting(val any) any {
	switch v := val.(type) {
	case nil:
		return nil

	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v

	case string:
		if v == "" {
			return nil
		}

		return v

	case []string:
		if len(v) == 0 {
			return nil
		}

		return v

	case fmt.Stringer:
		return flagSetting(v.String())

	default:
		return fmt.Sprint(v)
	}
}
