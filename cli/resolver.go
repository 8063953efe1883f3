package cli

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"
)

// resolveYAML is a [kong.ConfigurationLoader] that reads flag defaults from
// a YAML mapping.
//
// It can be used with [kong.Configuration] like this:
//
//	kong.Configuration(resolveYAML(ctx), "/path/to/config.yaml")
//
// Flag names with hyphens (e.g., "log-level") may use either hyphens or
// underscores in the config file. Values follow ordinary YAML typing;
// numbers are converted to strings for Kong's flag parser.
//
// Example config file:
//
//	log-level: debug
//	log-format: json
//	log-pretty: true
//
// Command-line flags override config file values.
func resolveYAML(ctx context.Context) kong.ConfigurationLoader {
	return func(r io.Reader) (kong.Resolver, error) {
		data, err := io.ReadAll(r)
		if err != nil {
			return config{}, nil
		}

		var doc map[string]any

		err = yaml.UnmarshalContext(ctx, data, &doc)
		if err != nil {
			// Unreadable config is ignored; flags fall back to defaults.
			return config{}, nil
		}

		resolved := make(config, len(doc))

		for key, value := range doc {
			switch num := value.(type) {
			case int64:
				resolved[key] = strconv.FormatInt(num, 10)
			case uint64:
				resolved[key] = strconv.FormatUint(num, 10)
			case float64:
				resolved[key] = strconv.FormatFloat(num, 'f', -1, 64)
			default:
				resolved[key] = value
			}
		}

		return resolved, nil
	}
}

// config implements [kong.Resolver] for YAML configs.
type config map[string]any

// Validate implements [kong.Resolver].
func (r config) Validate(*kong.Application) error {
	return nil
}

// Resolve implements [kong.Resolver].
func (r config) Resolve(
	_ *kong.Context,
	_ *kong.Path,
	flag *kong.Flag,
) (any, error) {
	if value, ok := r[flag.Name]; ok {
		return value, nil
	}

	// Accept underscore spellings of hyphenated flag names.
	if value, ok := r[strings.ReplaceAll(flag.Name, "-", "_")]; ok {
		return value, nil
	}

	return nil, nil
}
