package config

import (
	"github.com/OniNezuko/osufeed"
)

// Options converts a parsed configuration into SDK options.
//
// Only fields actually present in the file produce options, so the
// Manager's defaults apply to everything left unset. The returned slice
// is meant to be extended with runtime-only options before handing it
// to [osufeed.New]:
//
//	cfg, err := config.Load("osufeed.yaml")
//	if err != nil {
//	    return err
//	}
//	opts := append(config.Options(cfg), osufeed.WithLogger(logger))
//	m, err := osufeed.New(opts...)
func Options(cfg *Config) []osufeed.Option {
	var opts []osufeed.Option

	if cfg.Executable != "" {
		opts = append(opts, osufeed.WithExecutable(cfg.Executable, cfg.Args...))
	}
	if cfg.AutoStart {
		opts = append(opts, osufeed.WithAutoStart(true))
	}
	if cfg.AutoRestart {
		opts = append(opts, osufeed.WithAutoRestart(true))
	}
	if cfg.Host != "" {
		opts = append(opts, osufeed.WithHost(cfg.Host))
	}
	if cfg.Port != 0 {
		opts = append(opts, osufeed.WithPort(cfg.Port))
	}
	if cfg.FeedPath != "" {
		opts = append(opts, osufeed.WithFeedPath(cfg.FeedPath))
	}
	if cfg.UpdateInterval != 0 {
		opts = append(opts, osufeed.WithUpdateInterval(cfg.UpdateInterval.Duration()))
	}
	if cfg.ReconnectInterval != 0 {
		opts = append(opts, osufeed.WithReconnectInterval(cfg.ReconnectInterval.Duration()))
	}
	if cfg.MaxReconnects != nil {
		opts = append(opts, osufeed.WithMaxReconnects(*cfg.MaxReconnects))
	}

	return opts
}
