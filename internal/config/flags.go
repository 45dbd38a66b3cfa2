package config

import "flag"

// Flags holds the command-line overrides registered on a flag set.
type Flags struct {
	config    *string
	debug     *bool
	workers   *int
	adjacency *string
}

// RegisterFlags registers the config flags on fs. Each subcommand owns its
// flag set.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		config:    fs.String("config", "", "Path to config file"),
		debug:     fs.Bool("debug", false, "Enable debug logging"),
		workers:   fs.Int("workers", -1, "Hull workers (0 = one per CPU)"),
		adjacency: fs.String("adjacency", "", "Bond adjacency source: tags or geometry"),
	}
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return *f.config
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if *f.debug {
		cfg.Logging.Level = "debug"
	}
	if *f.workers >= 0 {
		cfg.Authoring.Workers = *f.workers
	}
	if *f.adjacency != "" {
		cfg.Authoring.Adjacency = *f.adjacency
	}
}
