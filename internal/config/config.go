// Package config builds a domain.RuntimeConfig from CLI flags optionally
// overlaid with a TOML file (spec.md §6's CLI surface, SPEC_FULL.md §6's
// config-file schema). A flag the caller actually set always wins over the
// file; the file only fills gaps.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"

	"github.com/rumormesh/rumornode/internal/domain"
)

// fileConfig mirrors the [node]/[pull]/[pow]/[diagnostics] TOML sections.
type fileConfig struct {
	Node struct {
		Port          int     `toml:"port"`
		BootstrapAddr string  `toml:"bootstrap_addr"`
		Fanout        int     `toml:"fanout"`
		TTL           int     `toml:"ttl"`
		PeerLimit     int     `toml:"peer_limit"`
		PingIntervalS float64 `toml:"ping_interval_s"`
		PeerTimeoutS  float64 `toml:"peer_timeout_s"`
		Seed          int64   `toml:"seed"`
	} `toml:"node"`
	Pull struct {
		PullIntervalS float64 `toml:"pull_interval_s"`
		IdsMaxIHave   int     `toml:"ids_max_ihave"`
	} `toml:"pull"`
	Pow struct {
		KPow int `toml:"k_pow"`
	} `toml:"pow"`
	Diagnostics struct {
		LogDir    string `toml:"log_dir"`
		ArchiveDB string `toml:"archive_db"`
		HTTPAddr  string `toml:"http_addr"`
	} `toml:"diagnostics"`
}

// loadFile parses a TOML file at path into a fileConfig.
func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fileConfig{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc, nil
}

// applyFile overlays fc's values onto cfg wherever the corresponding flag
// was left at the flag set's zero/default (i.e. the user never set it).
func applyFile(cfg domain.RuntimeConfig, fc fileConfig, flags *pflag.FlagSet) domain.RuntimeConfig {
	set := func(name string) bool { return flags.Changed(name) }

	if !set("port") && fc.Node.Port != 0 {
		cfg.Port = fc.Node.Port
	}
	if !set("bootstrap") && fc.Node.BootstrapAddr != "" {
		cfg.BootstrapAddr = fc.Node.BootstrapAddr
	}
	if !set("fanout") && fc.Node.Fanout != 0 {
		cfg.Fanout = fc.Node.Fanout
	}
	if !set("ttl") && fc.Node.TTL != 0 {
		cfg.TTL = fc.Node.TTL
	}
	if !set("peer-limit") && fc.Node.PeerLimit != 0 {
		cfg.PeerLimit = fc.Node.PeerLimit
	}
	if !set("ping-interval") && fc.Node.PingIntervalS != 0 {
		cfg.PingIntervalS = fc.Node.PingIntervalS
	}
	if !set("peer-timeout") && fc.Node.PeerTimeoutS != 0 {
		cfg.PeerTimeoutS = fc.Node.PeerTimeoutS
	}
	if !set("seed") && fc.Node.Seed != 0 {
		cfg.Seed = fc.Node.Seed
	}
	if !set("pull-interval") && fc.Pull.PullIntervalS != 0 {
		cfg.PullIntervalS = fc.Pull.PullIntervalS
	}
	if !set("ids-max-ihave") && fc.Pull.IdsMaxIHave != 0 {
		cfg.IdsMaxIHave = fc.Pull.IdsMaxIHave
	}
	if !set("k-pow") && fc.Pow.KPow != 0 {
		cfg.KPow = fc.Pow.KPow
	}
	if !set("log-dir") && fc.Diagnostics.LogDir != "" {
		cfg.LogDir = fc.Diagnostics.LogDir
	}
	if !set("archive-db") && fc.Diagnostics.ArchiveDB != "" {
		cfg.ArchiveDB = fc.Diagnostics.ArchiveDB
	}
	if !set("http-addr") && fc.Diagnostics.HTTPAddr != "" {
		cfg.HTTPAddr = fc.Diagnostics.HTTPAddr
	}
	return cfg
}

// Flags binds every recognized flag (spec.md §6) onto fs, pre-populated
// with domain.DefaultRuntimeConfig's values, and returns a pointer each
// flag writes into.
type Flags struct {
	Port          *int
	Bootstrap     *string
	Fanout        *int
	TTL           *int
	PeerLimit     *int
	PingInterval  *float64
	PeerTimeout   *float64
	PullInterval  *float64
	IdsMaxIHave   *int
	KPow          *int
	Seed          *int64
	LogDir        *string
	ArchiveDB     *string
	HTTPAddr      *string
	ConfigFile    *string
}

// Bind registers every flag onto fs and returns their destinations.
func Bind(fs *pflag.FlagSet) *Flags {
	d := domain.DefaultRuntimeConfig()
	return &Flags{
		Port:         fs.Int("port", d.Port, "UDP port to bind (required)"),
		Bootstrap:    fs.String("bootstrap", "", "bootstrap peer address, ip:port"),
		Fanout:       fs.Int("fanout", d.Fanout, "number of peers to gossip to per push"),
		TTL:          fs.Int("ttl", d.TTL, "initial gossip time-to-live"),
		PeerLimit:    fs.Int("peer-limit", d.PeerLimit, "maximum peer table size"),
		PingInterval: fs.Float64("ping-interval", d.PingIntervalS, "seconds between liveness probes"),
		PeerTimeout:  fs.Float64("peer-timeout", d.PeerTimeoutS, "seconds of silence before a peer is stale"),
		PullInterval: fs.Float64("pull-interval", d.PullIntervalS, "seconds between IHAVE advertisements"),
		IdsMaxIHave:  fs.Int("ids-max-ihave", d.IdsMaxIHave, "max ids advertised per IHAVE"),
		KPow:         fs.Int("k-pow", d.KPow, "required leading hex zeros on HELLO proof-of-work, 0 disables"),
		Seed:         fs.Int64("seed", d.Seed, "seed for the peer-sampling RNG"),
		LogDir:       fs.String("log-dir", d.LogDir, "directory for the JSONL event log"),
		ArchiveDB:    fs.String("archive-db", "", "optional SQLite path for the gossip archive mirror"),
		HTTPAddr:     fs.String("http-addr", "", "optional loopback address for the diagnostics HTTP server"),
		ConfigFile:   fs.String("config", "", "optional TOML config file"),
	}
}

// Resolve builds the final RuntimeConfig from bound flags, overlaying an
// optional config file, and validates the result.
func Resolve(flags *Flags, fs *pflag.FlagSet) (domain.RuntimeConfig, error) {
	cfg := domain.DefaultRuntimeConfig()
	cfg.Port = *flags.Port
	cfg.BootstrapAddr = *flags.Bootstrap
	cfg.Fanout = *flags.Fanout
	cfg.TTL = *flags.TTL
	cfg.PeerLimit = *flags.PeerLimit
	cfg.PingIntervalS = *flags.PingInterval
	cfg.PeerTimeoutS = *flags.PeerTimeout
	cfg.PullIntervalS = *flags.PullInterval
	cfg.IdsMaxIHave = *flags.IdsMaxIHave
	cfg.KPow = *flags.KPow
	cfg.Seed = *flags.Seed
	cfg.LogDir = *flags.LogDir
	cfg.ArchiveDB = *flags.ArchiveDB
	cfg.HTTPAddr = *flags.HTTPAddr

	if *flags.ConfigFile != "" {
		fc, err := loadFile(*flags.ConfigFile)
		if err != nil {
			return domain.RuntimeConfig{}, err
		}
		cfg = applyFile(cfg, fc, fs)
	}

	if err := cfg.Validate(); err != nil {
		return domain.RuntimeConfig{}, err
	}
	return cfg, nil
}
