// Package config defines the typed configuration surface for a mempulse
// deployment, layered over github.com/spf13/viper and github.com/spf13/
// pflag the way go-ethereum-family nodes layer command flags over a config
// file. Actually loading configuration (reading flags, parsing a file from
// disk, environment binding) is out of scope for this module's testable
// behavior — spec.md treats CLI/config loading as a non-goal — but the
// struct shape is defined here so every other component takes a typed input
// instead of loose parameters threaded through constructors by hand.
package config

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Ingest holds the bounded-queue and dedup-cache sizing for one ingest lane.
type Ingest struct {
	FetchQueueCapacity int           `mapstructure:"fetch_queue_capacity"`
	DedupCacheCapacity int           `mapstructure:"dedup_cache_capacity"`
	BackoffBaseDelay   time.Duration `mapstructure:"backoff_base_delay"`
	BackoffMaxShifts   int           `mapstructure:"backoff_max_shifts"`
}

// Storage holds the single-writer queue and WAL segment sizing.
type Storage struct {
	WriterQueueCapacity int    `mapstructure:"writer_queue_capacity"`
	WALBasePath         string `mapstructure:"wal_base_path"`
	WALSegmentMaxBytes  int64  `mapstructure:"wal_segment_max_bytes"`
}

// Broadcast holds the dashboard broadcaster's replay buffer and fan-out
// sizing — left as explicit operator-set values per spec.md's Open
// Question (c), never auto-calibrated.
type Broadcast struct {
	ReplayCapacity  int `mapstructure:"replay_capacity"`
	ChannelCapacity int `mapstructure:"channel_capacity"`
}

// Config is the root configuration object for a mempulse process.
type Config struct {
	RPC       Ingest    `mapstructure:"rpc"`
	P2P       Ingest    `mapstructure:"p2p"`
	Storage   Storage   `mapstructure:"storage"`
	Broadcast Broadcast `mapstructure:"broadcast"`
}

// Default returns the built-in configuration used when no file or flags are
// supplied.
func Default() Config {
	return Config{
		RPC: Ingest{
			FetchQueueCapacity: 4096,
			DedupCacheCapacity: 65536,
			BackoffBaseDelay:   50 * time.Millisecond,
			BackoffMaxShifts:   16,
		},
		P2P: Ingest{
			FetchQueueCapacity: 4096,
			DedupCacheCapacity: 65536,
			BackoffBaseDelay:   50 * time.Millisecond,
			BackoffMaxShifts:   16,
		},
		Storage: Storage{
			WriterQueueCapacity: 8192,
			WALBasePath:         "mempulse.wal",
			WALSegmentMaxBytes:  64 << 20,
		},
		Broadcast: Broadcast{
			ReplayCapacity:  4096,
			ChannelCapacity: 256,
		},
	}
}

// BindFlags registers the flag set used to override Default at process
// startup. Parsing argv and reading the bound file are left to the caller —
// this module never calls pflag.Parse or os.Args.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) {
	fs.Int("rpc.fetch_queue_capacity", 4096, "RPC ingest lane bounded fetch queue capacity")
	fs.Int("p2p.fetch_queue_capacity", 4096, "P2P ingest lane bounded fetch queue capacity")
	fs.Int("storage.writer_queue_capacity", 8192, "single-writer append queue capacity")
	fs.String("storage.wal_base_path", "mempulse.wal", "base path for WAL segment files")
	fs.Int("broadcast.replay_capacity", 4096, "dashboard broadcaster replay ring buffer capacity")
	fs.Int("broadcast.channel_capacity", 256, "per-subscriber broadcast channel capacity")

	_ = v.BindPFlags(fs)
}

// Load decodes a viper instance (already populated from flags/file/env by
// the caller) into a Config, falling back to Default for anything unset.
func Load(v *viper.Viper) (Config, error) {
	cfg := Default()
	if v == nil {
		return cfg, nil
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
