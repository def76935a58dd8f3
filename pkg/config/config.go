// Package config loads and validates the knobs this core exposes: arena
// block sizing, the skiplist's probabilistic shape, the memtable's soft
// size bound, and the sharded cache's capacity, plus the
// ambient logger and introspection-server settings.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration structure, decoded from YAML.
type Config struct {
	Logger  LoggerConfig  `yaml:"logger" validate:"required"`
	Server  ServerConfig  `yaml:"http-server" validate:"required"`
	Arena   ArenaConfig   `yaml:"arena" validate:"required"`
	Index   IndexConfig   `yaml:"index" validate:"required"`
	Memtable MemtableConfig `yaml:"memtable" validate:"required"`
	Cache   CacheConfig   `yaml:"cache" validate:"required"`
}

type ServerConfig struct {
	Port int `yaml:"port" validate:"required,min=1,max=65535"`
}

// ArenaConfig describes the bump-pointer allocator backing every memtable.
// pkg/arena does not read it: its block size is the fixed constant 4096.
type ArenaConfig struct {
	BlockSizeBytes int `yaml:"block_size_bytes" validate:"required,min=256"`
}

// IndexConfig describes the skiplist's level geometry. pkg/skiplist does
// not read it: its max height (12) and branching factor (4) are constants.
type IndexConfig struct {
	MaxHeight int `yaml:"max_height" validate:"required,min=2,max=32"`
	Branching int `yaml:"branching" validate:"required,min=2"`
}

// MemtableConfig bounds how large a single memtable is allowed to grow
// before a caller should consider it full and start a fresh one. This
// core does not itself rotate or flush memtables; the bound exists so a
// caller's write path has something principled to compare
// ApproximateMemoryUsage against.
type MemtableConfig struct {
	SoftMaxBytes int `yaml:"soft_max_bytes" validate:"required,min=1"`
}

// CacheConfig sizes the sharded LRU cache.
type CacheConfig struct {
	CapacityBytes int `yaml:"capacity_bytes" validate:"required,min=1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	JSON  bool   `yaml:"json"`
}

// Default returns a baseline development config.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level: "INFO",
			JSON:  false,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Arena: ArenaConfig{
			BlockSizeBytes: 4096,
		},
		Index: IndexConfig{
			MaxHeight: 12,
			Branching: 4,
		},
		Memtable: MemtableConfig{
			SoftMaxBytes: 4 << 20,
		},
		Cache: CacheConfig{
			CapacityBytes: 8 << 20,
		},
	}
}

var validate = validator.New()

// Validate checks c against its struct tags, returning the first
// violation in a readable form.
func Validate(c *Config) error {
	if err := validate.Struct(c); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		e := verrs[0]
		return fmt.Errorf("config: %s: failed %q (got %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return nil
}
