package cmd

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/compcache/mem/cache"
	"github.com/sarchlab/compcache/mem/mem"
)

// Preload modes.
const (
	PreloadRandom   = "random"
	PreloadConstant = "constant"
	PreloadSequence = "sequence"
	PreloadZero     = "zero"
)

// EnvPrefix prefixes the environment variables that override configuration
// defaults.
const EnvPrefix = "COMPCACHE_"

// PreloadConfig decides the initial content of the memory.
type PreloadConfig struct {
	Mode   string     `yaml:"mode"`
	Seed   int64      `yaml:"seed"`
	Min    mem.Word   `yaml:"min"`
	Max    mem.Word   `yaml:"max"`
	Value  mem.Word   `yaml:"value"`
	Values []mem.Word `yaml:"values"`
}

// Config describes the simulated system.
type Config struct {
	NumSets      int           `yaml:"num_sets"`
	NumWays      int           `yaml:"num_ways"`
	WordsPerLine int           `yaml:"words_per_line"`
	NarrowBits   uint          `yaml:"narrow_bits"`
	MemoryWords  uint64        `yaml:"memory_words"`
	Preload      PreloadConfig `yaml:"preload"`
}

// DefaultConfig returns the reference system: a 1024-line cache in front of
// 2^15 words of memory preloaded with values in [-10000, 10000].
func DefaultConfig() Config {
	return Config{
		NumSets:      256,
		NumWays:      4,
		WordsPerLine: 2,
		NarrowBits:   8,
		MemoryWords:  mem.DefaultCapacity,
		Preload: PreloadConfig{
			Mode: PreloadRandom,
			Seed: 1,
			Min:  -10000,
			Max:  10000,
		},
	}
}

// LoadConfig overlays the YAML document read from r on cfg.
func LoadConfig(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	err := dec.Decode(cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing config: %w", err)
	}

	return nil
}

// LoadConfigFile overlays a YAML config file on cfg.
func LoadConfigFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return LoadConfig(f, cfg)
}

// ApplyEnv overrides cfg with COMPCACHE_* variables found by lookup.
func ApplyEnv(lookup func(string) (string, bool), cfg *Config) error {
	ints := map[string]*int{
		"NUM_SETS":       &cfg.NumSets,
		"NUM_WAYS":       &cfg.NumWays,
		"WORDS_PER_LINE": &cfg.WordsPerLine,
	}

	for name, field := range ints {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}

		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}

		*field = n
	}

	if v, ok := lookup(EnvPrefix + "NARROW_BITS"); ok {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return fmt.Errorf("%sNARROW_BITS: %w", EnvPrefix, err)
		}

		cfg.NarrowBits = uint(n)
	}

	if v, ok := lookup(EnvPrefix + "MEMORY_WORDS"); ok {
		n, err := strconv.ParseUint(v, 0, 64)
		if err != nil {
			return fmt.Errorf("%sMEMORY_WORDS: %w", EnvPrefix, err)
		}

		cfg.MemoryWords = n
	}

	if v, ok := lookup(EnvPrefix + "PRELOAD"); ok {
		cfg.Preload.Mode = strings.ToLower(v)
	}

	if v, ok := lookup(EnvPrefix + "SEED"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sSEED: %w", EnvPrefix, err)
		}

		cfg.Preload.Seed = n
	}

	return nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Validate reports the first problem that would prevent building the system.
func (c Config) Validate() error {
	switch {
	case c.NumSets <= 0:
		return fmt.Errorf("num_sets must be positive, got %d", c.NumSets)
	case c.NumWays <= 0:
		return fmt.Errorf("num_ways must be positive, got %d", c.NumWays)
	case c.WordsPerLine < 2 || !isPowerOfTwo(c.WordsPerLine):
		return fmt.Errorf(
			"words_per_line must be a power of two of at least 2, got %d",
			c.WordsPerLine)
	case c.NarrowBits == 0 || c.NarrowBits > 16:
		return fmt.Errorf("narrow_bits must be in [1, 16], got %d",
			c.NarrowBits)
	case c.MemoryWords == 0 || c.MemoryWords%uint64(c.WordsPerLine) != 0:
		return fmt.Errorf(
			"memory_words must be a positive multiple of %d, got %d",
			c.WordsPerLine, c.MemoryWords)
	}

	return c.Preload.validate()
}

func (p PreloadConfig) validate() error {
	switch p.Mode {
	case PreloadRandom:
		if p.Max < p.Min {
			return fmt.Errorf("preload range [%d, %d] is empty", p.Min, p.Max)
		}
	case PreloadSequence:
		if len(p.Values) == 0 {
			return errors.New("sequence preload needs values")
		}
	case PreloadConstant, PreloadZero:
	default:
		return fmt.Errorf("unknown preload mode %q", p.Mode)
	}

	return nil
}

func (p PreloadConfig) filler() mem.Filler {
	switch p.Mode {
	case PreloadRandom:
		return mem.RandomFiller(rand.New(rand.NewSource(p.Seed)), p.Min, p.Max)
	case PreloadConstant:
		return mem.ConstantFiller(p.Value)
	case PreloadSequence:
		return mem.SequenceFiller(p.Values...)
	default:
		return nil
	}
}

// BuildSystem creates the preloaded memory and the cache in front of it.
func (c Config) BuildSystem(name string) (*mem.Storage, *cache.Comp, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	storage := mem.NewStorage(c.MemoryWords)
	if filler := c.Preload.filler(); filler != nil {
		mem.Fill(storage, filler)
	}

	comp := cache.MakeBuilder().
		WithNumSets(c.NumSets).
		WithNumWays(c.NumWays).
		WithWordsPerLine(c.WordsPerLine).
		WithNarrowBits(c.NarrowBits).
		WithBackend(storage).
		Build(name)

	return storage, comp, nil
}
