package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/compcache/datarecording"
	"github.com/sarchlab/compcache/mem/acceptancetests/refcheck"
	"github.com/sarchlab/compcache/mem/cache"
	"github.com/sarchlab/compcache/mem/cache/trace"
)

// RunOptions control a replay.
type RunOptions struct {
	ScriptPath string
	RecordPath string
	DumpPath   string
	DumpFormat string
	Flush      bool
	Check      bool
}

// Summary is the outcome of a replay.
type Summary struct {
	Requests         int
	Stats            cache.Stats
	CompressionRatio float64
	UsedSlots        int
	TotalSlots       int
	LinesFlushed     int
	Verified         bool
}

var (
	configPath string
	runOpts    RunOptions
	flagCfg    = DefaultConfig()
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay a request script against the cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}

		logrus.WithFields(logrus.Fields{
			"sets":        cfg.NumSets,
			"ways":        cfg.NumWays,
			"line_words":  cfg.WordsPerLine,
			"narrow_bits": cfg.NarrowBits,
			"memory":      cfg.MemoryWords,
			"preload":     cfg.Preload.Mode,
		}).Info("starting replay")

		summary, err := Run(cfg, runOpts, logrus.StandardLogger())
		if err != nil {
			return err
		}

		PrintSummary(cmd.OutOrStdout(), summary)

		return nil
	},
}

// resolveConfig layers defaults, the config file, the environment and the
// flags that were set explicitly.
func resolveConfig(cmd *cobra.Command) (Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if err := LoadConfigFile(configPath, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := ApplyEnv(os.LookupEnv, &cfg); err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("sets") {
		cfg.NumSets = flagCfg.NumSets
	}
	if flags.Changed("ways") {
		cfg.NumWays = flagCfg.NumWays
	}
	if flags.Changed("line-words") {
		cfg.WordsPerLine = flagCfg.WordsPerLine
	}
	if flags.Changed("narrow-bits") {
		cfg.NarrowBits = flagCfg.NarrowBits
	}
	if flags.Changed("memory-words") {
		cfg.MemoryWords = flagCfg.MemoryWords
	}
	if flags.Changed("preload") {
		cfg.Preload.Mode = flagCfg.Preload.Mode
	}
	if flags.Changed("seed") {
		cfg.Preload.Seed = flagCfg.Preload.Seed
	}

	return cfg, cfg.Validate()
}

// Run builds the system described by cfg and replays the script.
func Run(cfg Config, opts RunOptions, logger logrus.FieldLogger) (Summary, error) {
	summary := Summary{}

	if opts.ScriptPath == "" {
		return summary, errors.New("no request script given")
	}

	reqs, err := ParseScriptFile(opts.ScriptPath)
	if err != nil {
		return summary, err
	}

	_, comp, err := cfg.BuildSystem("Cache")
	if err != nil {
		return summary, err
	}

	comp.AcceptHook(trace.NewLogTracer(logger))

	if opts.RecordPath != "" {
		recorder := datarecording.New(opts.RecordPath)
		defer recorder.Close()

		exec := datarecording.NewExecRecorder(recorder)
		exec.Start()
		exec.Set("Sets", strconv.Itoa(cfg.NumSets))
		exec.Set("Ways", strconv.Itoa(cfg.NumWays))
		exec.Set("Words Per Line", strconv.Itoa(cfg.WordsPerLine))
		exec.Set("Narrow Bits", strconv.FormatUint(uint64(cfg.NarrowBits), 10))
		exec.Set("Preload", cfg.Preload.Mode)
		defer exec.End()

		comp.AcceptHook(trace.NewDBTracer(recorder))
	}

	checker := refcheck.NewChecker(comp)

	for _, req := range reqs {
		if opts.Check {
			_, err = checker.Access(req)
		} else {
			_, err = comp.Access(req)
		}

		if err != nil {
			return summary, err
		}

		summary.Requests++
	}

	if opts.Flush {
		summary.LinesFlushed, err = comp.Flush(false)
		if err != nil {
			return summary, err
		}

		if opts.Check {
			if err := checker.VerifyBackend(); err != nil {
				return summary, err
			}
		}
	}

	summary.Verified = opts.Check
	summary.Stats = comp.Stats()
	summary.CompressionRatio = comp.CompressionRatio()

	snapshot := comp.Snapshot()
	summary.UsedSlots = snapshot.UsedSlots
	summary.TotalSlots = snapshot.TotalSlots

	if opts.DumpPath != "" {
		if err := dumpSnapshot(opts.DumpPath, opts.DumpFormat, snapshot); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

// PrintSummary writes a human readable report of a replay.
func PrintSummary(w io.Writer, s Summary) {
	fmt.Fprintf(w, "requests:          %d\n", s.Requests)
	fmt.Fprintf(w, "reads / writes:    %d / %d\n", s.Stats.Reads, s.Stats.Writes)
	fmt.Fprintf(w, "hits / misses:     %d / %d\n", s.Stats.Hits, s.Stats.Misses)
	fmt.Fprintf(w, "hit rate:          %.4f\n", s.Stats.HitRate())
	fmt.Fprintf(w, "evictions:         %d\n", s.Stats.Evictions)
	fmt.Fprintf(w, "write-backs:       %d (%d words)\n",
		s.Stats.WriteBacks, s.Stats.WordsWrittenBack)
	fmt.Fprintf(w, "cycles:            %d\n", s.Stats.Cycles)
	fmt.Fprintf(w, "compression ratio: %.4f\n", s.CompressionRatio)
	fmt.Fprintf(w, "slots used:        %d / %d\n", s.UsedSlots, s.TotalSlots)

	if s.LinesFlushed > 0 {
		fmt.Fprintf(w, "lines flushed:     %d\n", s.LinesFlushed)
	}

	if s.Verified {
		fmt.Fprintln(w, "reads verified:    yes")
	}

	if rss, err := residentMemory(); err == nil {
		fmt.Fprintf(w, "resident memory:   %.1f MiB\n", float64(rss)/(1<<20))
	}
}

func residentMemory() (uint64, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}

	info, err := p.MemoryInfo()
	if err != nil {
		return 0, err
	}

	return info.RSS, nil
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML system config")
	runCmd.Flags().StringVar(&runOpts.ScriptPath, "script", "",
		"YAML request script")
	runCmd.Flags().StringVar(&runOpts.RecordPath, "record", "",
		"Record requests into <path>.sqlite3")
	runCmd.Flags().StringVar(&runOpts.DumpPath, "dump-state", "",
		"Write the final cache content to a file")
	runCmd.Flags().StringVar(&runOpts.DumpFormat, "dump-format", DumpJSON,
		"Format of the state dump (json, cbor, msgpack)")
	runCmd.Flags().BoolVar(&runOpts.Flush, "flush", true,
		"Write dirty lines back at the end of the replay")
	runCmd.Flags().BoolVar(&runOpts.Check, "check", true,
		"Check every read against a reference model")

	runCmd.Flags().IntVar(&flagCfg.NumSets, "sets", flagCfg.NumSets,
		"Number of sets")
	runCmd.Flags().IntVar(&flagCfg.NumWays, "ways", flagCfg.NumWays,
		"Number of ways per set")
	runCmd.Flags().IntVar(&flagCfg.WordsPerLine, "line-words",
		flagCfg.WordsPerLine, "Number of words per line")
	runCmd.Flags().UintVar(&flagCfg.NarrowBits, "narrow-bits",
		flagCfg.NarrowBits, "Bit budget of a compacted word")
	runCmd.Flags().Uint64Var(&flagCfg.MemoryWords, "memory-words",
		flagCfg.MemoryWords, "Number of words of main memory")
	runCmd.Flags().StringVar(&flagCfg.Preload.Mode, "preload",
		flagCfg.Preload.Mode, "Initial memory content (random, constant, sequence, zero)")
	runCmd.Flags().Int64Var(&flagCfg.Preload.Seed, "seed",
		flagCfg.Preload.Seed, "Seed of the random preload")

	rootCmd.AddCommand(runCmd)
}
