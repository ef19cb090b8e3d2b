package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/compcache/mem/cache"
	"github.com/sarchlab/compcache/mem/mem"
)

// A ScriptEntry is one request of a request script.
type ScriptEntry struct {
	Operation string   `yaml:"operation"`
	Address   uint64   `yaml:"address"`
	Value     mem.Word `yaml:"value"`
}

// ParseScript reads a YAML list of script entries and turns them into
// requests.
func ParseScript(r io.Reader) ([]cache.Request, error) {
	var entries []ScriptEntry

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&entries); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parsing script: %w", err)
	}

	reqs := make([]cache.Request, 0, len(entries))

	for i, e := range entries {
		req := cache.Request{
			ID:      fmt.Sprintf("req-%d", i),
			Address: e.Address,
		}

		switch strings.ToLower(e.Operation) {
		case "read", "r":
			req.Op = cache.OpRead
		case "write", "w":
			req.Op = cache.OpWrite
			req.Data = e.Value
		default:
			return nil, fmt.Errorf("script entry %d: unknown operation %q",
				i, e.Operation)
		}

		reqs = append(reqs, req)
	}

	return reqs, nil
}

// ParseScriptFile reads a request script from a file.
func ParseScriptFile(path string) ([]cache.Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseScript(f)
}
