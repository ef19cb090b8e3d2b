package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/syifan/goseth"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/sarchlab/compcache/mem/cache"
)

// Formats of a state dump.
const (
	DumpJSON    = "json"
	DumpCBOR    = "cbor"
	DumpMsgpack = "msgpack"
)

// EncodeSnapshot writes a cache snapshot in the given format. CBOR output
// uses the core deterministic encoding so that identical runs produce
// identical files.
func EncodeSnapshot(w io.Writer, format string, snapshot cache.Snapshot) error {
	switch format {
	case DumpJSON, "":
		serializer := goseth.NewSerializer()
		serializer.SetRoot(&snapshot)
		serializer.SetMaxDepth(4)

		return serializer.Serialize(w)
	case DumpCBOR:
		em, err := cbor.CoreDetEncOptions().EncMode()
		if err != nil {
			return err
		}

		return em.NewEncoder(w).Encode(snapshot)
	case DumpMsgpack:
		return msgpack.NewEncoder(w).Encode(snapshot)
	default:
		return fmt.Errorf("unknown dump format %q", format)
	}
}

// DecodeSnapshot reads back a snapshot written in CBOR or msgpack.
func DecodeSnapshot(r io.Reader, format string) (cache.Snapshot, error) {
	var snapshot cache.Snapshot

	switch format {
	case DumpCBOR:
		return snapshot, cbor.NewDecoder(r).Decode(&snapshot)
	case DumpMsgpack:
		return snapshot, msgpack.NewDecoder(r).Decode(&snapshot)
	default:
		return snapshot, fmt.Errorf("cannot decode %q dumps", format)
	}
}

func dumpSnapshot(path, format string, snapshot cache.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	err = EncodeSnapshot(f, format, snapshot)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	return err
}
