package contractor

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/lintang-b-s/accessx/pkg/datastructure"
)

// SaveToFile writes the contracted graph as a zstd-compressed gob stream,
// one file per variant (accessx_ch_<variant>.graph by convention).
func (ch *ContractedGraph) SaveToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create graph snapshot %s: %w", path, err)
	}
	defer f.Close()

	zw, err := datastructure.NewCompressedWriter(f)
	if err != nil {
		return err
	}

	enc := gob.NewEncoder(zw)
	if err := enc.Encode(ch); err != nil {
		zw.Close()
		return fmt.Errorf("failed to encode graph snapshot: %w", err)
	}

	return zw.Close()
}

// LoadGraph reads a snapshot written by SaveToFile.
func (ch *ContractedGraph) LoadGraph(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open graph snapshot %s: %w", path, err)
	}
	defer f.Close()

	zr, err := datastructure.NewCompressedReader(f)
	if err != nil {
		return err
	}
	defer zr.Close()

	dec := gob.NewDecoder(zr)
	if err := dec.Decode(ch); err != nil {
		return fmt.Errorf("failed to decode graph snapshot: %w", err)
	}
	return nil
}
