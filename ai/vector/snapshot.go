package vector

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Snapshot layout: a little-endian uint32 header length, a JSON header with
// dimension and identifiers, then count*dimension float32 values in
// little-endian order. Reloading a snapshot reproduces identical search
// results to the index that produced it.

const snapshotMagic = "SHLVIDX1"

// maxSnapshotHeaderLen bounds the header allocation when loading. The header
// holds one JSON object with the dimension and id list; 16 MiB covers
// catalogs far beyond this service's scale, while a corrupt or truncated
// length field cannot force a multi-gigabyte allocation.
const maxSnapshotHeaderLen = 16 << 20

type snapshotHeader struct {
	Magic     string   `json:"magic"`
	Dimension int      `json:"dimension"`
	IDs       []string `json:"ids"`
}

// Save writes the index snapshot to w.
func (idx *Index) Save(w io.Writer) error {
	header, err := json.Marshal(snapshotHeader{
		Magic:     snapshotMagic,
		Dimension: idx.dimension,
		IDs:       idx.ids,
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal snapshot header")
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(header))); err != nil {
		return errors.Wrap(err, "failed to write snapshot header length")
	}
	if _, err := w.Write(header); err != nil {
		return errors.Wrap(err, "failed to write snapshot header")
	}

	buf := make([]byte, idx.dimension*4)
	for _, vec := range idx.vectors {
		for i, v := range vec {
			binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
		}
		if _, err := w.Write(buf); err != nil {
			return errors.Wrap(err, "failed to write snapshot vectors")
		}
	}
	return nil
}

// Load reads an index snapshot written by Save.
func Load(r io.Reader) (*Index, error) {
	var headerLen uint32
	if err := binary.Read(r, binary.LittleEndian, &headerLen); err != nil {
		return nil, errors.Wrap(err, "failed to read snapshot header length")
	}

	if headerLen == 0 || headerLen > maxSnapshotHeaderLen {
		return nil, errors.Errorf("implausible snapshot header length %d", headerLen)
	}

	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, errors.Wrap(err, "failed to read snapshot header")
	}

	var header snapshotHeader
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal snapshot header")
	}
	if header.Magic != snapshotMagic {
		return nil, errors.Errorf("unrecognized snapshot format %q", header.Magic)
	}
	if header.Dimension <= 0 || len(header.IDs) == 0 {
		return nil, errors.New("snapshot header is empty or corrupt")
	}

	idx := &Index{
		dimension: header.Dimension,
		ids:       header.IDs,
		vectors:   make([][]float32, len(header.IDs)),
	}
	buf := make([]byte, header.Dimension*4)
	for i := range header.IDs {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, errors.Wrapf(err, "failed to read vector %d", i)
		}
		vec := make([]float32, header.Dimension)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4 : j*4+4]))
		}
		idx.vectors[i] = vec
	}
	return idx, nil
}

// SaveFile writes the snapshot atomically via a temp file rename.
func (idx *Index) SaveFile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "shlrec-index-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp snapshot file")
	}
	defer os.Remove(tmp.Name())

	if err := idx.Save(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close temp snapshot file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "failed to move snapshot into place")
	}
	return nil
}

// LoadFile reads a snapshot from disk.
func LoadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open snapshot %s", path)
	}
	defer f.Close()
	return Load(f)
}
