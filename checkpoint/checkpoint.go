/*package checkpoint saves and restores complete run state: every field
plane, absorbing-layer split field, and particle tile, plus a header
holding the original configuration text, so a checkpoint restarts without
its config file. Files open with a magic number and version, which rejects
foreign or byte-swapped files before any payload is touched. The payload
is a single zstd block of little endian arrays.
*/
package checkpoint

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/DataDog/zstd"
	"github.com/facette/natsort"

	"github.com/phil-mansfield/pickerel/grid"
	"github.com/phil-mansfield/pickerel/particle"
	"github.com/phil-mansfield/pickerel/pml"
)

const (
	// MagicNumber opens every checkpoint so that some other code's files
	// are caught before their bytes are interpreted.
	MagicNumber = 0x0dd15ea1
	// ReverseMagicNumber is what MagicNumber looks like when the file was
	// written with the opposite byte order.
	ReverseMagicNumber = 0xa15ed10d
	Version            = 1
)

var order = binary.LittleEndian

// ArrayInfo describes one stored field component.
type ArrayInfo struct {
	Name   string
	Planes int64
	Length int64
}

// SpeciesInfo describes one stored species and its tile sizes.
type SpeciesInfo struct {
	Name         string
	Charge, Mass float64
	TileLens     []int64
	NextID       int64
}

// Header carries everything a restart needs before touching the payload.
type Header struct {
	RunID  string
	Config string
	Step   int64
	Time   float64
	Seed   uint64

	Fields  []ArrayInfo
	Species []SpeciesInfo
}

func stateFields(m *grid.Mesh, p *pml.Pml) []*grid.Field {
	fs := m.All()
	if p != nil {
		fs = append(fs, p.Fields()...)
	}
	return fs
}

// Save writes the run state to path, filling in the Fields and Species
// records of hd. The absorbing layer may be nil.
func Save(path string, hd *Header, m *grid.Mesh, p *pml.Pml,
	species []*particle.Species) error {

	hd.Fields = hd.Fields[:0]
	hd.Species = hd.Species[:0]
	raw := &bytes.Buffer{}

	for _, f := range stateFields(m, p) {
		hd.Fields = append(hd.Fields, ArrayInfo{
			Name: f.Name, Planes: int64(len(f.M)), Length: int64(f.Length),
		})
		for _, plane := range f.M {
			if err := binary.Write(raw, order, plane); err != nil {
				return err
			}
		}
	}

	for _, s := range species {
		info := SpeciesInfo{
			Name: s.Name, Charge: s.Charge, Mass: s.Mass, NextID: s.NextID,
		}
		for _, t := range s.Tiles {
			info.TileLens = append(info.TileLens, int64(t.Len()))
			arrs := [][]float64{t.X, t.Y, t.Z, t.Ux, t.Uy, t.Uz, t.W}
			for _, arr := range arrs {
				if err := binary.Write(raw, order, arr); err != nil {
					return err
				}
			}
			if err := binary.Write(raw, order, t.ID); err != nil {
				return err
			}
		}
		hd.Species = append(hd.Species, info)
	}

	var hdBuf bytes.Buffer
	if err := gob.NewEncoder(&hdBuf).Encode(hd); err != nil {
		return err
	}
	comp, err := zstd.CompressLevel(nil, raw.Bytes(), 1)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := binary.Write(f, order, uint32(MagicNumber)); err != nil {
		return err
	}
	if err := binary.Write(f, order, uint32(Version)); err != nil {
		return err
	}
	if err := binary.Write(f, order, int64(hdBuf.Len())); err != nil {
		return err
	}
	if _, err := f.Write(hdBuf.Bytes()); err != nil {
		return err
	}
	if err := binary.Write(f, order, int64(raw.Len())); err != nil {
		return err
	}
	if err := binary.Write(f, order, int64(len(comp))); err != nil {
		return err
	}
	_, err = f.Write(comp)
	return err
}

// ReadHeader reads the header of a checkpoint without its payload.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readHeader(f, path)
}

func readHeader(f *os.File, path string) (*Header, error) {
	var magic, version uint32
	if err := binary.Read(f, order, &magic); err != nil {
		return nil, fmt.Errorf("The file %s is not a pickerel "+
			"checkpoint: %v", path, err)
	}
	switch magic {
	case MagicNumber:
	case ReverseMagicNumber:
		return nil, fmt.Errorf("The checkpoint %s was written with the "+
			"opposite byte order.", path)
	default:
		return nil, fmt.Errorf("The file %s is not a pickerel checkpoint: "+
			"it starts with 0x%08x instead of 0x%08x.",
			path, magic, uint32(MagicNumber))
	}
	if err := binary.Read(f, order, &version); err != nil {
		return nil, fmt.Errorf("The checkpoint %s is truncated: %v",
			path, err)
	}
	if version != Version {
		return nil, fmt.Errorf("The checkpoint %s uses format version %d, "+
			"but this build reads version %d.", path, version, Version)
	}

	var hdLen int64
	if err := binary.Read(f, order, &hdLen); err != nil {
		return nil, fmt.Errorf("The checkpoint %s is truncated: %v",
			path, err)
	}
	if hdLen <= 0 {
		return nil, fmt.Errorf("The checkpoint %s is corrupt: it claims "+
			"a %d byte header.", path, hdLen)
	}
	buf := make([]byte, hdLen)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("The checkpoint %s is truncated: %v",
			path, err)
	}
	hd := &Header{}
	if err := gob.NewDecoder(bytes.NewReader(buf)).Decode(hd); err != nil {
		return nil, fmt.Errorf("The checkpoint %s has a corrupt header: %v",
			path, err)
	}
	return hd, nil
}

// Restore fills an already-configured mesh, absorbing layer, and species
// set from the checkpoint payload. Shapes and names must match the header
// exactly, which catches restarts against an edited configuration.
func Restore(path string, m *grid.Mesh, p *pml.Pml,
	species []*particle.Species) (*Header, error) {

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hd, err := readHeader(f, path)
	if err != nil {
		return nil, err
	}

	fs := stateFields(m, p)
	if len(fs) != len(hd.Fields) {
		return nil, fmt.Errorf("The checkpoint %s stores %d field "+
			"components, but the configured run has %d.",
			path, len(hd.Fields), len(fs))
	}
	for i, fd := range fs {
		info := hd.Fields[i]
		if fd.Name != info.Name || int64(len(fd.M)) != info.Planes ||
			int64(fd.Length) != info.Length {
			return nil, fmt.Errorf("The checkpoint %s stores component "+
				"%s (%d planes of %d values) where the configured run "+
				"expects %s (%d planes of %d values).",
				path, info.Name, info.Planes, info.Length,
				fd.Name, len(fd.M), fd.Length)
		}
	}
	if len(species) != len(hd.Species) {
		return nil, fmt.Errorf("The checkpoint %s stores %d species, but "+
			"the configured run has %d.",
			path, len(hd.Species), len(species))
	}
	for si, s := range species {
		if s.Name != hd.Species[si].Name {
			return nil, fmt.Errorf("The checkpoint %s stores species '%s' "+
				"where the configured run expects '%s'.",
				path, hd.Species[si].Name, s.Name)
		}
	}

	var rawLen, compLen int64
	if err := binary.Read(f, order, &rawLen); err != nil {
		return nil, fmt.Errorf("The checkpoint %s is truncated: %v",
			path, err)
	}
	if err := binary.Read(f, order, &compLen); err != nil {
		return nil, fmt.Errorf("The checkpoint %s is truncated: %v",
			path, err)
	}
	if rawLen < 0 || compLen <= 0 {
		return nil, fmt.Errorf("The checkpoint %s is corrupt: it claims "+
			"a %d byte payload compressed to %d bytes.",
			path, rawLen, compLen)
	}
	comp := make([]byte, compLen)
	if _, err := io.ReadFull(f, comp); err != nil {
		return nil, fmt.Errorf("The checkpoint %s is truncated: %v",
			path, err)
	}
	raw, err := zstd.Decompress(make([]byte, rawLen), comp)
	if err != nil {
		return nil, fmt.Errorf("The checkpoint %s has a corrupt payload: "+
			"%v", path, err)
	}
	if int64(len(raw)) != rawLen {
		return nil, fmt.Errorf("The checkpoint %s has a corrupt payload: "+
			"%d bytes decompressed instead of %d.", path, len(raw), rawLen)
	}

	r := bytes.NewReader(raw)
	for _, fd := range fs {
		for _, plane := range fd.M {
			if err := binary.Read(r, order, plane); err != nil {
				return nil, fmt.Errorf("The checkpoint %s ran out of "+
					"payload inside component %s.", path, fd.Name)
			}
		}
	}
	for si, s := range species {
		info := hd.Species[si]
		s.Tiles = s.Tiles[:0]
		s.NextID = info.NextID
		for _, n := range info.TileLens {
			t := &particle.Tile{
				X: make([]float64, n), Y: make([]float64, n),
				Z: make([]float64, n),
				Ux: make([]float64, n), Uy: make([]float64, n),
				Uz: make([]float64, n),
				W:  make([]float64, n),
				ID: make([]int64, n),
			}
			arrs := [][]float64{t.X, t.Y, t.Z, t.Ux, t.Uy, t.Uz, t.W}
			for _, arr := range arrs {
				if err := binary.Read(r, order, arr); err != nil {
					return nil, fmt.Errorf("The checkpoint %s ran out of "+
						"payload inside species '%s'.", path, s.Name)
				}
			}
			if err := binary.Read(r, order, t.ID); err != nil {
				return nil, fmt.Errorf("The checkpoint %s ran out of "+
					"payload inside species '%s'.", path, s.Name)
			}
			s.Tiles = append(s.Tiles, t)
		}
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("The checkpoint %s has %d payload bytes "+
			"left over, so it does not match the configured run.",
			path, r.Len())
	}
	return hd, nil
}

// Sequence returns the checkpoint files matching the glob pattern in
// natural order, so ckpt-10 sorts after ckpt-9.
func Sequence(pattern string) ([]string, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Slice(paths, func(i, j int) bool {
		return natsort.Compare(paths[i], paths[j])
	})
	return paths, nil
}

// Latest returns the last checkpoint of the sequence matching the glob
// pattern.
func Latest(pattern string) (string, error) {
	paths, err := Sequence(pattern)
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", fmt.Errorf("No checkpoints match '%s'.", pattern)
	}
	return paths[len(paths)-1], nil
}
