package checkpoint

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/pickerel/geom"
	"github.com/phil-mansfield/pickerel/grid"
	"github.com/phil-mansfield/pickerel/particle"
	"github.com/phil-mansfield/pickerel/pml"
)

func testState(t *testing.T) (*grid.Mesh, *pml.Pml, []*particle.Species) {
	geo, err := geom.New(geom.Dim2D, 0, [3]int{8, 8, 1},
		[3]float64{0, 0, 0}, [3]float64{1, 1, 1})
	require.NoError(t, err)
	m, err := grid.NewMesh(geo, 1, 2, false)
	require.NoError(t, err)
	p, err := pml.New(m, 4, 3, 1e-6, 2)
	require.NoError(t, err)

	el, err := particle.NewSpecies("electron", -1, 1, particle.Periodic{})
	require.NoError(t, err)
	el.TileCap = 4
	pr, err := particle.NewSpecies("proton", 1, 1836, particle.Periodic{})
	require.NoError(t, err)
	return m, p, []*particle.Species{el, pr}
}

func fillState(m *grid.Mesh, p *pml.Pml, species []*particle.Species) {
	for ci, f := range m.All() {
		for pi, plane := range f.M {
			for i := range plane {
				plane[i] = float64(ci)*10 + float64(pi) + float64(i)*1e-3
			}
		}
	}
	for ci, f := range p.Fields() {
		for i := range f.Data {
			f.Data[i] = -float64(ci) - float64(i)*1e-4
		}
	}
	el := species[0]
	for i := 0; i < 10; i++ {
		x := float64(i) * 0.07
		el.Add(x, 1-x, 0, float64(i), -float64(i), 0.5, 1+float64(i))
	}
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt-0.ckpt")
	m, p, species := testState(t)
	fillState(m, p, species)

	hd := &Header{
		RunID: "r-1", Config: "[pic]\nSteps = 10\n",
		Step: 42, Time: 1.5, Seed: 7,
	}
	require.NoError(t, Save(path, hd, m, p, species))
	require.Len(t, hd.Fields, len(m.All())+len(p.Fields()))
	require.Len(t, hd.Species, 2)
	assert.Equal(t, []int64{4, 4, 2}, hd.Species[0].TileLens)

	m2, p2, species2 := testState(t)
	hd2, err := Restore(path, m2, p2, species2)
	require.NoError(t, err)

	assert.Equal(t, "r-1", hd2.RunID)
	assert.Equal(t, hd.Config, hd2.Config)
	assert.Equal(t, int64(42), hd2.Step)
	assert.Equal(t, 1.5, hd2.Time)
	assert.Equal(t, uint64(7), hd2.Seed)

	all, all2 := m.All(), m2.All()
	for ci := range all {
		for pi := range all[ci].M {
			require.Equal(t, all[ci].M[pi], all2[ci].M[pi],
				"component %s plane %d", all[ci].Name, pi)
		}
	}
	fs, fs2 := p.Fields(), p2.Fields()
	for ci := range fs {
		require.Equal(t, fs[ci].Data, fs2[ci].Data,
			"split %s", fs[ci].Name)
	}

	el, el2 := species[0], species2[0]
	require.Equal(t, len(el.Tiles), len(el2.Tiles))
	for ti := range el.Tiles {
		require.Equal(t, el.Tiles[ti].X, el2.Tiles[ti].X)
		require.Equal(t, el.Tiles[ti].Uy, el2.Tiles[ti].Uy)
		require.Equal(t, el.Tiles[ti].W, el2.Tiles[ti].W)
		require.Equal(t, el.Tiles[ti].ID, el2.Tiles[ti].ID)
	}
	assert.Equal(t, 0, species2[1].NP())

	// Ids keep counting from where the saved run stopped.
	el2.Add(0, 0, 0, 0, 0, 0, 1)
	last := el2.Tiles[len(el2.Tiles)-1]
	assert.Equal(t, int64(10), last.ID[last.Len()-1])
}

func TestNoPml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt-0.ckpt")
	m, _, species := testState(t)
	m.Ex.Fill(3.5)
	species[0].Add(0.5, 0.5, 0, 1, 2, 3, 4)

	hd := &Header{RunID: "r-2", Step: 1}
	require.NoError(t, Save(path, hd, m, nil, species))
	require.Len(t, hd.Fields, len(m.All()))

	m2, _, species2 := testState(t)
	_, err := Restore(path, m2, nil, species2)
	require.NoError(t, err)
	assert.Equal(t, 3.5, m2.Ex.At(2, 3, 0))
	assert.Equal(t, 1, species2[0].NP())
}

func TestForeignFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path,
		[]byte("these are not the bytes you are looking for"), 0644))
	_, err := ReadHeader(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a pickerel checkpoint")

	path = filepath.Join(dir, "empty.ckpt")
	require.NoError(t, os.WriteFile(path, nil, 0644))
	_, err = ReadHeader(path)
	assert.Error(t, err)
}

func TestByteSwapped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swapped.ckpt")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, binary.Write(f, binary.BigEndian,
		uint32(MagicNumber)))
	require.NoError(t, f.Close())

	_, err = ReadHeader(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "byte order")
}

func TestVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.ckpt")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, binary.Write(f, order, uint32(MagicNumber)))
	require.NoError(t, binary.Write(f, order, uint32(99)))
	require.NoError(t, f.Close())

	_, err = ReadHeader(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version 99")
}

func TestMismatchedRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt-0.ckpt")
	m, p, species := testState(t)
	require.NoError(t, Save(path, &Header{}, m, p, species))

	// A different grid shape must be refused.
	geo, err := geom.New(geom.Dim2D, 0, [3]int{16, 16, 1},
		[3]float64{0, 0, 0}, [3]float64{1, 1, 1})
	require.NoError(t, err)
	m2, err := grid.NewMesh(geo, 1, 2, false)
	require.NoError(t, err)
	p2, err := pml.New(m2, 4, 3, 1e-6, 2)
	require.NoError(t, err)
	_, _, species2 := testState(t)
	_, err = Restore(path, m2, p2, species2)
	assert.Error(t, err)

	// So must a renamed species.
	m3, p3, _ := testState(t)
	other, err := particle.NewSpecies("positron", 1, 1,
		particle.Periodic{})
	require.NoError(t, err)
	_, err = Restore(path, m3, p3, []*particle.Species{other})
	assert.Error(t, err)
}

func TestTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt-0.ckpt")
	m, p, species := testState(t)
	fillState(m, p, species)
	require.NoError(t, Save(path, &Header{}, m, p, species))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()/2))

	m2, p2, species2 := testState(t)
	_, err = Restore(path, m2, p2, species2)
	assert.Error(t, err)
}

func TestSequence(t *testing.T) {
	dir := t.TempDir()
	names := []string{"ckpt-9.ckpt", "ckpt-1.ckpt", "ckpt-10.ckpt",
		"ckpt-2.ckpt"}
	for _, n := range names {
		require.NoError(t,
			os.WriteFile(filepath.Join(dir, n), nil, 0644))
	}

	paths, err := Sequence(filepath.Join(dir, "ckpt-*.ckpt"))
	require.NoError(t, err)
	want := []string{"ckpt-1.ckpt", "ckpt-2.ckpt", "ckpt-9.ckpt",
		"ckpt-10.ckpt"}
	require.Len(t, paths, 4)
	for i := range want {
		assert.Equal(t, want[i], filepath.Base(paths[i]))
	}

	latest, err := Latest(filepath.Join(dir, "ckpt-*.ckpt"))
	require.NoError(t, err)
	assert.Equal(t, "ckpt-10.ckpt", filepath.Base(latest))

	_, err = Latest(filepath.Join(dir, "missing-*.ckpt"))
	assert.Error(t, err)
}
