package pickerel

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/phil-mansfield/pickerel/deposit"
	"github.com/phil-mansfield/pickerel/gather"
	"github.com/phil-mansfield/pickerel/geom"
	"github.com/phil-mansfield/pickerel/grid"
	"github.com/phil-mansfield/pickerel/particle"
	"github.com/phil-mansfield/pickerel/push"
)

// A workspace holds one worker's scratch state for the particle phase:
// private deposition buffers, a depositor, and one gatherer per species.
// Nothing in it is shared, so workers never lock.
type workspace struct {
	buf  *deposit.Buffers
	dep  *deposit.Depositor
	gath []*gather.Gatherer
}

// Step advances the run by one time step: the particle phases run on the
// worker pool, the field update runs on the calling goroutine between
// them.
func (man *Manager) Step() error {
	man.mesh.RotateRho()
	man.mesh.ClearSources()

	man.advanceParticles()
	man.foldSources()
	man.pushFields()
	man.fillGuards()

	man.step++
	return man.endStep()
}

// advanceParticles runs the fused gather/push/move/deposit pass over every
// tile, then folds the workers' private buffers into the mesh. The fold
// runs in worker order, not arrival order, so runs with the same worker
// count reduce bitwise identically.
func (man *Manager) advanceParticles() {
	out := make(chan int, man.workers)
	for id := 0; id < man.workers-1; id++ {
		go man.chanAdvance(id, out)
	}
	man.chanAdvance(man.workers-1, out)
	for i := 0; i < man.workers; i++ {
		<-out
	}

	for i := range man.workspaces {
		man.workspaces[i].buf.AddTo(man.mesh)
	}
}

// chanAdvance is the worker body. Tiles are dealt round robin across the
// pool, so each tile has exactly one owner for the whole phase.
func (man *Manager) chanAdvance(id int, out chan<- int) {
	w := &man.workspaces[id]
	w.buf.Zero()

	idx := 0
	for si, s := range man.species {
		for _, t := range s.Tiles {
			if idx%man.workers == id {
				man.advanceTile(w, si, s, t)
			}
			idx++
		}
	}

	out <- id
}

// advanceTile advances every particle in one tile. The gather reads the
// pre-push position, the deposit uses the unwrapped start and end of the
// step's trajectory, and only then does the boundary wrap or kill.
func (man *Manager) advanceTile(
	w *workspace, si int, s *particle.Species, t *particle.Tile,
) {
	g := w.gath[si]
	pushU := man.pushers[si]
	dt := man.dt
	qmdt2 := s.Charge / s.Mass * dt / 2

	for i := 0; i < t.Len(); i++ {
		x0, y0, z0 := t.X[i], t.Y[i], t.Z[i]
		ex, ey, ez, bx, by, bz := g.EB(man.mesh, x0, y0, z0)

		t.Ux[i], t.Uy[i], t.Uz[i] = pushU(
			t.Ux[i], t.Uy[i], t.Uz[i], ex, ey, ez, bx, by, bz, qmdt2)
		vx, vy, vz := push.Velocity(t.Ux[i], t.Uy[i], t.Uz[i])
		x1, y1, z1 := x0+vx*dt, y0+vy*dt, z0+vz*dt
		t.X[i], t.Y[i], t.Z[i] = x1, y1, z1

		if s.Charge != 0 {
			w.dep.Current(w.buf, s.Charge, t.W[i],
				x0, y0, z0, x1, y1, z1, vx, vy, vz, dt)
			if man.needRho {
				w.dep.Charge(w.buf.Rho, s.Charge, t.W[i], x1, y1, z1)
			}
		}
	}

	s.Scrape(man.geo, t)
	t.Compact()
}

// foldSources folds guard-cell deposition back into the interior. On
// cylindrical meshes the below-axis fold must run before the periodic one.
func (man *Manager) foldSources() {
	if man.geo.Dim == geom.DimRZ {
		man.mesh.AxisFold()
	}
	fs := []*grid.Field{man.mesh.Jx, man.mesh.Jy, man.mesh.Jz}
	if man.needRho {
		fs = append(fs, man.mesh.RhoNew)
	}
	grid.FoldGuards(fs, man.periodic)
}

func (man *Manager) pushFields() {
	if man.fd != nil {
		man.pushYee()
	} else {
		man.pushSpectral()
	}
}

// pushYee runs the leapfrog B half of the update, refreshes the guard
// cells the E half reads, and finishes with E. With an absorbing shell the
// shell advances between the halves and hands the interior its boundary
// values.
func (man *Manager) pushYee() {
	m, dt := man.mesh, man.dt
	man.fd.PushB(m, dt)

	if man.shell != nil {
		man.shell.CopyFromInterior(m)
		man.shell.PushB(dt)
		man.shell.PushE(dt)
		man.shell.CopyToInterior(m)
	} else {
		if man.geo.Dim == geom.DimRZ {
			m.AxisFill()
		}
		grid.FillGuards([]*grid.Field{m.Bx, m.By, m.Bz}, man.periodic)
		if m.F != nil {
			man.fd.PushG(m, dt)
			man.fd.PushF(m, dt)
			grid.FillGuards([]*grid.Field{m.F}, man.periodic)
		}
	}

	man.fd.PushE(m, dt)
}

// pushSpectral advances E and B in wavevector space. With sub-cycling the
// deposited sources drive every sub-push and the mesh receives the
// time-averaged fields.
func (man *Manager) pushSpectral() {
	m := man.mesh
	if man.multiJ <= 1 {
		man.sp.Push(m, man.dt)
		return
	}

	man.sp.ResetAverage()
	sub := man.dt / float64(man.multiJ)
	for i := 0; i < man.multiJ; i++ {
		man.sp.Push(m, sub)
	}
	if err := man.sp.WriteAverage(m); err != nil {
		panic(fmt.Sprintf("Impossible: %v", err))
	}
}

// fillGuards refreshes every guard cell the next step's gather reads. With
// an absorbing shell the guards already hold the shell's boundary values
// and the periodic fill is a no-op.
func (man *Manager) fillGuards() {
	m := man.mesh
	if man.geo.Dim == geom.DimRZ {
		m.AxisFill()
	}
	fs := m.EB()
	if m.F != nil {
		fs = append(fs, m.F, m.G)
	}
	grid.FillGuards(fs, man.periodic)
}

func (man *Manager) endStep() error {
	if man.diags != nil {
		if err := man.diags.Write(man.step, man.Time()); err != nil {
			return err
		}
	}
	if man.checkEvery > 0 && man.step%man.checkEvery == 0 {
		if err := man.checkState(); err != nil {
			return fmt.Errorf("At step %d: %v", man.step, err)
		}
	}
	return nil
}

// checkState scans the run for non-finite field and particle values.
func (man *Manager) checkState() error {
	g := &errgroup.Group{}
	g.Go(man.mesh.CheckFinite)
	for _, s := range man.species {
		g.Go(s.CheckFinite)
	}
	return g.Wait()
}
