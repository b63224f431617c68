/*package pickerel drives electromagnetic particle in cell simulations. A
Manager owns one run: the field mesh, the solvers, the particle species,
and a pool of worker workspaces that carry the per-step particle phases.
Construct one with New from config text or with Restore from a checkpoint,
then call Run.
*/
package pickerel

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"

	"github.com/phil-mansfield/pickerel/checkpoint"
	"github.com/phil-mansfield/pickerel/config"
	"github.com/phil-mansfield/pickerel/deposit"
	"github.com/phil-mansfield/pickerel/diag"
	"github.com/phil-mansfield/pickerel/gather"
	"github.com/phil-mansfield/pickerel/geom"
	"github.com/phil-mansfield/pickerel/grid"
	"github.com/phil-mansfield/pickerel/inject"
	"github.com/phil-mansfield/pickerel/maxwell"
	"github.com/phil-mansfield/pickerel/particle"
	"github.com/phil-mansfield/pickerel/pml"
	"github.com/phil-mansfield/pickerel/push"
	"github.com/phil-mansfield/pickerel/spectral"
	"github.com/phil-mansfield/pickerel/units"
)

// Manager owns the full state of one run and advances it step by step.
type Manager struct {
	conf  *config.Wrapper
	text  string
	runID string

	geo      *geom.Geometry
	mesh     *grid.Mesh
	fd       *maxwell.Solver
	sp       *spectral.Solver
	shell    *pml.Pml
	periodic [3]bool
	needRho  bool
	multiJ   int

	species []*particle.Species
	pushers []push.Func

	dt    float64
	steps int
	step  int
	seed  uint64

	diags *diag.Group

	checkEvery      int
	checkpointEvery int
	checkpointDir   string
	logEvery        int

	workers    int
	workspaces []workspace

	log bool
	ms  runtime.MemStats
}

// New builds a Manager from config text, injects the configured particles,
// and deposits their initial charge. The text itself is stored in every
// checkpoint the run writes, so a checkpoint needs no config file.
func New(text string, logFlag bool) (*Manager, error) {
	conf, err := config.ReadString(text)
	if err != nil {
		return nil, err
	}
	man, err := newManager(conf, text, uuid.New().String(), false, logFlag)
	if err != nil {
		return nil, err
	}

	for i, name := range conf.InjectNames() {
		c := conf.Inject[name]
		s := man.speciesByName(c.Species)
		if err := buildInjector(c, man.geo, man.seed, i).Inject(
			man.geo, s); err != nil {
			return nil, fmt.Errorf("The injector '%s' failed: %v", name,
				err)
		}
	}
	man.depositInitialRho()

	if man.log {
		np := 0
		for _, s := range man.species {
			np += s.NP()
		}
		log.Printf("Run %s: %d cells, %d particles, %d workers, dt = %g s.",
			man.runID, man.geo.N[0]*man.geo.N[1]*man.geo.N[2], np,
			man.workers, man.dt)
	}
	if man.diags != nil {
		if err := man.diags.Write(0, 0); err != nil {
			return nil, err
		}
	}
	return man, nil
}

// Restore builds a Manager from a checkpoint file and resumes its run
// where it stopped. Diagnostic tables are appended to, not truncated.
func Restore(path string, logFlag bool) (*Manager, error) {
	hd, err := checkpoint.ReadHeader(path)
	if err != nil {
		return nil, err
	}
	conf, err := config.ReadString(hd.Config)
	if err != nil {
		return nil, fmt.Errorf("The checkpoint %s holds a config this "+
			"build rejects: %v", path, err)
	}
	man, err := newManager(conf, hd.Config, hd.RunID, true, logFlag)
	if err != nil {
		return nil, err
	}
	if _, err := checkpoint.Restore(path, man.mesh, man.shell,
		man.species); err != nil {
		return nil, err
	}
	man.step = int(hd.Step)
	man.seed = hd.Seed
	if man.log {
		log.Printf("Run %s: restored %s at step %d of %d.",
			man.runID, path, man.step, man.steps)
	}
	return man, nil
}

// newManager builds every piece of a run except its particles, which come
// from the injectors on a fresh run and from the checkpoint on a restart.
func newManager(
	conf *config.Wrapper, text, runID string, resume, logFlag bool,
) (*Manager, error) {
	pic := &conf.Pic
	fdtd := pic.Solver == "fdtd"
	clean := pic.CleanDivergence

	geo, err := pic.Geometry()
	if err != nil {
		return nil, err
	}

	// Cylindrical meshes have neither cleaning fields nor a spectral
	// correction, so direct deposition stands alone there.
	if pic.Deposition == "direct" && !clean && geo.Dim != geom.DimRZ {
		return nil, fmt.Errorf("The variable 'Deposition' is direct, " +
			"which does not conserve charge on its own, so " +
			"'CleanDivergence' must be on.")
	}
	if pic.Boundary == "pml" && !fdtd {
		return nil, fmt.Errorf("The variable 'Boundary' is pml, which " +
			"needs the fdtd solver.")
	}
	if pic.Boundary == "pml" && clean {
		return nil, fmt.Errorf("The variables 'Boundary' pml and " +
			"'CleanDivergence' cannot be combined.")
	}
	if pic.MultiJ > 1 && fdtd {
		return nil, fmt.Errorf("The variable 'MultiJ' needs the psatd " +
			"solver.")
	}
	if pic.MultiJ > 1 && clean {
		return nil, fmt.Errorf("The variables 'MultiJ' and " +
			"'CleanDivergence' cannot be combined.")
	}
	mesh, err := grid.NewMesh(geo, pic.ShapeOrder, pic.StencilOrder,
		clean && fdtd)
	if err != nil {
		return nil, err
	}

	man := &Manager{
		conf: conf, text: text, runID: runID,
		geo: geo, mesh: mesh,
		needRho: !fdtd || clean,
		multiJ:  pic.MultiJ,
		steps:   pic.Steps,
		seed:    uint64(pic.Seed),
		log:     logFlag,

		checkEvery:      pic.CheckEvery,
		checkpointEvery: pic.CheckpointEvery,
		checkpointDir:   pic.CheckpointDir,
	}

	if !fdtd {
		alg, err := spectral.ParseAlgorithm(pic.PsatdJ)
		if err != nil {
			return nil, err
		}
		man.sp, err = spectral.New(mesh, alg, clean, pic.MultiJ > 1)
		if err != nil {
			return nil, err
		}
	}
	// Built for both solvers: psatd runs that set CflFactor take their
	// step from the finite-difference bound too.
	yee, err := maxwell.New(mesh, pic.StencilOrder, clean && fdtd)
	if err != nil {
		return nil, err
	}
	if fdtd {
		man.fd = yee
	}

	man.dt = pic.Dt
	if man.dt == 0 {
		man.dt = pic.CflFactor * yee.MaxDt()
	}
	if fdtd && man.dt > yee.MaxDt() {
		return nil, fmt.Errorf("The time step %g s is above the "+
			"stability bound %g s of the finite-difference solver. "+
			"Lower 'Dt' or 'CflFactor'.", man.dt, yee.MaxDt())
	}
	if pic.Deposition == "esirkepov" && geo.Dim != geom.DimRZ {
		minW := math.Inf(1)
		for a := 0; a < geo.Axes(); a++ {
			if w := geo.CellWidth(a); w < minW {
				minW = w
			}
		}
		if units.C*man.dt > minW {
			return nil, fmt.Errorf("The time step %g s lets a particle "+
				"cross %.2f cells, but the charge conserving deposit "+
				"assumes at most one. Lower 'Dt'.",
				man.dt, units.C*man.dt/minW)
		}
	}

	if pic.Boundary == "pml" {
		man.shell, err = pml.New(mesh, pic.PmlCells, pic.PmlRamp,
			pic.PmlReflection, pic.StencilOrder)
		if err != nil {
			return nil, err
		}
		man.shell.ComputeFactors(man.dt)
	} else {
		for a := 0; a < geo.Axes(); a++ {
			man.periodic[a] = true
		}
		if geo.Dim == geom.DimRZ {
			// The radial axis has no periodic image; the z axis wraps.
			man.periodic[0] = false
		}
	}

	if err := man.buildSpecies(); err != nil {
		return nil, err
	}
	if err := man.buildWorkspaces(); err != nil {
		return nil, err
	}

	if pic.DiagEvery > 0 {
		man.diags, err = diag.NewGroup(pic.DiagDir, runID, pic.DiagEvery,
			resume,
			diag.NewFieldEnergy(mesh), diag.NewFieldMaximum(mesh),
			diag.NewParticleEnergy(man.species),
			diag.NewParticleNumber(man.species))
		if err != nil {
			return nil, err
		}
	}
	if man.checkpointEvery > 0 {
		if err := os.MkdirAll(man.checkpointDir, 0755); err != nil {
			return nil, err
		}
	}

	man.logEvery = (man.steps + 19) / 20

	return man, nil
}

func (man *Manager) buildSpecies() error {
	names := man.conf.SpeciesNames()
	man.species = make([]*particle.Species, len(names))
	man.pushers = make([]push.Func, len(names))
	for i, name := range names {
		sc := man.conf.Species[name]

		var bound particle.Boundary
		switch sc.Boundary {
		case "absorb":
			bound = particle.Absorbing{}
		case "reflect":
			bound = particle.Reflecting{}
		default:
			if man.conf.Pic.Boundary == "periodic" {
				bound = particle.Periodic{}
			} else {
				bound = particle.Absorbing{}
			}
		}

		s, err := particle.NewSpecies(name, sc.Charge, sc.Mass, bound)
		if err != nil {
			return err
		}
		s.ExtE = [3]float64{sc.ExtEx, sc.ExtEy, sc.ExtEz}
		s.ExtB = [3]float64{sc.ExtBx, sc.ExtBy, sc.ExtBz}
		man.species[i] = s

		kind, err := push.ParseKind(sc.Pusher)
		if err != nil {
			return err
		}
		man.pushers[i] = push.ForKind(kind)
	}
	return nil
}

func (man *Manager) buildWorkspaces() error {
	pic := &man.conf.Pic
	depScheme, err := deposit.ParseScheme(pic.Deposition)
	if err != nil {
		return err
	}
	gathScheme := gather.MomentumConserving
	if depScheme == deposit.Direct {
		gathScheme = gather.EnergyConserving
	}

	man.workers = pic.Workers
	if man.workers == 0 {
		man.workers = runtime.NumCPU()
	}
	runtime.GOMAXPROCS(man.workers)

	man.workspaces = make([]workspace, man.workers)
	for i := range man.workspaces {
		w := &man.workspaces[i]
		w.buf = deposit.NewBuffers(man.mesh)
		w.dep, err = deposit.New(man.mesh, pic.ShapeOrder, depScheme)
		if err != nil {
			return err
		}
		w.gath = make([]*gather.Gatherer, len(man.species))
		for si, s := range man.species {
			ext := gather.External{
				Ex: s.ExtE[0], Ey: s.ExtE[1], Ez: s.ExtE[2],
				Bx: s.ExtB[0], By: s.ExtB[1], Bz: s.ExtB[2],
			}
			w.gath[si], err = gather.New(man.mesh, pic.ShapeOrder,
				gathScheme, ext)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (man *Manager) speciesByName(name string) *particle.Species {
	for _, s := range man.species {
		if s.Name == name {
			return s
		}
	}
	panic("Impossible: the config validator checks injector targets.")
}

func buildInjector(
	c *config.InjectConfig, geo *geom.Geometry, runSeed uint64, idx int,
) inject.Injector {
	seed := uint64(c.Seed)
	if seed == 0 {
		seed = runSeed + uint64(idx) + 1
	}

	switch c.Kind {
	case "plasma":
		lower := [3]float64{c.XLower, c.YLower, c.ZLower}
		upper := [3]float64{c.XUpper, c.YUpper, c.ZUpper}
		if lower == ([3]float64{}) && upper == ([3]float64{}) {
			lower, upper = geo.Lower, geo.Upper
		}
		return &inject.Plasma{
			Lower: lower, Upper: upper,
			Density:     c.Density,
			PartPerCell: c.PartPerCell,
			Random:      c.Random,
			UTh:         [3]float64{c.UThX, c.UThY, c.UThZ},
			UDrift:      [3]float64{c.UDriftX, c.UDriftY, c.UDriftZ},
			Seed:        seed,
		}
	case "beam":
		return &inject.GaussianBeam{
			Center:  [3]float64{c.CenterX, c.CenterY, c.CenterZ},
			Sigma:   [3]float64{c.SigmaX, c.SigmaY, c.SigmaZ},
			Charge:  c.Charge,
			NP:      c.NP,
			UDrift:  [3]float64{c.UDriftX, c.UDriftY, c.UDriftZ},
			USpread: [3]float64{c.USpreadX, c.USpreadY, c.USpreadZ},
			Seed:    seed,
		}
	}
	return &inject.FromTable{Path: c.File}
}

// depositInitialRho fills RhoNew from the freshly injected particles, so
// the first step's RotateRho sees the charge distribution it evolved from.
func (man *Manager) depositInitialRho() {
	if !man.needRho {
		return
	}
	d := man.workspaces[0].dep
	for _, s := range man.species {
		if s.Charge == 0 {
			continue
		}
		for _, t := range s.Tiles {
			for i := 0; i < t.Len(); i++ {
				d.Charge(man.mesh.RhoNew, s.Charge, t.W[i],
					t.X[i], t.Y[i], t.Z[i])
			}
		}
	}
	if man.geo.Dim == geom.DimRZ {
		man.mesh.AxisFold()
	}
	grid.FoldGuards([]*grid.Field{man.mesh.RhoNew}, man.periodic)
}

// Run advances the simulation to its configured step count, writing
// diagnostics and checkpoints on their cadences.
func (man *Manager) Run() error {
	for man.step < man.steps {
		if err := man.Step(); err != nil {
			return err
		}
		if man.log && man.step%man.logEvery == 0 {
			man.logProgress()
		}
		if man.checkpointEvery > 0 && man.step%man.checkpointEvery == 0 {
			if err := man.writeCheckpoint(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (man *Manager) logProgress() {
	np := 0
	for _, s := range man.species {
		np += s.NP()
	}
	log.Printf("Step %d of %d: t = %.6g s, %d particles.",
		man.step, man.steps, man.Time(), np)
	runtime.ReadMemStats(&man.ms)
	log.Printf("Alloc: %5d MB, Sys: %5d MB",
		man.ms.Alloc>>20, man.ms.Sys>>20)
}

func (man *Manager) writeCheckpoint() error {
	hd := &checkpoint.Header{
		RunID:  man.runID,
		Config: man.text,
		Step:   int64(man.step),
		Time:   man.Time(),
		Seed:   man.seed,
	}
	path := filepath.Join(man.checkpointDir,
		fmt.Sprintf("ckpt-%d.ckpt", man.step))
	if man.log {
		log.Printf("Writing the checkpoint %s.", path)
	}
	return checkpoint.Save(path, hd, man.mesh, man.shell, man.species)
}

// Close releases the run's diagnostic tables. The field and particle
// state stays readable.
func (man *Manager) Close() error {
	if man.diags == nil {
		return nil
	}
	err := man.diags.Close()
	man.diags = nil
	return err
}

// Log turns progress logging on or off.
func (man *Manager) Log(flag bool) { man.log = flag }

// Mesh returns the run's field mesh.
func (man *Manager) Mesh() *grid.Mesh { return man.mesh }

// Species returns the run's particle populations, sorted by name.
func (man *Manager) Species() []*particle.Species { return man.species }

// Dt returns the step size in seconds.
func (man *Manager) Dt() float64 { return man.dt }

// StepNumber returns the number of completed steps.
func (man *Manager) StepNumber() int { return man.step }

// Time returns the physical time of the current state.
func (man *Manager) Time() float64 { return float64(man.step) * man.dt }

// RunID returns the identifier written to diagnostics and checkpoints.
func (man *Manager) RunID() string { return man.runID }
