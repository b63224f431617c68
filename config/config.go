/*package config parses and validates pickerel run configuration files.
The format is a gcfg file with one [pic] section for the run itself plus
one [species "name"] subsection per particle population and one
[inject "name"] subsection per injector. Every bad variable is reported
by name before the run touches any state.
*/
package config

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/gcfg.v1"

	"github.com/phil-mansfield/pickerel/geom"
)

const ExampleConfig = `[pic]

#######################
# Required Parameters #
#######################

# Dimensionality of the run: 1d, 2d, 3d, or rz.
Dim = 2d

# Cells along each active axis. rz runs use XCells for radial cells and
# YCells for axial cells.
XCells = 128
YCells = 128
# ZCells = 128

# Physical domain extent along each active axis, in meters. rz runs use
# XWidth as the outer radius and YWidth as the axial length.
XWidth = 1e-3
YWidth = 1e-3
# ZWidth = 1e-3

# Number of steps to run.
Steps = 1000

# Field solver: fdtd or psatd.
Solver = fdtd

# Field and particle boundary: periodic or pml.
Boundary = periodic

#######################
# Optional Parameters #
#######################

# Azimuthal modes kept by an rz run. Defaults to 1 (the symmetric mode).
# Modes = 2

# Current deposition: esirkepov (charge conserving) or direct.
# Deposition = esirkepov

# Particle shape order, 1 to 3.
# ShapeOrder = 2

# Finite-difference stencil order: 2, 4, or 6.
# StencilOrder = 2

# Time step in seconds. If Dt is not set, the step is CflFactor times
# the largest stable finite-difference step. Set one or the other, not
# both. CflFactor defaults to 0.95.
# Dt = 1e-12
# CflFactor = 0.95

# Absorbing layer shape, used when Boundary = pml: depth in cells,
# polynomial ramp exponent, and target reflection coefficient.
# PmlCells = 10
# PmlRamp = 3
# PmlReflection = 1e-8

# Divergence cleaning. With the fdtd solver this advects divergence
# errors away through two auxiliary potentials; with psatd it projects
# the deposited current onto the charge-conserving subspace.
# CleanDivergence = false

# How the psatd solver models the current inside a step: constant or
# linear in time.
# PsatdJ = constant

# Number of current depositions per step for the psatd solver. Values
# below 2 deposit once per step as usual.
# MultiJ = 0

# Seed for every random draw in the run.
# Seed = 0

# Step cadences: reduced diagnostics, checkpoints, and non-finite state
# scans. Zero disables the output in question.
# DiagEvery = 10
# CheckpointEvery = 0
# CheckEvery = 10

# Output directories.
# DiagDir = diags
# CheckpointDir = checkpoints

# Worker goroutines for the particle and field phases. Zero uses every
# core.
# Workers = 0

# Output files which are useful for profiling and debugging. Generally,
# there isn't a reason to use these unless something goes wrong.
# LogFile = log.out
# ProfileFile = prof.out

[species "electron"]
Charge = -1.602176634e-19
Mass = 9.1093837015e-31

# Momentum update scheme for this species: boris or vay.
# Pusher = boris

# What happens to particles that cross the domain edge: match (follow the
# field boundary: wrap when periodic, absorb when pml), absorb, or
# reflect.
# Boundary = match

# Uniform external fields applied to this species on top of the grid
# fields.
# ExtEx = 0
# ExtBy = 0

[inject "bulk"]
# Which species receives the particles.
Species = electron

# Injector kind: plasma, beam, or table.
Kind = plasma

# plasma: fill a box region at a target density with PartPerCell
# particles per cell. Region bounds are checked against the grid at
# startup. Placement is a regular lattice unless Random is set.
Density = 1e24
PartPerCell = 4
XUpper = 1e-3
YUpper = 1e-3
# XLower = 0
# Random = false

# Thermal spread and drift of the momentum draw, in gamma v.
# UThX = 1e5
# UDriftZ = 1e7

# beam: a Gaussian bunch of NP particles carrying Charge coulombs.
# Charge = -1e-9
# NP = 100000
# CenterX = 5e-4
# SigmaX = 1e-5
# USpreadX = 1e4

# table: read particles from a whitespace table holding the columns
# x y z ux uy uz w.
# File = particles.dat

# Each injector draws from its own seeded stream.
# Seed = 0
`

type PicConfig struct {
	// Required
	Dim                    string
	XCells, YCells, ZCells int
	XWidth, YWidth, ZWidth float64
	Steps                  int
	Solver                 string
	Boundary               string

	// Optional
	Modes           int
	Deposition      string
	ShapeOrder      int
	StencilOrder    int
	Dt              float64
	CflFactor       float64
	PmlCells        int
	PmlRamp         int
	PmlReflection   float64
	CleanDivergence bool
	PsatdJ          string
	MultiJ          int
	Seed            int64
	DiagEvery       int
	CheckpointEvery int
	CheckEvery      int
	DiagDir         string
	CheckpointDir   string
	Workers         int
	LogFile         string
	ProfileFile     string
}

type SpeciesConfig struct {
	// Required
	Charge, Mass float64

	// Optional
	Pusher              string
	Boundary            string
	ExtEx, ExtEy, ExtEz float64
	ExtBx, ExtBy, ExtBz float64

	Name string
}

type InjectConfig struct {
	// Required
	Species string
	Kind    string

	// plasma
	Density                float64
	PartPerCell            int
	XLower, YLower, ZLower float64
	XUpper, YUpper, ZUpper float64
	Random                 bool

	// beam
	Charge                    float64
	NP                        int
	CenterX, CenterY, CenterZ float64
	SigmaX, SigmaY, SigmaZ    float64
	USpreadX, USpreadY, USpreadZ float64

	// table
	File string

	// shared
	UThX, UThY, UThZ          float64
	UDriftX, UDriftY, UDriftZ float64
	Seed                      int64

	Name string
}

// Wrapper is the top-level structure a config file is parsed into.
type Wrapper struct {
	Pic     PicConfig
	Species map[string]*SpeciesConfig
	Inject  map[string]*InjectConfig
}

// DefaultWrapper returns a Wrapper with every optional variable at its
// default.
func DefaultWrapper() *Wrapper {
	wrap := &Wrapper{}
	wrap.Pic.Deposition = "esirkepov"
	wrap.Pic.PsatdJ = "constant"
	wrap.Pic.ShapeOrder = 2
	wrap.Pic.StencilOrder = 2
	wrap.Pic.PmlCells = 10
	wrap.Pic.PmlRamp = 3
	wrap.Pic.PmlReflection = 1e-8
	wrap.Pic.DiagEvery = 10
	wrap.Pic.CheckEvery = 10
	wrap.Pic.DiagDir = "diags"
	wrap.Pic.CheckpointDir = "checkpoints"
	return wrap
}

// Read parses and validates the config file at fname.
func Read(fname string) (*Wrapper, error) {
	wrap := DefaultWrapper()
	if err := gcfg.ReadFileInto(wrap, fname); err != nil {
		return nil, err
	}
	return wrap, wrap.Validate()
}

// ReadString parses and validates config text, as recovered from a
// checkpoint header.
func ReadString(text string) (*Wrapper, error) {
	wrap := DefaultWrapper()
	if err := gcfg.ReadStringInto(wrap, text); err != nil {
		return nil, err
	}
	return wrap, wrap.Validate()
}

func (con *PicConfig) ValidDim() bool {
	_, err := geom.ParseDim(con.Dim)
	return err == nil
}

func (con *PicConfig) ValidSolver() bool {
	s := strings.ToLower(con.Solver)
	return s == "fdtd" || s == "psatd"
}

func (con *PicConfig) ValidBoundary() bool {
	s := strings.ToLower(con.Boundary)
	return s == "periodic" || s == "pml"
}

func (con *PicConfig) ValidDeposition() bool {
	s := strings.ToLower(con.Deposition)
	return s == "esirkepov" || s == "direct"
}

func (con *PicConfig) ValidShapeOrder() bool {
	return con.ShapeOrder >= 1 && con.ShapeOrder <= 3
}

func (con *PicConfig) ValidStencilOrder() bool {
	return con.StencilOrder == 2 || con.StencilOrder == 4 ||
		con.StencilOrder == 6
}

func (con *PicConfig) ValidLogFile() bool {
	return con.LogFile != ""
}

func (con *PicConfig) ValidProfileFile() bool {
	return con.ProfileFile != ""
}

// axes returns the active axis count of the configured dimensionality.
func (con *PicConfig) axes() int {
	switch con.Dim {
	case "1d":
		return 1
	case "3d":
		return 3
	default:
		return 2
	}
}

// Validate checks every [pic] variable and fills in the defaults that
// depend on other variables.
func (con *PicConfig) Validate() error {
	con.Solver = strings.ToLower(con.Solver)
	con.Boundary = strings.ToLower(con.Boundary)
	con.Deposition = strings.ToLower(con.Deposition)
	con.PsatdJ = strings.ToLower(con.PsatdJ)

	if !con.ValidDim() {
		return fmt.Errorf("The variable 'Dim' must be one of 1d, 2d, 3d, "+
			"or rz, but is '%s'.", con.Dim)
	}
	rz := con.Dim == "rz"
	if rz && con.Modes == 0 {
		con.Modes = 1
	}
	if rz && con.Modes < 1 {
		return fmt.Errorf("The variable 'Modes' must be positive for rz "+
			"runs, but is %d.", con.Modes)
	}
	if !rz && con.Modes != 0 {
		return fmt.Errorf("The variable 'Modes' only applies to rz runs, " +
			"so it cannot be set here.")
	}

	cells := []int{con.XCells, con.YCells, con.ZCells}
	widths := []float64{con.XWidth, con.YWidth, con.ZWidth}
	names := []string{"X", "Y", "Z"}
	for a := 0; a < con.axes(); a++ {
		if cells[a] < 1 {
			return fmt.Errorf("The variable '%sCells' must be positive, "+
				"but is %d.", names[a], cells[a])
		}
		if widths[a] <= 0 {
			return fmt.Errorf("The variable '%sWidth' must be positive, "+
				"but is %g.", names[a], widths[a])
		}
	}
	for a := con.axes(); a < 3; a++ {
		if cells[a] > 1 {
			return fmt.Errorf("The variable '%sCells' is set, but a %s "+
				"run has no %s axis.",
				names[a], con.Dim, strings.ToLower(names[a]))
		}
		if widths[a] != 0 {
			return fmt.Errorf("The variable '%sWidth' is set, but a %s "+
				"run has no %s axis.",
				names[a], con.Dim, strings.ToLower(names[a]))
		}
	}

	if con.Steps < 1 {
		return fmt.Errorf("The variable 'Steps' must be positive, but "+
			"is %d.", con.Steps)
	}
	if !con.ValidSolver() {
		return fmt.Errorf("The variable 'Solver' must be fdtd or psatd, "+
			"but is '%s'.", con.Solver)
	}
	if !con.ValidBoundary() {
		return fmt.Errorf("The variable 'Boundary' must be periodic or "+
			"pml, but is '%s'.", con.Boundary)
	}
	if !con.ValidDeposition() {
		return fmt.Errorf("The variable 'Deposition' must be esirkepov "+
			"or direct, but is '%s'.", con.Deposition)
	}
	if !con.ValidShapeOrder() {
		return fmt.Errorf("The variable 'ShapeOrder' must be 1, 2, or 3, "+
			"but is %d.", con.ShapeOrder)
	}
	if !con.ValidStencilOrder() {
		return fmt.Errorf("The variable 'StencilOrder' must be 2, 4, or "+
			"6, but is %d.", con.StencilOrder)
	}

	if con.Dt < 0 {
		return fmt.Errorf("The variable 'Dt' must not be negative, but "+
			"is %g.", con.Dt)
	}
	if con.CflFactor < 0 {
		return fmt.Errorf("The variable 'CflFactor' must not be "+
			"negative, but is %g.", con.CflFactor)
	}
	if con.Dt > 0 && con.CflFactor > 0 {
		return fmt.Errorf("The variables 'Dt' and 'CflFactor' cannot " +
			"both be set.")
	}
	if con.Dt == 0 && con.CflFactor == 0 {
		con.CflFactor = 0.95
	}

	if strings.ToLower(con.Boundary) == "pml" {
		if con.PmlCells < 1 {
			return fmt.Errorf("The variable 'PmlCells' must be positive, "+
				"but is %d.", con.PmlCells)
		}
		if con.PmlRamp < 1 {
			return fmt.Errorf("The variable 'PmlRamp' must be at least "+
				"1, but is %d.", con.PmlRamp)
		}
		if con.PmlReflection <= 0 || con.PmlReflection > 1 {
			return fmt.Errorf("The variable 'PmlReflection' must be in "+
				"(0, 1], but is %g.", con.PmlReflection)
		}
	}

	if con.PsatdJ == "" {
		con.PsatdJ = "constant"
	}
	switch con.PsatdJ {
	case "constant", "linear":
	default:
		return fmt.Errorf("The variable 'PsatdJ' must be constant or "+
			"linear, but is '%s'.", con.PsatdJ)
	}
	if con.MultiJ < 0 {
		return fmt.Errorf("The variable 'MultiJ' must not be negative, "+
			"but is %d.", con.MultiJ)
	}
	if con.Seed < 0 {
		return fmt.Errorf("The variable 'Seed' must not be negative, "+
			"but is %d.", con.Seed)
	}
	for _, c := range []struct {
		name string
		val  int
	}{
		{"DiagEvery", con.DiagEvery},
		{"CheckpointEvery", con.CheckpointEvery},
		{"CheckEvery", con.CheckEvery},
		{"Workers", con.Workers},
	} {
		if c.val < 0 {
			return fmt.Errorf("The variable '%s' must not be negative, "+
				"but is %d.", c.name, c.val)
		}
	}
	if con.DiagEvery > 0 && con.DiagDir == "" {
		return fmt.Errorf("The variable 'DiagDir' cannot be empty while " +
			"'DiagEvery' is set.")
	}
	if con.CheckpointEvery > 0 && con.CheckpointDir == "" {
		return fmt.Errorf("The variable 'CheckpointDir' cannot be empty " +
			"while 'CheckpointEvery' is set.")
	}
	return nil
}

// Geometry builds the run geometry from the grid variables.
func (con *PicConfig) Geometry() (*geom.Geometry, error) {
	dim, err := geom.ParseDim(con.Dim)
	if err != nil {
		return nil, err
	}
	return geom.New(dim, con.Modes,
		[3]int{con.XCells, con.YCells, con.ZCells},
		[3]float64{0, 0, 0},
		[3]float64{con.XWidth, con.YWidth, con.ZWidth})
}

// CheckInit validates one species subsection, fills its defaults, and
// records its name.
func (s *SpeciesConfig) CheckInit(name string) error {
	if name == "" {
		return fmt.Errorf("A [species] section needs a name, like " +
			"[species \"electron\"].")
	}
	if s.Mass <= 0 {
		return fmt.Errorf("The variable 'Mass' of species '%s' must be "+
			"positive, but is %g.", name, s.Mass)
	}
	s.Pusher = strings.ToLower(s.Pusher)
	if s.Pusher == "" {
		s.Pusher = "boris"
	}
	switch s.Pusher {
	case "boris", "vay":
	default:
		return fmt.Errorf("The variable 'Pusher' of species '%s' must be "+
			"boris or vay, but is '%s'.", name, s.Pusher)
	}
	s.Boundary = strings.ToLower(s.Boundary)
	if s.Boundary == "" {
		s.Boundary = "match"
	}
	switch s.Boundary {
	case "match", "absorb", "reflect":
	default:
		return fmt.Errorf("The variable 'Boundary' of species '%s' must "+
			"be match, absorb, or reflect, but is '%s'.", name, s.Boundary)
	}
	s.Name = name
	return nil
}

// CheckInit validates one inject subsection and records its name. Checks
// that need the grid run later, when the injector is built.
func (c *InjectConfig) CheckInit(name string) error {
	if name == "" {
		return fmt.Errorf("An [inject] section needs a name, like " +
			"[inject \"bulk\"].")
	}
	if c.Species == "" {
		return fmt.Errorf("The injector '%s' does not set 'Species'.",
			name)
	}
	if c.Seed < 0 {
		return fmt.Errorf("The variable 'Seed' of injector '%s' must "+
			"not be negative, but is %d.", name, c.Seed)
	}
	c.Kind = strings.ToLower(c.Kind)
	switch c.Kind {
	case "plasma":
		if c.PartPerCell < 1 {
			return fmt.Errorf("The variable 'PartPerCell' of injector "+
				"'%s' must be positive, but is %d.", name, c.PartPerCell)
		}
		if c.Density < 0 {
			return fmt.Errorf("The variable 'Density' of injector '%s' "+
				"must not be negative, but is %g.", name, c.Density)
		}
	case "beam":
		if c.NP < 1 {
			return fmt.Errorf("The variable 'NP' of injector '%s' must "+
				"be positive, but is %d.", name, c.NP)
		}
		if c.Charge == 0 {
			return fmt.Errorf("The variable 'Charge' of injector '%s' "+
				"must be nonzero.", name)
		}
	case "table":
		if c.File == "" {
			return fmt.Errorf("The injector '%s' does not set 'File'.",
				name)
		}
	default:
		return fmt.Errorf("The variable 'Kind' of injector '%s' must be "+
			"plasma, beam, or table, but is '%s'.", name, c.Kind)
	}
	c.Name = name
	return nil
}

// Validate checks the whole parsed file.
func (wrap *Wrapper) Validate() error {
	if err := wrap.Pic.Validate(); err != nil {
		return err
	}
	for _, name := range wrap.SpeciesNames() {
		if err := wrap.Species[name].CheckInit(name); err != nil {
			return err
		}
	}
	for _, name := range wrap.InjectNames() {
		c := wrap.Inject[name]
		if err := c.CheckInit(name); err != nil {
			return err
		}
		if _, ok := wrap.Species[c.Species]; !ok {
			return fmt.Errorf("The injector '%s' targets the species "+
				"'%s', which is not defined.", name, c.Species)
		}
	}
	return nil
}

// SpeciesNames returns the species section names in sorted order, so
// every run sees the species in the same order.
func (wrap *Wrapper) SpeciesNames() []string {
	names := make([]string, 0, len(wrap.Species))
	for name := range wrap.Species {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InjectNames returns the inject section names in sorted order.
func (wrap *Wrapper) InjectNames() []string {
	names := make([]string, 0, len(wrap.Inject))
	for name := range wrap.Inject {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
