/*energy_plot plots the energy history of a run from its diagnostic tables.

Usage:

	energy_plot diag_dir out.png

The first argument is the DiagDir of the run, the second the image file to
write.
*/
package main

import (
	"bufio"
	"log"
	"os"
	"path/filepath"
	"strings"

	plt "github.com/phil-mansfield/pyplot"
	"github.com/phil-mansfield/table"
)

func main() {
	if len(os.Args) != 3 {
		log.Fatalf("Usage: %s diag_dir out.png", os.Args[0])
	}
	dir, out := os.Args[1], os.Args[2]

	fieldFile := filepath.Join(dir, "field_energy.dat")
	partFile := filepath.Join(dir, "particle_energy.dat")

	fCols, err := table.ReadTable(fieldFile,
		[]int{1, lastColumn(fieldFile)}, nil)
	if err != nil {
		log.Fatal(err.Error())
	}
	pCols, err := table.ReadTable(partFile,
		[]int{1, lastColumn(partFile)}, nil)
	if err != nil {
		log.Fatal(err.Error())
	}

	times, field := fCols[0], fCols[1]
	part := pCols[1]
	if len(part) != len(field) {
		log.Fatalf("%s has %d rows, but %s has %d.",
			fieldFile, len(field), partFile, len(part))
	}

	total := make([]float64, len(field))
	for i := range total {
		total[i] = field[i] + part[i]
	}

	plt.Figure()
	plt.Plot(times, field, "b", plt.LW(2))
	plt.Plot(times, part, "r", plt.LW(2))
	plt.Plot(times, total, "k", plt.LW(3))

	plt.Title("Field (b), particle (r), and total (k) energy")
	plt.XLabel("$t$ [s]", plt.FontSize(16))
	plt.YLabel("$E$ [J]", plt.FontSize(16))
	plt.Grid(plt.Axis("both"))

	plt.SaveFig(out)
	plt.Execute()
}

// lastColumn reads the column header comment of a diagnostic table and
// returns the index of its last column, which holds the total.
func lastColumn(fname string) int {
	f, err := os.Open(fname)
	if err != nil {
		log.Fatal(err.Error())
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "# step") {
			continue
		}
		return len(strings.Fields(line)) - 2
	}
	log.Fatalf("The table %s has no column header.", fname)
	return 0
}
