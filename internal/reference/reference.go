// Package reference loads the per-plot side data the checks compare against:
// the mesh grid of each census plot and the trap roster of each trap plot.
package reference

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// Geometry describes the grid of a census plot.
type Geometry struct {
	MeshX []int `json:"mesh_xcord"`
	MeshY []int `json:"mesh_ycord"`

	// Optional stem coordinate extent in meters; zero means unknown.
	StemXMax float64 `json:"stem_xmax,omitempty"`
	StemYMax float64 `json:"stem_ymax,omitempty"`
}

// HasMesh reports whether (x, y) is a mesh of the plot.
func (g Geometry) HasMesh(x, y int) bool {
	return containsInt(g.MeshX, x) && containsInt(g.MeshY, y)
}

// Roster lists the traps installed in a plot.
type Roster struct {
	TrapIDs []string `json:"trap_id"`
}

// Data is the reference data for all plots. The zero value is usable and
// holds nothing.
type Data struct {
	geometry map[string]Geometry
	traps    map[string]Roster
}

// New builds reference data from already decoded maps.
func New(geometry map[string]Geometry, traps map[string]Roster) *Data {
	d := &Data{
		geometry: make(map[string]Geometry, len(geometry)),
		traps:    make(map[string]Roster, len(traps)),
	}
	for k, v := range geometry {
		d.geometry[k] = v
	}
	for k, v := range traps {
		d.traps[k] = v
	}
	return d
}

// Geometry returns the grid of a plot.
func (d *Data) Geometry(plotID string) (Geometry, bool) {
	if d == nil {
		return Geometry{}, false
	}
	g, ok := d.geometry[plotID]
	return g, ok
}

// Traps returns the trap roster of a plot in roster order, or nil.
func (d *Data) Traps(plotID string) []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.traps[plotID].TrapIDs...)
}

// Plots returns every plot id with geometry or a trap roster, sorted.
func (d *Data) Plots() []string {
	seen := make(map[string]bool)
	for k := range d.geometry {
		seen[k] = true
	}
	for k := range d.traps {
		seen[k] = true
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DecodeGeometry reads {"TM-DB1": {"mesh_xcord": [...], "mesh_ycord": [...]}}.
func DecodeGeometry(r io.Reader) (map[string]Geometry, error) {
	var out map[string]Geometry
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("plot geometry: %w", err)
	}
	return out, nil
}

// DecodeTraps reads {"TM-DB1": {"trap_id": ["01", "02", ...]}}.
func DecodeTraps(r io.Reader) (map[string]Roster, error) {
	var out map[string]Roster
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("trap roster: %w", err)
	}
	return out, nil
}

// LoadFiles reads the geometry and roster files. Either path may be empty.
func LoadFiles(geometryPath, trapsPath string) (*Data, error) {
	var (
		geometry map[string]Geometry
		traps    map[string]Roster
	)
	if geometryPath != "" {
		f, err := os.Open(geometryPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if geometry, err = DecodeGeometry(f); err != nil {
			return nil, fmt.Errorf("%s: %w", geometryPath, err)
		}
	}
	if trapsPath != "" {
		f, err := os.Open(trapsPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if traps, err = DecodeTraps(f); err != nil {
			return nil, fmt.Errorf("%s: %w", trapsPath, err)
		}
	}
	return New(geometry, traps), nil
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
