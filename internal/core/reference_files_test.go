package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/monisenforest/internal/record"
)

func writeTemp(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReferenceFiles_Load(t *testing.T) {
	dir := t.TempDir()
	files := ReferenceFiles{
		TreeSpecies: writeTemp(t, dir, "tree.csv", "name_jp,species\nブナ,Fagus crenata\n"),
		TrapList:    writeTemp(t, dir, "traps.json", `{"TM-DB1": {"trap_id": ["01", "02"]}}`),
		Suppress:    writeTemp(t, dir, "except.csv", "plot_id,rec_id1,rec_id2,err_type\nTM-DB1,1,gbh10,anomaly\n"),
	}

	var opts ServiceOptions
	if err := files.Load(&opts); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	dict, ok := opts.Dictionaries[record.KindTree]
	if !ok {
		t.Fatal("tree dictionary not loaded")
	}
	if e, found := dict.Lookup("ブナ"); !found || e.ScientificName != "Fagus crenata" {
		t.Errorf("Lookup(ブナ) = %+v, %v", e, found)
	}
	if _, ok := opts.Dictionaries[record.KindSeed]; ok {
		t.Error("seed dictionary loaded without a path")
	}
	if got := opts.Reference.Traps("TM-DB1"); len(got) != 2 {
		t.Errorf("Traps(TM-DB1) = %v, want 2 traps", got)
	}
	if opts.Suppressions.Len() != 1 {
		t.Errorf("Suppressions.Len() = %d, want 1", opts.Suppressions.Len())
	}
}

func TestReferenceFiles_LoadErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name  string
		files ReferenceFiles
	}{
		{name: "missing species file", files: ReferenceFiles{TreeSpecies: filepath.Join(dir, "nope.csv")}},
		{name: "bad species format", files: ReferenceFiles{SeedSpecies: writeTemp(t, dir, "seed.txt", "x")}},
		{name: "bad geometry", files: ReferenceFiles{MeshXY: writeTemp(t, dir, "mesh.json", "{")}},
		{name: "bad suppression list", files: ReferenceFiles{Suppress: writeTemp(t, dir, "except.csv", "plot_id\nTM-DB1\n")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts ServiceOptions
			if err := tt.files.Load(&opts); err == nil {
				t.Error("Load() error = nil, want error")
			}
		})
	}
}

func TestReferenceFiles_Empty(t *testing.T) {
	var opts ServiceOptions
	if err := (ReferenceFiles{}).Load(&opts); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if opts.Reference != nil || opts.Suppressions != nil || len(opts.Dictionaries) != 0 {
		t.Errorf("opts = %+v, want nothing loaded", opts)
	}
}
