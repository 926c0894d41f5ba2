package kinds

import (
	"testing"

	"github.com/JonMunkholm/monisenforest/internal/check"
	"github.com/JonMunkholm/monisenforest/internal/core"
	"github.com/JonMunkholm/monisenforest/internal/record"
)

func TestRegistered(t *testing.T) {
	for _, kind := range []record.Kind{record.KindTree, record.KindLitter, record.KindSeed} {
		def, ok := core.Get(kind)
		if !ok {
			t.Errorf("kind %q not registered", kind)
			continue
		}
		if def.New == nil {
			t.Errorf("kind %q has no check set constructor", kind)
		}
		if len(def.RequiredColumns()) == 0 {
			t.Errorf("kind %q has no required columns", kind)
		}
	}
}

func TestTemplatesPassValidation(t *testing.T) {
	for _, def := range core.All() {
		t.Run(string(def.Info.Kind), func(t *testing.T) {
			if _, err := core.ValidateHeaders(def.Info.Kind, def.Template(), def.Columns); err != nil {
				t.Errorf("template %v fails validation: %v", def.Template(), err)
			}
		})
	}
}

func TestTrapKindsShareColumns(t *testing.T) {
	for _, kind := range []record.Kind{record.KindLitter, record.KindSeed} {
		def, _ := core.Get(kind)
		tmpl := def.Template()
		if len(tmpl) < 3 || tmpl[0] != "trap_id" || tmpl[1] != "s_date1" || tmpl[2] != "s_date2" {
			t.Errorf("%s template starts with %v, want trap_id s_date1 s_date2", kind, tmpl)
		}
	}
}

func TestNew_Tree(t *testing.T) {
	rec, err := record.New(
		[]string{"tag_no", "indv_no", "spc_japan", "gbh05", "s_date05"},
		[][]string{{"1", "1", "ブナ", "20", "20050610"}},
		record.Options{PlotID: "TM-DB1"},
	)
	if err != nil {
		t.Fatal(err)
	}

	def, _ := core.Get(record.KindTree)
	set, err := def.New(rec, check.Options{Config: check.DefaultConfig()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if set == nil {
		t.Fatal("New() returned a nil check set")
	}
}

func TestNew_SchemaErrorIsUntypedNil(t *testing.T) {
	rec, err := record.New([]string{"tag_no"}, [][]string{{"1"}}, record.Options{PlotID: "TM-DB1", Kind: record.KindTree})
	if err != nil {
		t.Fatal(err)
	}

	def, _ := core.Get(record.KindTree)
	set, err := def.New(rec, check.Options{Config: check.DefaultConfig()})
	if err == nil {
		t.Fatal("New() error = nil, want schema error")
	}
	if set != nil {
		t.Errorf("New() = %#v, want nil interface", set)
	}
}
