package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/monisenforest/internal/check"
)

func TestSuppressionList_Filter(t *testing.T) {
	list := NewSuppressionList([]Suppression{
		{PlotID: "TM-DB1", RecordID: "12", Target: "gbh10", ErrType: "成長量が基準値外"},
		{PlotID: "TM-DB1", RecordID: "20050610", Target: "A01", ErrType: string(check.RuleTrap)},
	})

	findings := []check.Finding{
		{PlotID: "TM-DB1", RecordID: "12", Target: "gbh10", Rule: check.RuleAnomaly, Message: "成長量が基準値外"},
		{PlotID: "TM-DB1", RecordID: "12", Target: "gbh15", Rule: check.RuleAnomaly, Message: "成長量が基準値外"},
		{PlotID: "TM-DB1", RecordID: "20050610", Target: "A01", Rule: check.RuleTrap, Message: "trap id not in roster"},
		{PlotID: "AS-DB1", RecordID: "12", Target: "gbh10", Rule: check.RuleAnomaly, Message: "成長量が基準値外"},
	}

	kept, removed := list.Filter(findings)
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if len(kept) != 2 {
		t.Fatalf("len(kept) = %d, want 2", len(kept))
	}
	if kept[0].Target != "gbh15" || kept[1].PlotID != "AS-DB1" {
		t.Errorf("kept = %+v", kept)
	}
}

func TestSuppressionList_Nil(t *testing.T) {
	var list *SuppressionList
	findings := []check.Finding{{PlotID: "TM-DB1"}}

	kept, removed := list.Filter(findings)
	if removed != 0 || len(kept) != 1 {
		t.Errorf("Filter() on nil list = %d kept, %d removed", len(kept), removed)
	}
	if list.Len() != 0 {
		t.Errorf("Len() = %d, want 0", list.Len())
	}
	if got := list.ForPlot("TM-DB1"); got != nil {
		t.Errorf("ForPlot() = %v, want nil", got)
	}
}

func TestLoadSuppressions(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    int
		wantErr string
	}{
		{
			name: "standard header",
			data: "plot_id,rec_id1,rec_id2,err_type,サイトでの対応\n" +
				"TM-DB1,12, gbh10 ,成長量が基準値外,確認済み\n" +
				"TM-DB1,13,gbh10,成長量が基準値外,\n",
			want: 2,
		},
		{
			name: "aliases",
			data: "plotid,rec_id1,rec_id2,rule\nTM-DB1,12,gbh10,anomaly\n",
			want: 1,
		},
		{
			name:    "missing columns",
			data:    "plot_id,rec_id1\nTM-DB1,12\n",
			wantErr: "missing required column(s): rec_id2, err_type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := LoadSuppressions("except.csv", strings.NewReader(tt.data))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadSuppressions() error = %v", err)
			}
			if list.Len() != tt.want {
				t.Errorf("Len() = %d, want %d", list.Len(), tt.want)
			}
		})
	}
}

func TestLoadSuppressions_TrimsCells(t *testing.T) {
	list, err := LoadSuppressions("except.csv", strings.NewReader(
		"plot_id,rec_id1,rec_id2,err_type\nTM-DB1,12, gbh10 ,成長量が基準値外\n"))
	if err != nil {
		t.Fatal(err)
	}
	got := list.ForPlot("TM-DB1")
	if len(got) != 1 || got[0].Target != "gbh10" {
		t.Errorf("ForPlot() = %+v, want target gbh10", got)
	}
}

func TestReloadSuppressions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "except.csv")
	write := func(data string, mod time.Time) {
		t.Helper()
		if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatal(err)
		}
	}

	s, err := NewService(ServiceOptions{Config: check.DefaultConfig()})
	if err != nil {
		t.Fatal(err)
	}

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	write("plot_id,rec_id1,rec_id2,err_type\nTM-DB1,1,gbh10,anomaly\n", first)

	lastMod := s.reloadSuppressions(path, time.Time{})
	if !lastMod.Equal(first) {
		t.Errorf("lastMod = %v, want %v", lastMod, first)
	}
	if s.Suppressions().Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Suppressions().Len())
	}

	// Unchanged file is not reloaded.
	s.SetSuppressions(nil)
	if got := s.reloadSuppressions(path, lastMod); !got.Equal(lastMod) || s.Suppressions() != nil {
		t.Error("unchanged file was reloaded")
	}

	// A broken file keeps the previous list.
	s.SetSuppressions(NewSuppressionList([]Suppression{{PlotID: "TM-DB1"}}))
	second := first.Add(time.Hour)
	write("plot_id\nTM-DB1\n", second)
	if got := s.reloadSuppressions(path, lastMod); !got.Equal(lastMod) {
		t.Errorf("lastMod after failed reload = %v, want %v", got, lastMod)
	}
	if s.Suppressions().Len() != 1 {
		t.Errorf("Len() after failed reload = %d, want 1", s.Suppressions().Len())
	}

	// A fixed file is picked up.
	third := second.Add(time.Hour)
	write("plot_id,rec_id1,rec_id2,err_type\nTM-DB1,1,gbh10,anomaly\nTM-DB1,2,gbh10,anomaly\n", third)
	if got := s.reloadSuppressions(path, lastMod); !got.Equal(third) {
		t.Errorf("lastMod = %v, want %v", got, third)
	}
	if s.Suppressions().Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Suppressions().Len())
	}
}
