package core

import (
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/monisenforest/internal/record"
	"github.com/JonMunkholm/monisenforest/internal/reference"
	"github.com/JonMunkholm/monisenforest/internal/species"
)

// ReferenceFiles names the reference data of a service. Empty paths are
// skipped and the rules that need the file report nothing.
type ReferenceFiles struct {
	TreeSpecies string // species list for tree data (.csv or .json)
	SeedSpecies string // species list for seed data (.csv or .json)
	MeshXY      string // plot geometry (.json)
	TrapList    string // trap roster (.json)
	Suppress    string // suppression list (.csv or .xlsx)
}

// Load reads every configured file into opts.
func (f ReferenceFiles) Load(opts *ServiceOptions) error {
	if opts.Dictionaries == nil {
		opts.Dictionaries = make(map[record.Kind]species.Dictionary)
	}

	for _, d := range []struct {
		kind record.Kind
		path string
	}{
		{record.KindTree, f.TreeSpecies},
		{record.KindSeed, f.SeedSpecies},
	} {
		if d.path == "" {
			continue
		}
		dict, err := species.LoadFile(d.path)
		if err != nil {
			return fmt.Errorf("load %s species list: %w", d.kind, err)
		}
		opts.Dictionaries[d.kind] = dict
		slog.Info("species list loaded", "kind", d.kind, "path", d.path, "entries", dict.Len())
	}

	if f.MeshXY != "" || f.TrapList != "" {
		ref, err := reference.LoadFiles(f.MeshXY, f.TrapList)
		if err != nil {
			return fmt.Errorf("load reference data: %w", err)
		}
		opts.Reference = ref
		slog.Info("reference data loaded", "plots", len(ref.Plots()))
	}

	if f.Suppress != "" {
		list, err := LoadSuppressionFile(f.Suppress)
		if err != nil {
			return err
		}
		opts.Suppressions = list
		slog.Info("suppression list loaded", "path", f.Suppress, "entries", list.Len())
	}
	return nil
}
