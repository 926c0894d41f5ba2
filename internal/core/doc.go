// Package core provides the business logic for checking survey data files.
//
// This package sits between the check engine and the outer surfaces. It
// knows which data kinds exist, reads uploaded files, runs the check set of
// the right kind and turns the findings into a [Report]. It can be used by
// the HTTP server, the batch CLI or tests without modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Kind Definitions: Registered via the registry, each data kind has
//     column specs and a check set constructor.
//   - Service: The main entry point for all operations (check, batch,
//     preview, templates).
//   - Suppression: Findings the data center has already reviewed are
//     removed from reports.
//   - Limiter: Bounds the number of checks running at once.
//
// # Kind Registry
//
// Kinds are registered at init time using [Register]. Each [KindDefinition]
// contains everything needed to check a specific survey:
//
//	core.Register(core.KindDefinition{
//	    Info: core.KindInfo{Kind: record.KindSeed, Group: "trap", Label: "Seed trap"},
//	    Columns: []core.ColumnSpec{
//	        {Name: "trap_id", Required: true, Type: core.ColumnText},
//	        {Name: "s_date1", Required: true, Type: core.ColumnDate},
//	    },
//	    New: newSeedChecks,
//	})
//
// The definitions of the tree, litter and seed surveys live in package
// kinds; import it for its side effects.
//
// # Checking
//
// The flow of one check is:
//
//  1. [Service.CheckFile] reads the file through package ingest
//  2. The header is validated against the column specs of the kind
//  3. The check set runs the selected rules once a limiter slot is free
//  4. Suppressed findings are dropped and the report is counted and logged
//
// [Service.CheckBatch] runs several files in parallel with the same steps.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - SCH001-SCH003: Schema errors (missing columns, census rounds, kind)
//   - CFG001-CFG002: Configuration errors (rule ids, thresholds)
//   - FILE001-FILE005: File errors (size, parsing, format)
//   - CHK001-CHK003: Check errors (busy, cancelled, timeout)
package core
