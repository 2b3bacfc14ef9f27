// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors. Fatal conditions are all detected before the simulation
// engine is invoked; parse and arithmetic anomalies are recovered locally
// with a logged warning and never surface as errors.
var (
	// Trace ingestion errors
	ErrTraceDirMissing = errors.New("strix: trace directory does not exist")
	ErrNoTraceSources  = errors.New("strix: no trace sources in directory")

	// Topology errors
	ErrAddressCapacity = errors.New("strix: vehicle count exceeds address block capacity")

	// Engine errors
	ErrEngineNotFound = errors.New("strix: engine not registered")

	// Configuration errors
	ErrConfigInvalid = errors.New("strix: invalid configuration")
)
