package asset

import "errors"

// Asset construction errors.
var (
	ErrMalformedHierarchy     = errors.New("malformed chunk hierarchy")
	ErrReorderInconsistency   = errors.New("chunk reorder inconsistency")
	ErrHullConstructionFailed = errors.New("collision hull construction failed")
	ErrAssetAssemblyFailed    = errors.New("asset assembly failed")
)

// AssemblyError reports why Assemble refused its inputs.
type AssemblyError struct {
	Reason string
}

func (e *AssemblyError) Error() string {
	return ErrAssetAssemblyFailed.Error() + ": " + e.Reason
}

// Unwrap lets errors.Is match ErrAssetAssemblyFailed.
func (e *AssemblyError) Unwrap() error {
	return ErrAssetAssemblyFailed
}
