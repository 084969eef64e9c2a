package vector

import "fmt"

// Kind names an index implementation.
type Kind string

const (
	// KindFlat ranks by full scan. Suitable for the tens to hundreds of units in one document.
	KindFlat Kind = "flat"
)

// NewIndex creates an empty index of the given kind. An empty kind means flat.
func NewIndex(kind string) (Index, error) {
	switch Kind(kind) {
	case KindFlat, "":
		return NewFlatIndex(), nil
	default:
		return nil, fmt.Errorf("unknown index kind: %s (supported: flat)", kind)
	}
}
