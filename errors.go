package nftgen

import (
	"errors"
	"fmt"
	"image"
)

// Sentinel causes wrapped by the typed errors below.
var (
	ErrMissingGroup      = errors.New("missing group directory")
	ErrEmptyGroup        = errors.New("group has no layer options")
	ErrDecode            = errors.New("cannot decode image")
	ErrDuplicateTrait    = errors.New("duplicate trait name")
	ErrInvalidWeight     = errors.New("invalid weight")
	ErrUnknownTrait      = errors.New("weight for unknown trait")
	ErrUnorderedGroup    = errors.New("group not in layer order")
	ErrUnmatchedOrder    = errors.New("layer order names a group that was not loaded")
	ErrDuplicateOrder    = errors.New("duplicate name in layer order")
	ErrEmptyOrderName    = errors.New("empty name in layer order")
	ErrEmptyOrder        = errors.New("layer order is empty")
	ErrDuplicateGroup    = errors.New("duplicate group name")
	ErrDimensionMismatch = errors.New("layer dimensions differ from canvas")
)

// ErrorKind is a coarse classification so callers can tell startup
// failures from per-request ones without type switches.
type ErrorKind string

const (
	KindCatalog   ErrorKind = "catalog"
	KindOrdering  ErrorKind = "ordering"
	KindDimension ErrorKind = "dimension_mismatch"
)

// CatalogError reports a problem with the layer directory tree.
type CatalogError struct {
	Op    string
	Path  string
	Group string
	Err   error
}

func (e *CatalogError) Error() string {
	if e == nil {
		return "<nil>"
	}
	base := fmt.Sprintf("%s: %s", KindCatalog, e.Op)
	if e.Group != "" {
		base += fmt.Sprintf(" (group=%s)", e.Group)
	}
	if e.Path != "" {
		base += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *CatalogError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *CatalogError) Kind() ErrorKind { return KindCatalog }

// OrderingError reports a mismatch between loaded groups and the layer order.
type OrderingError struct {
	Name string
	Err  error
}

func (e *OrderingError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %q: %v", KindOrdering, e.Name, e.Err)
}

func (e *OrderingError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *OrderingError) Kind() ErrorKind { return KindOrdering }

// DimensionMismatchError names the layer whose size disagrees with the canvas.
type DimensionMismatchError struct {
	Group string
	Trait string
	Want  image.Point
	Got   image.Point
}

func (e *DimensionMismatchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %s/%s is %dx%d, canvas is %dx%d",
		KindDimension, e.Group, e.Trait, e.Got.X, e.Got.Y, e.Want.X, e.Want.Y)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

func (e *DimensionMismatchError) Kind() ErrorKind { return KindDimension }

// IsKind reports whether any error in err's chain carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var k interface{ Kind() ErrorKind }
	if errors.As(err, &k) {
		return k.Kind() == kind
	}
	return false
}
