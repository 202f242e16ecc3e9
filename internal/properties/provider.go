package properties

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/halodb/internal/graph"
	"github.com/roach88/halodb/internal/histogram"
	"github.com/roach88/halodb/internal/ir"
)

var (
	// ErrNoProvider is returned when no registered provider fits a request.
	ErrNoProvider = errors.New("no provider for property")
	// ErrRequiresRawData is returned when live calculation is asked of a
	// provider that needs particle data.
	ErrRequiresRawData = errors.New("property requires raw simulation data")
)

// LiveFunc computes property name for halos from catalog data alone. Rows
// whose Requires are missing never reach it.
type LiveFunc func(ctx context.Context, reader graph.Reader, name string, halos []graph.Halo) (ir.Column, error)

// Provider describes one way of computing a set of properties.
type Provider struct {
	// Names lists the properties this provider computes.
	Names []string
	// RequiresRawData marks providers that need particle data and so can
	// never be live-calculated.
	RequiresRawData bool
	// WorksWith is the most general handler this provider supports.
	// Defaults to Output.
	WorksWith Handler
	// Priority breaks ties between providers for the same handler depth;
	// higher wins.
	Priority int
	// Requires lists stored properties a halo must carry for the provider
	// to accept it.
	Requires []string
	// Histogram is set for time-chunked properties.
	Histogram *histogram.Params
	// Live computes the properties when RequiresRawData is false.
	Live LiveFunc
}

// ValidateName rejects property names that cannot be written in an
// expression.
func ValidateName(name string) error {
	if name == "" || strings.ContainsAny(name, "()") {
		return fmt.Errorf("unsuitable name %q", name)
	}
	return nil
}

func (p Provider) validate() error {
	var errs []string
	if len(p.Names) == 0 {
		errs = append(errs, "no names")
	}
	for _, name := range p.Names {
		if err := ValidateName(name); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if _, ok := Handlers[p.WorksWith]; !ok {
		errs = append(errs, fmt.Sprintf("unknown handler %q", p.WorksWith))
	}
	if !p.RequiresRawData && p.Live == nil {
		errs = append(errs, "live provider without a Live function")
	}
	if p.Histogram != nil {
		if err := p.Histogram.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid provider: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Provides reports whether p names property, ignoring case.
func (p Provider) Provides(property string) bool {
	key := foldName(property)
	for _, name := range p.Names {
		if foldName(name) == key {
			return true
		}
	}
	return false
}

// accepts reports whether handler can serve p. NoHandler accepts only
// providers that need no raw data.
func (p Provider) accepts(handler Handler) bool {
	if handler == NoHandler {
		return !p.RequiresRawData
	}
	return handler.Within(p.WorksWith)
}
