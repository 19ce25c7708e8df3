package normalisers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/loreweave/loreweave/internal/core/domain"
	"github.com/loreweave/loreweave/internal/core/ports/driven"
	"github.com/loreweave/loreweave/internal/logger"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry maintains a priority-ordered list of normalisers and
// dispatches each input to the highest-priority normaliser that
// supports it.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
}

// NewRegistry creates an empty normaliser registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a normaliser to the registry.
func (r *Registry) Register(normaliser driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.normalisers = append(r.normalisers, normaliser)

	// Highest priority first; registration order breaks ties.
	sort.SliceStable(r.normalisers, func(i, j int) bool {
		return r.normalisers[i].Priority() > r.normalisers[j].Priority()
	})
}

// Normalise transforms the input using the best matching normaliser.
func (r *Registry) Normalise(ctx context.Context, input *driven.RawInput) (*driven.NormaliseResult, error) {
	if input == nil {
		return nil, domain.ErrInvalidInput
	}

	normaliser := r.selectNormaliser(input)
	if normaliser == nil {
		return nil, domain.Validation(fmt.Errorf("no normaliser for %s payload (mime %q): %w",
			input.Payload.Kind, input.MIMEType, domain.ErrUnsupportedType))
	}

	logger.Debug("Normalising %s payload with %s", input.Payload.Kind, normaliser.Name())
	return normaliser.Normalise(ctx, input)
}

func (r *Registry) selectNormaliser(input *driven.RawInput) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, n := range r.normalisers {
		if n.Supports(input) {
			return n
		}
	}
	return nil
}
