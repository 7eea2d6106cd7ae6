package sink

import (
	"fmt"
	"maps"
	"slices"

	"featurebench/internal/example"
)

// Adapter is the common behaviour every sink exposes.
type Adapter interface {
	Configure(any) error        // driver-specific config struct
	Push(example.Example) error // consume one record
	Close() error               // idempotent
}

/*──────── registry ───────*/

type factory = func() Adapter

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown sink %q", name)
}

// Names lists the registered sinks.
func Names() []string { return slices.Sorted(maps.Keys(reg)) }
