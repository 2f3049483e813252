package sqlite

import (
	"fmt"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Entry is one model registration. Build entries with Register.
type Entry struct {
	model types.Model
	build func(*Schema) any
}

// Register returns the registry entry for model type T.
func Register[T any, PT ModelOf[T]]() Entry {
	return Entry{
		model: PT(new(T)),
		build: func(s *Schema) any { return newBroker[T, PT](s) },
	}
}

// Registry maps each registered model to its single broker. It is built once
// at startup and is read-only afterwards.
type Registry struct {
	schemas []*Schema
	brokers map[string]any
}

// NewRegistry builds the schema and broker of every entry. Any invalid schema
// or a table registered twice fails the whole registry.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{
		schemas: make([]*Schema, 0, len(entries)),
		brokers: make(map[string]any, len(entries)),
	}
	for _, e := range entries {
		if e.model == nil {
			return nil, fmt.Errorf("%w: empty registry entry", types.ErrInvalidSchema)
		}
		s, err := NewSchema(e.model)
		if err != nil {
			return nil, err
		}
		if _, dup := r.brokers[s.Table()]; dup {
			return nil, fmt.Errorf("%w: table %s registered twice", types.ErrInvalidSchema, s.Table())
		}
		r.schemas = append(r.schemas, s)
		r.brokers[s.Table()] = e.build(s)
	}
	return r, nil
}

// BrokerFor returns the broker registered for T.
func BrokerFor[T any, PT ModelOf[T]](r *Registry) (*Broker[T, PT], error) {
	table := PT(new(T)).Table().Name
	b, ok := r.brokers[table].(*Broker[T, PT])
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrNotRegistered, table)
	}
	return b, nil
}

// MustBrokerFor is BrokerFor for callers that registered T themselves.
func MustBrokerFor[T any, PT ModelOf[T]](r *Registry) *Broker[T, PT] {
	b, err := BrokerFor[T, PT](r)
	if err != nil {
		panic(err)
	}
	return b
}

// Schemas returns the registered schemas in registration order.
func (r *Registry) Schemas() []*Schema {
	out := make([]*Schema, len(r.schemas))
	copy(out, r.schemas)
	return out
}

// Schema returns the schema registered for table.
func (r *Registry) Schema(table string) (*Schema, bool) {
	for _, s := range r.schemas {
		if s.Table() == table {
			return s, true
		}
	}
	return nil, false
}

// LatestVersion is the highest version declared by any registered schema.
func (r *Registry) LatestVersion() int {
	v := 0
	for _, s := range r.schemas {
		if lv := s.LatestVersion(); lv > v {
			v = lv
		}
	}
	return v
}
