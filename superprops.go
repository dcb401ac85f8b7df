package mgm

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mostlygoodmetrics/mgm-go/adapters"
)

// superProperties manages global properties merged into every tracked event.
// Every mutation persists the full serialized map; property maps are small,
// so correctness wins over incremental writes.
type superProperties struct {
	state  adapters.StateStore
	values map[string]any
	mu     sync.RWMutex
}

func newSuperProperties(state adapters.StateStore) *superProperties {
	return &superProperties{
		state:  state,
		values: make(map[string]any),
	}
}

// restore loads the persisted map, starting empty when none exists.
func (p *superProperties) restore() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.values = make(map[string]any)
	blob, ok, err := p.state.Get(keySuperProperties)
	if err != nil {
		return fmt.Errorf("restore super properties: %w", err)
	}
	if !ok || blob == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(blob), &p.values); err != nil {
		return fmt.Errorf("decode super properties: %w", err)
	}
	return nil
}

// set sets a super property value
func (p *superProperties) set(key string, value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
	return p.persistLocked()
}

// setAll merges the given map into the stored properties.
func (p *superProperties) setAll(values map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, v := range values {
		p.values[k] = v
	}
	return p.persistLocked()
}

// get returns a single value and whether it was present.
func (p *superProperties) get(key string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	value, ok := p.values[key]
	return value, ok
}

// getAll returns all super properties as a copy.
func (p *superProperties) getAll() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make(map[string]any, len(p.values))
	for k, v := range p.values {
		result[k] = v
	}
	return result
}

// remove deletes a single super property.
func (p *superProperties) remove(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.values, key)
	return p.persistLocked()
}

// clear removes all super properties.
func (p *superProperties) clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = make(map[string]any)
	return p.persistLocked()
}

func (p *superProperties) persistLocked() error {
	blob, err := json.Marshal(p.values)
	if err != nil {
		return fmt.Errorf("encode super properties: %w", err)
	}
	if err := p.state.Set(keySuperProperties, string(blob)); err != nil {
		return fmt.Errorf("persist super properties: %w", err)
	}
	return nil
}
