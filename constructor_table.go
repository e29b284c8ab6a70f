package keel

import (
	"fmt"
	"sync"
)

// constructorTable maps type identifiers to the constructors autowiring may
// call for them.
type constructorTable struct {
	byID map[string]*constructorInfo
	mu   sync.RWMutex
}

func newConstructorTable() *constructorTable {
	return &constructorTable{
		byID: make(map[string]*constructorInfo),
	}
}

// register adds a constructor under id
func (t *constructorTable) register(id string, info *constructorInfo) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.byID[id]; exists {
		return fmt.Errorf("constructor already declared for %s", id)
	}

	t.byID[id] = info

	return nil
}

// get retrieves the constructor declared for id
func (t *constructorTable) get(id string) (*constructorInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	info, ok := t.byID[id]

	return info, ok
}
