package wasm

import (
	"context"
	"sync"
)

// Store owns every runtime object created by instantiation: functions,
// memories, tables, globals and segments live here for as long as any
// ModuleInstance referencing them is alive. A Store is not safe for
// concurrent instantiation; the engine it backs runs single-threaded.
type Store struct {
	mu sync.Mutex

	modules map[string]*ModuleInstance
}

func NewStore() *Store {
	return &Store{modules: map[string]*ModuleInstance{}}
}

// Register records mod under name, replacing any prior instance registered
// under the same name; the replaced instance is not closed. An anonymous module (name == "")
// is not registered and so cannot later be looked up or collide.
func (s *Store) Register(name string, mod *ModuleInstance) {
	if name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules[name] = mod
}

func (s *Store) Module(name string) *ModuleInstance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modules[name]
}

// Close releases every registered module instance.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	mods := make([]*ModuleInstance, 0, len(s.modules))
	for _, m := range s.modules {
		mods = append(mods, m)
	}
	s.modules = map[string]*ModuleInstance{}
	s.mu.Unlock()
	for _, m := range mods {
		if err := m.Close(ctx); err != nil {
			return err
		}
	}
	return nil
}
