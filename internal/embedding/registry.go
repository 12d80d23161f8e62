package embedding

import "sync"

// The provider behind a model identifier is expensive to set up, so the
// process keeps one instance per identifier. Shared initializes a model
// exactly once; later calls return the existing instance.
var (
	registryMu sync.Mutex
	registry   = make(map[string]Provider)
)

func Shared(model string, opts Options) (Provider, error) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if p, ok := registry[model]; ok {
		return p, nil
	}

	p, err := NewOpenAIProvider(model, opts)
	if err != nil {
		return nil, err
	}
	registry[model] = p

	return p, nil
}

// ResetShared clears the registry. Intended for tests.
func ResetShared() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Provider)
}
