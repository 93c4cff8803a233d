package confined

import (
	"sort"
	"sync"
	"time"
)

// WorkerInfo is a diagnostic snapshot of a live worker thread.
type WorkerInfo struct {
	// Name is the worker's diagnostic name, including its creator's identity
	Name string

	// Started is when the worker thread began running
	Started time.Time

	// LoopCreated reports whether the worker has created its dispatch loop
	LoopCreated bool
}

var (
	registryMu sync.Mutex
	registry   = make(map[*Thread]struct{})
)

func register(t *Thread) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[t] = struct{}{}
}

func unregister(t *Thread) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, t)
}

// Workers returns a snapshot of all currently live worker threads, sorted by
// name. Intended for post-mortem debugging of leaked or hung workers; a
// healthy process returns an empty slice once all invocations have
// completed.
func Workers() []WorkerInfo {
	registryMu.Lock()
	defer registryMu.Unlock()

	infos := make([]WorkerInfo, 0, len(registry))
	for t := range registry {
		infos = append(infos, WorkerInfo{
			Name:        t.name,
			Started:     t.started,
			LoopCreated: t.LoopCreated(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})

	return infos
}
