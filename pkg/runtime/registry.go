package runtime

import (
	"sync"

	"github.com/coney-io/coney/pkg/types"
)

// registry is the engine's concurrent container bookkeeping: the
// primary id -> state map plus a node -> container-ids index. The two
// structures are kept consistent under one lock, and critical sections
// contain only map operations -- no I/O or command execution happens
// while the lock is held.
type registry struct {
	mu         sync.RWMutex
	containers map[string]*types.ContainerState
	byNode     map[string][]string
}

func newRegistry() *registry {
	return &registry{
		containers: make(map[string]*types.ContainerState),
		byNode:     make(map[string][]string),
	}
}

// initNode ensures an (initially empty) index entry exists for the node
func (r *registry) initNode(nodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byNode[nodeID]; !ok {
		r.byNode[nodeID] = []string{}
	}
}

// insert records a freshly created container under its node
func (r *registry) insert(state *types.ContainerState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.containers[state.ID] = state
	r.byNode[state.NodeID] = append(r.byNode[state.NodeID], state.ID)
}

// get returns a copy of the container's cached state
func (r *registry) get(containerID string) (types.ContainerState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.containers[containerID]
	if !ok {
		return types.ContainerState{}, false
	}
	return *state, true
}

// setStatus updates the cached status; unknown ids are ignored
func (r *registry) setStatus(containerID, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if state, ok := r.containers[containerID]; ok {
		state.Status = status
	}
}

// remove erases the container from the primary map and the node index.
// Removing an unknown id returns ok=false and changes nothing, so a
// second remove never fails at the bookkeeping level.
func (r *registry) remove(containerID string) (types.ContainerState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.containers[containerID]
	if !ok {
		return types.ContainerState{}, false
	}

	delete(r.containers, containerID)

	ids := r.byNode[state.NodeID]
	for i, id := range ids {
		if id == containerID {
			r.byNode[state.NodeID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}

	return *state, true
}

// idsForNode returns the container ids indexed under the node, in
// insertion order
func (r *registry) idsForNode(nodeID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byNode[nodeID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

func (r *registry) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.containers)
}
