// Package registry maintains the set of authorized partners and the per-partner task index.
//
// Partners are kept in a dense slice plus an id-to-slot map. Removal swaps the
// removed member with the last one and pops, so positional reads (At) are NOT
// stable across removals. Membership tests are.
package registry

import (
	"fmt"

	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
)

// Registry is not safe for concurrent use; the ledger serializes access.
type Registry struct {
	partners []domain.PartnerID
	slots    map[domain.PartnerID]int
	tasks    map[domain.PartnerID][]uint64
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		slots: make(map[domain.PartnerID]int),
		tasks: make(map[domain.PartnerID][]uint64),
	}
}

// Add inserts id. Adding an existing member is a no-op and returns false.
func (r *Registry) Add(id domain.PartnerID) bool {
	if _, ok := r.slots[id]; ok {
		return false
	}
	r.slots[id] = len(r.partners)
	r.partners = append(r.partners, id)
	return true
}

// Remove deletes id with swap-and-pop and clears its task index.
// Returns false if id was not a member.
func (r *Registry) Remove(id domain.PartnerID) bool {
	slot, ok := r.slots[id]
	if !ok {
		return false
	}
	last := len(r.partners) - 1
	if slot != last {
		moved := r.partners[last]
		r.partners[slot] = moved
		r.slots[moved] = slot
	}
	r.partners = r.partners[:last]
	delete(r.slots, id)
	delete(r.tasks, id)
	return true
}

// Contains reports whether id is a registered partner.
func (r *Registry) Contains(id domain.PartnerID) bool {
	_, ok := r.slots[id]
	return ok
}

// At returns the partner at the given position.
func (r *Registry) At(index uint64) (domain.PartnerID, error) {
	if index >= uint64(len(r.partners)) {
		return "", fmt.Errorf("%w: partner index %d, size %d", domain.ErrIndexOutOfRange, index, len(r.partners))
	}
	return r.partners[index], nil
}

// Len returns the number of registered partners.
func (r *Registry) Len() int {
	return len(r.partners)
}

// AppendTask records taskID under partner.
func (r *Registry) AppendTask(partner domain.PartnerID, taskID uint64) {
	r.tasks[partner] = append(r.tasks[partner], taskID)
}

// PopTask drops the last task id recorded under partner.
// It undoes AppendTask when an operation is reverted.
func (r *Registry) PopTask(partner domain.PartnerID) {
	ids := r.tasks[partner]
	if len(ids) == 0 {
		return
	}
	if len(ids) == 1 {
		delete(r.tasks, partner)
		return
	}
	r.tasks[partner] = ids[:len(ids)-1]
}

// Tasks returns a copy of the task ids recorded under partner.
// The result is empty, never nil, for unknown or removed partners.
func (r *Registry) Tasks(partner domain.PartnerID) []uint64 {
	return append([]uint64{}, r.tasks[partner]...)
}

// Members returns a copy of the partner set in positional order.
func (r *Registry) Members() []domain.PartnerID {
	return append([]domain.PartnerID{}, r.partners...)
}

// Export copies the registry into snap.
func (r *Registry) Export(snap *domain.Snapshot) {
	snap.Partners = r.Members()
	snap.PartnerTasks = make(map[domain.PartnerID][]uint64, len(r.tasks))
	for p, ids := range r.tasks {
		snap.PartnerTasks[p] = append([]uint64{}, ids...)
	}
}

// Restore replaces the registry contents from snap.
func (r *Registry) Restore(snap *domain.Snapshot) {
	r.partners = nil
	r.slots = make(map[domain.PartnerID]int, len(snap.Partners))
	r.tasks = make(map[domain.PartnerID][]uint64, len(snap.PartnerTasks))
	for _, p := range snap.Partners {
		r.Add(p)
	}
	for p, ids := range snap.PartnerTasks {
		if len(ids) > 0 {
			r.tasks[p] = append([]uint64{}, ids...)
		}
	}
}
