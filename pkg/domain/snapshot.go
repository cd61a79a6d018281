package domain

// Snapshot is the persisted layout of the ledger.
type Snapshot struct {
	Tasks        []Task                 `json:"tasks"`
	Partners     []PartnerID            `json:"partners"`
	PartnerTasks map[PartnerID][]uint64 `json:"partner_tasks"`
	Roles        map[Role][]Identity    `json:"roles"`

	// Sealed holds an encrypted snapshot. When set, the other fields are empty.
	Sealed []byte `json:"sealed,omitempty"`
}

// NewSnapshot returns an empty snapshot with initialized maps.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Tasks:        []Task{},
		Partners:     []PartnerID{},
		PartnerTasks: make(map[PartnerID][]uint64),
		Roles:        make(map[Role][]Identity),
	}
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		Tasks:        make([]Task, len(s.Tasks)),
		Partners:     append([]PartnerID{}, s.Partners...),
		PartnerTasks: make(map[PartnerID][]uint64, len(s.PartnerTasks)),
		Roles:        make(map[Role][]Identity, len(s.Roles)),
	}
	if s.Sealed != nil {
		out.Sealed = append([]byte{}, s.Sealed...)
	}
	for i, t := range s.Tasks {
		out.Tasks[i] = t.Clone()
	}
	for p, ids := range s.PartnerTasks {
		out.PartnerTasks[p] = append([]uint64{}, ids...)
	}
	for r, members := range s.Roles {
		out.Roles[r] = append([]Identity{}, members...)
	}
	return out
}
