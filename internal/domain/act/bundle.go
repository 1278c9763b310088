package act

import (
	"github.com/google/uuid"

	"github.com/erp/gs1bridge/internal/domain/entity"
)

// Bundle is an ordered set of acts committed as a single all-or-nothing unit.
// Materials created while building the bundle are committed with it.
type Bundle struct {
	Acts      []*Act
	Materials []*entity.Material
	index     map[uuid.UUID]int
}

// NewBundle creates an empty bundle
func NewBundle() *Bundle {
	return &Bundle{index: make(map[uuid.UUID]int)}
}

// Add appends an act. Re-adding an act with the same ID keeps its original
// position and replaces the stored pointer.
func (b *Bundle) Add(a *Act) {
	if b.index == nil {
		b.index = make(map[uuid.UUID]int)
	}
	if i, ok := b.index[a.ID]; ok {
		b.Acts[i] = a
		return
	}
	b.index[a.ID] = len(b.Acts)
	b.Acts = append(b.Acts, a)
}

// Get returns the act with id if it is part of the bundle
func (b *Bundle) Get(id uuid.UUID) (*Act, bool) {
	i, ok := b.index[id]
	if !ok {
		return nil, false
	}
	return b.Acts[i], true
}

// AddMaterial records a newly created material
func (b *Bundle) AddMaterial(m *entity.Material) {
	b.Materials = append(b.Materials, m)
}

// IsEmpty reports whether there is nothing to commit
func (b *Bundle) IsEmpty() bool {
	return len(b.Acts) == 0 && len(b.Materials) == 0
}
