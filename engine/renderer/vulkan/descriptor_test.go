package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotsAreMonotonicPerBinding(t *testing.T) {
	table := NewHostBindlessTable(TableCapacity{CubeSlots: 2, DepthSlots: 3, UISlots: 2})

	var depth []uint32
	for i := 0; i < 3; i++ {
		slot, err := table.AllocateSlot(BindingDepthSamplers)
		require.NoError(t, err)
		depth = append(depth, slot)
	}
	assert.Equal(t, []uint32{0, 1, 2}, depth)

	_, err := table.AllocateSlot(BindingDepthSamplers)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrSlotExhausted))

	// Other bindings have their own counters.
	cube, err := table.AllocateSlot(BindingCubeSamplers)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), cube)
}

func TestSlotCountersAreIndependent(t *testing.T) {
	a := NewSlotCounter(TableCapacity{DepthSlots: 4})
	b := NewSlotCounter(TableCapacity{DepthSlots: 4})
	_, _ = a.Allocate(BindingDepthSamplers)
	_, _ = a.Allocate(BindingDepthSamplers)

	slot, err := b.Allocate(BindingDepthSamplers)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), slot)
}

func TestHostTableWriteChecksRange(t *testing.T) {
	table := NewHostBindlessTable(TableCapacity{CubeSlots: 1, DepthSlots: 1, UISlots: 1})
	assert.NoError(t, table.UpdateSampler2D(nil, nil, 0, 0))
	assert.Panics(t, func() { _ = table.UpdateCube(nil, nil, 0, 1) })

	table.Destroy()
	assert.Panics(t, table.Destroy)
}
