package vulkan

import (
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allQueues = DeviceRequirements{Graphics: true, Present: true, Compute: true, Transfer: true}

func flags(bits ...vk.QueueFlagBits) vk.QueueFlags {
	var f vk.QueueFlags
	for _, b := range bits {
		f |= vk.QueueFlags(b)
	}
	return f
}

func TestSelectQueueFamiliesSingleUniversalFamily(t *testing.T) {
	families := []queueFamily{
		{flags: flags(vk.QueueGraphicsBit, vk.QueueComputeBit, vk.QueueTransferBit), present: true},
	}
	info, err := selectQueueFamilies(families, allQueues)
	require.NoError(t, err)
	assert.Equal(t, QueueFamilyInfo{}, info)
}

func TestSelectQueueFamiliesPrefersDedicatedQueues(t *testing.T) {
	families := []queueFamily{
		{flags: flags(vk.QueueGraphicsBit, vk.QueueComputeBit, vk.QueueTransferBit), present: true},
		{flags: flags(vk.QueueComputeBit, vk.QueueTransferBit), present: false},
		{flags: flags(vk.QueueTransferBit), present: false},
	}
	info, err := selectQueueFamilies(families, allQueues)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), info.GraphicsFamilyIndex)
	assert.Equal(t, uint32(0), info.PresentFamilyIndex)
	assert.Equal(t, uint32(1), info.ComputeFamilyIndex)
	assert.Equal(t, uint32(2), info.TransferFamilyIndex)
}

func TestSelectQueueFamiliesPresentPrefersGraphicsFamily(t *testing.T) {
	families := []queueFamily{
		{flags: flags(vk.QueueComputeBit), present: true},
		{flags: flags(vk.QueueGraphicsBit, vk.QueueComputeBit), present: true},
	}
	info, err := selectQueueFamilies(families, allQueues)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), info.GraphicsFamilyIndex)
	assert.Equal(t, uint32(1), info.PresentFamilyIndex)
	assert.Equal(t, uint32(0), info.ComputeFamilyIndex)
}

func TestSelectQueueFamiliesMissingRole(t *testing.T) {
	families := []queueFamily{
		{flags: flags(vk.QueueGraphicsBit, vk.QueueComputeBit, vk.QueueTransferBit), present: false},
	}
	_, err := selectQueueFamilies(families, allQueues)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrQueueFamilyMissing))
	assert.Contains(t, err.Error(), "present")

	_, err = selectQueueFamilies(families, DeviceRequirements{Graphics: true, Compute: true, Transfer: true})
	assert.NoError(t, err)
}

var fullFeatures = DeviceFeatures{
	SamplerAnisotropy:                      true,
	ShaderInt64:                            true,
	ShaderSampledImageArrayDynamicIndexing: true,
	BufferDeviceAddress:                    true,
	DescriptorIndexing:                     true,
	SampledImageUpdateAfterBind:            true,
	UpdateUnusedWhilePending:               true,
	PartiallyBound:                         true,
	RuntimeDescriptorArray:                 true,
	SampledImageArrayNonUniformIndexing:    true,
	SeparateDepthStencilLayouts:            true,
	DynamicRendering:                       true,
	Synchronization2:                       true,
}

func TestCheckDeviceFeatures(t *testing.T) {
	without := func(edit func(f *DeviceFeatures)) DeviceFeatures {
		f := fullFeatures
		edit(&f)
		return f
	}
	cases := []struct {
		name     string
		features DeviceFeatures
		req      DeviceRequirements
		missing  []string
	}{
		{name: "all present", features: fullFeatures, req: allQueues},
		{
			name:     "no buffer device address",
			features: without(func(f *DeviceFeatures) { f.BufferDeviceAddress = false }),
			req:      allQueues,
			missing:  []string{"bufferDeviceAddress"},
		},
		{
			name: "no dynamic rendering or sync2",
			features: without(func(f *DeviceFeatures) {
				f.DynamicRendering = false
				f.Synchronization2 = false
			}),
			req:     allQueues,
			missing: []string{"dynamicRendering", "synchronization2"},
		},
		{
			name:     "no separate depth stencil layouts",
			features: without(func(f *DeviceFeatures) { f.SeparateDepthStencilLayouts = false }),
			req:      allQueues,
			missing:  []string{"separateDepthStencilLayouts"},
		},
		{
			name:     "partially bound descriptors",
			features: without(func(f *DeviceFeatures) { f.PartiallyBound = false }),
			req:      allQueues,
			missing:  []string{"descriptorBindingPartiallyBound"},
		},
		{name: "mesh shader optional", features: fullFeatures, req: allQueues},
		{
			name:     "mesh shader required",
			features: fullFeatures,
			req:      DeviceRequirements{Graphics: true, MeshShading: true},
			missing:  []string{"meshShader"},
		},
		{
			name:     "mesh shader present",
			features: without(func(f *DeviceFeatures) { f.MeshShader = true }),
			req:      DeviceRequirements{Graphics: true, MeshShading: true},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := checkDeviceFeatures(tc.features, tc.req)
			if len(tc.missing) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrFeatureMissing))
			for _, name := range tc.missing {
				assert.Contains(t, err.Error(), name)
			}
			assert.Equal(t, len(tc.missing), strings.Count(err.Error(), ",")+1)
		})
	}
}

func TestCheckSampleCounts(t *testing.T) {
	upTo8 := vk.SampleCountFlags(vk.SampleCount1Bit | vk.SampleCount2Bit | vk.SampleCount4Bit | vk.SampleCount8Bit)
	upTo4 := vk.SampleCountFlags(vk.SampleCount1Bit | vk.SampleCount2Bit | vk.SampleCount4Bit)

	assert.NoError(t, checkSampleCounts(upTo8, upTo8, 8))
	assert.NoError(t, checkSampleCounts(upTo4, upTo4, 4))
	assert.NoError(t, checkSampleCounts(0, 0, 1))

	err := checkSampleCounts(upTo8, upTo4, 8)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrFeatureMissing))
	assert.Contains(t, err.Error(), "8x MSAA")
	assert.Error(t, checkSampleCounts(upTo4, upTo8, 8))
}
