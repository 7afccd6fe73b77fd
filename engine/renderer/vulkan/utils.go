package vulkan

import (
	"fmt"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/lumen/engine/core"
)

var resultNames = map[vk.Result]string{
	vk.Success:                    "VK_SUCCESS",
	vk.NotReady:                   "VK_NOT_READY",
	vk.Timeout:                    "VK_TIMEOUT",
	vk.EventSet:                   "VK_EVENT_SET",
	vk.EventReset:                 "VK_EVENT_RESET",
	vk.Incomplete:                 "VK_INCOMPLETE",
	vk.Suboptimal:                 "VK_SUBOPTIMAL_KHR",
	vk.ErrorOutOfHostMemory:       "VK_ERROR_OUT_OF_HOST_MEMORY",
	vk.ErrorOutOfDeviceMemory:     "VK_ERROR_OUT_OF_DEVICE_MEMORY",
	vk.ErrorInitializationFailed:  "VK_ERROR_INITIALIZATION_FAILED",
	vk.ErrorDeviceLost:            "VK_ERROR_DEVICE_LOST",
	vk.ErrorMemoryMapFailed:       "VK_ERROR_MEMORY_MAP_FAILED",
	vk.ErrorLayerNotPresent:       "VK_ERROR_LAYER_NOT_PRESENT",
	vk.ErrorExtensionNotPresent:   "VK_ERROR_EXTENSION_NOT_PRESENT",
	vk.ErrorFeatureNotPresent:     "VK_ERROR_FEATURE_NOT_PRESENT",
	vk.ErrorIncompatibleDriver:    "VK_ERROR_INCOMPATIBLE_DRIVER",
	vk.ErrorTooManyObjects:        "VK_ERROR_TOO_MANY_OBJECTS",
	vk.ErrorFormatNotSupported:    "VK_ERROR_FORMAT_NOT_SUPPORTED",
	vk.ErrorFragmentedPool:        "VK_ERROR_FRAGMENTED_POOL",
	vk.ErrorSurfaceLost:           "VK_ERROR_SURFACE_LOST_KHR",
	vk.ErrorNativeWindowInUse:     "VK_ERROR_NATIVE_WINDOW_IN_USE_KHR",
	vk.ErrorOutOfDate:             "VK_ERROR_OUT_OF_DATE_KHR",
	vk.ErrorIncompatibleDisplay:   "VK_ERROR_INCOMPATIBLE_DISPLAY_KHR",
	vk.ErrorOutOfPoolMemory:       "VK_ERROR_OUT_OF_POOL_MEMORY",
	vk.ErrorInvalidExternalHandle: "VK_ERROR_INVALID_EXTERNAL_HANDLE",
	vk.ErrorFragmentation:         "VK_ERROR_FRAGMENTATION",
	vk.ErrorInvalidDeviceAddress:  "VK_ERROR_INVALID_DEVICE_ADDRESS",
	vk.ErrorUnknown:               "VK_ERROR_UNKNOWN",
}

// VulkanResultString returns the symbolic name of a result code.
func VulkanResultString(result vk.Result) string {
	if name, ok := resultNames[result]; ok {
		return name
	}
	return fmt.Sprintf("VkResult(%d)", int32(result))
}

// VulkanResultIsSuccess reports whether result is one of the non-error codes.
func VulkanResultIsSuccess(result vk.Result) bool {
	return result >= 0
}

// resultError converts a failed result into an error describing op. Out of
// memory results are marked with core.ErrOutOfMemory, missing features with
// core.ErrFeatureMissing and stale swapchains with core.ErrSwapchainBooting so
// callers can branch on them with errors.Is.
func resultError(result vk.Result, op string) error {
	if result == vk.Success {
		return nil
	}
	err := errors.Newf("%s: %s", op, VulkanResultString(result))
	switch result {
	case vk.ErrorOutOfHostMemory, vk.ErrorOutOfDeviceMemory, vk.ErrorOutOfPoolMemory:
		return errors.Mark(err, core.ErrOutOfMemory)
	case vk.ErrorFeatureNotPresent, vk.ErrorExtensionNotPresent, vk.ErrorLayerNotPresent:
		return errors.Mark(err, core.ErrFeatureMissing)
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return errors.Mark(err, core.ErrSwapchainBooting)
	}
	return err
}

var end = "\x00"
var endChar byte = '\x00'

func VulkanSafeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func VulkanSafeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = VulkanSafeString(list[i])
	}
	return out
}

func FindFirstZeroInByteArray(arr []byte) int {
	for i, b := range arr {
		if b == 0 {
			return i
		}
	}
	return len(arr)
}

// debugName returns name, or a generated one for anonymous resources.
func debugName(kind, name string) string {
	if name != "" {
		return name
	}
	return kind + "-" + uuid.NewString()
}
