package loaders

import (
	"github.com/cockroachdb/errors"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

var ErrInvalidSPIRV = errors.New("invalid SPIR-V module")

// DecodeSPIRV converts a little-endian SPIR-V blob into words.
func DecodeSPIRV(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, errors.Wrapf(ErrInvalidSPIRV, "size %d is not a positive multiple of 4", len(b))
	}
	code := bytesToBytecode(b)
	if code[0] != SPIRVMagic {
		return nil, errors.Wrapf(ErrInvalidSPIRV, "magic 0x%08x", code[0])
	}
	return code, nil
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}
