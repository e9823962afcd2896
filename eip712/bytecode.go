package eip712

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

const (
	bytecodeHashVersion = 1
	maxBytecodeWords    = 1<<16 - 1
)

// HashBytecode returns the versioned hash the L2 uses to identify deployed bytecode:
// sha256(bytecode) with byte 0 set to the version, byte 1 zeroed and bytes 2..3 holding
// the length in 32-byte words.
func HashBytecode(bytecode []byte) (common.Hash, error) {
	if len(bytecode)%32 != 0 {
		return common.Hash{}, fmt.Errorf("bytecode length %d is not a multiple of 32", len(bytecode))
	}
	words := len(bytecode) / 32
	if words > maxBytecodeWords {
		return common.Hash{}, fmt.Errorf("bytecode of %d words is too long", words)
	}
	if words%2 == 0 {
		return common.Hash{}, fmt.Errorf("bytecode length in words must be odd, got %d", words)
	}

	h := common.Hash(sha256.Sum256(bytecode))
	h[0] = bytecodeHashVersion
	h[1] = 0
	binary.BigEndian.PutUint16(h[2:4], uint16(words))
	return h, nil
}
