package domain

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// DeriveID returns the identifier of a new store or item.
//
// The digest is keccak256 over the tightly packed encoding of
// (string name, uint256 index, address creator, uint256 marker), so any
// observer that knows the creator, the name, the assigned index and the
// ledger height the creation was applied at can recompute it.
func DeriveID(name string, index uint64, creator Principal, marker uint64) ID {
	idx := uint256.NewInt(index).Bytes32()
	mk := uint256.NewInt(marker).Bytes32()
	return ethcrypto.Keccak256Hash([]byte(name), idx[:], creator.Bytes(), mk[:])
}
