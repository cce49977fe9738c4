package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// Principal is an authenticated caller identity (an account address).
type Principal = common.Address

// ID identifies a store or an item.
type ID = common.Hash

// ZeroPrincipal is the unset address; it never holds a role.
var ZeroPrincipal Principal

// ParsePrincipal parses a 0x-prefixed 20-byte hex address.
func ParsePrincipal(s string) (Principal, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return Principal{}, fmt.Errorf("%w: invalid address %q", ErrInvalidArgument, s)
	}
	return common.HexToAddress(s), nil
}

// ParseID parses a 0x-prefixed 32-byte hex identifier.
func ParseID(s string) (ID, error) {
	b, err := hexutil.Decode(strings.TrimSpace(s))
	if err != nil || len(b) != common.HashLength {
		return ID{}, fmt.Errorf("%w: invalid id %q", ErrInvalidArgument, s)
	}
	return common.BytesToHash(b), nil
}

// ParseAmount parses a non-negative base-10 amount in the smallest currency unit.
func ParseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid amount %q", ErrInvalidArgument, s)
	}
	return v, nil
}
