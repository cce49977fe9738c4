package domain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestDeriveID_MatchesPackedKeccak(t *testing.T) {
	creator := common.HexToAddress("0x1111111111111111111111111111111111111111")

	got := DeriveID("Test Name", 1, creator, 5)

	require.Equal(t,
		common.HexToHash("0x1421434bfeecc1390efc8003ab1e44fa742b181725784e4ace894e3d9923ce92"),
		got)
}

func TestDeriveID_EveryInputMatters(t *testing.T) {
	a := common.HexToAddress("0x1111111111111111111111111111111111111111")
	b := common.HexToAddress("0x2222222222222222222222222222222222222222")

	base := DeriveID("Test Name", 0, a, 5)
	require.Equal(t,
		common.HexToHash("0x2e35007df30233dd87bbf16f8ab8d9751251d6f205ea68236b04ebb2b478e317"),
		base)

	require.NotEqual(t, base, DeriveID("Test Name 2", 0, a, 5))
	require.NotEqual(t, base, DeriveID("Test Name", 1, a, 5))
	require.NotEqual(t, base, DeriveID("Test Name", 0, b, 5))
	require.NotEqual(t, base, DeriveID("Test Name", 0, a, 6))
	require.Equal(t, base, DeriveID("Test Name", 0, a, 5))
}

func TestParseHelpers(t *testing.T) {
	addr, err := ParsePrincipal("0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0x1111111111111111111111111111111111111111"), addr)

	_, err = ParsePrincipal("0x1234")
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ParseID("0x1421434bfeecc1390efc8003ab1e44fa742b181725784e4ace894e3d9923ce92")
	require.NoError(t, err)

	_, err = ParseID("1421434b")
	require.ErrorIs(t, err, ErrInvalidArgument)

	v, err := ParseAmount("500000000000000000")
	require.NoError(t, err)
	require.Equal(t, "500000000000000000", v.Dec())

	_, err = ParseAmount("-1")
	require.ErrorIs(t, err, ErrInvalidArgument)
}
