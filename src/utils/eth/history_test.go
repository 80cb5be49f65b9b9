package eth

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestSubmitClaimCalldata(t *testing.T) {
	dapp := common.HexToAddress("0x70ac08179605AF2D9e75782b8DEcDD3c22aA4D0C")
	claim := HistoryClaim{
		EpochHash:  common.HexToHash("0x1234"),
		FirstIndex: big.NewInt(10),
		LastIndex:  big.NewInt(19),
	}

	data, err := PackSubmitClaim(dapp, claim)
	require.Nil(t, err)
	require.Equal(t, AuthorityABI.Methods[SubmitClaimMethod].ID, data[:4])

	gotDApp, gotClaim, err := UnpackSubmitClaim(data)
	require.Nil(t, err)
	require.Equal(t, dapp, gotDApp)
	require.Equal(t, claim.EpochHash, gotClaim.EpochHash)
	require.Equal(t, 0, claim.FirstIndex.Cmp(gotClaim.FirstIndex))
	require.Equal(t, 0, claim.LastIndex.Cmp(gotClaim.LastIndex))
}

func TestUnpackSubmitClaimGarbage(t *testing.T) {
	_, _, err := UnpackSubmitClaim([]byte{1, 2})
	require.ErrorIs(t, err, ErrInvalidClaimData)

	_, _, err = UnpackSubmitClaim([]byte{0xde, 0xad, 0xbe, 0xef, 0})
	require.ErrorIs(t, err, ErrInvalidClaimData)
}

func TestClaimLog(t *testing.T) {
	history := common.HexToAddress("0x01")
	dapp := common.HexToAddress("0x02")
	claim := HistoryClaim{
		EpochHash:  common.HexToHash("0xabcd"),
		FirstIndex: big.NewInt(0),
		LastIndex:  big.NewInt(5),
	}

	log, err := PackClaimLog(history, dapp, claim)
	require.Nil(t, err)
	log.BlockNumber = 7

	// Log matches the query used to search for claims
	query := ClaimsQuery(history, dapp, 0, 10)
	require.Equal(t, query.Topics[0][0], log.Topics[0])
	require.Equal(t, query.Topics[1][0], log.Topics[1])

	out, err := UnpackClaimLog(&log)
	require.Nil(t, err)
	require.Equal(t, dapp, out.DApp)
	require.Equal(t, uint64(7), out.BlockNumber)
	require.Equal(t, claim.EpochHash, out.Claim.EpochHash)
	require.Equal(t, int64(5), out.Claim.LastIndex.Int64())

	log.Topics = log.Topics[:1]
	_, err = UnpackClaimLog(&log)
	require.ErrorIs(t, err, ErrInvalidClaimLog)
}

func TestLoadPrivateKey(t *testing.T) {
	// Well known development key
	_, address, err := LoadPrivateKey("0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	require.Nil(t, err)
	require.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), address)

	_, _, err = LoadPrivateKey("not a key")
	require.ErrorIs(t, err, ErrInvalidPrivateKey)
}
