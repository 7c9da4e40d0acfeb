package state

import (
	"database/sql"
	"math/big"
	"testing"

	"github.com/TEENet-io/tokenbridge/agreement"
	"github.com/TEENet-io/tokenbridge/common"
	"github.com/TEENet-io/tokenbridge/database"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func getMemoryDB(t *testing.T) *sql.DB {
	db, err := database.Open(database.MemoryPath)
	require.NoError(t, err)
	return db
}

func newTestStateDB(t *testing.T) *StateDB {
	sqlDB := getMemoryDB(t)
	db, err := NewStateDB(sqlDB)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
		sqlDB.Close()
	})
	return db
}

func randRequest() *Request {
	return &Request{
		ID:          common.RandBytes32(),
		Chain:       agreement.SideForeign,
		SourceChain: big.NewInt(1),
		TxHash:      common.RandBytes32(),
		LogIndex:    3,
		Sender:      common.RandEthAddress(),
		Recipient:   common.RandEthAddress(),
		Amount:      common.Ether(2),
	}
}

func randMessage() *Message {
	return &Message{
		ID:           common.RandBytes32(),
		Chain:        agreement.SideHome,
		Recipient:    common.RandEthAddress(),
		Amount:       common.Ether(1),
		SourceChain:  big.NewInt(1),
		Status:       agreement.MessageStatusPending,
		SubmitTxHash: ethcommon.Hash(common.RandBytes32()),
	}
}
