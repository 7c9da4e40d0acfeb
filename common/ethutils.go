package common

import (
	"crypto/rand"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Zero-valued address. Used as mint source / burn sink in Transfer events.
var ZeroAddress = ethcommon.Address{}

func RandEthAddress() ethcommon.Address {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return ethcommon.Address{}
	}
	return ethcommon.BytesToAddress(b[:])
}

func IsZeroAddress(addr ethcommon.Address) bool {
	return addr == ZeroAddress
}

// Ether returns n * 10^18, the unit amount of an 18-decimal token.
func Ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}
