package common

import (
	"bytes"
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

// EncodePacked mimics solidity's abi.encodePacked for the value kinds that
// appear in bridge messages. Unsupported kinds are skipped.
func EncodePacked(values ...interface{}) []byte {
	var res [][]byte
	for _, value := range values {
		switch v := value.(type) {
		case string:
			res = append(res, []byte(v))
		case []byte:
			res = append(res, v)
		case [32]byte:
			res = append(res, v[:])
		case uint64:
			res = append(res, encodeUint64(v))
		case *big.Int:
			res = append(res, math.U256Bytes(new(big.Int).Set(v)))
		case []*big.Int:
			res = append(res, encodeBigIntArray(v))
		case common.Hash:
			res = append(res, v[:])
		case []common.Hash:
			res = append(res, encodeHashArray(v))
		case common.Address:
			res = append(res, v.Bytes())
		case []common.Address:
			res = append(res, encodeAddressArray(v))
		}
	}
	return bytes.Join(res, nil)
}

// uint64 is left padded to 32 bytes like uint256.
func encodeUint64(v uint64) []byte {
	b := make([]byte, 32)
	binary.BigEndian.PutUint64(b[24:], v)
	return b
}

func encodeAddressArray(arr []common.Address) []byte {
	var res [][]byte
	for _, v := range arr {
		res = append(res, v.Bytes())
	}

	return bytes.Join(res, nil)
}

func encodeHashArray(arr []common.Hash) []byte {
	var res [][]byte
	for _, v := range arr {
		res = append(res, v[:])
	}

	return bytes.Join(res, nil)
}

func encodeBigIntArray(arr []*big.Int) []byte {
	var res [][]byte
	for _, v := range arr {
		res = append(res, math.U256Bytes(new(big.Int).Set(v)))
	}

	return bytes.Join(res, nil)
}
