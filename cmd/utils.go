package cmd

import (
	"fmt"
	"math/big"
	"os"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/TEENet-io/tokenbridge/common"
	"github.com/TEENet-io/tokenbridge/ratelimit"
)

// fileExists checks if a file exists and is readable
func FileExists(filePath string) bool {
	file, err := os.Open(filePath)
	if err != nil {
		return false
	}
	defer file.Close()
	return true
}

func parseAmount(name, s string) (*big.Int, error) {
	v, err := common.DecStrToBigInt(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

func parseAddress(name, s string) (ethcommon.Address, error) {
	addr, err := common.HexStrToAddress(s)
	if err != nil {
		return ethcommon.Address{}, fmt.Errorf("%s: %w", name, err)
	}
	return addr, nil
}

// parsedChain is a ChainConfig with its text fields decoded.
type parsedChain struct {
	chainID    *big.Int
	owner      ethcommon.Address
	validators []ethcommon.Address
	limits     *ratelimit.Limits
	gasPrice   *big.Int
}

func parseChainConfig(side string, cc *ChainConfig) (*parsedChain, error) {
	var (
		p   parsedChain
		err error
	)

	if p.chainID, err = parseAmount(side+" chain id", cc.ChainID); err != nil {
		return nil, err
	}
	if p.owner, err = parseAddress(side+" owner", cc.Owner); err != nil {
		return nil, err
	}
	if p.validators, err = common.HexStrListToAddresses(cc.Validators); err != nil {
		return nil, fmt.Errorf("%s validators: %w", side, err)
	}
	if p.gasPrice, err = parseAmount(side+" gas price", cc.GasPrice); err != nil {
		return nil, err
	}

	p.limits = &ratelimit.Limits{}
	for _, f := range []struct {
		name string
		text string
		dst  **big.Int
	}{
		{"daily limit", cc.DailyLimit, &p.limits.DailyLimit},
		{"max per tx", cc.MaxPerTx, &p.limits.MaxPerTx},
		{"min per tx", cc.MinPerTx, &p.limits.MinPerTx},
		{"execution daily limit", cc.ExecutionDailyLimit, &p.limits.ExecutionDailyLimit},
		{"execution max per tx", cc.ExecutionMaxPerTx, &p.limits.ExecutionMaxPerTx},
	} {
		if *f.dst, err = parseAmount(side+" "+f.name, f.text); err != nil {
			return nil, err
		}
	}

	return &p, nil
}
