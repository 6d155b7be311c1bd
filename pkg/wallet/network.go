package wallet

import (
	"fmt"
	"strconv"

	chainsel "github.com/smartcontractkit/chain-selectors"
)

// Network is a TON global id in its wire form ("-239", "-3").
type Network string

const (
	Mainnet Network = "-239"
	Testnet Network = "-3"
)

func ParseNetwork(s string) (Network, error) {
	n := Network(s)
	if !n.Valid() {
		return "", fmt.Errorf("unknown network %q: expected %s or %s", s, Mainnet, Testnet)
	}
	return n, nil
}

func (n Network) Valid() bool {
	return n == Mainnet || n == Testnet
}

func (n Network) ChainID() (int32, error) {
	id, err := strconv.ParseInt(string(n), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid network id %q: %w", n, err)
	}
	return int32(id), nil
}

// Name returns the chain-selectors name, e.g. "ton-mainnet".
func (n Network) Name() string {
	id, err := n.ChainID()
	if err != nil {
		return string(n)
	}
	name, err := chainsel.TonNameFromChainId(id)
	if err != nil {
		return string(n)
	}
	return name
}
