package config

import (
	"github.com/ibdsync/ibdsync/domain/chainparams"
	"github.com/pkg/errors"
)

// NetworkFlags holds the network configuration, that is which network is selected.
type NetworkFlags struct {
	Testnet bool `long:"testnet" description:"Use the test network"`
	Regtest bool `long:"regtest" description:"Use the regression test network"`
	Simnet  bool `long:"simnet" description:"Use the simulation test network"`

	ActiveNetParams *chainparams.Params
}

// ResolveNetwork sets ActiveNetParams according to the selected network flag.
// It returns an error if more than one network was selected, and defaults to
// mainnet if none was.
func (networkFlags *NetworkFlags) ResolveNetwork() error {
	networkFlags.ActiveNetParams = chainparams.MainnetParams
	numNets := 0
	if networkFlags.Testnet {
		numNets++
		networkFlags.ActiveNetParams = chainparams.TestnetParams
	}
	if networkFlags.Regtest {
		numNets++
		networkFlags.ActiveNetParams = chainparams.RegtestParams
	}
	if networkFlags.Simnet {
		numNets++
		networkFlags.ActiveNetParams = chainparams.SimnetParams
	}
	if numNets > 1 {
		return errors.New("multiple network parameters (testnet, regtest, simnet) cannot be " +
			"used together. Please choose only one network")
	}
	return nil
}

// NetParams returns the ActiveNetParams
func (networkFlags *NetworkFlags) NetParams() *chainparams.Params {
	return networkFlags.ActiveNetParams
}
