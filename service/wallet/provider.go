// Package wallet manages the connection to the signing environment and the
// single ledger network the service operates on. A Session is an explicit
// value with its own lifecycle; nothing in this package is ambient global
// state, so independent sessions can coexist under test.
package wallet

import (
	"context"
	"errors"

	"github.com/pasaporte-animal/go-pasaporte/service/persist"
)

// ErrChainNotConfigured is returned by SwitchChain when the target chain is
// unknown to the signing environment and must be added first.
var ErrChainNotConfigured = errors.New("chain is not known to the signing environment")

// ChainConfig is the fixed, versioned description of a network, used when
// the signing environment does not yet know the required chain.
type ChainConfig struct {
	ChainID           string
	ChainName         string
	CurrencyName      string
	CurrencySymbol    string
	CurrencyDecimals  int
	RPCURLs           []string
	BlockExplorerURLs []string
}

// Provider abstracts the signing environment: account access, the active
// chain, and chain switching. Implementations surface persist.ErrUserCancelled
// when an interactive prompt is declined.
type Provider interface {
	// RequestAccounts prompts for account access and returns the unlocked
	// accounts, primary first.
	RequestAccounts(ctx context.Context) ([]persist.EthereumAddress, error)
	// Accounts returns the already-unlocked accounts without prompting.
	Accounts(ctx context.Context) ([]persist.EthereumAddress, error)
	// ChainID returns the hex chain id the provider is currently on.
	ChainID(ctx context.Context) (string, error)
	// SwitchChain moves the provider to the given chain, returning
	// ErrChainNotConfigured when the chain must be added first.
	SwitchChain(ctx context.Context, chainID string) error
	// AddChain registers a network configuration with the provider.
	AddChain(ctx context.Context, config ChainConfig) error
	// OnAccountsChanged registers a handler invoked when the unlocked
	// account set changes. An empty slice means access was revoked.
	OnAccountsChanged(handler func(accounts []persist.EthereumAddress))
	// OnChainChanged registers a handler invoked when the active chain
	// changes.
	OnChainChanged(handler func(chainID string))
}
