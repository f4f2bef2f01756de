package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pasaporte-animal/go-pasaporte/service/persist"
)

// NodeProvider is a headless Provider backed by a local signing key and
// direct node connections. It keeps one RPC endpoint per known chain and
// "switches" networks by re-dialing; it never presents interactive prompts,
// so account requests cannot be declined.
type NodeProvider struct {
	mu              sync.Mutex
	key             *ecdsa.PrivateKey
	address         persist.EthereumAddress
	rpcURLs         map[string]string
	currentChainID  string
	client          *ethclient.Client
	accountHandlers []func([]persist.EthereumAddress)
	chainHandlers   []func(string)
}

// NewNodeProvider builds a provider from a hex private key, with the given
// chain preconfigured.
func NewNodeProvider(hexKey string, chain ChainConfig) (*NodeProvider, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid signing key: %w", err)
	}

	p := &NodeProvider{
		key:     key,
		address: persist.EthereumAddress(crypto.PubkeyToAddress(key.PublicKey).Hex()),
		rpcURLs: map[string]string{},
	}
	if len(chain.RPCURLs) > 0 {
		p.rpcURLs[normalizeChainID(chain.ChainID)] = chain.RPCURLs[0]
	}
	return p, nil
}

func (p *NodeProvider) RequestAccounts(ctx context.Context) ([]persist.EthereumAddress, error) {
	return p.Accounts(ctx)
}

func (p *NodeProvider) Accounts(ctx context.Context) ([]persist.EthereumAddress, error) {
	return []persist.EthereumAddress{p.address}, nil
}

func (p *NodeProvider) ChainID(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentChainID, nil
}

func (p *NodeProvider) SwitchChain(ctx context.Context, chainID string) error {
	chainID = normalizeChainID(chainID)

	p.mu.Lock()
	url, ok := p.rpcURLs[chainID]
	p.mu.Unlock()
	if !ok {
		return ErrChainNotConfigured
	}

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return persist.ErrGatewayUnavailable{Err: err}
	}

	nodeChainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return persist.ErrGatewayUnavailable{Err: err}
	}
	if want, _ := chainIDToBig(chainID); want != nil && want.Cmp(nodeChainID) != 0 {
		client.Close()
		return fmt.Errorf("endpoint %s serves chain %s, wanted %s", url, nodeChainID, chainID)
	}

	p.mu.Lock()
	if p.client != nil {
		p.client.Close()
	}
	p.client = client
	p.currentChainID = chainID
	handlers := append([]func(string){}, p.chainHandlers...)
	p.mu.Unlock()

	for _, h := range handlers {
		h(chainID)
	}
	return nil
}

func (p *NodeProvider) AddChain(ctx context.Context, config ChainConfig) error {
	if len(config.RPCURLs) == 0 {
		return fmt.Errorf("chain %s has no RPC endpoint", config.ChainID)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rpcURLs[normalizeChainID(config.ChainID)] = config.RPCURLs[0]
	return nil
}

func (p *NodeProvider) OnAccountsChanged(handler func([]persist.EthereumAddress)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accountHandlers = append(p.accountHandlers, handler)
}

func (p *NodeProvider) OnChainChanged(handler func(string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chainHandlers = append(p.chainHandlers, handler)
}

// Transactor returns keyed signing options for the current chain.
func (p *NodeProvider) Transactor(ctx context.Context) (*bind.TransactOpts, error) {
	p.mu.Lock()
	chainID := p.currentChainID
	p.mu.Unlock()

	asBig, err := chainIDToBig(chainID)
	if err != nil {
		return nil, err
	}
	opts, err := bind.NewKeyedTransactorWithChainID(p.key, asBig)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}

// Client returns the node connection for the chain the provider is currently
// on, nil before the first successful switch.
func (p *NodeProvider) Client() *ethclient.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client
}

func normalizeChainID(chainID string) string {
	return strings.ToLower(strings.TrimSpace(chainID))
}

func chainIDToBig(chainID string) (*big.Int, error) {
	chainID = normalizeChainID(chainID)
	if strings.HasPrefix(chainID, "0x") {
		parsed, err := strconv.ParseUint(strings.TrimPrefix(chainID, "0x"), 16, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id %s: %w", chainID, err)
		}
		return new(big.Int).SetUint64(parsed), nil
	}
	parsed, err := strconv.ParseUint(chainID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chain id %s: %w", chainID, err)
	}
	return new(big.Int).SetUint64(parsed), nil
}
