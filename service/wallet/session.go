package wallet

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/pasaporte-animal/go-pasaporte/service/logger"
	"github.com/pasaporte-animal/go-pasaporte/service/persist"
)

const (
	// StateDisconnected is the resting state; no account is bound.
	StateDisconnected State = iota
	// StateConnecting means a connect or network setup is in flight.
	StateConnecting
	// StateConnected means an account is bound and the provider is on the
	// required chain. Ledger calls are only valid in this state.
	StateConnected
	// StateNetworkMismatch means the provider drifted to another chain
	// after connecting; a new Connect is needed before further calls.
	StateNetworkMismatch
)

// State is the connectivity state of a Session.
type State int

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateNetworkMismatch:
		return "network-mismatch"
	default:
		return "unknown"
	}
}

// Transactor is implemented by providers that can sign ledger transactions.
type Transactor interface {
	Transactor(ctx context.Context) (*bind.TransactOpts, error)
}

// Session binds one signing identity to one required ledger network.
type Session struct {
	mu       sync.Mutex
	provider Provider
	required ChainConfig
	state    State
	account  persist.EthereumAddress
}

// NewSession returns a disconnected session over the given provider,
// subscribed to its account and chain change events. provider may be nil,
// in which case every connect attempt reports ErrProviderUnavailable.
func NewSession(provider Provider, required ChainConfig) *Session {
	s := &Session{provider: provider, required: required, state: StateDisconnected}
	if provider != nil {
		provider.OnAccountsChanged(s.handleAccountsChanged)
		provider.OnChainChanged(s.handleChainChanged)
	}
	return s
}

// EnsureNetwork makes sure the provider is on the required chain. It is a
// no-op when already there; otherwise it requests a switch, adding the fixed
// network configuration and retrying the switch once when the chain is
// unknown. Both attempts failing yields ErrNetworkSetupFailed.
func (s *Session) EnsureNetwork(ctx context.Context) error {
	if s.provider == nil {
		return persist.ErrProviderUnavailable{}
	}

	current, err := s.provider.ChainID(ctx)
	if err == nil && chainIDsEqual(current, s.required.ChainID) {
		return nil
	}

	if err := s.provider.SwitchChain(ctx, s.required.ChainID); err == nil {
		return nil
	} else if !errors.Is(err, ErrChainNotConfigured) {
		return persist.ErrNetworkSetupFailed{ChainID: s.required.ChainID, Err: err}
	}

	logger.For(ctx).Infof("chain %s unknown to provider, adding %s", s.required.ChainID, s.required.ChainName)
	if err := s.provider.AddChain(ctx, s.required); err != nil {
		return persist.ErrNetworkSetupFailed{ChainID: s.required.ChainID, Err: err}
	}
	if err := s.provider.SwitchChain(ctx, s.required.ChainID); err != nil {
		return persist.ErrNetworkSetupFailed{ChainID: s.required.ChainID, Err: err}
	}
	return nil
}

// Connect ensures the required network, requests account access, and binds
// the primary account. A declined prompt surfaces as ErrUserCancelled.
func (s *Session) Connect(ctx context.Context) (persist.EthereumAddress, error) {
	if s.provider == nil {
		return "", persist.ErrProviderUnavailable{}
	}

	s.setState(StateConnecting)

	if err := s.EnsureNetwork(ctx); err != nil {
		s.setState(StateDisconnected)
		return "", err
	}

	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		s.setState(StateDisconnected)
		return "", err
	}
	if len(accounts) == 0 {
		s.setState(StateDisconnected)
		return "", persist.ErrUserCancelled{}
	}

	s.mu.Lock()
	s.account = accounts[0]
	s.state = StateConnected
	s.mu.Unlock()

	logger.For(ctx).Infof("session connected as %s on chain %s", accounts[0], s.required.ChainID)
	return accounts[0], nil
}

// Disconnect drops the bound account and returns to the resting state.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = ""
	s.state = StateDisconnected
}

// State returns the current connectivity state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connected reports whether ledger calls are currently valid.
func (s *Session) Connected() bool {
	return s.State() == StateConnected
}

// Account returns the bound signing identity. ok is false unless the
// session is connected.
func (s *Session) Account() (persist.EthereumAddress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account, s.state == StateConnected
}

// TransactOpts returns signing options for a ledger write. Only valid while
// connected; the gateway never signs on a session that is not.
func (s *Session) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	if !s.Connected() {
		return nil, persist.ErrProviderUnavailable{}
	}
	transactor, ok := s.provider.(Transactor)
	if !ok {
		return nil, persist.ErrProviderUnavailable{}
	}
	return transactor.Transactor(ctx)
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *Session) handleAccountsChanged(accounts []persist.EthereumAddress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(accounts) == 0 {
		s.account = ""
		s.state = StateDisconnected
		return
	}
	// identity follows the provider without a full reconnect
	s.account = accounts[0]
}

func (s *Session) handleChainChanged(chainID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state == StateConnected && !chainIDsEqual(chainID, s.required.ChainID):
		s.state = StateNetworkMismatch
	case s.state == StateNetworkMismatch && chainIDsEqual(chainID, s.required.ChainID):
		s.state = StateConnected
	}
}

func chainIDsEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
