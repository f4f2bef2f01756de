package ledger

import (
	"context"
	"math/big"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/pasaporte-animal/go-pasaporte/service/persist"
	"github.com/pasaporte-animal/go-pasaporte/service/wallet"
)

// fakeBackend satisfies Backend and fails every contract call with callErr.
type fakeBackend struct {
	callErr error
}

func (f *fakeBackend) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x01}, nil
}

func (f *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return nil, f.callErr
}

func (f *fakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{}, nil
}

func (f *fakeBackend) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return []byte{0x01}, nil
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 0, nil
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeBackend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return 21000, nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return nil
}

func (f *fakeBackend) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (f *fakeBackend) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return nil, nil
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

// stubProvider is already on the required chain and holds one account.
type stubProvider struct{}

func (s *stubProvider) RequestAccounts(ctx context.Context) ([]persist.EthereumAddress, error) {
	return s.Accounts(ctx)
}

func (s *stubProvider) Accounts(ctx context.Context) ([]persist.EthereumAddress, error) {
	return []persist.EthereumAddress{"0x1111111111111111111111111111111111111111"}, nil
}

func (s *stubProvider) ChainID(ctx context.Context) (string, error) { return "0xaa36a7", nil }

func (s *stubProvider) SwitchChain(ctx context.Context, chainID string) error { return nil }

func (s *stubProvider) AddChain(ctx context.Context, config wallet.ChainConfig) error { return nil }

func (s *stubProvider) OnAccountsChanged(handler func(accounts []persist.EthereumAddress)) {}

func (s *stubProvider) OnChainChanged(handler func(chainID string)) {}

func newTestGateway(t *testing.T, backend Backend, connect bool) *Gateway {
	t.Helper()
	viper.Set("IDENTITY_REGISTRY_ADDRESS", "0x2ee6AB35f7E07C230c9ec5B770e969EFAcf6B6f9")
	viper.Set("MEDICAL_LEDGER_ADDRESS", "0x7f677dffa0628058909e0d72f5C39b4cdc3Bdb31")
	viper.Set("CREDENTIAL_REGISTRY_ADDRESS", "0xD9E0Bb2Cd4f52d1393A6165bAb9122C4F0B5DA30")

	session := wallet.NewSession(&stubProvider{}, wallet.ChainConfig{ChainID: "0xaa36a7"})
	if connect {
		_, err := session.Connect(context.Background())
		require.NoError(t, err)
	}

	g, err := NewGateway(session, backend)
	require.NoError(t, err)
	return g
}
