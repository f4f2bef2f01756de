package contracts

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// IdentityRegistryABI is the input ABI used to generate the binding from.
const IdentityRegistryABI = `[{"type":"function","name":"mint","inputs":[{"name":"to","type":"address"},{"name":"chipId","type":"uint256"},{"name":"animalCid","type":"string"},{"name":"firstReportCid","type":"string"}],"outputs":[],"stateMutability":"nonpayable"},{"type":"function","name":"setOwnerEnabled","inputs":[{"name":"owner","type":"address"},{"name":"enabled","type":"bool"}],"outputs":[],"stateMutability":"nonpayable"},{"type":"function","name":"transferFrom","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},{"type":"function","name":"balanceOf","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},{"type":"function","name":"tokenOfOwnerByIndex","inputs":[{"name":"owner","type":"address"},{"name":"index","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},{"type":"function","name":"tokenURI","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}],"stateMutability":"view"}]`

// IdentityRegistry is the ERC-721 style registry of animal identities, keyed
// by chip id.
type IdentityRegistry struct {
	contract *bind.BoundContract
}

// NewIdentityRegistry creates a new instance of IdentityRegistry, bound to a
// specific deployed contract.
func NewIdentityRegistry(address common.Address, backend bind.ContractBackend) (*IdentityRegistry, error) {
	parsed, err := abi.JSON(strings.NewReader(IdentityRegistryABI))
	if err != nil {
		return nil, err
	}
	return &IdentityRegistry{contract: bind.NewBoundContract(address, parsed, backend, backend, backend)}, nil
}

// BalanceOf is a free data retrieval call binding the contract method
// balanceOf(address).
func (r *IdentityRegistry) BalanceOf(opts *bind.CallOpts, owner common.Address) (*big.Int, error) {
	var out []interface{}
	err := r.contract.Call(opts, &out, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// TokenOfOwnerByIndex is a free data retrieval call binding the contract
// method tokenOfOwnerByIndex(address,uint256).
func (r *IdentityRegistry) TokenOfOwnerByIndex(opts *bind.CallOpts, owner common.Address, index *big.Int) (*big.Int, error) {
	var out []interface{}
	err := r.contract.Call(opts, &out, "tokenOfOwnerByIndex", owner, index)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// TokenURI is a free data retrieval call binding the contract method
// tokenURI(uint256).
func (r *IdentityRegistry) TokenURI(opts *bind.CallOpts, tokenID *big.Int) (string, error) {
	var out []interface{}
	err := r.contract.Call(opts, &out, "tokenURI", tokenID)
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

// Mint is a paid mutator transaction binding the contract method
// mint(address,uint256,string,string).
func (r *IdentityRegistry) Mint(opts *bind.TransactOpts, to common.Address, chipID *big.Int, animalCid string, firstReportCid string) (*types.Transaction, error) {
	return r.contract.Transact(opts, "mint", to, chipID, animalCid, firstReportCid)
}

// SetOwnerEnabled is a paid mutator transaction binding the contract method
// setOwnerEnabled(address,bool).
func (r *IdentityRegistry) SetOwnerEnabled(opts *bind.TransactOpts, owner common.Address, enabled bool) (*types.Transaction, error) {
	return r.contract.Transact(opts, "setOwnerEnabled", owner, enabled)
}

// TransferFrom is a paid mutator transaction binding the contract method
// transferFrom(address,address,uint256).
func (r *IdentityRegistry) TransferFrom(opts *bind.TransactOpts, from common.Address, to common.Address, tokenID *big.Int) (*types.Transaction, error) {
	return r.contract.Transact(opts, "transferFrom", from, to, tokenID)
}
