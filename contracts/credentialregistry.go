// Package contracts holds typed bindings for the three deployed contracts:
// the veterinary credential registry, the animal identity registry, and the
// clinical history ledger. Each binding dispatches through a bound contract
// over the embedded ABI, one method per contract function.
package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// CredentialRegistryABI is the input ABI used to generate the binding from.
const CredentialRegistryABI = `[{"type":"function","name":"habilitarVeterinario","inputs":[{"name":"vet","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},{"type":"function","name":"tieneCredencialValida","inputs":[{"name":"vet","type":"address"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"view"}]`

// CredentialRegistry validates veterinary credentials.
type CredentialRegistry struct {
	contract *bind.BoundContract
}

// NewCredentialRegistry creates a new instance of CredentialRegistry, bound to
// a specific deployed contract.
func NewCredentialRegistry(address common.Address, backend bind.ContractBackend) (*CredentialRegistry, error) {
	parsed, err := abi.JSON(strings.NewReader(CredentialRegistryABI))
	if err != nil {
		return nil, err
	}
	return &CredentialRegistry{contract: bind.NewBoundContract(address, parsed, backend, backend, backend)}, nil
}

// TieneCredencialValida is a free data retrieval call binding the contract
// method tieneCredencialValida(address).
func (r *CredentialRegistry) TieneCredencialValida(opts *bind.CallOpts, vet common.Address) (bool, error) {
	var out []interface{}
	err := r.contract.Call(opts, &out, "tieneCredencialValida", vet)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// HabilitarVeterinario is a paid mutator transaction binding the contract
// method habilitarVeterinario(address).
func (r *CredentialRegistry) HabilitarVeterinario(opts *bind.TransactOpts, vet common.Address) (*types.Transaction, error) {
	return r.contract.Transact(opts, "habilitarVeterinario", vet)
}
