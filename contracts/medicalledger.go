package contracts

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// MedicalLedgerABI is the input ABI used to generate the binding from.
const MedicalLedgerABI = `[{"type":"function","name":"agregarRegistroMedico","inputs":[{"name":"chipId","type":"uint256"},{"name":"cid","type":"string"},{"name":"nuevoEstado","type":"uint8"}],"outputs":[],"stateMutability":"nonpayable"},{"type":"function","name":"obtenerHistorialMedico","inputs":[{"name":"chipId","type":"uint256"}],"outputs":[{"name":"","type":"string[]"}],"stateMutability":"view"},{"type":"function","name":"obtenerEstadoSalud","inputs":[{"name":"chipId","type":"uint256"}],"outputs":[{"name":"","type":"uint8"}],"stateMutability":"view"},{"type":"function","name":"authorizeVeterinarian","inputs":[{"name":"vetAddress","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},{"type":"function","name":"revokeVeterinarian","inputs":[{"name":"vetAddress","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},{"type":"function","name":"obtenerVeterinariosAutorizados","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"address[]"}],"stateMutability":"view"},{"type":"function","name":"isVetAuthorized","inputs":[{"name":"owner","type":"address"},{"name":"vetAddress","type":"address"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"view"}]`

// MedicalLedger is the append-only clinical history ledger. Each animal has
// an ordered CID list and a single current health state.
type MedicalLedger struct {
	contract *bind.BoundContract
}

// NewMedicalLedger creates a new instance of MedicalLedger, bound to a
// specific deployed contract.
func NewMedicalLedger(address common.Address, backend bind.ContractBackend) (*MedicalLedger, error) {
	parsed, err := abi.JSON(strings.NewReader(MedicalLedgerABI))
	if err != nil {
		return nil, err
	}
	return &MedicalLedger{contract: bind.NewBoundContract(address, parsed, backend, backend, backend)}, nil
}

// ObtenerHistorialMedico is a free data retrieval call binding the contract
// method obtenerHistorialMedico(uint256).
func (l *MedicalLedger) ObtenerHistorialMedico(opts *bind.CallOpts, chipID *big.Int) ([]string, error) {
	var out []interface{}
	err := l.contract.Call(opts, &out, "obtenerHistorialMedico", chipID)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]string)).(*[]string), nil
}

// ObtenerEstadoSalud is a free data retrieval call binding the contract
// method obtenerEstadoSalud(uint256).
func (l *MedicalLedger) ObtenerEstadoSalud(opts *bind.CallOpts, chipID *big.Int) (uint8, error) {
	var out []interface{}
	err := l.contract.Call(opts, &out, "obtenerEstadoSalud", chipID)
	if err != nil {
		return 0, err
	}
	return *abi.ConvertType(out[0], new(uint8)).(*uint8), nil
}

// ObtenerVeterinariosAutorizados is a free data retrieval call binding the
// contract method obtenerVeterinariosAutorizados(address).
func (l *MedicalLedger) ObtenerVeterinariosAutorizados(opts *bind.CallOpts, owner common.Address) ([]common.Address, error) {
	var out []interface{}
	err := l.contract.Call(opts, &out, "obtenerVeterinariosAutorizados", owner)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]common.Address)).(*[]common.Address), nil
}

// IsVetAuthorized is a free data retrieval call binding the contract method
// isVetAuthorized(address,address).
func (l *MedicalLedger) IsVetAuthorized(opts *bind.CallOpts, owner common.Address, vetAddress common.Address) (bool, error) {
	var out []interface{}
	err := l.contract.Call(opts, &out, "isVetAuthorized", owner, vetAddress)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// AgregarRegistroMedico is a paid mutator transaction binding the contract
// method agregarRegistroMedico(uint256,string,uint8).
func (l *MedicalLedger) AgregarRegistroMedico(opts *bind.TransactOpts, chipID *big.Int, cid string, nuevoEstado uint8) (*types.Transaction, error) {
	return l.contract.Transact(opts, "agregarRegistroMedico", chipID, cid, nuevoEstado)
}

// AuthorizeVeterinarian is a paid mutator transaction binding the contract
// method authorizeVeterinarian(address).
func (l *MedicalLedger) AuthorizeVeterinarian(opts *bind.TransactOpts, vetAddress common.Address) (*types.Transaction, error) {
	return l.contract.Transact(opts, "authorizeVeterinarian", vetAddress)
}

// RevokeVeterinarian is a paid mutator transaction binding the contract
// method revokeVeterinarian(address).
func (l *MedicalLedger) RevokeVeterinarian(opts *bind.TransactOpts, vetAddress common.Address) (*types.Transaction, error) {
	return l.contract.Transact(opts, "revokeVeterinarian", vetAddress)
}
