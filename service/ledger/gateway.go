// Package ledger is the typed gateway to the three deployed contracts. Reads
// normalize routine absence to neutral defaults; writes return a transaction
// that callers must await to finality before treating the effect as durable.
package ledger

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/pasaporte-animal/go-pasaporte/contracts"
	"github.com/pasaporte-animal/go-pasaporte/env"
	"github.com/pasaporte-animal/go-pasaporte/service/logger"
	"github.com/pasaporte-animal/go-pasaporte/service/persist"
	"github.com/pasaporte-animal/go-pasaporte/service/wallet"
)

func init() {
	env.RegisterValidation("IDENTITY_REGISTRY_ADDRESS", "required")
	env.RegisterValidation("MEDICAL_LEDGER_ADDRESS", "required")
	env.RegisterValidation("CREDENTIAL_REGISTRY_ADDRESS", "required")
}

// ErrNotConnected is returned when a ledger call is attempted without a
// connected session.
var ErrNotConnected = errors.New("session is not connected to the ledger network")

// Backend is the node connection the gateway operates over: contract calls
// plus receipt lookups. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Gateway wraps the contract bindings behind one typed read/write surface.
type Gateway struct {
	session    *wallet.Session
	backend    Backend
	identity   *contracts.IdentityRegistry
	medical    *contracts.MedicalLedger
	credential *contracts.CredentialRegistry
}

// NewGateway binds the three configured contract addresses over the given
// node connection. The session gates every call: the gateway refuses to
// operate while it is not connected.
func NewGateway(session *wallet.Session, backend Backend) (*Gateway, error) {
	identity, err := contracts.NewIdentityRegistry(common.HexToAddress(env.GetString("IDENTITY_REGISTRY_ADDRESS")), backend)
	if err != nil {
		return nil, err
	}
	medical, err := contracts.NewMedicalLedger(common.HexToAddress(env.GetString("MEDICAL_LEDGER_ADDRESS")), backend)
	if err != nil {
		return nil, err
	}
	credential, err := contracts.NewCredentialRegistry(common.HexToAddress(env.GetString("CREDENTIAL_REGISTRY_ADDRESS")), backend)
	if err != nil {
		return nil, err
	}
	return &Gateway{
		session:    session,
		backend:    backend,
		identity:   identity,
		medical:    medical,
		credential: credential,
	}, nil
}

// ----------------------------------------------------------------------------
// Reads

// BalanceOf returns how many animals the owner holds, zero when the owner is
// unknown to the registry.
func (g *Gateway) BalanceOf(ctx context.Context, owner persist.EthereumAddress) (uint64, error) {
	if err := g.ready(); err != nil {
		return 0, err
	}
	balance, err := g.identity.BalanceOf(g.callOpts(ctx), common.HexToAddress(owner.String()))
	if err != nil {
		if isRevert(err) {
			return 0, nil
		}
		return 0, persist.ErrGatewayUnavailable{Err: err}
	}
	if balance == nil {
		return 0, nil
	}
	return balance.Uint64(), nil
}

// ChipOfOwnerByIndex returns the owner's chip id at the given enumeration
// index.
func (g *Gateway) ChipOfOwnerByIndex(ctx context.Context, owner persist.EthereumAddress, index uint64) (persist.ChipID, error) {
	if err := g.ready(); err != nil {
		return 0, err
	}
	id, err := g.identity.TokenOfOwnerByIndex(g.callOpts(ctx), common.HexToAddress(owner.String()), new(big.Int).SetUint64(index))
	if err != nil {
		return 0, persist.ErrGatewayUnavailable{Err: err}
	}
	return persist.ChipID(id.Uint64()), nil
}

// TokenURI returns the content URI pinned at mint for the given chip id.
func (g *Gateway) TokenURI(ctx context.Context, chipID persist.ChipID) (persist.TokenURI, error) {
	if err := g.ready(); err != nil {
		return "", err
	}
	uri, err := g.identity.TokenURI(g.callOpts(ctx), chipID.BigInt())
	if err != nil {
		if isRevert(err) {
			return "", nil
		}
		return "", persist.ErrGatewayUnavailable{Err: err}
	}
	return persist.TokenURI(uri), nil
}

// MedicalHistory returns the ordered CID list for an animal. An animal with
// no records yields an empty list, never an error.
func (g *Gateway) MedicalHistory(ctx context.Context, chipID persist.ChipID) ([]persist.CID, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}
	raw, err := g.medical.ObtenerHistorialMedico(g.callOpts(ctx), chipID.BigInt())
	if err != nil {
		if isRevert(err) {
			return []persist.CID{}, nil
		}
		return nil, persist.ErrGatewayUnavailable{Err: err}
	}
	cids := make([]persist.CID, 0, len(raw))
	for _, cid := range raw {
		if cid == "" {
			continue
		}
		cids = append(cids, persist.CID(cid))
	}
	return cids, nil
}

// HealthState returns the current health state of an animal, defaulting to
// SANO for unknown animals or out-of-range values.
func (g *Gateway) HealthState(ctx context.Context, chipID persist.ChipID) (persist.HealthState, error) {
	if err := g.ready(); err != nil {
		return persist.HealthSano, err
	}
	raw, err := g.medical.ObtenerEstadoSalud(g.callOpts(ctx), chipID.BigInt())
	if err != nil {
		if isRevert(err) {
			return persist.HealthSano, nil
		}
		return persist.HealthSano, persist.ErrGatewayUnavailable{Err: err}
	}
	state := persist.HealthState(raw)
	if !state.Valid() {
		logger.For(ctx).Warnf("ledger returned out-of-range health state %d for chip %d", raw, chipID)
		return persist.HealthSano, nil
	}
	return state, nil
}

// AuthorizedVets returns the set of veterinarians the owner has authorized.
func (g *Gateway) AuthorizedVets(ctx context.Context, owner persist.EthereumAddress) ([]persist.EthereumAddress, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}
	raw, err := g.medical.ObtenerVeterinariosAutorizados(g.callOpts(ctx), common.HexToAddress(owner.String()))
	if err != nil {
		if isRevert(err) {
			return []persist.EthereumAddress{}, nil
		}
		return nil, persist.ErrGatewayUnavailable{Err: err}
	}
	vets := make([]persist.EthereumAddress, 0, len(raw))
	for _, addr := range raw {
		vets = append(vets, persist.EthereumAddress(addr.Hex()))
	}
	return vets, nil
}

// IsVetAuthorized reports whether owner has authorized vet.
func (g *Gateway) IsVetAuthorized(ctx context.Context, owner, vet persist.EthereumAddress) (bool, error) {
	if err := g.ready(); err != nil {
		return false, err
	}
	authorized, err := g.medical.IsVetAuthorized(g.callOpts(ctx), common.HexToAddress(owner.String()), common.HexToAddress(vet.String()))
	if err != nil {
		if isRevert(err) {
			return false, nil
		}
		return false, persist.ErrGatewayUnavailable{Err: err}
	}
	return authorized, nil
}

// HasValidCredential reports whether vet holds a valid credential in the
// credential registry.
func (g *Gateway) HasValidCredential(ctx context.Context, vet persist.EthereumAddress) (bool, error) {
	if err := g.ready(); err != nil {
		return false, err
	}
	valid, err := g.credential.TieneCredencialValida(g.callOpts(ctx), common.HexToAddress(vet.String()))
	if err != nil {
		if isRevert(err) {
			return false, nil
		}
		return false, persist.ErrGatewayUnavailable{Err: err}
	}
	return valid, nil
}

// ----------------------------------------------------------------------------
// Writes

// Mint registers a new animal under the given owner with its metadata and
// first-record CIDs. Uniqueness of the chip id is enforced by the ledger;
// the write is not durable until AwaitFinality succeeds.
func (g *Gateway) Mint(ctx context.Context, to persist.EthereumAddress, chipID persist.ChipID, animalCid, firstReportCid persist.CID) (*types.Transaction, error) {
	opts, err := g.transactOpts(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := g.identity.Mint(opts, common.HexToAddress(to.String()), chipID.BigInt(), animalCid.String(), firstReportCid.String())
	if err != nil {
		return nil, classifyWriteErr(err)
	}
	return tx, nil
}

// SetOwnerEnabled flips the enablement flag gating an owner address.
func (g *Gateway) SetOwnerEnabled(ctx context.Context, owner persist.EthereumAddress, enabled bool) (*types.Transaction, error) {
	opts, err := g.transactOpts(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := g.identity.SetOwnerEnabled(opts, common.HexToAddress(owner.String()), enabled)
	if err != nil {
		return nil, classifyWriteErr(err)
	}
	return tx, nil
}

// Transfer moves an animal between owners.
func (g *Gateway) Transfer(ctx context.Context, from, to persist.EthereumAddress, chipID persist.ChipID) (*types.Transaction, error) {
	opts, err := g.transactOpts(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := g.identity.TransferFrom(opts, common.HexToAddress(from.String()), common.HexToAddress(to.String()), chipID.BigInt())
	if err != nil {
		return nil, classifyWriteErr(err)
	}
	return tx, nil
}

// AppendMedicalRecord appends a record CID to an animal's history and
// overwrites its current health state.
func (g *Gateway) AppendMedicalRecord(ctx context.Context, chipID persist.ChipID, cid persist.CID, state persist.HealthState) (*types.Transaction, error) {
	opts, err := g.transactOpts(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := g.medical.AgregarRegistroMedico(opts, chipID.BigInt(), cid.String(), uint8(state))
	if err != nil {
		return nil, classifyWriteErr(err)
	}
	return tx, nil
}

// AuthorizeVet grants vet read-and-write access over the caller's animals.
func (g *Gateway) AuthorizeVet(ctx context.Context, vet persist.EthereumAddress) (*types.Transaction, error) {
	opts, err := g.transactOpts(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := g.medical.AuthorizeVeterinarian(opts, common.HexToAddress(vet.String()))
	if err != nil {
		return nil, classifyWriteErr(err)
	}
	return tx, nil
}

// RevokeVet revokes a previously granted authorization.
func (g *Gateway) RevokeVet(ctx context.Context, vet persist.EthereumAddress) (*types.Transaction, error) {
	opts, err := g.transactOpts(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := g.medical.RevokeVeterinarian(opts, common.HexToAddress(vet.String()))
	if err != nil {
		return nil, classifyWriteErr(err)
	}
	return tx, nil
}

// EnableVeterinarian registers vet as a credentialed veterinarian in the
// credential registry. Restricted on-ledger to the registry admin.
func (g *Gateway) EnableVeterinarian(ctx context.Context, vet persist.EthereumAddress) (*types.Transaction, error) {
	opts, err := g.transactOpts(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := g.credential.HabilitarVeterinario(opts, common.HexToAddress(vet.String()))
	if err != nil {
		return nil, classifyWriteErr(err)
	}
	return tx, nil
}

// AwaitFinality blocks until the transaction is mined and returns its hash.
// Submission acceptance alone never implies durability; a mined receipt with
// a failed status surfaces as ErrLedgerRejected.
func (g *Gateway) AwaitFinality(ctx context.Context, tx *types.Transaction) (persist.TxHash, error) {
	receipt, err := bind.WaitMined(ctx, g.backend, tx)
	if err != nil {
		return "", persist.ErrGatewayUnavailable{Err: err}
	}
	hash := persist.TxHash(tx.Hash().Hex())
	if receipt.Status == types.ReceiptStatusFailed {
		return "", persist.ErrLedgerRejected{TxHash: hash}
	}
	return hash, nil
}

func (g *Gateway) ready() error {
	if !g.session.Connected() {
		return ErrNotConnected
	}
	return nil
}

func (g *Gateway) callOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx}
}

func (g *Gateway) transactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}
	opts, err := g.session.TransactOpts(ctx)
	if err != nil {
		return nil, err
	}
	return opts, nil
}

// isRevert reports whether err looks like an on-ledger execution revert, the
// normal signal for "nothing there" on these contracts.
func isRevert(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "revert") || strings.Contains(msg, "invalid opcode")
}

// classifyWriteErr maps a raw submission error onto the error taxonomy: a
// declined signer prompt, an on-ledger revert, or a transport failure.
func classifyWriteErr(err error) error {
	var cancelled persist.ErrUserCancelled
	if errors.As(err, &cancelled) {
		return cancelled
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user denied"), strings.Contains(msg, "user rejected"), strings.Contains(msg, "cancelled"):
		return persist.ErrUserCancelled{}
	case isRevert(err):
		return persist.ErrLedgerRejected{Reason: err.Error()}
	default:
		return persist.ErrGatewayUnavailable{Err: err}
	}
}
