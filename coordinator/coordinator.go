// Package coordinator drives the multi-step write flows: validate locally,
// pin content, submit the ledger transaction, and await finality. Local
// validation always runs before the first network call, so a malformed input
// never costs an upload or a signer prompt.
package coordinator

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/pasaporte-animal/go-pasaporte/service/logger"
	"github.com/pasaporte-animal/go-pasaporte/service/persist"
)

// Phase is where a write flow currently stands. Failed keeps the error that
// ended the flow; every new operation starts back at Uploading or Submitting.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseUploading
	PhaseSubmitting
	PhaseAwaitingFinality
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseUploading:
		return "uploading"
	case PhaseSubmitting:
		return "submitting"
	case PhaseAwaitingFinality:
		return "awaiting_finality"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Connector is the slice of the wallet session the coordinator needs: an
// on-demand connect and the active signing identity.
type Connector interface {
	Connect(ctx context.Context) (persist.EthereumAddress, error)
	Connected() bool
	Account() (persist.EthereumAddress, bool)
}

// ContentStore pins content and returns the CID it is addressable under.
type ContentStore interface {
	PinFile(ctx context.Context, file io.Reader) (persist.CID, error)
	PinJSON(ctx context.Context, v interface{}) (persist.CID, error)
}

// LedgerWriter is the write half of the ledger gateway.
type LedgerWriter interface {
	Mint(ctx context.Context, to persist.EthereumAddress, chipID persist.ChipID, animalCid, firstReportCid persist.CID) (*types.Transaction, error)
	SetOwnerEnabled(ctx context.Context, owner persist.EthereumAddress, enabled bool) (*types.Transaction, error)
	Transfer(ctx context.Context, from, to persist.EthereumAddress, chipID persist.ChipID) (*types.Transaction, error)
	AppendMedicalRecord(ctx context.Context, chipID persist.ChipID, cid persist.CID, state persist.HealthState) (*types.Transaction, error)
	AuthorizeVet(ctx context.Context, vet persist.EthereumAddress) (*types.Transaction, error)
	RevokeVet(ctx context.Context, vet persist.EthereumAddress) (*types.Transaction, error)
	EnableVeterinarian(ctx context.Context, vet persist.EthereumAddress) (*types.Transaction, error)
	AwaitFinality(ctx context.Context, tx *types.Transaction) (persist.TxHash, error)
}

// operation tracks one write flow's progress. Each flow gets its own handle,
// so a slow or failing flow never rewrites the status of one started after it.
type operation struct {
	mu    sync.Mutex
	phase Phase
	err   error
}

func (o *operation) setPhase(ctx context.Context, phase Phase) {
	o.mu.Lock()
	o.phase = phase
	o.mu.Unlock()
	logger.For(ctx).Debugf("coordinator phase: %s", phase)
}

func (o *operation) fail(err error) error {
	o.mu.Lock()
	o.phase = PhaseFailed
	o.err = err
	o.mu.Unlock()
	return err
}

func (o *operation) snapshot() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Status{Phase: o.phase, Err: o.err}
}

// Coordinator sequences the write flows over the session, the content store,
// and the ledger gateway.
type Coordinator struct {
	session Connector
	store   ContentStore
	ledger  LedgerWriter

	mu      sync.Mutex
	current *operation

	now func() time.Time
}

func New(session Connector, store ContentStore, ledger LedgerWriter) *Coordinator {
	return &Coordinator{
		session: session,
		store:   store,
		ledger:  ledger,
		now:     time.Now,
	}
}

// begin starts a new operation and makes it the one Status reports on.
func (c *Coordinator) begin() *operation {
	op := &operation{phase: PhaseIdle}
	c.mu.Lock()
	c.current = op
	c.mu.Unlock()
	return op
}

// Phase returns where the most recently started write flow stands.
func (c *Coordinator) Phase() Phase {
	return c.Status().Phase
}

// LastError returns the error that moved the most recent flow to PhaseFailed,
// nil otherwise.
func (c *Coordinator) LastError() error {
	return c.Status().Err
}

// Status is a point-in-time snapshot of the most recently started flow.
type Status struct {
	Phase Phase
	Err   error
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	op := c.current
	c.mu.Unlock()
	if op == nil {
		return Status{Phase: PhaseIdle}
	}
	return op.snapshot()
}

// MintInput is everything needed to register one animal.
type MintInput struct {
	ChipID          persist.ChipID
	Nombre          string
	Especie         string
	Raza            string
	FechaNacimiento string
	Color           string
	Caracteristicas string
	// Dueno is the address the asset is minted to. Empty means the connected
	// account.
	Dueno  persist.EthereumAddress
	Imagen io.Reader
}

func (in MintInput) validate() error {
	if in.Imagen == nil {
		return persist.ErrValidation{Reason: "la foto del animal es obligatoria"}
	}
	if in.ChipID == 0 {
		return persist.ErrValidation{Reason: "chip id is required"}
	}
	if in.Nombre == "" {
		return persist.ErrValidation{Reason: "nombre is required"}
	}
	if in.Dueno != "" && !in.Dueno.Valid() {
		return persist.ErrValidation{Reason: fmt.Sprintf("invalid owner address: %s", in.Dueno)}
	}
	return nil
}

// MintAnimal runs the full registration flow: pin the image, pin the metadata
// document referencing it, pin the automatic first medical record, submit the
// mint carrying both CIDs, and await finality. Chip-id uniqueness is enforced
// by the ledger and surfaces as ErrLedgerRejected.
func (c *Coordinator) MintAnimal(ctx context.Context, in MintInput) (persist.TxHash, error) {
	op := c.begin()
	if err := in.validate(); err != nil {
		return "", op.fail(err)
	}

	account, err := c.ensureConnected(ctx)
	if err != nil {
		return "", op.fail(err)
	}
	owner := in.Dueno
	if owner == "" {
		owner = account
	}

	op.setPhase(ctx, PhaseUploading)
	imageCid, err := c.store.PinFile(ctx, in.Imagen)
	if err != nil {
		return "", op.fail(err)
	}

	document := persist.AnimalDocument{
		Name:        in.Nombre,
		Description: fmt.Sprintf("%s - %s", in.Especie, in.Raza),
		Image:       persist.NewIPFSTokenURI(imageCid),
		Attributes: []persist.AnimalAttribute{
			{TraitType: "Especie", Value: in.Especie},
			{TraitType: "Raza", Value: in.Raza},
			{TraitType: "Fecha de Nacimiento", Value: in.FechaNacimiento},
			{TraitType: "Color", Value: in.Color},
			{TraitType: "Características", Value: in.Caracteristicas},
		},
		Properties: persist.AnimalProperties{
			ChipID:       in.ChipID.String(),
			DuenoAddress: owner,
		},
	}
	documentCid, err := c.store.PinJSON(ctx, document)
	if err != nil {
		return "", op.fail(err)
	}

	firstRecord := persist.MedicalRecord{
		ChipID:       in.ChipID,
		Fecha:        c.now().Format(time.RFC3339),
		Diagnostico:  "Se registro el animal en la blockchain.",
		Tratamiento:  "Se le asigno un chip de identificación.",
		Medicamentos: []string{},
		Notas:        "Registro inicial automático.",
		Veterinario:  account,
	}
	firstRecordCid, err := c.store.PinJSON(ctx, firstRecord)
	if err != nil {
		return "", op.fail(err)
	}

	op.setPhase(ctx, PhaseSubmitting)
	tx, err := c.ledger.Mint(ctx, owner, in.ChipID, documentCid, firstRecordCid)
	if err != nil {
		return "", op.fail(err)
	}
	return c.await(ctx, op, tx)
}

// RecordInput is one clinical entry authored by the connected veterinarian.
type RecordInput struct {
	ChipID       persist.ChipID
	Diagnostico  string
	Tratamiento  string
	Medicamentos []string
	Notas        string
	NuevoEstado  persist.HealthState
}

func (in RecordInput) validate() error {
	if in.ChipID == 0 {
		return persist.ErrValidation{Reason: "chip id is required"}
	}
	if in.Diagnostico == "" {
		return persist.ErrValidation{Reason: "diagnostico is required"}
	}
	if !in.NuevoEstado.Valid() {
		return persist.ErrValidation{Reason: fmt.Sprintf("invalid health state: %d", in.NuevoEstado)}
	}
	return nil
}

// AddMedicalRecord pins the record document and appends its CID to the
// animal's history, overwriting the current health state. The fecha field is
// stamped from the local clock at pin time; ledger order remains the
// authoritative chronology.
func (c *Coordinator) AddMedicalRecord(ctx context.Context, in RecordInput) (persist.TxHash, error) {
	op := c.begin()
	if err := in.validate(); err != nil {
		return "", op.fail(err)
	}

	account, err := c.ensureConnected(ctx)
	if err != nil {
		return "", op.fail(err)
	}

	medicamentos := in.Medicamentos
	if medicamentos == nil {
		medicamentos = []string{}
	}
	record := persist.MedicalRecord{
		ChipID:       in.ChipID,
		Fecha:        c.now().Format(time.RFC3339),
		Diagnostico:  in.Diagnostico,
		Tratamiento:  in.Tratamiento,
		Medicamentos: medicamentos,
		Notas:        in.Notas,
		Veterinario:  account,
	}

	op.setPhase(ctx, PhaseUploading)
	cid, err := c.store.PinJSON(ctx, record)
	if err != nil {
		return "", op.fail(err)
	}

	op.setPhase(ctx, PhaseSubmitting)
	tx, err := c.ledger.AppendMedicalRecord(ctx, in.ChipID, cid, in.NuevoEstado)
	if err != nil {
		return "", op.fail(err)
	}
	return c.await(ctx, op, tx)
}

// Transfer moves an animal from the connected account to another owner. The
// destination address is validated locally before anything is submitted.
func (c *Coordinator) Transfer(ctx context.Context, to persist.EthereumAddress, chipID persist.ChipID) (persist.TxHash, error) {
	op := c.begin()
	if !to.Valid() {
		return "", op.fail(persist.ErrValidation{Reason: fmt.Sprintf("invalid destination address: %s", to)})
	}
	if chipID == 0 {
		return "", op.fail(persist.ErrValidation{Reason: "chip id is required"})
	}

	account, err := c.ensureConnected(ctx)
	if err != nil {
		return "", op.fail(err)
	}

	op.setPhase(ctx, PhaseSubmitting)
	tx, err := c.ledger.Transfer(ctx, account, to, chipID)
	if err != nil {
		return "", op.fail(err)
	}
	return c.await(ctx, op, tx)
}

// AuthorizeVet grants the veterinarian write access over the connected
// account's animals.
func (c *Coordinator) AuthorizeVet(ctx context.Context, vet persist.EthereumAddress) (persist.TxHash, error) {
	return c.singleStep(ctx, vet, c.ledger.AuthorizeVet)
}

// RevokeVet revokes a previously granted authorization.
func (c *Coordinator) RevokeVet(ctx context.Context, vet persist.EthereumAddress) (persist.TxHash, error) {
	return c.singleStep(ctx, vet, c.ledger.RevokeVet)
}

// EnableVet registers the veterinarian in the credential registry. The ledger
// restricts this to the registry admin; anyone else gets ErrLedgerRejected.
func (c *Coordinator) EnableVet(ctx context.Context, vet persist.EthereumAddress) (persist.TxHash, error) {
	return c.singleStep(ctx, vet, c.ledger.EnableVeterinarian)
}

// SetOwnerEnabled flips the enablement flag for an owner address.
func (c *Coordinator) SetOwnerEnabled(ctx context.Context, owner persist.EthereumAddress, enabled bool) (persist.TxHash, error) {
	op := c.begin()
	if !owner.Valid() {
		return "", op.fail(persist.ErrValidation{Reason: fmt.Sprintf("invalid owner address: %s", owner)})
	}
	if _, err := c.ensureConnected(ctx); err != nil {
		return "", op.fail(err)
	}

	op.setPhase(ctx, PhaseSubmitting)
	tx, err := c.ledger.SetOwnerEnabled(ctx, owner, enabled)
	if err != nil {
		return "", op.fail(err)
	}
	return c.await(ctx, op, tx)
}

func (c *Coordinator) singleStep(ctx context.Context, addr persist.EthereumAddress, submit func(context.Context, persist.EthereumAddress) (*types.Transaction, error)) (persist.TxHash, error) {
	op := c.begin()
	if !addr.Valid() {
		return "", op.fail(persist.ErrValidation{Reason: fmt.Sprintf("invalid address: %s", addr)})
	}
	if _, err := c.ensureConnected(ctx); err != nil {
		return "", op.fail(err)
	}

	op.setPhase(ctx, PhaseSubmitting)
	tx, err := submit(ctx, addr)
	if err != nil {
		return "", op.fail(err)
	}
	return c.await(ctx, op, tx)
}

// ensureConnected connects on demand so callers never have to run an explicit
// connect flow first.
func (c *Coordinator) ensureConnected(ctx context.Context) (persist.EthereumAddress, error) {
	if account, ok := c.session.Account(); ok && c.session.Connected() {
		return account, nil
	}
	return c.session.Connect(ctx)
}

func (c *Coordinator) await(ctx context.Context, op *operation, tx *types.Transaction) (persist.TxHash, error) {
	op.setPhase(ctx, PhaseAwaitingFinality)
	hash, err := c.ledger.AwaitFinality(ctx, tx)
	if err != nil {
		return "", op.fail(err)
	}
	op.setPhase(ctx, PhaseDone)
	return hash, nil
}
