package persist

import (
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

const (
	// HealthSano represents a healthy animal
	HealthSano HealthState = 0
	// HealthEnfermo represents a sick animal
	HealthEnfermo HealthState = 1
	// HealthFallecido represents a deceased animal
	HealthFallecido HealthState = 2
)

const (
	// URITypeIPFS represents an IPFS URI
	URITypeIPFS URIType = "ipfs"
	// URITypeHTTP represents an HTTP URI
	URITypeHTTP URIType = "http"
	// URITypeUnknown represents an unknown URI type
	URITypeUnknown URIType = "unknown"
)

// ZeroAddress is the all-zero Ethereum address
const ZeroAddress EthereumAddress = "0x0000000000000000000000000000000000000000"

var addressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// EthereumAddress represents an Ethereum address
type EthereumAddress string

// ChipID is the unique chip identifier of a registered animal, used as the
// ledger's primary key.
type ChipID uint64

// HealthState is the three-valued current health status of an animal. It is
// overwritten on every medical-record append; only the latest value is kept
// on the ledger.
type HealthState uint8

// CID is a content identifier in content-addressed storage.
type CID string

// TokenURI is a content URI stored on the ledger, e.g. "ipfs://Qm...".
type TokenURI string

// URIType represents the type of a TokenURI
type URIType string

// AnimalMetadata is the free-form off-chain metadata document of an animal.
type AnimalMetadata map[string]interface{}

// TxHash is the hash of a submitted ledger transaction.
type TxHash string

func (a EthereumAddress) String() string {
	return strings.ToLower(string(a))
}

// Valid reports whether the address is a canonical 0x-prefixed 20-byte hex
// address.
func (a EthereumAddress) Valid() bool {
	return addressRegex.MatchString(string(a))
}

func (c ChipID) BigInt() *big.Int {
	return new(big.Int).SetUint64(uint64(c))
}

func (c ChipID) String() string {
	return c.BigInt().String()
}

func (h HealthState) String() string {
	switch h {
	case HealthSano:
		return "SANO"
	case HealthEnfermo:
		return "ENFERMO"
	case HealthFallecido:
		return "FALLECIDO"
	default:
		return fmt.Sprintf("HealthState(%d)", uint8(h))
	}
}

// Valid reports whether the state is one of the three known values.
func (h HealthState) Valid() bool {
	return h <= HealthFallecido
}

func (c CID) String() string {
	return string(c)
}

// Type returns the type of the URI
func (uri TokenURI) Type() URIType {
	asString := string(uri)
	switch {
	case strings.HasPrefix(asString, "ipfs://"):
		return URITypeIPFS
	case strings.HasPrefix(asString, "https://"), strings.HasPrefix(asString, "http://"):
		return URITypeHTTP
	default:
		return URITypeUnknown
	}
}

// CID extracts the content identifier from an ipfs:// URI. Returns an error
// for any other scheme; resolution of non-IPFS URIs is not supported.
func (uri TokenURI) CID() (CID, error) {
	if uri.Type() != URITypeIPFS {
		return "", ErrInvalidURI{URI: uri}
	}
	cid := strings.TrimPrefix(string(uri), "ipfs://")
	cid = strings.TrimSuffix(strings.TrimSpace(cid), "/")
	if cid == "" {
		return "", ErrInvalidURI{URI: uri}
	}
	return CID(cid), nil
}

func (uri TokenURI) String() string {
	return string(uri)
}

// NewIPFSTokenURI builds the ipfs:// URI for a CID.
func NewIPFSTokenURI(cid CID) TokenURI {
	return TokenURI(fmt.Sprintf("ipfs://%s", cid))
}

// AnimalAttribute is one trait/value pair in an animal metadata document.
type AnimalAttribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// AnimalProperties is the properties block embedded in an animal metadata
// document, carrying the chip id and the intended owner.
type AnimalProperties struct {
	ChipID       string          `json:"chipId"`
	DuenoAddress EthereumAddress `json:"duenoAddress"`
}

// AnimalDocument is the metadata document pinned at mint time. Immutable once
// pinned; the ledger only ever references it by CID.
type AnimalDocument struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Image       TokenURI          `json:"image"`
	Attributes  []AnimalAttribute `json:"attributes"`
	Properties  AnimalProperties  `json:"properties"`
}

// MedicalRecord is one off-chain clinical record document. Fecha is authored
// from the veterinarian's clock, not ledger block time; the on-ledger CID
// list order is the authoritative chronology.
type MedicalRecord struct {
	ChipID       ChipID          `json:"chipId"`
	Fecha        string          `json:"fecha"`
	Diagnostico  string          `json:"diagnostico"`
	Tratamiento  string          `json:"tratamiento"`
	Medicamentos []string        `json:"medicamentos"`
	Notas        string          `json:"notas"`
	Veterinario  EthereumAddress `json:"veterinario"`
}

// AnimalView is the denormalized merge of the on-ledger fields of one animal
// with its off-chain metadata document.
type AnimalView struct {
	ChipID        ChipID
	EstadoDeSalud HealthState
	Metadata      AnimalMetadata
}

// MarshalJSON spreads the metadata document at the top level with the ledger
// fields merged in, matching the document-plus-ledger shape callers consume.
func (v AnimalView) MarshalJSON() ([]byte, error) {
	merged := make(map[string]interface{}, len(v.Metadata)+2)
	for k, val := range v.Metadata {
		merged[k] = val
	}
	merged["chipId"] = uint64(v.ChipID)
	merged["estadoDeSalud"] = uint8(v.EstadoDeSalud)
	return json.Marshal(merged)
}

// MedicalRecordView is one resolved history entry: the off-chain record with
// its CID merged in.
type MedicalRecordView struct {
	CID CID `json:"cid"`
	MedicalRecord
}
