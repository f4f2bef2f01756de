package wallet

import (
	"fmt"

	"github.com/pasaporte-animal/go-pasaporte/service/persist"
)

// AuthorizationDeepLink builds the EIP-681 style URI a compatible signer app
// scans to pre-fill the authorizeVeterinarian call for the given vet, e.g.
//
//	ethereum:0xabc...@0xaa36a7/authorizeVeterinarian?param-0=0xdef...
//
// The configured addresses are interpolated verbatim; EthereumAddress.String
// lowercases, which would break checksummed contract addresses in the link.
func AuthorizationDeepLink(ledgerContract persist.EthereumAddress, chainID string, vet persist.EthereumAddress) string {
	return fmt.Sprintf("ethereum:%s@%s/authorizeVeterinarian?param-0=%s", string(ledgerContract), chainID, string(vet))
}
