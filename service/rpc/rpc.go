// Package rpc holds the raw network clients: the Ethereum JSON-RPC client
// used by the contract bindings and the IPFS read path used to resolve CIDs
// to documents.
package rpc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pasaporte-animal/go-pasaporte/env"
	"github.com/pasaporte-animal/go-pasaporte/service/persist"
	"github.com/pasaporte-animal/go-pasaporte/util"

	"github.com/ethereum/go-ethereum/ethclient"
	shell "github.com/ipfs/go-ipfs-api"
)

func init() {
	env.RegisterValidation("RPC_URL", "required")
}

const defaultHTTPTimeout = time.Second * 30

// ErrHTTP represents an HTTP error with a status code
type ErrHTTP struct {
	URL    string
	Status int
}

func (e ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP error status %d for url %s", e.Status, e.URL)
}

// NewEthClient returns an Ethereum client dialed to the configured RPC
// endpoint. Panics when the endpoint cannot be dialed; the process is useless
// without a ledger connection.
func NewEthClient() *ethclient.Client {
	client, err := ethclient.Dial(env.GetString("RPC_URL"))
	if err != nil {
		panic(err)
	}
	return client
}

// NewIPFSShell returns an IPFS API client when IPFS_API_URL is configured,
// nil otherwise. A nil shell means reads go through the public gateway only.
func NewIPFSShell() *shell.Shell {
	apiURL := env.GetString("IPFS_API_URL")
	if apiURL == "" {
		return nil
	}
	sh := shell.NewShell(apiURL)
	sh.SetTimeout(defaultHTTPTimeout)
	return sh
}

// NewHTTPClient returns the HTTP client used for gateway fetches.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// GatewayURLFor builds the gateway fetch URL for a CID.
func GatewayURLFor(cid persist.CID) string {
	return fmt.Sprintf("%s%s", env.GetString("IPFS_GATEWAY"), cid)
}

// GetDataFromCID fetches the raw bytes behind a CID, preferring the IPFS API
// when a shell is configured and falling back to the configured HTTP gateway.
func GetDataFromCID(ctx context.Context, cid persist.CID, ipfsClient *shell.Shell, httpClient *http.Client) ([]byte, error) {
	if ipfsClient != nil {
		reader, err := ipfsClient.Cat(cid.String())
		if err == nil {
			defer reader.Close()
			return io.ReadAll(reader)
		}
		// fall through to the gateway; the API node may simply not have the
		// block yet
	}

	url := GatewayURLFor(cid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrHTTP{URL: util.TruncateWithEllipsis(url, 100), Status: resp.StatusCode}
	}

	return io.ReadAll(resp.Body)
}
