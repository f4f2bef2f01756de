// Package ipfs is the content store client: pinning through the configured
// pinning service and fetching through the IPFS gateway. Uploads and fetches
// carry no retry policy of their own; retrying is the caller's decision.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/pasaporte-animal/go-pasaporte/env"
	"github.com/pasaporte-animal/go-pasaporte/service/logger"
	"github.com/pasaporte-animal/go-pasaporte/service/persist"
	"github.com/pasaporte-animal/go-pasaporte/service/rpc"

	shell "github.com/ipfs/go-ipfs-api"
)

func init() {
	env.RegisterValidation("PINATA_JWT", "required")
}

const (
	pinFilePath = "/pinning/pinFileToIPFS"
	pinJSONPath = "/pinning/pinJSONToIPFS"
)

// pinResponse is the pinning service's response body. IpfsHash is the CID of
// the pinned content.
type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
	Error    string `json:"error"`
}

// Store is the content store client. The zero value is not usable; construct
// with NewStore.
type Store struct {
	pinBaseURL string
	jwt        string
	httpClient *http.Client
	ipfsClient *shell.Shell
}

// NewStore returns a Store configured from the environment.
func NewStore(httpClient *http.Client, ipfsClient *shell.Shell) *Store {
	return &Store{
		pinBaseURL: env.GetString("PINATA_API_URL"),
		jwt:        env.GetString("PINATA_JWT"),
		httpClient: httpClient,
		ipfsClient: ipfsClient,
	}
}

// PinFile uploads an opaque blob and returns its CID. The store may return an
// existing CID when it already holds identical bytes; callers must not rely
// on that.
func (s *Store) PinFile(ctx context.Context, file io.Reader) (persist.CID, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "file")
	if err != nil {
		return "", persist.ErrStoreUnavailable{Err: err}
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", persist.ErrStoreUnavailable{Err: err}
	}
	if err := writer.Close(); err != nil {
		return "", persist.ErrStoreUnavailable{Err: err}
	}

	return s.pin(ctx, pinFilePath, body, writer.FormDataContentType())
}

// PinJSON serializes v and uploads it as a JSON document, returning its CID.
func (s *Store) PinJSON(ctx context.Context, v interface{}) (persist.CID, error) {
	asJSON, err := json.Marshal(v)
	if err != nil {
		return "", persist.ErrStoreUnavailable{Err: err}
	}
	return s.pin(ctx, pinJSONPath, bytes.NewReader(asJSON), "application/json")
}

func (s *Store) pin(ctx context.Context, path string, body io.Reader, contentType string) (persist.CID, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.pinBaseURL+path, body)
	if err != nil {
		return "", persist.ErrStoreUnavailable{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+s.jwt)
	req.Header.Set("Content-Type", contentType)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", persist.ErrStoreUnavailable{Err: err}
	}
	defer resp.Body.Close()

	var pinned pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&pinned); err != nil {
		return "", persist.ErrStoreUnavailable{Err: err}
	}

	if resp.StatusCode != http.StatusOK || pinned.IpfsHash == "" {
		reason := pinned.Error
		if reason == "" {
			reason = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", persist.ErrStoreUnavailable{Err: fmt.Errorf("pin rejected: %s", reason)}
	}

	logger.For(ctx).Debugf("pinned content at %s", pinned.IpfsHash)
	return persist.CID(pinned.IpfsHash), nil
}

// Fetch retrieves the raw bytes behind a CID through the read path.
func (s *Store) Fetch(ctx context.Context, cid persist.CID) ([]byte, error) {
	data, err := rpc.GetDataFromCID(ctx, cid, s.ipfsClient, s.httpClient)
	if err != nil {
		return nil, persist.ErrStoreUnavailable{Err: err}
	}
	return data, nil
}
