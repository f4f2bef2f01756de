package persist

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEthereumAddressValid(t *testing.T) {
	assert.True(t, EthereumAddress("0x9a3f9764b21adaf3c6fdf6f947e6d3340a3f8ac5").Valid())
	assert.True(t, ZeroAddress.Valid())
	assert.False(t, EthereumAddress("0x123").Valid())
	assert.False(t, EthereumAddress("9a3f9764b21adaf3c6fdf6f947e6d3340a3f8ac5").Valid())
	assert.False(t, EthereumAddress("0x9a3f9764b21adaf3c6fdf6f947e6d3340a3f8ag5").Valid())
	assert.False(t, EthereumAddress("").Valid())
}

func TestTokenURICID(t *testing.T) {
	cid, err := TokenURI("ipfs://QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG").CID()
	require.NoError(t, err)
	assert.Equal(t, CID("QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"), cid)

	_, err = TokenURI("https://example.com/meta.json").CID()
	assert.Error(t, err)

	_, err = TokenURI("ipfs://").CID()
	assert.Error(t, err)

	_, err = TokenURI("").CID()
	assert.Error(t, err)
}

func TestNewIPFSTokenURI(t *testing.T) {
	uri := NewIPFSTokenURI("Qa")
	assert.Equal(t, TokenURI("ipfs://Qa"), uri)
	assert.Equal(t, URITypeIPFS, uri.Type())
}

func TestHealthState(t *testing.T) {
	assert.Equal(t, "SANO", HealthSano.String())
	assert.Equal(t, "ENFERMO", HealthEnfermo.String())
	assert.Equal(t, "FALLECIDO", HealthFallecido.String())
	assert.True(t, HealthFallecido.Valid())
	assert.False(t, HealthState(3).Valid())
}

func TestAnimalViewMarshalMergesLedgerFields(t *testing.T) {
	view := AnimalView{
		ChipID:        7,
		EstadoDeSalud: HealthEnfermo,
		Metadata: AnimalMetadata{
			"name":        "Luna",
			"description": "CANINA - Labrador",
		},
	}

	raw, err := json.Marshal(view)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "Luna", out["name"])
	assert.Equal(t, float64(7), out["chipId"])
	assert.Equal(t, float64(1), out["estadoDeSalud"])
}
