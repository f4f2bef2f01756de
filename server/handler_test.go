package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	// Handler-level validation runs before any client is touched, so the
	// zero Clients value is enough for these cases.
	return handlersInit(gin.New(), &Clients{})
}

func TestAliveEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/alive", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetAnimalsRejectsMalformedOwner(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/animals?owner=banana", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAnimalsRequiresOwner(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/animals", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryRejectsNonNumericChipID(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/animals/not-a-chip/history", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransferRequiresDestination(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/animals/5/transfer", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetOwnerEnabledRequiresExplicitFlag(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/owners/enabled", strings.NewReader(`{"owner":"0x1111111111111111111111111111111111111111"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnableVetRequiresAddress(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/vets/enable", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthorizationDeepLink(t *testing.T) {
	viper.Set("MEDICAL_LEDGER_ADDRESS", "0x7f677dffa0628058909e0d72f5C39b4cdc3Bdb31")
	viper.Set("CHAIN_ID", "0xaa36a7")
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/vets/0x2222222222222222222222222222222222222222/deeplink", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body deepLinkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t,
		"ethereum:0x7f677dffa0628058909e0d72f5C39b4cdc3Bdb31@0xaa36a7/authorizeVeterinarian?param-0=0x2222222222222222222222222222222222222222",
		body.DeepLink)
}
