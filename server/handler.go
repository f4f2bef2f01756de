package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pasaporte-animal/go-pasaporte/coordinator"
	"github.com/pasaporte-animal/go-pasaporte/env"
	"github.com/pasaporte-animal/go-pasaporte/service/persist"
	"github.com/pasaporte-animal/go-pasaporte/service/wallet"
	"github.com/pasaporte-animal/go-pasaporte/util"
)

func handlersInit(router *gin.Engine, clients *Clients) *gin.Engine {
	router.GET("/alive", util.HealthCheckHandler())

	animals := router.Group("/animals")
	animals.GET("", getAnimals(clients))
	animals.POST("", mintAnimal(clients))
	animals.GET("/:chipID/history", getMedicalHistory(clients))
	animals.POST("/:chipID/records", addMedicalRecord(clients))
	animals.POST("/:chipID/transfer", transferAnimal(clients))

	vets := router.Group("/vets")
	vets.GET("", getAuthorizedVets(clients))
	vets.POST("/authorize", authorizeVet(clients))
	vets.POST("/revoke", revokeVet(clients))
	vets.POST("/enable", enableVet(clients))
	vets.GET("/:address/credential", getVetCredential(clients))
	vets.GET("/:address/deeplink", getAuthorizationDeepLink())

	router.POST("/owners/enabled", setOwnerEnabled(clients))
	router.GET("/status", getStatus(clients))

	return router
}

type statusResponse struct {
	Phase string `json:"phase"`
	Error string `json:"error,omitempty"`
}

func getStatus(clients *Clients) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := clients.Coordinator.Status()
		resp := statusResponse{Phase: status.Phase.String()}
		if status.Err != nil {
			resp.Error = status.Err.Error()
		}
		c.JSON(http.StatusOK, resp)
	}
}

type txResponse struct {
	TxHash persist.TxHash `json:"txHash"`
}

type ownerQuery struct {
	Owner persist.EthereumAddress `form:"owner" binding:"required"`
}

func getAnimals(clients *Clients) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input ownerQuery
		if err := c.ShouldBindQuery(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}
		if !input.Owner.Valid() {
			util.ErrResponse(c, http.StatusBadRequest, util.ErrInvalidInput{Reason: "owner must be a 0x address"})
			return
		}

		views := clients.Aggregator.ListOwnedAnimals(c.Request.Context(), input.Owner)
		c.JSON(http.StatusOK, views)
	}
}

func getMedicalHistory(clients *Clients) gin.HandlerFunc {
	return func(c *gin.Context) {
		chipID, err := parseChipID(c)
		if err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		records, err := clients.Aggregator.ResolveMedicalHistory(c.Request.Context(), chipID)
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, records)
	}
}

type mintInput struct {
	ChipID          uint64                  `form:"chipId" binding:"required"`
	Nombre          string                  `form:"nombre" binding:"required"`
	Especie         string                  `form:"especie" binding:"required"`
	Raza            string                  `form:"raza"`
	FechaNacimiento string                  `form:"fechaNacimiento"`
	Color           string                  `form:"color"`
	Caracteristicas string                  `form:"caracteristicas"`
	Dueno           persist.EthereumAddress `form:"duenoAddress"`
}

func mintAnimal(clients *Clients) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input mintInput
		if err := c.ShouldBind(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		in := coordinator.MintInput{
			ChipID:          persist.ChipID(input.ChipID),
			Nombre:          input.Nombre,
			Especie:         input.Especie,
			Raza:            input.Raza,
			FechaNacimiento: input.FechaNacimiento,
			Color:           input.Color,
			Caracteristicas: input.Caracteristicas,
			Dueno:           input.Dueno,
		}

		// The image arrives as a multipart part; the coordinator treats a
		// missing one as a validation failure before anything is pinned.
		if file, err := c.FormFile("imagen"); err == nil {
			opened, err := file.Open()
			if err != nil {
				util.ErrResponse(c, http.StatusBadRequest, err)
				return
			}
			defer opened.Close()
			in.Imagen = opened
		}

		hash, err := clients.Coordinator.MintAnimal(c.Request.Context(), in)
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, txResponse{TxHash: hash})
	}
}

type recordInput struct {
	Diagnostico  string   `json:"diagnostico" binding:"required"`
	Tratamiento  string   `json:"tratamiento"`
	Medicamentos []string `json:"medicamentos"`
	Notas        string   `json:"notas"`
	NuevoEstado  uint8    `json:"nuevoEstado"`
}

func addMedicalRecord(clients *Clients) gin.HandlerFunc {
	return func(c *gin.Context) {
		chipID, err := parseChipID(c)
		if err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		var input recordInput
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		hash, err := clients.Coordinator.AddMedicalRecord(c.Request.Context(), coordinator.RecordInput{
			ChipID:       chipID,
			Diagnostico:  input.Diagnostico,
			Tratamiento:  input.Tratamiento,
			Medicamentos: input.Medicamentos,
			Notas:        input.Notas,
			NuevoEstado:  persist.HealthState(input.NuevoEstado),
		})
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, txResponse{TxHash: hash})
	}
}

type transferInput struct {
	To persist.EthereumAddress `json:"to" binding:"required"`
}

func transferAnimal(clients *Clients) gin.HandlerFunc {
	return func(c *gin.Context) {
		chipID, err := parseChipID(c)
		if err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		var input transferInput
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		hash, err := clients.Coordinator.Transfer(c.Request.Context(), input.To, chipID)
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, txResponse{TxHash: hash})
	}
}

func getAuthorizedVets(clients *Clients) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input ownerQuery
		if err := c.ShouldBindQuery(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		vets, err := clients.Gateway.AuthorizedVets(c.Request.Context(), input.Owner)
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, vets)
	}
}

type vetInput struct {
	Vet persist.EthereumAddress `json:"vet" binding:"required"`
}

func authorizeVet(clients *Clients) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input vetInput
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		hash, err := clients.Coordinator.AuthorizeVet(c.Request.Context(), input.Vet)
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, txResponse{TxHash: hash})
	}
}

func revokeVet(clients *Clients) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input vetInput
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		hash, err := clients.Coordinator.RevokeVet(c.Request.Context(), input.Vet)
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, txResponse{TxHash: hash})
	}
}

// enableVet registers a veterinarian in the credential registry. The ledger
// only accepts this from the registry admin account.
func enableVet(clients *Clients) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input vetInput
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		hash, err := clients.Coordinator.EnableVet(c.Request.Context(), input.Vet)
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, txResponse{TxHash: hash})
	}
}

type credentialResponse struct {
	Vet   persist.EthereumAddress `json:"vet"`
	Valid bool                    `json:"valid"`
}

func getVetCredential(clients *Clients) gin.HandlerFunc {
	return func(c *gin.Context) {
		vet := persist.EthereumAddress(c.Param("address"))
		if !vet.Valid() {
			util.ErrResponse(c, http.StatusBadRequest, util.ErrInvalidInput{Reason: "address must be a 0x address"})
			return
		}

		valid, err := clients.Gateway.HasValidCredential(c.Request.Context(), vet)
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, credentialResponse{Vet: vet, Valid: valid})
	}
}

type deepLinkResponse struct {
	DeepLink string `json:"deepLink"`
}

func getAuthorizationDeepLink() gin.HandlerFunc {
	return func(c *gin.Context) {
		vet := persist.EthereumAddress(c.Param("address"))
		if !vet.Valid() {
			util.ErrResponse(c, http.StatusBadRequest, util.ErrInvalidInput{Reason: "address must be a 0x address"})
			return
		}

		link := wallet.AuthorizationDeepLink(
			persist.EthereumAddress(env.GetString("MEDICAL_LEDGER_ADDRESS")),
			env.GetString("CHAIN_ID"),
			vet,
		)
		c.JSON(http.StatusOK, deepLinkResponse{DeepLink: link})
	}
}

type ownerEnabledInput struct {
	Owner   persist.EthereumAddress `json:"owner" binding:"required"`
	Enabled *bool                   `json:"enabled" binding:"required"`
}

func setOwnerEnabled(clients *Clients) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input ownerEnabledInput
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		hash, err := clients.Coordinator.SetOwnerEnabled(c.Request.Context(), input.Owner, *input.Enabled)
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, txResponse{TxHash: hash})
	}
}

func parseChipID(c *gin.Context) (persist.ChipID, error) {
	raw, err := strconv.ParseUint(c.Param("chipID"), 10, 64)
	if err != nil || raw == 0 {
		return 0, util.ErrInvalidInput{Reason: "chipID must be a positive integer"}
	}
	return persist.ChipID(raw), nil
}

func errStatus(err error) int {
	var rejected persist.ErrLedgerRejected
	var store persist.ErrStoreUnavailable
	var gateway persist.ErrGatewayUnavailable

	switch {
	case persist.IsValidation(err):
		return http.StatusBadRequest
	case persist.IsUserCancelled(err):
		return http.StatusConflict
	case errors.As(err, &rejected):
		return http.StatusConflict
	case errors.As(err, &store), errors.As(err, &gateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
