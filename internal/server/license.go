package server

import (
	"net/http"

	licensedomain "github.com/aramabarzani/creditbook/internal/license/domain"
	"github.com/gin-gonic/gin"
)

// @Summary      Validate License
// @Description  Validate the owner's license; a passed expiry date is persisted
// @Tags         licenses
// @Produce      json
// @Param        id   path      string  true  "Owner ID"
// @Success      200  {object}  licensedomain.Validation
// @Router       /owners/{id}/license [get]
func (s *Server) GetLicense(c *gin.Context) {
	id, err := ownerID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.licenseSvc.Validate(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Invalid licenses render as data, not errors: the caller asked for the
	// validation outcome, including the renew hint.
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type renewLicenseRequest struct {
	Plan      string `json:"plan"`
	Months    int    `json:"months"`
	AutoRenew *bool  `json:"auto_renew"`
}

// @Summary      Renew License
// @Description  Renew the owner's license or change its plan
// @Tags         licenses
// @Accept       json
// @Produce      json
// @Param        id      path  string              true  "Owner ID"
// @Param        request body  renewLicenseRequest true  "Renew License Request"
// @Success      200  {object}  licensedomain.License
// @Router       /owners/{id}/license/renew [post]
func (s *Server) RenewLicense(c *gin.Context) {
	id, err := ownerID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req renewLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.licenseSvc.Renew(c.Request.Context(), id, licensedomain.RenewRequest{
		Plan:      licensedomain.Plan(req.Plan),
		Months:    req.Months,
		AutoRenew: req.AutoRenew,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
