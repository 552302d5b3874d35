package server

import (
	"net/http"
	"strings"

	ownerdomain "github.com/aramabarzani/creditbook/internal/owner/domain"
	"github.com/gin-gonic/gin"
)

type registerOwnerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// @Summary      Register Owner
// @Description  Register a store owner with a free-plan license
// @Tags         owners
// @Accept       json
// @Produce      json
// @Param        request body registerOwnerRequest true "Register Owner Request"
// @Success      200  {object}  ownerdomain.RegisterResponse
// @Router       /owners [post]
func (s *Server) RegisterOwner(c *gin.Context) {
	var req registerOwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ownerSvc.Register(c.Request.Context(), ownerdomain.RegisterRequest{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
		Phone: strings.TrimSpace(req.Phone),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get Owner
// @Description  Get owner by ID
// @Tags         owners
// @Produce      json
// @Param        id   path      string  true  "Owner ID"
// @Success      200  {object}  ownerdomain.Owner
// @Router       /owners/{id} [get]
func (s *Server) GetOwner(c *gin.Context) {
	id, err := ownerID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.ownerSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
