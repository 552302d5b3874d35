package server

import (
	"net/http"
	"strings"

	memberdomain "github.com/aramabarzani/creditbook/internal/member/domain"
	"github.com/gin-gonic/gin"
)

type createMemberRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// @Summary      Create Member
// @Description  Add an admin or staff member, subject to the plan quota
// @Tags         members
// @Accept       json
// @Produce      json
// @Param        id      path  string              true  "Owner ID"
// @Param        request body  createMemberRequest true  "Create Member Request"
// @Success      200  {object}  memberdomain.Member
// @Router       /owners/{id}/members [post]
func (s *Server) CreateMember(c *gin.Context) {
	id, err := ownerID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req createMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.memberSvc.Create(c.Request.Context(), id, memberdomain.CreateMemberRequest{
		Name: strings.TrimSpace(req.Name),
		Role: memberdomain.Role(strings.TrimSpace(req.Role)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List Members
// @Description  List the owner's roster, optionally filtered by role
// @Tags         members
// @Produce      json
// @Param        id    path   string  true   "Owner ID"
// @Param        role  query  string  false  "Role filter (admin, staff)"
// @Success      200  {object}  []memberdomain.Member
// @Router       /owners/{id}/members [get]
func (s *Server) ListMembers(c *gin.Context) {
	id, err := ownerID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	role := memberdomain.Role(strings.TrimSpace(c.Query("role")))
	resp, err := s.memberSvc.List(c.Request.Context(), id, role)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Deactivate Member
// @Description  Retire a member; the row stays but stops counting against quota
// @Tags         members
// @Produce      json
// @Param        id   path  string  true  "Owner ID"
// @Param        mid  path  string  true  "Member ID"
// @Success      200  {object}  memberdomain.Member
// @Router       /owners/{id}/members/{mid}/deactivate [post]
func (s *Server) DeactivateMember(c *gin.Context) {
	id, err := ownerID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	memberID, err := pathID(c, "mid")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.memberSvc.Deactivate(c.Request.Context(), id, memberID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
