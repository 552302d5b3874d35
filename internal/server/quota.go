package server

import (
	"net/http"
	"strings"

	quotadomain "github.com/aramabarzani/creditbook/internal/quota/domain"
	"github.com/gin-gonic/gin"
)

// @Summary      Check Resource Limit
// @Description  Report whether one more resource of the given kind may be created
// @Tags         quotas
// @Produce      json
// @Param        id            path   string  true  "Owner ID"
// @Param        kind          path   string  true  "Resource kind (admins, staff, customers)"
// @Param        current_count query  int     true  "Live resource count"
// @Success      200  {object}  quotadomain.CheckResult
// @Router       /owners/{id}/limits/{kind} [get]
func (s *Server) CheckLimit(c *gin.Context) {
	id, err := ownerID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// A missing count must not read as zero headroom used, so the parameter
	// binds through a pointer and absence is rejected.
	var query struct {
		CurrentCount *int `form:"current_count"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if query.CurrentCount == nil {
		AbortWithError(c, newValidationError("current_count", "missing_current_count", "current_count query parameter is required"))
		return
	}
	kind := quotadomain.ResourceKind(strings.TrimSpace(c.Param("kind")))

	resp, err := s.quotaSvc.Check(c.Request.Context(), id, kind, *query.CurrentCount)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
