package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type testCleanupRequest struct {
	Prefix string `json:"prefix"`
}

// TestCleanup deletes owners whose name matches a prefix, with all their
// dependent rows. Registered in every environment but refuses to run in
// production.
func (s *Server) TestCleanup(c *gin.Context) {
	if s.cfg.IsProduction() {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req testCleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	prefix := strings.TrimSpace(req.Prefix)
	if prefix == "" {
		AbortWithError(c, newValidationError("prefix", "required", "prefix is required"))
		return
	}

	ctx := c.Request.Context()
	ownerIDs, err := s.loadOwnerIDsByPrefix(ctx, prefix)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.deleteOwnerData(ctx, ownerIDs); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "owners_deleted": len(ownerIDs)})
}

func (s *Server) loadOwnerIDsByPrefix(ctx context.Context, prefix string) ([]int64, error) {
	like := strings.TrimSpace(prefix) + "%"
	var ownerIDs []int64
	if err := s.db.WithContext(ctx).
		Table("owners").
		Select("id").
		Where("name LIKE ?", like).
		Scan(&ownerIDs).Error; err != nil {
		return nil, err
	}
	return ownerIDs, nil
}

func (s *Server) deleteOwnerData(ctx context.Context, ownerIDs []int64) error {
	if len(ownerIDs) == 0 {
		return nil
	}
	queries := []string{
		`DELETE FROM outbox_events WHERE owner_id IN ?`,
		`DELETE FROM audit_logs WHERE owner_id IN ?`,
		`DELETE FROM transactions WHERE owner_id IN ?`,
		`DELETE FROM receipt_sequences WHERE owner_id IN ?`,
		`DELETE FROM customers WHERE owner_id IN ?`,
		`DELETE FROM members WHERE owner_id IN ?`,
		`DELETE FROM licenses WHERE owner_id IN ?`,
		`DELETE FROM owners WHERE id IN ?`,
	}
	for _, query := range queries {
		if err := s.db.WithContext(ctx).Exec(query, ownerIDs).Error; err != nil {
			return err
		}
	}
	return nil
}
