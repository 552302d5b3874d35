package server

import (
	"net/http"
	"strings"
	"time"

	ledgerdomain "github.com/aramabarzani/creditbook/internal/ledger/domain"
	"github.com/aramabarzani/creditbook/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type recordTransactionRequest struct {
	CustomerID string         `json:"customer_id"`
	Type       string         `json:"type"`
	Amount     int64          `json:"amount"`
	Status     string         `json:"status"`
	Note       string         `json:"note"`
	Metadata   map[string]any `json:"metadata"`
	DueDate    *time.Time     `json:"due_date"`
}

// @Summary      Record Transaction
// @Description  Append a debt or payment and update the customer's balances atomically
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        id      path  string                   true  "Owner ID"
// @Param        request body  recordTransactionRequest true  "Record Transaction Request"
// @Success      200  {object}  ledgerdomain.RecordResponse
// @Router       /owners/{id}/transactions [post]
func (s *Server) RecordTransaction(c *gin.Context) {
	id, err := ownerID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req recordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil {
		AbortWithError(c, newValidationError("customer_id", "invalid_id", "customer_id is not a valid id"))
		return
	}

	resp, err := s.ledgerSvc.Record(c.Request.Context(), id, ledgerdomain.RecordRequest{
		CustomerID: customerID,
		Type:       ledgerdomain.Type(strings.TrimSpace(req.Type)),
		Amount:     req.Amount,
		Status:     ledgerdomain.Status(strings.TrimSpace(req.Status)),
		Note:       strings.TrimSpace(req.Note),
		Metadata:   req.Metadata,
		DueDate:    req.DueDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Settle Transaction
// @Description  Mark a pending or overdue transaction completed
// @Tags         transactions
// @Produce      json
// @Param        id   path  string  true  "Owner ID"
// @Param        tid  path  string  true  "Transaction ID"
// @Success      200  {object}  ledgerdomain.Transaction
// @Router       /owners/{id}/transactions/{tid}/settle [post]
func (s *Server) SettleTransaction(c *gin.Context) {
	id, err := ownerID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	transactionID, err := pathID(c, "tid")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.ledgerSvc.Settle(c.Request.Context(), id, transactionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List Transactions
// @Description  List a customer's transactions, newest first
// @Tags         transactions
// @Produce      json
// @Param        id          path   string  true   "Owner ID"
// @Param        cid         path   string  true   "Customer ID"
// @Param        page_token  query  string  false  "Page Token"
// @Param        page_size   query  int     false  "Page Size"
// @Success      200  {object}  ledgerdomain.ListResponse
// @Router       /owners/{id}/customers/{cid}/transactions [get]
func (s *Server) ListTransactions(c *gin.Context) {
	id, err := ownerID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	customerID, err := pathID(c, "cid")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query struct {
		pagination.Pagination
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ledgerSvc.List(c.Request.Context(), id, ledgerdomain.ListRequest{
		CustomerID: customerID,
		PageToken:  query.PageToken,
		PageSize:   query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
