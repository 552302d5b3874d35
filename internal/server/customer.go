package server

import (
	"net/http"
	"strings"

	customerdomain "github.com/aramabarzani/creditbook/internal/customer/domain"
	"github.com/aramabarzani/creditbook/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type createCustomerRequest struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	CreditLimit int64  `json:"credit_limit"`
}

// @Summary      Create Customer
// @Description  Create a customer under the owner, subject to license and quota
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        id      path  string                true  "Owner ID"
// @Param        request body  createCustomerRequest true  "Create Customer Request"
// @Success      200  {object}  customerdomain.Customer
// @Router       /owners/{id}/customers [post]
func (s *Server) CreateCustomer(c *gin.Context) {
	id, err := ownerID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.Create(c.Request.Context(), id, customerdomain.CreateCustomerRequest{
		Name:        strings.TrimSpace(req.Name),
		Phone:       strings.TrimSpace(req.Phone),
		CreditLimit: req.CreditLimit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List Customers
// @Description  List the owner's customers, newest first
// @Tags         customers
// @Produce      json
// @Param        id          path   string  true   "Owner ID"
// @Param        name        query  string  false  "Name filter"
// @Param        page_token  query  string  false  "Page Token"
// @Param        page_size   query  int     false  "Page Size"
// @Success      200  {object}  customerdomain.ListCustomerResponse
// @Router       /owners/{id}/customers [get]
func (s *Server) ListCustomers(c *gin.Context) {
	id, err := ownerID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query struct {
		pagination.Pagination
		Name string `form:"name"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.List(c.Request.Context(), id, customerdomain.ListCustomerRequest{
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
		Name:      strings.TrimSpace(query.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get Customer
// @Description  Get a customer by ID
// @Tags         customers
// @Produce      json
// @Param        id   path  string  true  "Owner ID"
// @Param        cid  path  string  true  "Customer ID"
// @Success      200  {object}  customerdomain.Customer
// @Router       /owners/{id}/customers/{cid} [get]
func (s *Server) GetCustomerByID(c *gin.Context) {
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

	resp, err := s.customerSvc.GetByID(c.Request.Context(), id, customerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get Customer Ledger
// @Description  Aggregate the customer's transaction log into debts, payments and balances
// @Tags         customers
// @Produce      json
// @Param        id   path  string  true  "Owner ID"
// @Param        cid  path  string  true  "Customer ID"
// @Success      200  {object}  customerdomain.Ledger
// @Router       /owners/{id}/customers/{cid}/ledger [get]
func (s *Server) GetCustomerLedger(c *gin.Context) {
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

	resp, err := s.customerSvc.Ledger(c.Request.Context(), id, customerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type setBlacklistRequest struct {
	Blacklisted bool `json:"blacklisted"`
}

// @Summary      Set Customer Blacklist
// @Description  Toggle the customer's blacklist flag; blacklisting blocks new debt only
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        id      path  string              true  "Owner ID"
// @Param        cid     path  string              true  "Customer ID"
// @Param        request body  setBlacklistRequest true  "Blacklist Request"
// @Success      200  {object}  customerdomain.Customer
// @Router       /owners/{id}/customers/{cid}/blacklist [post]
func (s *Server) SetCustomerBlacklist(c *gin.Context) {
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

	var req setBlacklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.SetBlacklist(c.Request.Context(), id, customerID, req.Blacklisted)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
