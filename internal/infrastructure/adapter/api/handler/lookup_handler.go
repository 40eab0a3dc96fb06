package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amirhossein-jamali/mwallet/internal/domain/port/usecase"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/api/dto"
)

// LookupHandler serves the live lookups a payment form makes while it is
// filled in
type LookupHandler struct {
	resolver usecase.ResolverUseCase
}

func NewLookupHandler(resolver usecase.ResolverUseCase) *LookupHandler {
	return &LookupHandler{resolver: resolver}
}

// Network handles GET /api/v1/lookup/network?phone=
func (h *LookupHandler) Network(c *gin.Context) {
	phone := c.Query("phone")
	carrier, err := h.resolver.DetectNetwork(phone)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NetworkResponse{Phone: phone, Network: string(carrier)})
}

// Account handles GET /api/v1/lookup/account?bankCode=&accountNumber=
func (h *LookupHandler) Account(c *gin.Context) {
	holder, err := h.resolver.ResolveAccount(c.Request.Context(), c.Query("bankCode"), c.Query("accountNumber"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAccountHolderResponse(holder))
}

// Phone handles GET /api/v1/lookup/phone?phone=
func (h *LookupHandler) Phone(c *gin.Context) {
	holder, err := h.resolver.ResolvePhone(c.Request.Context(), c.Query("phone"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAccountHolderResponse(holder))
}
