package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"moff.io/walletauth/internal/exchange"
	"moff.io/walletauth/internal/identity"
)

func grantError(ctx *gin.Context, status int, code, msg string) {
	ctx.JSON(status, gin.H{"code": status, "error_code": code, "msg": msg})
}

// tokenGrant is the web3 grant of the identity service, served by the development issuer.
func (s *Server) tokenGrant(ctx *gin.Context) {
	if ctx.Query("grant_type") != "web3" {
		grantError(ctx, http.StatusBadRequest, identity.CodeInvalidRequest, "Unsupported grant_type")
		return
	}
	var proof exchange.Proof
	if err := ctx.ShouldBindJSON(&proof); err != nil {
		grantError(ctx, http.StatusBadRequest, identity.CodeInvalidRequest, "Invalid request body")
		return
	}
	if !proof.Chain.Valid() || proof.Message == "" || proof.Signature == "" {
		grantError(ctx, http.StatusBadRequest, identity.CodeInvalidRequest, "chain, message and signature are required")
		return
	}
	session, rejection := s.deps.Issuer.Exchange(ctx.Request.Context(), &proof)
	if rejection != nil {
		grantError(ctx, rejection.Status, rejection.Code, rejection.Message)
		return
	}
	ctx.JSON(http.StatusOK, session)
}
