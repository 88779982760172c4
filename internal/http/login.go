package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"moff.io/walletauth/internal/auth"
	"moff.io/walletauth/internal/chain"
	"moff.io/walletauth/internal/claims"
	"moff.io/walletauth/internal/exchange"
	"moff.io/walletauth/internal/provider"
	"moff.io/walletauth/internal/wallets"
	"moff.io/walletauth/pkg/errors"
)

type loginRequest struct {
	// Wallet is a group uuid, optional when a single wallet is installed.
	Wallet    string `json:"wallet"`
	Chain     string `json:"chain"`
	Statement string `json:"statement"`
}

type loginResponse struct {
	Wallet  string            `json:"wallet"`
	Chain   chain.Kind        `json:"chain"`
	Session *exchange.Session `json:"session"`
	Claims  claims.View       `json:"claims"`
	// Account is what the wallet reports after connecting.
	Account interface{} `json:"account,omitempty"`
}

func (s *Server) login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	var kind chain.Kind
	if req.Chain != "" {
		var ok bool
		if kind, ok = chain.ParseKind(req.Chain); !ok {
			ctx.JSON(http.StatusBadRequest, gin.H{"message": auth.MsgUnsupported})
			return
		}
	}

	picker := wallets.NewPicker(s.deps.Aggregator.Grouped(ctx.Request.Context()))
	if picker.Empty() {
		ctx.JSON(http.StatusNotFound, gin.H{"message": "No wallet detected", "install": wallets.InstallLinks})
		return
	}
	if req.Wallet != "" {
		if err := picker.Select(req.Wallet); err != nil {
			ctx.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
			return
		}
	}
	sel, err := picker.Choose(kind)
	switch {
	case errors.Is(err, wallets.ErrNoWalletSelected):
		ctx.JSON(http.StatusBadRequest, gin.H{"message": err.Error(), "wallets": picker.Wallets()})
		return
	case errors.Is(err, wallets.ErrChainChoiceRequired):
		action, _ := picker.Action()
		ctx.JSON(http.StatusBadRequest, gin.H{"message": err.Error(), "action": action})
		return
	case err != nil:
		ctx.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	statement := req.Statement
	if statement == "" {
		statement = s.statement
	}
	session, err := s.deps.Dispatcher.Dispatch(ctx.Request.Context(), sel.Chain, sel.Provider, statement)
	if err != nil {
		var aerr *auth.Error
		if !errors.As(err, &aerr) {
			aerr = &auth.Error{Kind: auth.KindProviderFault, Message: err.Error()}
		}
		ctx.JSON(statusOf(aerr.Kind), gin.H{"message": aerr.Message, "kind": aerr.Kind, "retryable": aerr.Retryable()})
		return
	}
	ctx.JSON(http.StatusOK, loginResponse{
		Wallet:  sel.WalletName,
		Chain:   sel.Chain,
		Session: session,
		Claims:  claims.Project(sessionClaims(session)),
		Account: accountInfo(ctx, sel),
	})
}

func accountInfo(ctx *gin.Context, sel *wallets.Selection) interface{} {
	switch p := sel.Provider.(type) {
	case provider.Ethereum:
		if info := provider.EthereumWalletInfo(ctx.Request.Context(), p); info != nil {
			return info
		}
	case provider.Solana:
		if info := provider.SolanaWalletInfo(p); info != nil {
			return info
		}
	}
	return nil
}

// sessionClaims prefers the user object returned with the session over the token payload.
func sessionClaims(session *exchange.Session) claims.Result {
	if r := claims.Decode(session.User); r.IsPresent() {
		return r
	}
	r, _ := claims.DecodeToken(session.AccessToken)
	return r
}

func statusOf(kind auth.Kind) int {
	switch kind {
	case auth.KindBusy:
		return http.StatusConflict
	case auth.KindUserRejected:
		return http.StatusForbidden
	case auth.KindNoProvider:
		return http.StatusNotFound
	case auth.KindNoAccounts, auth.KindUnsupported:
		return http.StatusBadRequest
	case auth.KindCanceled:
		return http.StatusRequestTimeout
	case auth.KindExchangeFault:
		return http.StatusUnauthorized
	}
	return http.StatusBadGateway
}

func (s *Server) me(ctx *gin.Context) {
	token := strings.TrimSpace(strings.TrimPrefix(ctx.GetHeader("Authorization"), "Bearer"))
	if token == "" {
		ctx.JSON(http.StatusUnauthorized, gin.H{"message": "Missing bearer token"})
		return
	}
	var (
		r   claims.Result
		err error
	)
	if s.deps.TokenSecret != nil {
		r, err = claims.DecodeVerifiedToken(token, s.deps.TokenSecret)
	} else {
		r, err = claims.DecodeToken(token)
	}
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid access token"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"present": r.IsPresent(), "claims": claims.Project(r)})
}
