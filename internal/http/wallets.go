package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"moff.io/walletauth/internal/wallets"
	"moff.io/walletauth/pkg/log"
)

type walletView struct {
	wallets.GroupedWallet
	Action *wallets.Action `json:"action"`
	// Badges are the chain tickers shown next to the wallet name.
	Badges []string `json:"badges"`
}

type walletsResponse struct {
	Wallets []walletView          `json:"wallets"`
	Install []wallets.InstallLink `json:"install,omitempty"`
}

func (s *Server) listWallets(ctx *gin.Context) {
	grouped := s.deps.Aggregator.Grouped(ctx.Request.Context())
	resp := walletsResponse{Wallets: make([]walletView, 0, len(grouped))}
	for _, g := range grouped {
		action, _ := wallets.NewPicker([]wallets.GroupedWallet{g}).Action()
		badges := make([]string, 0, len(g.Chains))
		for _, kind := range g.SupportedChains() {
			badges = append(badges, kind.Short())
		}
		resp.Wallets = append(resp.Wallets, walletView{GroupedWallet: g, Action: action, Badges: badges})
	}
	if len(grouped) == 0 {
		resp.Install = wallets.InstallLinks
	}
	ctx.JSON(http.StatusOK, resp)
}

func (s *Server) flatWallets(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"wallets": s.deps.Aggregator.Flat(ctx.Request.Context())})
}

func (s *Server) installQR(ctx *gin.Context) {
	link, ok := wallets.InstallLinkFor(ctx.Param("wallet"))
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"message": "Unknown wallet"})
		return
	}
	png, err := qrcode.Encode(link.URL, qrcode.Medium, 256)
	if err != nil {
		log.Errorf("encode install qr for %v:%v", link.Wallet, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Unable to render QR code"})
		return
	}
	ctx.Data(http.StatusOK, "image/png", png)
}
