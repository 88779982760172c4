// Package claims reads the wallet identity embedded in a session's claims.
package claims

import (
	"github.com/tidwall/gjson"
	"moff.io/walletauth/internal/chain"
)

// 自定义声明可能出现的位置，依次尝试
var customClaimsPaths = []string{
	"user_metadata.custom_claims",
	"claims.user_metadata.custom_claims",
}

// Custom are the wallet fields the identity service stores in a session.
type Custom struct {
	Address   string `json:"address,omitempty"`
	Chain     string `json:"chain,omitempty"`
	Network   string `json:"network,omitempty"`
	Domain    string `json:"domain,omitempty"`
	Statement string `json:"statement,omitempty"`
}

// Result is either Present with the decoded fields or Absent.
type Result struct {
	custom  Custom
	present bool
}

func Present(c Custom) Result {
	return Result{custom: c, present: true}
}

func Absent() Result {
	return Result{}
}

// Get returns the fields and whether the custom claims were present at all.
func (r Result) Get() (Custom, bool) {
	return r.custom, r.present
}

func (r Result) IsPresent() bool {
	return r.present
}

// Decode finds the custom claims object in a claims bag. Anything that is not a JSON object
// at the known locations is Absent, fields of the wrong type decode as empty.
func Decode(bag []byte) Result {
	if !gjson.ValidBytes(bag) {
		return Absent()
	}
	root := gjson.ParseBytes(bag)
	for _, path := range customClaimsPaths {
		obj := root.Get(path)
		if !obj.IsObject() {
			continue
		}
		return Present(Custom{
			Address:   str(obj, "address"),
			Chain:     str(obj, "chain"),
			Network:   str(obj, "network"),
			Domain:    str(obj, "domain"),
			Statement: str(obj, "statement"),
		})
	}
	return Absent()
}

// str accepts strings and numbers, chain ids are sometimes issued as JSON numbers.
func str(obj gjson.Result, key string) string {
	v := obj.Get(key)
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Number:
		return v.Raw
	}
	return ""
}

// 页面占位文案
const (
	NotAvailable   = "Not available"
	UnknownNetwork = chain.UnknownNetwork
)

// View is the display projection of a session's wallet identity.
type View struct {
	Address      string `json:"address"`
	ShortAddress string `json:"short_address"`
	Chain        string `json:"chain"`
	ChainName    string `json:"chain_name"`
	ChainSymbol  string `json:"chain_symbol"`
	ChainID      string `json:"chain_id,omitempty"`
	Network      string `json:"network"`
	Statement    string `json:"statement"`
	Domain       string `json:"domain"`
}

// Project renders a decoded result. Missing fields become placeholders, the chain defaults to
// Ethereum. Ethereum networks are decimal chain ids and are converted to hex before lookup.
func Project(r Result) View {
	c, _ := r.Get()
	kind := c.Chain
	if kind == "" {
		kind = string(chain.Ethereum)
	}
	v := View{
		Address:      orPlaceholder(c.Address),
		ShortAddress: NotAvailable,
		Chain:        kind,
		ChainName:    chain.BlockchainName(kind),
		ChainSymbol:  chain.BlockchainSymbol(kind),
		Network:      UnknownNetwork,
		Statement:    orPlaceholder(c.Statement),
		Domain:       orPlaceholder(c.Domain),
	}
	if c.Address != "" {
		short := chain.Solana
		if kind == string(chain.Ethereum) {
			short = chain.Ethereum
		}
		v.ShortAddress = chain.FormatAddress(c.Address, short, 6)
	}
	if c.Network != "" {
		v.ChainID = c.Network
		if kind == string(chain.Ethereum) {
			if hex, ok := chain.DecimalToHex(c.Network); ok {
				v.ChainID = hex
			}
		}
		v.Network = chain.NetworkName(kind, v.ChainID)
	}
	return v
}

func orPlaceholder(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}
