package provider

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/rpc"
	"moff.io/walletauth/pkg/errors"
)

// NodeEthereum forwards EIP-1193 requests to a JSON-RPC endpoint, e.g. a local development
// node that manages unlocked accounts.
type NodeEthereum struct {
	url    string
	client *rpc.Client
}

// DialNodeEthereum connects to an http(s) or ws(s) JSON-RPC endpoint.
func DialNodeEthereum(ctx context.Context, url string) (*NodeEthereum, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "dial ethereum node %v", url)
	}
	return &NodeEthereum{url: url, client: client}, nil
}

func (n *NodeEthereum) ID() string {
	return n.url
}

func (n *NodeEthereum) Request(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := n.client.CallContext(ctx, &raw, method, params...); err != nil {
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) {
			perr := NewError(rpcErr.ErrorCode(), rpcErr.Error())
			var dataErr rpc.DataError
			if errors.As(err, &dataErr) {
				perr.Data = dataErr.ErrorData()
			}
			return nil, perr
		}
		return nil, errors.Wrapf(err, "call %v", method)
	}
	return raw, nil
}

func (n *NodeEthereum) Close() {
	n.client.Close()
}
