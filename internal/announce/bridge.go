package announce

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"go.uber.org/atomic"
	"moff.io/walletauth/internal/provider"
	"moff.io/walletauth/pkg/errors"
	"moff.io/walletauth/pkg/log"
	"moff.io/walletauth/pkg/seal"
)

var errBridgeClosed = errors.New("bridge closed")

// Frame is the relay envelope. Type is one of "sub", "pub" or "ack".
type Frame struct {
	Topic   string `json:"topic"`
	Type    string `json:"type"`
	Payload string `json:"payload"`
	Silent  bool   `json:"silent"`
}

func (f *Frame) Marshal() []byte {
	b, _ := json.Marshal(f)
	return b
}

// RequestPayload is published on RequestEvent, Peer is the topic replies go to.
type RequestPayload struct {
	Peer string `json:"peer"`
}

// AnnouncePayload is published by remote wallets on AnnounceEvent. Peer is the topic
// the wallet reads JSON-RPC requests from.
type AnnouncePayload struct {
	Info Info   `json:"info"`
	Peer string `json:"peer"`
}

// RPCRequest is a JSON-RPC request forwarded to a remote wallet.
type RPCRequest struct {
	ID      int64         `json:"id"`
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	Peer    string        `json:"peer"`
}

// RPCResponse is a remote wallet's answer.
type RPCResponse struct {
	ID      int64           `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Bridge is an announcement channel relayed over a websocket pub/sub server, for wallets
// living outside this process. Announced providers forward their requests over the same relay.
type Bridge struct {
	clientID    string
	conn        *websocket.Conn
	readTimeout time.Duration
	// key seals every payload when set
	key []byte

	writeMu   sync.Mutex
	listeners listeners

	pendingMu sync.Mutex
	pending   map[int64]chan *RPCResponse
	payloadID atomic.Int64

	closeOnce sync.Once
	closed    chan struct{}
}

type BridgeOption func(*Bridge)

// WithKey seals payloads with a key shared with the remote wallets.
func WithKey(key []byte) BridgeOption {
	return func(b *Bridge) {
		b.key = key
	}
}

// DialBridge connects to the relay at bridgeURL and subscribes to announcements.
func DialBridge(ctx context.Context, bridgeURL string, opts ...BridgeOption) (*Bridge, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, WebSocketURL(bridgeURL), nil)
	if err != nil {
		return nil, errors.WrapAndReport(err, "dial to announcement bridge")
	}
	b := &Bridge{
		clientID:    uuid.NewString(),
		conn:        conn,
		readTimeout: time.Minute * 5,
		pending:     make(map[int64]chan *RPCResponse),
		closed:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.payloadID.Store(time.Now().UnixNano() / 1000)
	for _, topic := range []string{AnnounceEvent, b.clientID} {
		if err := b.send(&Frame{Topic: topic, Type: "sub", Silent: true}); err != nil {
			conn.Close()
			return nil, err
		}
	}
	go b.readLoop()
	return b, nil
}

// WebSocketURL maps an http(s) relay URL to its websocket endpoint.
func WebSocketURL(bridgeURL string) string {
	switch {
	case strings.HasPrefix(bridgeURL, "https"):
		bridgeURL = strings.Replace(bridgeURL, "https", "wss", 1)
	case strings.HasPrefix(bridgeURL, "http"):
		bridgeURL = strings.Replace(bridgeURL, "http", "ws", 1)
	}
	sep := "?"
	if strings.Contains(bridgeURL, "?") {
		sep = "&"
	}
	return bridgeURL + sep + "protocol=eip6963&version=1"
}

// ClientID is the topic this bridge receives replies on.
func (b *Bridge) ClientID() string {
	return b.clientID
}

func (b *Bridge) Subscribe(fn func(Announcement)) func() {
	return b.listeners.add(fn)
}

func (b *Bridge) Request() error {
	payload, err := EncodePayload(b.key, &RequestPayload{Peer: b.clientID})
	if err != nil {
		return err
	}
	log.Debugf("announce bridge - request providers from %v", b.clientID)
	return b.send(&Frame{Topic: RequestEvent, Type: "pub", Payload: payload, Silent: true})
}

func (b *Bridge) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.closed)
		err = b.conn.Close()
	})
	return err
}

func (b *Bridge) send(f *Frame) error {
	select {
	case <-b.closed:
		return errBridgeClosed
	default:
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := b.conn.WriteMessage(websocket.TextMessage, f.Marshal()); err != nil {
		return errors.Wrap(err, "write announcement bridge frame")
	}
	return nil
}

func (b *Bridge) readLoop() {
	defer b.Close()
	for {
		if err := b.conn.SetReadDeadline(time.Now().Add(b.readTimeout)); err != nil {
			log.Warnf("announce bridge - set read deadline:%v", err)
			return
		}
		msgType, data, err := b.conn.ReadMessage()
		if err != nil {
			select {
			case <-b.closed:
			default:
				log.Warnf("announce bridge - read:%v", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			log.Warnf("announce bridge - malformed frame:%v", string(data))
			continue
		}
		if f.Type != "pub" {
			continue
		}
		if err := b.send(&Frame{Topic: b.clientID, Type: "ack", Silent: true}); err != nil {
			log.Warnf("announce bridge - ack:%v", err)
		}
		payload, err := DecodePayload(b.key, f.Payload)
		if err != nil {
			log.Warnf("announce bridge - dropping %v payload:%v", f.Topic, err)
			continue
		}
		switch f.Topic {
		case AnnounceEvent:
			b.handleAnnouncement(payload)
		case b.clientID:
			b.handleResponse(payload)
		}
	}
}

func (b *Bridge) handleAnnouncement(payload string) {
	var ap AnnouncePayload
	if err := json.Unmarshal([]byte(payload), &ap); err != nil || ap.Peer == "" {
		log.Warnf("announce bridge - ignoring announcement %v", payload)
		return
	}
	log.Debugf("announce bridge - %v announced on %v", ap.Info.Name, ap.Peer)
	b.listeners.notify(Announcement{
		Info:     ap.Info,
		Provider: &bridgeProvider{bridge: b, peer: ap.Peer},
	})
}

func (b *Bridge) handleResponse(payload string) {
	id := gjson.Get(payload, "id").Int()
	b.pendingMu.Lock()
	ch, ok := b.pending[id]
	delete(b.pending, id)
	b.pendingMu.Unlock()
	if !ok {
		log.Debugf("announce bridge - no pending request %v", id)
		return
	}
	var resp RPCResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		resp = RPCResponse{ID: id, Error: &RPCError{Code: provider.CodeInternal, Message: "malformed wallet response"}}
	}
	ch <- &resp
}

func (b *Bridge) call(ctx context.Context, peer, method string, params []interface{}) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}
	req := &RPCRequest{
		ID:      b.payloadID.Inc(),
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		Peer:    b.clientID,
	}
	ch := make(chan *RPCResponse, 1)
	b.pendingMu.Lock()
	b.pending[req.ID] = ch
	b.pendingMu.Unlock()
	defer func() {
		b.pendingMu.Lock()
		delete(b.pending, req.ID)
		b.pendingMu.Unlock()
	}()

	payload, err := EncodePayload(b.key, req)
	if err != nil {
		return nil, err
	}
	if err := b.send(&Frame{Topic: peer, Type: "pub", Payload: payload}); err != nil {
		return nil, err
	}
	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, provider.NewError(resp.Error.Code, resp.Error.Message)
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.closed:
		return nil, provider.NewError(provider.CodeDisconnected, "The wallet bridge is disconnected.")
	}
}

// EncodePayload marshals v, sealed when key is set.
func EncodePayload(key []byte, v interface{}) (string, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "encode payload")
	}
	if key == nil {
		return string(plain), nil
	}
	sealed, err := seal.Seal(key, plain)
	if err != nil {
		return "", err
	}
	b, _ := json.Marshal(sealed)
	return string(b), nil
}

// DecodePayload reverses EncodePayload.
func DecodePayload(key []byte, payload string) (string, error) {
	if key == nil {
		return payload, nil
	}
	var sealed seal.Payload
	if err := json.Unmarshal([]byte(payload), &sealed); err != nil {
		return "", errors.Wrap(err, "decode sealed payload")
	}
	plain, err := seal.Open(key, &sealed)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// bridgeProvider is the Ethereum capability of a wallet reachable through the relay.
type bridgeProvider struct {
	bridge *Bridge
	peer   string
}

func (p *bridgeProvider) ID() string {
	return p.peer
}

func (p *bridgeProvider) Request(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	return p.bridge.call(ctx, p.peer, method, params)
}
