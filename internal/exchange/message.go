package exchange

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"moff.io/walletauth/internal/chain"
	"moff.io/walletauth/pkg/errors"
)

// Message is a sign-in-with-Ethereum (EIP-4361) style message, also used for Solana.
type Message struct {
	Domain    string
	Address   string
	Chain     chain.Kind
	Statement string
	URI       string
	Version   string
	// ChainID is the decimal EVM chain id, unused for Solana.
	ChainID        string
	Nonce          string
	IssuedAt       time.Time
	ExpirationTime time.Time
}

const (
	fieldURI            = "URI: "
	fieldVersion        = "Version: "
	fieldChainID        = "Chain ID: "
	fieldNonce          = "Nonce: "
	fieldIssuedAt       = "Issued At: "
	fieldExpirationTime = "Expiration Time: "
)

var headerPattern = regexp.MustCompile(`^(\S+) wants you to sign in with your (Ethereum|Solana) account:$`)

// String renders the message exactly as the wallet signs it.
func (m *Message) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s wants you to sign in with your %s account:\n", m.Domain, m.Chain.DisplayName())
	b.WriteString(m.Address)
	b.WriteString("\n\n")
	if m.Statement != "" {
		b.WriteString(m.Statement)
		b.WriteString("\n\n")
	}
	version := m.Version
	if version == "" {
		version = "1"
	}
	b.WriteString(fieldURI + m.URI + "\n")
	b.WriteString(fieldVersion + version + "\n")
	if m.Chain == chain.Ethereum {
		b.WriteString(fieldChainID + m.ChainID + "\n")
	}
	b.WriteString(fieldNonce + m.Nonce + "\n")
	b.WriteString(fieldIssuedAt + m.IssuedAt.UTC().Format(time.RFC3339))
	if !m.ExpirationTime.IsZero() {
		b.WriteString("\n" + fieldExpirationTime + m.ExpirationTime.UTC().Format(time.RFC3339))
	}
	return b.String()
}

// ParseMessage reads a message produced by Message.String.
func ParseMessage(text string) (*Message, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) < 3 {
		return nil, errors.New("sign-in message too short")
	}
	header := headerPattern.FindStringSubmatch(lines[0])
	if header == nil {
		return nil, errors.Errorf("malformed sign-in message header %q", lines[0])
	}
	kind, _ := chain.ParseKind(header[2])
	m := &Message{Domain: header[1], Chain: kind, Address: strings.TrimSpace(lines[1])}
	if m.Address == "" || lines[2] != "" {
		return nil, errors.New("malformed sign-in message address")
	}
	rest := lines[3:]
	if len(rest) > 0 && !strings.HasPrefix(rest[0], fieldURI) {
		end := 0
		for end < len(rest) && rest[end] != "" {
			end++
		}
		m.Statement = strings.Join(rest[:end], "\n")
		if end < len(rest) {
			end++
		}
		rest = rest[end:]
	}
	for _, line := range rest {
		var err error
		switch {
		case strings.HasPrefix(line, fieldURI):
			m.URI = strings.TrimPrefix(line, fieldURI)
		case strings.HasPrefix(line, fieldVersion):
			m.Version = strings.TrimPrefix(line, fieldVersion)
		case strings.HasPrefix(line, fieldChainID):
			m.ChainID = strings.TrimPrefix(line, fieldChainID)
		case strings.HasPrefix(line, fieldNonce):
			m.Nonce = strings.TrimPrefix(line, fieldNonce)
		case strings.HasPrefix(line, fieldIssuedAt):
			m.IssuedAt, err = time.Parse(time.RFC3339, strings.TrimPrefix(line, fieldIssuedAt))
		case strings.HasPrefix(line, fieldExpirationTime):
			m.ExpirationTime, err = time.Parse(time.RFC3339, strings.TrimPrefix(line, fieldExpirationTime))
		case line == "":
		default:
			return nil, errors.Errorf("unexpected sign-in message line %q", line)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "parse sign-in message line %q", line)
		}
	}
	if m.Nonce == "" || m.IssuedAt.IsZero() {
		return nil, errors.New("sign-in message lacks nonce or issue time")
	}
	if m.Chain == chain.Ethereum && m.ChainID == "" {
		return nil, errors.New("sign-in message lacks chain id")
	}
	return m, nil
}

// Expired reports whether the message is no longer valid at now.
func (m *Message) Expired(now time.Time) bool {
	return !m.ExpirationTime.IsZero() && now.After(m.ExpirationTime)
}
