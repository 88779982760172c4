package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"
	"moff.io/walletauth/pkg/errors"
	"moff.io/walletauth/pkg/log"
)

// EnvPrefix prefixes every environment override, e.g. WALLETAUTH_HTTP_ADDRESS.
const EnvPrefix = "WALLETAUTH_"

// DefaultPath is used when --config-path is not given.
const DefaultPath = "internal/config/config.yml"

// DBCredential struct
type DBCredential struct {
	Address  string `yaml:"address" env:"ADDRESS"`
	Password string `yaml:"password" env:"PASSWORD"`
	Port     string `yaml:"port" env:"PORT"`
	Database string `yaml:"database" env:"DATABASE"`
}

// GetRedisAddress returns host:port, empty when redis is not configured.
func (c *DBCredential) GetRedisAddress() string {
	if c.Address == "" {
		return ""
	}
	port := c.Port
	if port == "" {
		port = "6379"
	}
	return fmt.Sprintf("%v:%v", c.Address, port)
}

// Configuration struct
type Configuration struct {
	LogLevel        string       `yaml:"log_level" env:"LOG_LEVEL"`
	HTTP            HTTP         `yaml:"http" envPrefix:"HTTP_"`
	Discovery       Discovery    `yaml:"discovery" envPrefix:"DISCOVERY_"`
	Dispatch        Dispatch     `yaml:"dispatch" envPrefix:"DISPATCH_"`
	Exchange        Exchange     `yaml:"exchange" envPrefix:"EXCHANGE_"`
	Issuer          Issuer       `yaml:"issuer" envPrefix:"ISSUER_"`
	RedisCredential DBCredential `yaml:"redis" envPrefix:"REDIS_"`
	KafkaServer     string       `yaml:"kafka-server" env:"KAFKA_SERVER"`
	AuditTopic      string       `yaml:"audit_topic" env:"AUDIT_TOPIC"`
	Reporters       Reporters    `yaml:"reporters" envPrefix:"REPORTERS_"`
	Wallets         []Wallet     `yaml:"wallets"`
}

type HTTP struct {
	Address        string        `yaml:"address" env:"ADDRESS"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
	// RateLimit is the number of login attempts allowed per client and minute, 0 disables it.
	RateLimit int `yaml:"rate_limit" env:"RATE_LIMIT"`
	// MaxDiscoveries bounds the discovery passes running at once.
	MaxDiscoveries int `yaml:"max_discoveries" env:"MAX_DISCOVERIES"`
}

type Discovery struct {
	GraceWindow time.Duration `yaml:"grace_window" env:"GRACE_WINDOW"`
	// BridgeURL is the announcement relay remote wallets announce on, optional.
	BridgeURL string `yaml:"bridge_url" env:"BRIDGE_URL"`
	// BridgeKey is a hex 256 bit key sealing bridge payloads, empty relays them in clear.
	BridgeKey string `yaml:"bridge_key" env:"BRIDGE_KEY"`
}

type Dispatch struct {
	Statement       string        `yaml:"statement" env:"STATEMENT"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" env:"CONNECT_TIMEOUT"`
	ExchangeTimeout time.Duration `yaml:"exchange_timeout" env:"EXCHANGE_TIMEOUT"`
}

type Exchange struct {
	// BaseURL of the identity service, empty exchanges with the local issuer.
	BaseURL    string        `yaml:"base_url" env:"BASE_URL"`
	APIKey     string        `yaml:"api_key" env:"API_KEY"`
	Domain     string        `yaml:"domain" env:"DOMAIN"`
	URI        string        `yaml:"uri" env:"URI"`
	MessageTTL time.Duration `yaml:"message_ttl" env:"MESSAGE_TTL"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// Issuer configures the development identity issuer.
type Issuer struct {
	Enabled       bool          `yaml:"enabled" env:"ENABLED"`
	Secret        string        `yaml:"secret" env:"SECRET"`
	Name          string        `yaml:"name" env:"NAME"`
	SolanaNetwork string        `yaml:"solana_network" env:"SOLANA_NETWORK"`
	TokenTTL      time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
	MaxAge        time.Duration `yaml:"max_age" env:"MAX_AGE"`
}

type Reporters struct {
	SentryDSN         string        `yaml:"sentry_dsn" env:"SENTRY_DSN"`
	Environment       string        `yaml:"environment" env:"ENVIRONMENT"`
	LarkAlarmWebhook  string        `yaml:"lark_alarm_webhook" env:"LARK_ALARM_WEBHOOK"`
	LarkSilentSeconds time.Duration `yaml:"lark_silent" env:"LARK_SILENT"`
}

// Wallet kinds a host can be populated with.
const (
	KeyedEthereum = "keyed-ethereum"
	KeyedSolana   = "keyed-solana"
	NodeEthereum  = "node-ethereum"
)

// Wallet is a wallet injected into the host environment.
type Wallet struct {
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`
	UUID string `yaml:"uuid"`
	Icon string `yaml:"icon"`
	RDNS string `yaml:"rdns"`
	// ID overrides the identity tag, wallets sharing an ID are one wallet.
	ID string `yaml:"id"`
	// Announce makes an Ethereum wallet answer announcement requests.
	Announce bool `yaml:"announce"`
	// Slots lists the global slots the wallet is injected into.
	Slots []string `yaml:"slots"`
	// PrivateKey of keyed wallets, empty generates a key per run.
	PrivateKey string   `yaml:"private_key"`
	ChainID    uint64   `yaml:"chain_id"`
	NodeURL    string   `yaml:"node_url"`
	Flags      []string `yaml:"flags"`
	// Reject simulates a user dismissing every prompt.
	Reject bool `yaml:"reject"`
}

func (c *Configuration) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.MaxDiscoveries <= 0 {
		c.HTTP.MaxDiscoveries = 16
	}
	if c.HTTP.RequestTimeout <= 0 {
		c.HTTP.RequestTimeout = 3 * time.Minute
	}
	if c.Exchange.Domain == "" {
		c.Exchange.Domain = "localhost:8080"
	}
	if c.Exchange.URI == "" {
		c.Exchange.URI = "http://" + c.Exchange.Domain
	}
	if c.AuditTopic == "" {
		c.AuditTopic = "walletauth.signin"
	}
	if c.Reporters.LarkSilentSeconds <= 0 {
		c.Reporters.LarkSilentSeconds = time.Minute
	}
}

// Validate checks cross-field constraints.
func (c *Configuration) Validate() error {
	if c.Exchange.BaseURL == "" && !c.Issuer.Enabled {
		return errors.New("either exchange.base_url or issuer.enabled must be set")
	}
	if c.Issuer.Enabled && len(c.Issuer.Secret) < 16 {
		return errors.New("issuer.secret must be at least 16 bytes")
	}
	for i, w := range c.Wallets {
		switch w.Kind {
		case KeyedEthereum, KeyedSolana:
		case NodeEthereum:
			if w.NodeURL == "" {
				return errors.Errorf("wallets[%d]: node_url required for %v", i, w.Kind)
			}
		default:
			return errors.Errorf("wallets[%d]: unknown kind %q", i, w.Kind)
		}
		if w.Announce && (w.Name == "" || w.UUID == "") {
			return errors.Errorf("wallets[%d]: announced wallets need name and uuid", i)
		}
	}
	return nil
}

// Parse decodes YAML and applies environment overrides.
func Parse(dat []byte) (*Configuration, error) {
	t := Configuration{}
	if err := yaml.Unmarshal(dat, &t); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := env.ParseWithOptions(&t, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, errors.Wrap(err, "apply environment overrides")
	}
	t.applyDefaults()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func readConfig(path string) (*Configuration, error) {
	log.Info("Starting to load configuration file ...")
	dat, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Errorf("file %s does not exist", path)
		}
		return nil, errors.Wrap(err, "read config")
	}
	return Parse(dat)
}

var Global *Configuration

// Read reads configuration information from yml.
func Read(path string) error {
	if path == "" {
		path = DefaultPath
	}
	log.Infof("Loading configuration file from %s", path)
	globalConfig, err := readConfig(path)
	if err != nil {
		return err
	}
	Global = globalConfig
	return nil
}
