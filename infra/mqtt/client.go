// Package mqtt delivers notifications to drivers over an MQTT broker, one
// topic per requester.
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/evgrid/chargeq/core/notification"
	"github.com/evgrid/chargeq/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker      string      `json:"broker"`
	ClientID    string      `json:"client_id"`
	Username    string      `json:"username"`
	Password    string      `json:"password"`
	TopicPrefix string      `json:"topic_prefix"`
	QoS         byte        `json:"qos"`
	UseTLS      bool        `json:"use_tls"`
	ClientCert  string      `json:"client_cert"`
	ClientKey   string      `json:"client_key"`
	CABundle    string      `json:"ca_bundle"`
	AuthMethod  string      `json:"auth_method"`
	LWTTopic    string      `json:"lwt_topic"`
	LWTPayload  string      `json:"lwt_payload"`
	LWTQoS      byte        `json:"lwt_qos"`
	LWTRetain   bool        `json:"lwt_retain"`
	MaxRetries  int         `json:"max_retries"`
	BackoffMS   int         `json:"backoff_ms"`
	TLSConfig   *tls.Config `json:"-"`
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// PahoTransport implements notification.Transport using Eclipse Paho. Each
// notification is published to <prefix>/<requester_id>.
type PahoTransport struct {
	cli        pahoClient
	prefix     string
	qos        byte
	maxRetries int
	backoff    time.Duration
	logger     logger.Logger
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoTransport connects to the MQTT broker.
func NewPahoTransport(cfg Config) (*PahoTransport, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_transport")
	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = "chargeq/notifications"
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	backoff := time.Duration(cfg.BackoffMS) * time.Millisecond
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	pt := &PahoTransport{
		prefix:     prefix,
		qos:        cfg.QoS,
		maxRetries: retries,
		backoff:    backoff,
		logger:     log,
	}

	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pt.cli = c
	return pt, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

// Publish sends the notification to the requester's topic, retrying with
// exponential backoff.
func (p *PahoTransport) Publish(ctx context.Context, n notification.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("%s/%s", p.prefix, n.RequesterID)
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		token := p.cli.Publish(topic, p.qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("sent notification %s to %s", n.ID, topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		time.Sleep(p.backoff * time.Duration(1<<attempt))
	}
	return publishErr
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoTransport) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
