package ssh

import (
	"fmt"
	"strings"
	"time"
)

// AuthMethod selects how a session authenticates.
type AuthMethod string

const (
	AuthMethodPassword   AuthMethod = "password"
	AuthMethodPrivateKey AuthMethod = "private_key"
)

// KeyType names the private key encoding expected in PrivateKeyPath.
type KeyType string

const (
	KeyTypeDSA KeyType = "DSA"
	KeyTypeRSA KeyType = "RSA"
)

const DefaultPort uint = 22

// MaxPacketLimit is the largest SFTP packet size the client will request.
const MaxPacketLimit = 32768

// Credentials describes one remote SFTP endpoint and how to authenticate against it
type Credentials struct {
	Host     string
	Port     uint
	Username string
	Method   AuthMethod
	// Password authentication
	Password string
	// Key-based authentication
	PrivateKeyPath string
	PrivateKeyType KeyType
	// Passphrase for private key (if encrypted)
	Passphrase string
}

// Validate checks the method-dependent required fields.
func (c *Credentials) Validate() error {
	if c == nil {
		return &ConfigurationError{Field: "credentials", Reason: "missing"}
	}
	if strings.TrimSpace(c.Host) == "" {
		return &ConfigurationError{Field: "host", Reason: "is required"}
	}
	if c.Port > 65535 {
		return &ConfigurationError{Field: "port", Reason: "must be between 1 and 65535"}
	}
	if strings.TrimSpace(c.Username) == "" {
		return &ConfigurationError{Field: "username", Reason: "is required"}
	}

	switch c.Method {
	case AuthMethodPassword:
		if c.Password == "" {
			return &ConfigurationError{Field: "password", Reason: "is required when method is password"}
		}
	case AuthMethodPrivateKey:
		if strings.TrimSpace(c.PrivateKeyPath) == "" {
			return &ConfigurationError{Field: "private_key_path", Reason: "is required when method is private_key"}
		}
		if c.PrivateKeyType != KeyTypeDSA && c.PrivateKeyType != KeyTypeRSA {
			return &ConfigurationError{Field: "private_key_type", Reason: "must be DSA or RSA when method is private_key"}
		}
	default:
		return &ConfigurationError{Field: "method", Reason: "must be password or private_key"}
	}

	return nil
}

// port returns the configured port, falling back to DefaultPort.
func (c *Credentials) port() uint {
	if c.Port == 0 {
		return DefaultPort
	}
	return c.Port
}

// Options bounds each establishment phase and sets the host key policy.
type Options struct {
	// ConnectTimeout bounds the TCP dial.
	ConnectTimeout time.Duration
	// AuthTimeout bounds the SSH handshake, authentication and SFTP channel negotiation.
	AuthTimeout time.Duration
	// KnownHostsPath enables host key verification when set.
	KnownHostsPath string
	// MaxPacket is the SFTP packet size requested from the server; 0 keeps the library default.
	MaxPacket int
}

// Validate rejects option values that would only fail once a session is open.
func (o Options) Validate() error {
	if o.MaxPacket < 0 || o.MaxPacket > MaxPacketLimit {
		return &ConfigurationError{Field: "max_packet", Reason: fmt.Sprintf("must be between 0 and %d", MaxPacketLimit)}
	}
	return nil
}

var DefaultOptions = Options{
	ConnectTimeout: 10 * time.Second,
	AuthTimeout:    15 * time.Second,
}
