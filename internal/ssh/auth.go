package ssh

import (
	"crypto/dsa" //nolint:staticcheck // legacy DSA keys are a supported input
	"crypto/rsa"
	"errors"
	"fmt"
	"os"

	"github.com/melbahja/goph"
	"golang.org/x/crypto/ssh"
)

// Authenticator produces the SSH auth methods for one authentication variant.
type Authenticator interface {
	Method() AuthMethod
	Auth() (goph.Auth, error)
}

// PasswordAuth authenticates with a plain password.
type PasswordAuth struct {
	Password string
}

func (a PasswordAuth) Method() AuthMethod {
	return AuthMethodPassword
}

func (a PasswordAuth) Auth() (goph.Auth, error) {
	return goph.Password(a.Password), nil
}

// PrivateKeyAuth authenticates with a DSA or RSA private key read from disk.
type PrivateKeyAuth struct {
	Path       string
	KeyType    KeyType
	Passphrase string
}

func (a PrivateKeyAuth) Method() AuthMethod {
	return AuthMethodPrivateKey
}

func (a PrivateKeyAuth) Auth() (goph.Auth, error) {
	path, err := expandHomePath(a.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve private key path %s: %w", a.Path, err)
	}

	keyBytes, err := os.ReadFile(path) // #nosec G304 -- key path is operator input
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPrivateKeyNotFound, a.Path)
		}
		return nil, fmt.Errorf("read private key %s: %w", a.Path, err)
	}

	signer, err := DecodePrivateKey(keyBytes, a.KeyType, a.Passphrase)
	if err != nil {
		return nil, err
	}

	return goph.Auth{ssh.PublicKeys(signer)}, nil
}

// NewAuthenticator picks the authentication variant for creds.
func NewAuthenticator(creds *Credentials) (Authenticator, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	switch creds.Method {
	case AuthMethodPrivateKey:
		return PrivateKeyAuth{
			Path:       creds.PrivateKeyPath,
			KeyType:    creds.PrivateKeyType,
			Passphrase: creds.Passphrase,
		}, nil
	default:
		return PasswordAuth{Password: creds.Password}, nil
	}
}

// DecodePrivateKey parses a PEM encoded key and checks it is of the declared type.
func DecodePrivateKey(pemBytes []byte, keyType KeyType, passphrase string) (ssh.Signer, error) {
	var rawKey interface{}
	var err error

	if passphrase != "" {
		rawKey, err = ssh.ParseRawPrivateKeyWithPassphrase(pemBytes, []byte(passphrase))
	} else {
		rawKey, err = ssh.ParseRawPrivateKey(pemBytes)
	}

	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, ErrPassphraseRequired
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedPrivateKey, err)
	}

	switch keyType {
	case KeyTypeRSA:
		key, ok := rawKey.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: expected RSA, got %T", ErrKeyTypeMismatch, rawKey)
		}
		return newSigner(key)
	case KeyTypeDSA:
		key, ok := rawKey.(*dsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: expected DSA, got %T", ErrKeyTypeMismatch, rawKey)
		}
		return newSigner(key)
	}

	return nil, fmt.Errorf("%w: unsupported key type %q", ErrMalformedPrivateKey, keyType)
}

func newSigner(key interface{}) (ssh.Signer, error) {
	signer, err := ssh.NewSignerFromKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPrivateKey, err)
	}
	return signer, nil
}

// PrivateKeyEncrypted reports whether the key file at path is passphrase protected.
func PrivateKeyEncrypted(path string) (bool, error) {
	path, err := expandHomePath(path)
	if err != nil {
		return false, err
	}

	keyBytes, err := os.ReadFile(path) // #nosec G304 -- key path is operator input
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("%w: %s", ErrPrivateKeyNotFound, path)
		}
		return false, err
	}

	_, err = ssh.ParseRawPrivateKey(keyBytes)

	var missing *ssh.PassphraseMissingError
	return errors.As(err, &missing), nil
}
