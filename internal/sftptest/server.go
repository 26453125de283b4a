// Package sftptest runs an in-process SSH server exposing the sftp subsystem,
// so session establishment and listing can be tested without a remote host.
package sftptest

import (
	"bytes"
	"crypto/dsa" //nolint:staticcheck // legacy DSA keys are a supported input
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Options configures which credentials the server accepts.
type Options struct {
	Username string
	// Password enables password authentication when non-empty.
	Password string
	// AuthorizedKey enables public key authentication when non-nil.
	AuthorizedKey ssh.PublicKey
	// RejectSFTP makes the server refuse the sftp subsystem.
	RejectSFTP bool
}

// Server is a listening in-process SSH server.
type Server struct {
	Host    string
	Port    uint
	HostKey ssh.PublicKey

	opts     Options
	config   *ssh.ServerConfig
	listener net.Listener

	mu    sync.Mutex
	conns []net.Conn
	done  chan struct{}

	sftpRequests atomic.Int32
	authFailures atomic.Int32
}

// NewServer starts a server on 127.0.0.1 and stops it when the test ends.
func NewServer(t testing.TB, opts Options) *Server {
	t.Helper()

	_, hostKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}
	hostSigner, err := ssh.NewSignerFromKey(hostKey)
	if err != nil {
		t.Fatalf("host signer: %v", err)
	}

	s := &Server{
		HostKey: hostSigner.PublicKey(),
		opts:    opts,
		done:    make(chan struct{}),
	}

	s.config = &ssh.ServerConfig{}
	if opts.Password != "" {
		s.config.PasswordCallback = s.checkPassword
	}
	if opts.AuthorizedKey != nil {
		s.config.PublicKeyCallback = s.checkPublicKey
	}
	s.config.AddHostKey(hostSigner)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s.listener = listener

	addr := listener.Addr().(*net.TCPAddr)
	s.Host = addr.IP.String()
	s.Port = uint(addr.Port)

	go s.acceptLoop()
	t.Cleanup(s.Close)

	return s
}

// Addr returns host:port of the listener.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// SFTPRequests counts sftp subsystem requests received, accepted or not.
func (s *Server) SFTPRequests() int {
	return int(s.sftpRequests.Load())
}

// AuthFailures counts rejected authentication attempts.
func (s *Server) AuthFailures() int {
	return int(s.authFailures.Load())
}

// Close stops accepting and drops every open connection.
func (s *Server) Close() {
	s.listener.Close()

	s.mu.Lock()
	for _, c := range s.conns {
		c.Close()
	}
	s.conns = nil
	s.mu.Unlock()

	<-s.done
}

func (s *Server) checkPassword(conn ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
	if conn.User() == s.opts.Username && string(password) == s.opts.Password {
		return &ssh.Permissions{}, nil
	}

	s.authFailures.Add(1)
	return nil, fmt.Errorf("password rejected for %q", conn.User())
}

func (s *Server) checkPublicKey(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
	if conn.User() == s.opts.Username && bytes.Equal(key.Marshal(), s.opts.AuthorizedKey.Marshal()) {
		return &ssh.Permissions{}, nil
	}

	s.authFailures.Add(1)
	return nil, fmt.Errorf("unknown public key for %q", conn.User())
}

func (s *Server) acceptLoop() {
	defer close(s.done)

	for {
		netConn, err := s.listener.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		s.conns = append(s.conns, netConn)
		s.mu.Unlock()

		go s.handleConn(netConn)
	}
}

func (s *Server) handleConn(netConn net.Conn) {
	sshConn, chans, reqs, err := ssh.NewServerConn(netConn, s.config)
	if err != nil {
		netConn.Close()
		return
	}
	defer sshConn.Close()

	go ssh.DiscardRequests(reqs)

	for newChan := range chans {
		if newChan.ChannelType() != "session" {
			newChan.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}

		ch, requests, err := newChan.Accept()
		if err != nil {
			continue
		}

		go s.handleSession(ch, requests)
	}
}

func (s *Server) handleSession(ch ssh.Channel, requests <-chan *ssh.Request) {
	defer ch.Close()

	for req := range requests {
		if req.Type != "subsystem" || subsystemName(req.Payload) != "sftp" {
			if req.WantReply {
				req.Reply(false, nil)
			}
			continue
		}

		s.sftpRequests.Add(1)

		if s.opts.RejectSFTP {
			req.Reply(false, nil)
			continue
		}

		req.Reply(true, nil)
		go ssh.DiscardRequests(requests)

		server, err := sftp.NewServer(ch, sftp.ReadOnly())
		if err != nil {
			return
		}

		_ = server.Serve()
		server.Close()
		return
	}
}

func subsystemName(payload []byte) string {
	var msg struct {
		Name string
	}

	if err := ssh.Unmarshal(payload, &msg); err != nil {
		return ""
	}

	return msg.Name
}

// NewStallingListener accepts TCP connections and never speaks SSH on them.
func NewStallingListener(t testing.TB) (host string, port uint) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	var mu sync.Mutex
	var conns []net.Conn

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()

	t.Cleanup(func() {
		listener.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})

	addr := listener.Addr().(*net.TCPAddr)
	return addr.IP.String(), uint(addr.Port)
}

// ClosedPort returns a local port nothing listens on.
func ClosedPort(t testing.TB) uint {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := uint(listener.Addr().(*net.TCPAddr).Port)
	listener.Close()

	return port
}

// WriteRSAKey writes a fresh PKCS#1 RSA key to dir and returns its path and signer.
func WriteRSAKey(t testing.TB, dir string) (string, ssh.Signer) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}

	signer, err := ssh.NewSignerFromKey(key)
	if err != nil {
		t.Fatalf("rsa signer: %v", err)
	}

	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	path := filepath.Join(dir, "id_rsa")
	if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
		t.Fatalf("write rsa key: %v", err)
	}

	return path, signer
}

// WriteDSAKey writes a fresh OpenSSL-format DSA key to dir and returns its path and signer.
func WriteDSAKey(t testing.TB, dir string) (string, ssh.Signer) {
	t.Helper()

	var key dsa.PrivateKey
	if err := dsa.GenerateParameters(&key.Parameters, rand.Reader, dsa.L1024N160); err != nil {
		t.Fatalf("generate dsa parameters: %v", err)
	}
	if err := dsa.GenerateKey(&key, rand.Reader); err != nil {
		t.Fatalf("generate dsa key: %v", err)
	}

	signer, err := ssh.NewSignerFromKey(&key)
	if err != nil {
		t.Fatalf("dsa signer: %v", err)
	}

	der, err := asn1.Marshal(struct {
		Version int
		P       *big.Int
		Q       *big.Int
		G       *big.Int
		Pub     *big.Int
		Priv    *big.Int
	}{0, key.P, key.Q, key.G, key.Y, key.X})
	if err != nil {
		t.Fatalf("marshal dsa key: %v", err)
	}

	path := filepath.Join(dir, "id_dsa")
	if err := os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "DSA PRIVATE KEY", Bytes: der}), 0o600); err != nil {
		t.Fatalf("write dsa key: %v", err)
	}

	return path, signer
}

// MakeDir creates a temporary directory holding empty files with the given names.
func MakeDir(t testing.TB, names ...string) string {
	t.Helper()

	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	return dir
}
