// Package crypto builds the TLS material for serving the form over HTTPS.
package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"math/big"
	"net"
	"strings"
	"time"

	"github.com/yuzeguitarist/text2qr/internal/app"
)

var ErrNoHosts = errors.New("certificate needs at least one host")

// GenerateSelfSigned creates a self-signed ECDSA P-256 certificate. Each host
// becomes an IP SAN when it parses as an address and a DNS SAN otherwise.
func GenerateSelfSigned(hosts []string, validFor time.Duration) (certPEM, keyPEM []byte, err error) {
	var ips []net.IP
	var names []string
	for _, h := range hosts {
		h = strings.TrimSpace(h)
		switch ip := net.ParseIP(h); {
		case h == "":
		case ip != nil:
			ips = append(ips, ip)
		default:
			names = append(names, h)
		}
	}
	if len(ips) == 0 && len(names) == 0 {
		return nil, nil, ErrNoHosts
	}

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	tpl := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   app.Name + "-selfsigned",
			Organization: []string{app.Name},
		},
		NotBefore: now.Add(-5 * time.Minute),
		NotAfter:  now.Add(validFor),

		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,

		IPAddresses: ips,
		DNSNames:    names,
	}
	der, err := x509.CreateCertificate(rand.Reader, &tpl, &tpl, &priv.PublicKey, priv)
	if err != nil {
		return nil, nil, err
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, nil, err
	}
	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM, nil
}

// Fingerprint is the SHA-256 of a DER certificate as colon-separated
// uppercase hex, the form `openssl x509 -fingerprint -sha256` prints.
func Fingerprint(der []byte) string {
	sum := sha256.Sum256(der)
	pin := strings.ToUpper(hex.EncodeToString(sum[:]))
	parts := make([]string, 0, len(sum))
	for i := 0; i < len(pin); i += 2 {
		parts = append(parts, pin[i:i+2])
	}
	return strings.Join(parts, ":")
}

// ServerConfig returns a TLS config for the given key pair, or for a fresh
// self-signed certificate covering hosts when both paths are empty. The
// second value is the leaf certificate fingerprint.
func ServerConfig(certFile, keyFile string, hosts []string) (*tls.Config, string, error) {
	var cert tls.Certificate
	var err error
	if certFile != "" || keyFile != "" {
		cert, err = tls.LoadX509KeyPair(certFile, keyFile)
	} else {
		var certPEM, keyPEM []byte
		if certPEM, keyPEM, err = GenerateSelfSigned(hosts, 365*24*time.Hour); err == nil {
			cert, err = tls.X509KeyPair(certPEM, keyPEM)
		}
	}
	if err != nil {
		return nil, "", err
	}
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	}, Fingerprint(cert.Certificate[0]), nil
}

// Hosts lists the names a self-signed certificate for listenHost should
// cover: the host itself unless it is a wildcard, plus localhost and the
// loopback addresses.
func Hosts(listenHost string) []string {
	hosts := []string{"localhost", "127.0.0.1", "::1"}
	switch listenHost {
	case "", "0.0.0.0", "::", "localhost", "127.0.0.1", "::1":
		return hosts
	}
	return append([]string{listenHost}, hosts...)
}
