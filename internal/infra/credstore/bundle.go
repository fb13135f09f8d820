package credstore

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

var (
	// ErrBundleRead is returned when the bundle file cannot be read.
	ErrBundleRead = errors.New("credstore: cannot read credential bundle")

	// ErrWrongPassword is returned when the bundle password is incorrect.
	ErrWrongPassword = errors.New("credstore: credential bundle password incorrect")

	// ErrMalformedBundle is returned when the bundle cannot be decoded.
	ErrMalformedBundle = errors.New("credstore: malformed credential bundle")

	// ErrKeyMismatch is returned when the private key does not belong to
	// the bundled certificate.
	ErrKeyMismatch = errors.New("credstore: private key does not match certificate")
)

// oidUserID is the LDAP UID attribute. Push certificates carry the app
// identifier (topic) in it.
var oidUserID = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 1}

// BundleInfo describes the client certificate of a loaded bundle.
type BundleInfo struct {
	Subject   string    `json:"subject" yaml:"subject"`
	Issuer    string    `json:"issuer" yaml:"issuer"`
	Topic     string    `json:"topic,omitempty" yaml:"topic,omitempty"`
	NotBefore time.Time `json:"not_before" yaml:"not_before"`
	NotAfter  time.Time `json:"not_after" yaml:"not_after"`
}

// Expired reports whether the certificate is outside its validity window
// at now.
func (i BundleInfo) Expired(now time.Time) bool {
	return now.Before(i.NotBefore) || now.After(i.NotAfter)
}

// Describe extracts BundleInfo from a loaded certificate.
func Describe(cert *tls.Certificate) BundleInfo {
	leaf, err := Leaf(cert)
	if err != nil {
		return BundleInfo{}
	}

	info := BundleInfo{
		Subject:   leaf.Subject.String(),
		Issuer:    leaf.Issuer.String(),
		NotBefore: leaf.NotBefore,
		NotAfter:  leaf.NotAfter,
	}
	for _, name := range leaf.Subject.Names {
		if name.Type.Equal(oidUserID) {
			if s, ok := name.Value.(string); ok {
				info.Topic = s
			}
		}
	}
	if info.Topic == "" {
		_, after, ok := strings.Cut(leaf.Subject.CommonName, ": ")
		if ok {
			info.Topic = after
		}
	}
	return info
}

// BundleLoader loads PKCS#12 client credential bundles from disk.
type BundleLoader struct{}

// NewBundleLoader creates a bundle loader.
func NewBundleLoader() *BundleLoader {
	return &BundleLoader{}
}

// Load reads the bundle at path and decodes it with password.
// An empty password stands for "no password".
func (l *BundleLoader) Load(path, password string) (*tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrBundleRead, path, err)
	}

	return DecodeBundle(data, password)
}

// DecodeBundle decodes PKCS#12 data into a TLS client certificate.
// The leaf comes first in the chain, followed by any bundled CA
// certificates.
func DecodeBundle(data []byte, password string) (*tls.Certificate, error) {
	key, leaf, caCerts, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return nil, ErrWrongPassword
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedBundle, err)
	}
	if leaf == nil || key == nil {
		return nil, fmt.Errorf("%w: bundle has no certificate and private key", ErrMalformedBundle)
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported private key type %T", ErrMalformedBundle, key)
	}
	if !publicKeyEqual(signer.Public(), leaf.PublicKey) {
		return nil, ErrKeyMismatch
	}

	chain := make([][]byte, 0, 1+len(caCerts))
	chain = append(chain, leaf.Raw)
	for _, ca := range caCerts {
		chain = append(chain, ca.Raw)
	}

	return &tls.Certificate{
		Certificate: chain,
		PrivateKey:  signer,
		Leaf:        leaf,
	}, nil
}

func publicKeyEqual(a, b crypto.PublicKey) bool {
	type equaler interface {
		Equal(x crypto.PublicKey) bool
	}
	switch k := a.(type) {
	case *rsa.PublicKey, *ecdsa.PublicKey, ed25519.PublicKey:
		return k.(equaler).Equal(b)
	default:
		return false
	}
}

// Leaf returns the parsed leaf certificate of cert, parsing it if needed.
func Leaf(cert *tls.Certificate) (*x509.Certificate, error) {
	if cert == nil || len(cert.Certificate) == 0 {
		return nil, errors.New("credstore: empty certificate")
	}
	if cert.Leaf != nil {
		return cert.Leaf, nil
	}
	return x509.ParseCertificate(cert.Certificate[0])
}
