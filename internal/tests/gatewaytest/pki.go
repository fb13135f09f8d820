package gatewaytest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

// PKI is a throwaway certificate authority.
type PKI struct {
	CA    *x509.Certificate
	Pool  *x509.CertPool
	CAPEM []byte

	key *ecdsa.PrivateKey
}

// NewPKI creates a self-signed CA valid for one day.
func NewPKI(t testing.TB) *PKI {
	t.Helper()

	key := newKey(t)
	template := &x509.Certificate{
		SerialNumber: newSerial(t),
		Subject: pkix.Name{
			Organization: []string{"apnsconn test"},
			CommonName:   "apnsconn test CA",
		},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate(CA) error = %v", err)
	}
	ca, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("ParseCertificate(CA) error = %v", err)
	}

	pool := x509.NewCertPool()
	pool.AddCert(ca)

	return &PKI{
		CA:    ca,
		Pool:  pool,
		CAPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		key:   key,
	}
}

// ClientCert issues a client-auth certificate. The common name mimics
// the "Apple Push Services: <bundle id>" subject of real push certs.
func (p *PKI) ClientCert(t testing.TB, identifier string) (*x509.Certificate, *ecdsa.PrivateKey) {
	t.Helper()

	key := newKey(t)
	template := &x509.Certificate{
		SerialNumber: newSerial(t),
		Subject: pkix.Name{
			Organization: []string{"apnsconn test"},
			CommonName:   "Apple Push Services: " + identifier,
		},
		NotBefore:   time.Now().Add(-time.Minute),
		NotAfter:    time.Now().Add(24 * time.Hour),
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}

	return p.sign(t, template, key), key
}

// ServerCertificate issues a TLS server certificate for hosts.
// IP literals go into the IP SANs, everything else into DNS SANs.
func (p *PKI) ServerCertificate(t testing.TB, hosts ...string) tls.Certificate {
	t.Helper()

	key := newKey(t)
	template := &x509.Certificate{
		SerialNumber: newSerial(t),
		Subject: pkix.Name{
			Organization: []string{"apnsconn test"},
			CommonName:   "gateway",
		},
		NotBefore:   time.Now().Add(-time.Minute),
		NotAfter:    time.Now().Add(24 * time.Hour),
		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	cert := p.sign(t, template, key)
	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  key,
		Leaf:        cert,
	}
}

// BundleBytes encodes a fresh client certificate for identifier as a
// legacy (3DES) PKCS#12 bundle, the format older keychain exports use.
func (p *PKI) BundleBytes(t testing.TB, identifier, password string) []byte {
	t.Helper()

	cert, key := p.ClientCert(t, identifier)
	data, err := pkcs12.LegacyDES.Encode(key, cert, []*x509.Certificate{p.CA}, password)
	if err != nil {
		t.Fatalf("pkcs12 Encode() error = %v", err)
	}
	return data
}

// ModernBundleBytes is like BundleBytes but uses PBES2/AES encryption.
func (p *PKI) ModernBundleBytes(t testing.TB, identifier, password string) []byte {
	t.Helper()

	cert, key := p.ClientCert(t, identifier)
	data, err := pkcs12.Modern.Encode(key, cert, nil, password)
	if err != nil {
		t.Fatalf("pkcs12 Encode() error = %v", err)
	}
	return data
}

// WriteBundle writes a legacy bundle into dir and returns its path.
func (p *PKI) WriteBundle(t testing.TB, dir, name, identifier, password string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, p.BundleBytes(t, identifier, password), 0600); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
	return path
}

// WriteCAFile writes the CA certificate as PEM into dir.
func (p *PKI) WriteCAFile(t testing.TB, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "ca.pem")
	if err := os.WriteFile(path, p.CAPEM, 0644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
	return path
}

func (p *PKI) sign(t testing.TB, template *x509.Certificate, key *ecdsa.PrivateKey) *x509.Certificate {
	t.Helper()

	der, err := x509.CreateCertificate(rand.Reader, template, p.CA, &key.PublicKey, p.key)
	if err != nil {
		t.Fatalf("CreateCertificate() error = %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("ParseCertificate() error = %v", err)
	}
	return cert
}

func newKey(t testing.TB) *ecdsa.PrivateKey {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	return key
}

func newSerial(t testing.TB) *big.Int {
	t.Helper()

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		t.Fatalf("rand.Int() error = %v", err)
	}
	return serial
}
