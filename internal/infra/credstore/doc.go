// Package credstore provides client credential and trust root management.
//
// This package handles the certificate material a gateway connection
// needs:
//
//   - bundle.go: PKCS#12 client credential bundle loading
//   - roots.go: System certificates + custom CA loading
//   - watcher.go: Credential bundle hot-reload via fsnotify
//
// Bundles are decoded with software.sslmate.com/src/go-pkcs12, which
// reads both legacy (RC2/3DES) and modern (PBES2/AES) encodings.
package credstore
