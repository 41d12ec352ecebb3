// Package jwtkit provides RSA signing and JWKS rendering for access tokens.
package jwtkit

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Signer signs claim sets into compact JWTs.
type Signer interface {
	Sign(ctx context.Context, claims map[string]any) (string, error)
	KID() string
}

// RSASigner signs RS256 tokens with a single private key.
type RSASigner struct {
	kid  string
	priv *rsa.PrivateKey
}

// NewRSASigner generates a fresh RSA key of the given size.
func NewRSASigner(bits int, kid string) (*RSASigner, error) {
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	return &RSASigner{kid: kid, priv: priv}, nil
}

// NewRSASignerFromPEM loads a PKCS#1 or PKCS#8 encoded private key.
func NewRSASignerFromPEM(pemBytes []byte, kid string) (*RSASigner, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("jwtkit: no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return &RSASigner{kid: kid, priv: key}, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwtkit: parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("jwtkit: private key is not RSA")
	}
	return &RSASigner{kid: kid, priv: key}, nil
}

func (s *RSASigner) KID() string               { return s.kid }
func (s *RSASigner) PublicKey() *rsa.PublicKey { return &s.priv.PublicKey }

func (s *RSASigner) Sign(_ context.Context, claims map[string]any) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims(claims))
	tok.Header["kid"] = s.kid
	return tok.SignedString(s.priv)
}

// KeySource supplies the active signer plus all public keys for JWKS.
type KeySource interface {
	ActiveSigner() Signer
	PublicKeys() map[string]*rsa.PublicKey
}

type staticKeySource struct {
	signer *RSASigner
}

func (s *staticKeySource) ActiveSigner() Signer { return s.signer }
func (s *staticKeySource) PublicKeys() map[string]*rsa.PublicKey {
	return map[string]*rsa.PublicKey{s.signer.KID(): s.signer.PublicKey()}
}

// NewStaticKeySource wraps a single signer.
func NewStaticKeySource(signer *RSASigner) KeySource {
	return &staticKeySource{signer: signer}
}

// NewAutoKeySource discovers keys with this priority:
//  1. ACTIVE_KEY_ID + ACTIVE_PRIVATE_KEY_PEM environment variables
//  2. auto-generated development key (non-production only)
func NewAutoKeySource() (KeySource, error) {
	if pemStr := os.Getenv("ACTIVE_PRIVATE_KEY_PEM"); pemStr != "" {
		kid := os.Getenv("ACTIVE_KEY_ID")
		if kid == "" {
			kid = "active"
		}
		signer, err := NewRSASignerFromPEM([]byte(pemStr), kid)
		if err != nil {
			return nil, err
		}
		return NewStaticKeySource(signer), nil
	}
	signer, err := NewRSASigner(2048, "dev")
	if err != nil {
		return nil, err
	}
	return NewStaticKeySource(signer), nil
}
