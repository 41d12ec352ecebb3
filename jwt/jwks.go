package jwtkit

import (
	"crypto/rsa"
	"encoding/json"
	"net/http"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// RSAPublicToJWK converts an RSA public key to a JWK with the given kid,
// marked for signature use.
func RSAPublicToJWK(pub *rsa.PublicKey, kid string) (jwk.Key, error) {
	key, err := jwk.FromRaw(pub)
	if err != nil {
		return nil, err
	}
	if err := key.Set(jwk.KeyIDKey, kid); err != nil {
		return nil, err
	}
	if err := key.Set(jwk.KeyUsageKey, jwk.ForSignature); err != nil {
		return nil, err
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.RS256); err != nil {
		return nil, err
	}
	return key, nil
}

// ServeJWKS writes the key set as an RFC 7517 JWKS document.
func ServeJWKS(w http.ResponseWriter, _ *http.Request, set jwk.Set) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_ = json.NewEncoder(w).Encode(set)
}
