package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoExpiry     = errors.New("token_without_expiry")
	ErrInvalidKey   = errors.New("invalid_public_key")
	errUnverifiable = errors.New("no key configured for signing method")
)

// Claims carries what the backend's flask-jwt-extended tokens expose. The
// identity is the user id as a string.
type Claims struct {
	Type string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// Keys verify access tokens. Secret matches the backend's JWT_SECRET_KEY
// (HS256); PublicKeyPEM is for deployments that sign with RS256.
type Keys struct {
	Secret       string
	PublicKeyPEM string
}

// Inspector reads tokens issued to this client. With no keys the signature
// is not checked: the client only needs the expiry to schedule a refresh,
// and the backend remains the authority on validity.
type Inspector struct {
	secret    []byte
	publicKey *rsa.PublicKey
	methods   []string
}

func NewInspector(keys Keys) (*Inspector, error) {
	i := &Inspector{}
	if keys.Secret != "" {
		i.secret = []byte(keys.Secret)
		i.methods = append(i.methods, jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg())
	}
	if keys.PublicKeyPEM != "" {
		publicKey, err := parsePublicKey(keys.PublicKeyPEM)
		if err != nil {
			return nil, err
		}
		i.publicKey = publicKey
		i.methods = append(i.methods, jwt.SigningMethodRS256.Alg())
	}
	return i, nil
}

func (i *Inspector) Verifies() bool {
	return i != nil && len(i.methods) > 0
}

// Parse checks the signature when keys are configured. Time-based claims
// are not enforced: an expired token must still report when it expired.
func (i *Inspector) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if !i.Verifies() {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
			return nil, err
		}
		return claims, nil
	}
	parser := jwt.NewParser(jwt.WithValidMethods(i.methods), jwt.WithoutClaimsValidation())
	token, err := parser.ParseWithClaims(tokenString, claims, i.keyFor)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func (i *Inspector) keyFor(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if i.secret != nil {
			return i.secret, nil
		}
	case *jwt.SigningMethodRSA:
		if i.publicKey != nil {
			return i.publicKey, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", errUnverifiable, token.Method.Alg())
}

func (i *Inspector) ExpiresAt(tokenString string) (time.Time, error) {
	claims, err := i.Parse(tokenString)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// parsePublicKey accepts PKIX ("PUBLIC KEY") and PKCS#1 ("RSA PUBLIC KEY")
// encodings whatever the block header says.
func parsePublicKey(pemData string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, ErrInvalidKey
	}
	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidKey)
	}
	return key, nil
}
