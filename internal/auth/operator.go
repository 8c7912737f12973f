package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// operatorRole is the claim value required on configuration tokens.
const operatorRole = "operator"

// Operator authenticates configuration operators with signed bearer tokens.
type Operator struct {
	Key       []byte
	Algorithm jwa.SignatureAlgorithm
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	TokenTTL  time.Duration
}

func (o Operator) algorithm() jwa.SignatureAlgorithm {
	if o.Algorithm != "" {
		return o.Algorithm
	}
	return jwa.HS256
}

// IssueToken mints an operator token for the given subject.
func (o Operator) IssueToken(subject string, now time.Time) (string, error) {
	if len(o.Key) == 0 {
		return "", errors.New("auth: signing key not configured")
	}
	ttl := o.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	builder := jwt.NewBuilder().
		Subject(subject).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		Claim("role", operatorRole)
	if o.Issuer != "" {
		builder = builder.Issuer(o.Issuer)
	}
	if o.Audience != "" {
		builder = builder.Audience([]string{o.Audience})
	}
	tok, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("auth: build token: %w", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(o.algorithm(), o.Key))
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return string(signed), nil
}

// ParseToken verifies a raw operator token and returns its subject.
func (o Operator) ParseToken(raw string) (string, error) {
	if len(o.Key) == 0 {
		return "", errors.New("auth: signing key not configured")
	}
	options := []jwt.ParseOption{
		jwt.WithKey(o.algorithm(), o.Key),
		jwt.WithValidate(true),
	}
	if o.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(o.ClockSkew))
	}
	if o.Issuer != "" {
		options = append(options, jwt.WithIssuer(o.Issuer))
	}
	if o.Audience != "" {
		options = append(options, jwt.WithAudience(o.Audience))
	}
	tok, err := jwt.Parse([]byte(raw), options...)
	if err != nil {
		return "", fmt.Errorf("auth: parse token: %w", err)
	}
	role, _ := tok.Get("role")
	if role != operatorRole {
		return "", errors.New("auth: token lacks operator role")
	}
	return tok.Subject(), nil
}
