package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Options 控制签名与TTL等参数。密钥由主站下发，这里只做校验
type Options struct {
	Secret []byte        // HMAC 密钥（生产用ENV/KMS）
	Alg    string        // HS256/HS384/HS512（默认 HS256）
	TTL    time.Duration // 令牌有效期（默认 2h，仅测试/工具签发时使用）
	Issuer string        // 非空时校验 iss
}

// Claims 主站签发的用户令牌
type Claims struct {
	UserID string   `json:"sub"`
	Scope  []string `json:"scope,omitempty"`
	jwtlib.RegisteredClaims
}

func DefaultOptions(secret []byte) Options {
	return Options{Secret: secret, Alg: "HS256", TTL: 2 * time.Hour}
}

// Generate 签发令牌；服务本身不签发，供联调脚本和测试用
func Generate(opts Options, userID string, scopes []string) (string, time.Time, error) {
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return "", time.Time{}, err
	}
	if opts.TTL <= 0 {
		opts.TTL = 2 * time.Hour
	}
	now := time.Now()
	exp := now.Add(opts.TTL)

	claims := Claims{
		UserID: userID,
		Scope:  scopes,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    opts.Issuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			NotBefore: jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(exp),
		},
	}
	signed, err := jwtlib.NewWithClaims(method, claims).SignedString(opts.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func Verify(opts Options, token string) (*Claims, error) {
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return nil, err
	}
	parserOpts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{method.Alg()}),
		jwtlib.WithExpirationRequired(),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwtlib.WithIssuer(opts.Issuer))
	}

	claims := &Claims{}
	parsed, err := jwtlib.ParseWithClaims(token, claims, func(t *jwtlib.Token) (interface{}, error) {
		return opts.Secret, nil
	}, parserOpts...)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == "" {
		return nil, errors.New("token subject missing")
	}
	return claims, nil
}

// BearerToken 从 "Bearer xxx" 中取出 token
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func signingMethod(alg string) (jwtlib.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", "HS256":
		return jwtlib.SigningMethodHS256, nil
	case "HS384":
		return jwtlib.SigningMethodHS384, nil
	case "HS512":
		return jwtlib.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported alg: %s (use HS256/HS384/HS512)", alg)
	}
}
