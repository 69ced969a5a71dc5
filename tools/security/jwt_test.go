package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("gymchat-test-secret")

func TestGenerateVerify(t *testing.T) {
	opts := DefaultOptions(testSecret)
	opts.Issuer = "gym-market"

	tok, exp, err := Generate(opts, "user-1", []string{"chat"})
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := Verify(opts, tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, []string{"chat"}, claims.Scope)
}

func TestVerifyRejects(t *testing.T) {
	opts := DefaultOptions(testSecret)
	tok, _, err := Generate(opts, "user-1", nil)
	require.NoError(t, err)

	// 密钥不对
	_, err = Verify(DefaultOptions([]byte("other")), tok)
	assert.Error(t, err)

	// 算法不一致
	other := DefaultOptions(testSecret)
	other.Alg = "HS512"
	_, err = Verify(other, tok)
	assert.Error(t, err)

	// 过期
	tok2, _, err := Generate(Options{Secret: testSecret, TTL: time.Millisecond}, "user-2", nil)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	_, err = Verify(opts, tok2)
	assert.Error(t, err)

	// issuer 不匹配
	iss := DefaultOptions(testSecret)
	iss.Issuer = "someone-else"
	_, err = Verify(iss, tok)
	assert.Error(t, err)

	_, err = Verify(Options{Secret: testSecret, Alg: "RS256"}, tok)
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer   abc "))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken(""))
}
