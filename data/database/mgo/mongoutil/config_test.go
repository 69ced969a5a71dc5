package mongoutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestValidateAndSetDefaults(t *testing.T) {
	c := &Config{Address: []string{"h1:27017", "h2:27017"}, Database: "gym", Username: "u", Password: "p"}
	require.NoError(t, c.ValidateAndSetDefaults())
	assert.Equal(t, defaultMaxPoolSize, c.MaxPoolSize)
	assert.Equal(t, defaultMaxRetry, c.MaxRetry)
	assert.Equal(t, "mongodb://u:p@h1:27017,h2:27017/gym?authSource=gym&maxPoolSize=100", c.Uri)

	c = &Config{Address: []string{"h1"}, Database: "gym", AuthSource: "admin", MaxPoolSize: 5}
	require.NoError(t, c.ValidateAndSetDefaults())
	assert.Equal(t, "mongodb://h1/gym?authSource=admin&maxPoolSize=5", c.Uri)

	assert.Error(t, (&Config{Database: "gym"}).ValidateAndSetDefaults())
	assert.Error(t, (&Config{Uri: "mongodb://x"}).ValidateAndSetDefaults())
}

func TestShouldRetry(t *testing.T) {
	ctx := context.Background()
	assert.True(t, shouldRetry(ctx, errors.New("timeout")))
	assert.False(t, shouldRetry(ctx, mongo.CommandError{Code: 18}))
	assert.True(t, shouldRetry(ctx, mongo.CommandError{Code: 11600}))

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	assert.False(t, shouldRetry(cctx, errors.New("timeout")))
}

func TestApplyConfigToOptions(t *testing.T) {
	opts, err := applyConfigToOptions(&Config{Uri: "mongodb://localhost:27017", Database: "gym", MaxPoolSize: 7, Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), *opts.MaxPoolSize)
	assert.Equal(t, "gym", opts.Auth.AuthSource)

	_, err = applyConfigToOptions(&Config{})
	assert.Error(t, err)
}
