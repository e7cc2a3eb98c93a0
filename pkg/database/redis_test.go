package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/schema-intel/pkg/config"
)

func TestNewRedisClient_ReturnsNilClientWhenHostEmpty(t *testing.T) {
	client, err := NewRedisClient(&config.RedisConfig{})

	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewRedisClient_ErrorsWhenUnreachable(t *testing.T) {
	client, err := NewRedisClient(&config.RedisConfig{Host: "127.0.0.1", Port: 1})

	assert.Error(t, err)
	assert.Nil(t, client)
}
