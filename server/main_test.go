package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	logger, err := newLogger()
	require.NoError(t, err)
	assert.NotNil(t, logger.Core())
}
