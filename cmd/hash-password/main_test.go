package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hash, err := hashPassword([]byte("  drivetrain\n"), bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("drivetrain")))

	_, err = hashPassword([]byte(" \t\n"), bcrypt.MinCost)
	assert.Error(t, err)

	_, err = hashPassword([]byte("drivetrain"), bcrypt.MaxCost+1)
	assert.Error(t, err)
}
