package digest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/luxfi/kms/pkg/digest"
)

func TestVector(t *testing.T) {
	assert.Equal(t,
		"9c22ff5f21f0b81b113e63f7db6da94fedef11b2119b4088b89664fb9a3cb658",
		digest.Of("test"))
}

func TestDeterminism(t *testing.T) {
	assert.Equal(t, digest.Of("abc"), digest.Of("abc"))
}

func TestDistinctInputsDiffer(t *testing.T) {
	assert.NotEqual(t, digest.Of("abc"), digest.Of("abd"))
}
