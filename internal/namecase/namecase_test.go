package namecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariants_SnakeInput(t *testing.T) {
	variants := Variants("get_user_name")
	assert.Contains(t, variants, "get_user_name")
	assert.Contains(t, variants, "getUserName")
	assert.Contains(t, variants, "GetUserName")
	assert.Contains(t, variants, "get-user-name")
	assert.Contains(t, variants, "GET_USER_NAME")
}

func TestVariants_CamelInput(t *testing.T) {
	variants := Variants("getUserName")
	assert.Contains(t, variants, "get_user_name")
	assert.Contains(t, variants, "GetUserName")
}

func TestVariants_PascalInput(t *testing.T) {
	variants := Variants("GetUserName")
	assert.Contains(t, variants, "get_user_name")
	assert.Contains(t, variants, "getUserName")
}

func TestVariants_SingleWordIsStable(t *testing.T) {
	variants := Variants("parse")
	assert.Contains(t, variants, "parse")
	assert.Contains(t, variants, "Parse")
	assert.Contains(t, variants, "PARSE")
}

func TestVariants_NoDuplicates(t *testing.T) {
	variants := Variants("id")
	seen := make(map[string]int)
	for _, v := range variants {
		seen[v]++
	}
	for v, count := range seen {
		assert.Equal(t, 1, count, "duplicate variant %q", v)
	}
}
