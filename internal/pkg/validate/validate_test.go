package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Handle   string `validate:"required,handle"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6,max=72"`
}

func TestHandle(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"alice", true},
		{"Alice_99", true},
		{"a", false},
		{"has space", false},
		{"dash-ed", false},
		{"abcdefghijklmnopqrstu", false},
		{"", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Handle(c.in), "input: %q", c.in)
	}
}

func TestStruct_Valid(t *testing.T) {
	require.NoError(t, Struct(signup{Handle: "alice", Email: "a@x.com", Password: "pw1234567"}))
}

func TestStruct_ReportsEveryField(t *testing.T) {
	err := Struct(signup{Handle: "a!", Email: "nope", Password: "123"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handle must be 2-20 letters")
	assert.Contains(t, err.Error(), "email must be a valid email address")
	assert.Contains(t, err.Error(), "password must be at least 6 characters")
}

func TestStruct_Required(t *testing.T) {
	err := Struct(signup{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handle is required")
}
