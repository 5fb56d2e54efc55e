package validate

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name     string `json:"name" validate:"required"`
	Interval int    `json:"interval" validate:"gte=5,lte=120"`
	Mode     string `json:"mode" validate:"omitempty,oneof=memory redis"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(sample{Name: "a", Interval: 30, Mode: "redis"}))
}

func TestStruct_Errors(t *testing.T) {
	err := Struct(sample{Interval: 200, Mode: "disk"})
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	fields := ve.Fields()
	require.Len(t, fields, 3)
	assert.Equal(t, [2]string{"Name", "is required"}, fields[0])
	assert.Equal(t, [2]string{"Interval", "must be less than or equal to 120"}, fields[1])
	assert.Equal(t, [2]string{"Mode", "must be one of: memory redis"}, fields[2])
	assert.Contains(t, err.Error(), "field 'Name' is required")
}

func TestDecodeAndValidate(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"x","interval":10}`))
	var s sample
	require.NoError(t, DecodeAndValidate(req, &s))
	assert.Equal(t, 10, s.Interval)

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{"name":`))
	assert.ErrorContains(t, DecodeAndValidate(req, &s), "decode request body")
}
