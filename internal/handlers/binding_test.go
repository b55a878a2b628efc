package handlers

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestBindingErrorMessageFieldErrors(t *testing.T) {
	v := validator.New()
	payload := struct {
		Name string `validate:"required"`
		Kind string `validate:"oneof=DEBIT CREDIT"`
	}{Kind: "TRANSFER"}

	err := v.Struct(payload)
	assert.Error(t, err)

	msg := bindingErrorMessage(err)
	assert.Contains(t, msg, "field 'Name' is required")
	assert.Contains(t, msg, "field 'Kind' must be one of [DEBIT CREDIT]")
}

func TestBindingErrorMessagePassthrough(t *testing.T) {
	msg := bindingErrorMessage(errors.New("unexpected EOF"))
	assert.Equal(t, "Invalid request format: unexpected EOF", msg)
}
