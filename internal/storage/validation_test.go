package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateContext(t *testing.T) {
	//nolint:staticcheck // exercising the nil guard
	assert.ErrorIs(t, validateContext(nil), ErrNilContext)
	assert.NoError(t, validateContext(context.Background()))
}

func TestValidateString(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"", true},
		{"   ", true},
		{"\t\n", true},
		{"token", false},
	}
	for _, tt := range tests {
		err := validateString(tt.input, "param")
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrEmptyString)
			assert.Contains(t, err.Error(), "param")
		} else {
			assert.NoError(t, err)
		}
	}
}
