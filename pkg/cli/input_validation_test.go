package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tommy-ca/gridtrader/internal/apperrors"
)

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid order id", input: "BTCETH:12345", wantErr: false},
		{name: "malicious command injection", input: "ls; rm -rf /", wantErr: true},
		{name: "path traversal attempt", input: "../../../etc/passwd", wantErr: true},
		{name: "sql injection attempt", input: "'; DROP TABLE users; --", wantErr: true},
		{name: "empty input", input: "", wantErr: false},
		{name: "input with spaces", input: "status of account one", wantErr: false},
		{name: "double ampersand chaining", input: "init && cancel-all", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInput(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
