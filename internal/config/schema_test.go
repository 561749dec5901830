// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironlog/ironlog/pkg/errutil"
)

func TestGenerateSchema(t *testing.T) {
	raw, err := GenerateSchema()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, SchemaID, doc["$id"])

	props := doc["properties"].(map[string]any)
	authProps := props["auth"].(map[string]any)["properties"].(map[string]any)
	window := authProps["login_rate_window"].(map[string]any)
	assert.Equal(t, "string", window["type"])
}

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{name: "empty", yaml: ""},
		{name: "full", yaml: `
environment: production
auth:
  admin_email: admin@example.com
  pbkdf2_iterations: 300000
  session_ttl_days: 14
  login_rate_limit: 10
  login_rate_window: 30m
http:
  addr: ":8080"
metrics:
  addr: ""
database:
  url: postgres://localhost/ironlog
log:
  format: text
`},
		{name: "unknown top-level key", yaml: "listen: :80\n", wantErr: true},
		{name: "bad environment", yaml: "environment: staging\n", wantErr: true},
		{name: "duration as number", yaml: "auth:\n  login_rate_window: 900\n", wantErr: true},
		{name: "malformed yaml", yaml: "auth: [\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFile([]byte(tt.yaml))
			if tt.wantErr {
				errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFormatSchemaError(t *testing.T) {
	assert.Empty(t, FormatSchemaError(nil))
	assert.Equal(t, "- at '': bad", FormatSchemaError(assertErr("jsonschema validation failed\n- at '': bad")))
	assert.Equal(t, "plain", FormatSchemaError(assertErr("plain")))
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
