package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"john.doe@example.com", "jo***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"a@b.c", "***@b.c"},
		{"not-an-email", "***@***"},
		{"a@b@c", "***@***"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactEmail(tt.in))
		})
	}
}

func TestAuditLog(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf).WithComponent("test")

	log.AuditLog("recipient.removed", "recipient", "abc", map[string]interface{}{"source": "api"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "true", entry["audit"])
	assert.Equal(t, "recipient.removed", entry["action"])
	assert.Equal(t, "recipient", entry["resource_type"])
	assert.Equal(t, "abc", entry["resource_id"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, map[string]interface{}{"source": "api"}, entry["metadata"])
}
