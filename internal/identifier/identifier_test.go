package identifier

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  Kind
	}{
		{"email", "a@x.io", Email},
		{"email wins over id format", "507f1f77bcf86cd7994390@1", Email},
		{"email with spaces", "  A@X.io ", Email},
		{"directory id", "507f1f77bcf86cd799439011", DirectoryID},
		{"directory id upper", "507F1F77BCF86CD799439011", DirectoryID},
		{"uuid", "9b2e7c2a-4a1e-4f4e-9d8e-2f1b7c9a0e11", StableUUID},
		{"uuid upper", "9B2E7C2A-4A1E-4F4E-9D8E-2F1B7C9A0E11", StableUUID},
		{"uuid without hyphens", "9b2e7c2a4a1e4f4e9d8e2f1b7c9a0e11", Invalid},
		{"23 hex", "507f1f77bcf86cd79943901", Invalid},
		{"garbage", "garbage", Invalid},
		{"empty", "", Invalid},
		{"blank", "   ", Invalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.value))
		})
	}
}

func TestNewDirectoryID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NewDirectoryID()
		assert.Len(t, id, 24)
		assert.Equal(t, DirectoryID, Classify(id))
		_, dup := seen[id]
		assert.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestGeneratedUUIDsClassify(t *testing.T) {
	for i := 0; i < 50; i++ {
		assert.True(t, IsStableUUID(uuid.NewString()))
	}
	assert.False(t, IsDirectoryID(uuid.NewString()))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "email", Email.String())
	assert.Equal(t, "id", DirectoryID.String())
	assert.Equal(t, "uuid", StableUUID.String())
	assert.Equal(t, "invalid", Invalid.String())
}
