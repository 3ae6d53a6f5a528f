package errors

import (
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "users", false},
		{"valid with underscore", "for_users", false},
		{"valid leading underscore", "_internal", false},
		{"valid with dot", "tasks.v2", false},
		{"valid with dash", "by-name", false},
		{"valid with digits", "users2", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 200)), true},
		{"leading digit", "2users", true},
		{"space", "by name", true},
		{"quote", "users\"", true},
		{"semicolon", "users;drop", true},
		{"null byte", "foo\x00bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName("relation", tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidName) {
				t.Errorf("ValidateName(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	schemes := []string{"mongodb", "mongodb+srv"}
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"mongodb", "mongodb://localhost:27017", false},
		{"srv", "mongodb+srv://cluster.example.com", false},

		{"empty", "", true},
		{"http", "http://example.com", true},
		{"no scheme", "localhost:27017", true},
		{"javascript", "javascript:alert(1)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.input, schemes...)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "data/users.json", false},
		{"valid nested", "fixtures/app/tasks.json", false},
		{"valid filename only", "users.json", false},
		{"valid with dots", "v1.2.3/users.json", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 600)), true},
		{"absolute path", "/etc/passwd", true},
		{"path traversal", "../../../etc/passwd", true},
		{"path traversal middle", "foo/../bar", true},
		{"null byte", "foo\x00bar", true},
		{"backslash", "foo\\bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPath) {
				t.Errorf("ValidatePath(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidInput,
		ErrCodeInvalidConfig,
		ErrCodeInvalidQuery,
		ErrCodeInvalidPath,
		ErrCodeInvalidName,
		ErrCodeNotFound,
		ErrCodeRelationNotFound,
		ErrCodeUnsupportedRelation,
		ErrCodeNoSuchOperation,
		ErrCodeArityMismatch,
		ErrCodeNetwork,
		ErrCodeTimeout,
		ErrCodeInternal,
		ErrCodeUnsupported,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
