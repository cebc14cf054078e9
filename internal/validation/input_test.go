package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateLength(t *testing.T) {
	assert.NoError(t, ValidateLength("поле", "абв", 1, 3))
	assert.Error(t, ValidateLength("поле", "", 1, 3))
	assert.Error(t, ValidateLength("поле", "абвг", 1, 3))
}

func TestValidateTerms(t *testing.T) {
	assert.NoError(t, ValidateTerms("", ""))
	assert.NoError(t, ValidateTerms("Одна страница", "Без возврата после сдачи"))
	assert.Error(t, ValidateTerms(strings.Repeat("я", MaxScopeOfWorkLength+1), ""))
	assert.Error(t, ValidateTerms("", strings.Repeat("я", MaxCancellationPolicyLength+1)))
}

func TestValidateReason(t *testing.T) {
	assert.NoError(t, ValidateReason(""))
	assert.Error(t, ValidateReason(strings.Repeat("x", MaxReasonLength+1)))
}

func TestValidateDeliveryMessage(t *testing.T) {
	cases := []struct {
		name    string
		kind    string
		message string
		wantErr bool
	}{
		{"text", "text", "готово", false},
		{"long text", "TEXT", strings.Repeat("a", MaxMessageLength+1), true},
		{"link", "link", "https://figma.com/file/abc", false},
		{"link without scheme", "LINK", "figma.com/file/abc", true},
		{"ftp link", "link", "ftp://files.example.com/a.zip", true},
		{"file without message", "file", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateDeliveryMessage(tc.kind, tc.message)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
