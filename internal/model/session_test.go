package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLanguageValid(t *testing.T) {
	assert.True(t, LanguageJavaScript.Valid())
	assert.True(t, LanguagePython.Valid())
	assert.False(t, Language("cobol").Valid())
	assert.False(t, Language("").Valid())
}
