package models

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilePattern_Literal(t *testing.T) {
	p, err := CompilePattern("Thumbs.db")

	require.NoError(t, err)
	assert.Equal(t, LiteralPattern, p.Kind())
	assert.Nil(t, p.Regexp())
	assert.Equal(t, "Thumbs.db", p.String())
}

func TestCompilePattern_Regex(t *testing.T) {
	p, err := CompilePattern(`r#\.log$`)

	require.NoError(t, err)
	assert.Equal(t, RegexPattern, p.Kind())
	require.NotNil(t, p.Regexp())
	assert.Equal(t, `\.log$`, p.Regexp().String())
	assert.Equal(t, `r#\.log$`, p.String())
}

func TestCompilePattern_InvalidRegex(t *testing.T) {
	_, err := CompilePattern("r#([a-z")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPattern))
	assert.Contains(t, err.Error(), "r#([a-z")
}

func TestCompilePattern_PrefixOnlyInsideIsLiteral(t *testing.T) {
	p, err := CompilePattern("xr#([a-z")

	require.NoError(t, err)
	assert.Equal(t, LiteralPattern, p.Kind())
}

func TestCompilePatterns(t *testing.T) {
	patterns, err := CompilePatterns([]string{"a", "r#^b"})
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	assert.Equal(t, LiteralPattern, patterns[0].Kind())
	assert.Equal(t, RegexPattern, patterns[1].Kind())

	_, err = CompilePatterns([]string{"a", "r#("})
	assert.True(t, errors.Is(err, ErrInvalidPattern))
}

func TestPattern_MarshalText(t *testing.T) {
	text, err := MustCompilePattern(`r#^build`).MarshalText()

	require.NoError(t, err)
	assert.Equal(t, `r#^build`, string(text))
}
