package domainlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContains(t *testing.T) {
	l := New("disposable", []string{" Mailinator.com ", "", "tempmail.org", "tempmail.org"}, nil)

	assert.Equal(t, 2, l.Len())
	assert.True(t, l.Contains("bot@mailinator.com"))
	assert.True(t, l.Contains("bot@MAILINATOR.COM"))
	assert.False(t, l.Contains("user@example.com"))
	assert.False(t, l.Contains("not-an-address"))
	assert.False(t, l.Contains("a@b@mailinator.com"))
}

func TestNilAndEmptyList(t *testing.T) {
	var l *List
	assert.False(t, l.Contains("user@example.com"))
	assert.Equal(t, 0, l.Len())
	assert.False(t, New("empty", nil, nil).Contains("user@example.com"))
}

func TestMerge(t *testing.T) {
	base := New("disposable", []string{"mailinator.com"}, nil)
	merged := base.Merge([]string{"spam.example"})

	assert.True(t, merged.Contains("x@mailinator.com"))
	assert.True(t, merged.Contains("x@spam.example"))
	assert.False(t, base.Contains("x@spam.example"))
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "example.com", Domain("User@Example.COM"))
	assert.Equal(t, "", Domain("@example.com"))
	assert.Equal(t, "", Domain("example.com"))
}
