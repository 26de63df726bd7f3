package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "UTF-8", cfg.Encoding)
	assert.True(t, cfg.ModernSyntax)
	assert.True(t, cfg.Invokedynamic)
	assert.True(t, cfg.PreserveGroovydoc)
	assert.Nil(t, cfg.ClasspathEntries)
}

func TestWithClasspathDoesNotMutateOriginal(t *testing.T) {
	base := DefaultConfig()
	withCp := base.WithClasspath("a.jar", "b.jar")

	assert.Nil(t, base.ClasspathEntries)
	assert.Equal(t, []string{"a.jar", "b.jar"}, withCp.ClasspathEntries)
}
