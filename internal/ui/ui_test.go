package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrinterPlainWriter(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.Print("Looking for pip...")
	p.Println(" found")
	p.Printf("%s %s\n", p.Warning(), p.Tool("cython"))

	// A bytes.Buffer is not a terminal, so no escape sequences are emitted.
	assert.Equal(t, "Looking for pip... found\nWarning: cython\n", buf.String())
	assert.Equal(t, "failed", p.Failed("failed"))
	assert.Same(t, &buf, p.Writer())
}
