package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false)
	log.Debug("hidden")
	log.Warn("hidden too")
	log.Error("shown", "op", "close")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown op=close")

	buf.Reset()
	log = New(&buf, true)
	log.Debug("subscribed", "user", "u1")
	assert.Contains(t, buf.String(), "level=DEBUG msg=subscribed user=u1")
}

func TestOrDiscard(t *testing.T) {
	assert.NotNil(t, OrDiscard(nil))

	l := New(&bytes.Buffer{}, false)
	assert.Same(t, l, OrDiscard(l))
}
