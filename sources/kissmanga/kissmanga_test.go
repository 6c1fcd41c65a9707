package kissmanga

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tosho/engine"
)

func TestNew(t *testing.T) {
	var _ engine.Source = New()

	s := New()
	assert.Equal(t, "kmg", s.ID())
	assert.Equal(t, "KissManga", s.Name())
	assert.Equal(t, "https://kissmanga.in", s.BaseURL())
}
