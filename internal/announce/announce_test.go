package announce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTXTRecords(t *testing.T) {
	records := TXTRecords("7d444840-9dc0-11d1-b245-5ffdce74fad2", "1.2.3")

	assert.Equal(t, []string{
		"id=7d444840-9dc0-11d1-b245-5ffdce74fad2",
		"version=1.2.3",
	}, records)
}

func TestNewService(t *testing.T) {
	s := NewService("crossing-1", 60110, "abc", "dev")

	assert.Equal(t, "crossing-1", s.instance)
	assert.Equal(t, 60110, s.port)
	assert.Equal(t, []string{"id=abc", "version=dev"}, s.text)
}

func TestClose_BeforeStart(t *testing.T) {
	s := NewService("crossing-1", 60110, "abc", "dev")

	require.NotPanics(t, func() {
		assert.NoError(t, s.Close())
		assert.NoError(t, s.Close())
	})
}
