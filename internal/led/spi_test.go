package led_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/coreman2200/funtimes-stripdriver/internal/channel"
	. "github.com/coreman2200/funtimes-stripdriver/internal/led"
)

func TestSPITransport(t *testing.T) {
	s := &scope{clk: &clock{}}
	reg := channel.NewRegistry(s.resolver())
	require.NoError(t, reg.Configure(0, "GPIO10", 2, 255))
	require.NoError(t, reg.Configure(1, "GPIO20", 2, 255))

	buf := bytes.Buffer{}
	tx := NewSPI(map[channel.Handle]spi.Port{0: spitest.NewRecordRaw(&buf)}, 0)
	eng := NewEngine(reg, tx, DefaultBalance())

	reg.Buffer(0)[0] = channel.RGB(255, 0, 0)
	require.NoError(t, eng.SendChannel(0))
	first := buf.Len()
	assert.NotZero(t, first)

	require.NoError(t, eng.SendChannel(0))
	assert.Greater(t, buf.Len(), first, "second frame reuses the opened device")

	assert.ErrorIs(t, eng.SendChannel(1), ErrNoPort)

	require.NoError(t, reg.Configure(0, "GPIO10", 5, 255))
	assert.ErrorIs(t, eng.SendChannel(0), ErrSPIResize)

	assert.NoError(t, eng.Close())
}
