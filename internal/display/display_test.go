package display

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordSPI captures every transaction written to the chain.
type recordSPI struct {
	txs [][]byte
	err error
}

func (r *recordSPI) Tx(w []byte) error {
	if r.err != nil {
		return r.err
	}
	cp := make([]byte, len(w))
	copy(cp, w)
	r.txs = append(r.txs, cp)
	return nil
}

func TestNewMatrixValidation(t *testing.T) {
	_, err := NewMatrix(nil, 4, 7)
	assert.Error(t, err)

	_, err = NewMatrix(&recordSPI{}, 0, 7)
	assert.Error(t, err)

	_, err = NewMatrix(&recordSPI{}, 17, 7)
	assert.Error(t, err)

	m, err := NewMatrix(&recordSPI{}, 4, 0xFF)
	require.NoError(t, err)
	assert.Equal(t, byte(0x0F), m.intensity)
	assert.Equal(t, 32, m.Width())
	assert.Equal(t, 8, m.Height())
}

func TestInitProgramsChain(t *testing.T) {
	spi := &recordSPI{}
	m, err := NewMatrix(spi, 2, 7)
	require.NoError(t, err)
	require.NoError(t, m.Init())

	// Five setup registers, then eight digit rows for the blank frame.
	require.Len(t, spi.txs, 13)
	for _, tx := range spi.txs {
		assert.Len(t, tx, 4)
	}
	assert.Equal(t, []byte{regDisplayTest, 0x00, regDisplayTest, 0x00}, spi.txs[0])
	assert.Equal(t, []byte{regIntensity, 0x07, regIntensity, 0x07}, spi.txs[3])
	assert.Equal(t, []byte{regShutdown, 0x01, regShutdown, 0x01}, spi.txs[4])
}

func TestSetPixelAndFlushLayout(t *testing.T) {
	spi := &recordSPI{}
	m, err := NewMatrix(spi, 2, 7)
	require.NoError(t, err)

	m.SetPixel(0, 0, true)  // module 0, column 0, top row
	m.SetPixel(9, 2, true)  // module 1, column 1, third row
	m.SetPixel(-1, 0, true) // ignored
	m.SetPixel(0, 99, true) // ignored
	require.NoError(t, m.Flush())

	require.Len(t, spi.txs, 8)
	// Column 0 transaction: the far module's byte is shifted in first.
	assert.Equal(t, []byte{regDigit0, 0x00, regDigit0, 0x01}, spi.txs[0])
	// Column 1: module 1 carries bit 2.
	assert.Equal(t, []byte{regDigit0 + 1, 0x04, regDigit0 + 1, 0x00}, spi.txs[1])

	m.SetPixel(0, 0, false)
	assert.Equal(t, byte(0), m.fb[0])
}

func TestClearBlanksFramebuffer(t *testing.T) {
	m, err := NewMatrix(&recordSPI{}, 1, 7)
	require.NoError(t, err)

	m.SetPixel(3, 3, true)
	m.Clear()
	for i, b := range m.fb {
		assert.Equal(t, byte(0), b, "column %d", i)
	}
}

func TestDrawTextRendersGlyphAndAdvances(t *testing.T) {
	m, err := NewMatrix(&recordSPI{}, 4, 7)
	require.NoError(t, err)

	next := m.DrawText(0, "1")
	assert.Equal(t, fontWidth+1, next)
	for col := 0; col < fontWidth; col++ {
		assert.Equal(t, font5x7['1'][col], m.fb[col], "column %d", col)
	}
	// Spacing column stays blank.
	assert.Equal(t, byte(0), m.fb[fontWidth])

	next = m.DrawText(next, "UP")
	assert.Equal(t, 3*(fontWidth+1), next)
}

func TestDrawTextUnknownRuneRendersBlank(t *testing.T) {
	m, err := NewMatrix(&recordSPI{}, 2, 7)
	require.NoError(t, err)

	m.SetPixel(0, 0, true)
	m.DrawText(0, "~")
	assert.Equal(t, byte(0), m.fb[0])
}

func TestSetIntensityClampsAndWrites(t *testing.T) {
	spi := &recordSPI{}
	m, err := NewMatrix(spi, 2, 7)
	require.NoError(t, err)

	require.NoError(t, m.SetIntensity(0x20))
	assert.Equal(t, []byte{regIntensity, 0x0F, regIntensity, 0x0F}, spi.txs[0])
}

func TestShutdownBlanksThenPowersDown(t *testing.T) {
	spi := &recordSPI{}
	m, err := NewMatrix(spi, 1, 7)
	require.NoError(t, err)

	m.SetPixel(0, 0, true)
	require.NoError(t, m.Shutdown())

	last := spi.txs[len(spi.txs)-1]
	assert.Equal(t, []byte{regShutdown, 0x00}, last)
	// The blanking flush preceded the power-down.
	assert.Equal(t, []byte{regDigit0, 0x00}, spi.txs[0])
}

func TestSPIErrorsPropagate(t *testing.T) {
	spi := &recordSPI{err: errors.New("bus stuck")}
	m, err := NewMatrix(spi, 1, 7)
	require.NoError(t, err)

	assert.Error(t, m.Init())
	assert.Error(t, m.Flush())
	assert.Error(t, m.SetIntensity(5))
	assert.Error(t, m.Shutdown())
}
