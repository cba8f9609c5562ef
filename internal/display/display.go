package display

import (
	"errors"
	"fmt"
)

// MAX7219 register addresses.
const (
	regNoOp        = 0x00
	regDigit0      = 0x01
	regDecodeMode  = 0x09
	regIntensity   = 0x0A
	regScanLimit   = 0x0B
	regShutdown    = 0x0C
	regDisplayTest = 0x0F
)

// moduleSize is the pixel width and height of one controller.
const moduleSize = 8

// SPI is the write-only transport to the controller chain.
type SPI interface {
	Tx(w []byte) error
}

// Matrix is a horizontal chain of 8x8 LED modules.
type Matrix struct {
	spi       SPI
	cascade   int
	intensity byte
	fb        []byte // one byte per column, LSB = top row
}

// NewMatrix creates a matrix over cascade chained modules.
func NewMatrix(spi SPI, cascade int, intensity byte) (*Matrix, error) {
	if spi == nil {
		return nil, errors.New("nil spi")
	}
	if cascade < 1 || cascade > 16 {
		return nil, fmt.Errorf("invalid cascade length %d", cascade)
	}
	if intensity > 0x0F {
		intensity = 0x0F
	}
	return &Matrix{
		spi:       spi,
		cascade:   cascade,
		intensity: intensity,
		fb:        make([]byte, cascade*moduleSize),
	}, nil
}

// Width returns the framebuffer width in pixels.
func (m *Matrix) Width() int { return m.cascade * moduleSize }

// Height returns the framebuffer height in pixels.
func (m *Matrix) Height() int { return moduleSize }

// Init programs the chain out of shutdown into raw-pixel mode.
func (m *Matrix) Init() error {
	setup := [][2]byte{
		{regDisplayTest, 0x00},
		{regDecodeMode, 0x00},
		{regScanLimit, 0x07},
		{regIntensity, m.intensity},
		{regShutdown, 0x01},
	}
	for _, s := range setup {
		if err := m.writeAll(s[0], s[1]); err != nil {
			return fmt.Errorf("display init: %w", err)
		}
	}
	m.Clear()
	return m.Flush()
}

// SetIntensity adjusts brightness (0..15).
func (m *Matrix) SetIntensity(level byte) error {
	if level > 0x0F {
		level = 0x0F
	}
	m.intensity = level
	return m.writeAll(regIntensity, level)
}

// Clear blanks the framebuffer. Flush pushes it to the chain.
func (m *Matrix) Clear() {
	for i := range m.fb {
		m.fb[i] = 0
	}
}

// SetPixel sets or clears one pixel. Out-of-range coordinates are
// ignored.
func (m *Matrix) SetPixel(x, y int, on bool) {
	if x < 0 || x >= m.Width() || y < 0 || y >= moduleSize {
		return
	}
	if on {
		m.fb[x] |= 1 << uint(y)
	} else {
		m.fb[x] &^= 1 << uint(y)
	}
}

// DrawText renders s with the built-in 5x7 font starting at column x.
// Unknown runes render as blanks. Returns the column after the text.
func (m *Matrix) DrawText(x int, s string) int {
	for _, r := range s {
		glyph, ok := font5x7[r]
		if !ok {
			glyph = font5x7[' ']
		}
		for col := 0; col < fontWidth; col++ {
			bits := glyph[col]
			for row := 0; row < fontHeight; row++ {
				m.SetPixel(x+col, row, bits&(1<<uint(row)) != 0)
			}
		}
		x += fontWidth + 1
	}
	return x
}

// Flush programs the framebuffer into the chain, one digit row per
// transaction across all cascaded modules.
func (m *Matrix) Flush() error {
	buf := make([]byte, m.cascade*2)
	for col := 0; col < moduleSize; col++ {
		// The chain is loaded far-module first.
		for mod := 0; mod < m.cascade; mod++ {
			buf[2*mod] = byte(regDigit0 + col)
			buf[2*mod+1] = m.fb[(m.cascade-1-mod)*moduleSize+col]
		}
		if err := m.spi.Tx(buf); err != nil {
			return fmt.Errorf("display flush: %w", err)
		}
	}
	return nil
}

// Shutdown blanks and powers down the chain.
func (m *Matrix) Shutdown() error {
	m.Clear()
	if err := m.Flush(); err != nil {
		return err
	}
	return m.writeAll(regShutdown, 0x00)
}

// writeAll sends one register/value pair to every module in the chain.
func (m *Matrix) writeAll(reg, val byte) error {
	buf := make([]byte, m.cascade*2)
	for mod := 0; mod < m.cascade; mod++ {
		buf[2*mod] = reg
		buf[2*mod+1] = val
	}
	return m.spi.Tx(buf)
}
