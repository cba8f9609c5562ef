// Package display drives the device's SPI-attached LED-matrix chain
// (MAX7219-class controllers, 8x8 per module).
//
// It is a straightforward, non-concurrent I/O wrapper: a framebuffer,
// a 5x7 font and the register programming needed to push frames down the
// chain. Callers own sequencing; the package performs no locking.
package display
