package actuator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nkiryanov/deskled/internal/models"
)

const (
	DefaultDevDir = "/dev"

	// Every color bit becomes one SPI byte, a long high pulse for 1 and a short one for 0
	bitOne  byte = 0b1111_1000
	bitZero byte = 0b1110_0000

	bytesPerLED = 24
)

var ErrNoSPIDevice = errors.New("no spi device found")

// SPI drives a WS28xx strip attached to a spidev device
type SPI struct {
	path   string
	length int
	dev    *os.File
}

// NewSPI opens the device, discovering it in /dev when path is empty
func NewSPI(path string, length int) (*SPI, error) {
	if length <= 0 {
		return nil, fmt.Errorf("led strip length must be positive, got %d", length)
	}

	if path == "" {
		found, err := DiscoverSPI(DefaultDevDir)
		if err != nil {
			return nil, err
		}
		path = found
	}

	dev, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSPIDevice, err)
	}

	return &SPI{path: path, length: length, dev: dev}, nil
}

// DiscoverSPI returns the first non directory entry in dir whose name contains "spi"
func DiscoverSPI(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("can't read %s. Err: %w", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.Contains(e.Name(), "spi") {
			return filepath.Join(dir, e.Name()), nil
		}
	}

	return "", ErrNoSPIDevice
}

func (a *SPI) Path() string {
	return a.path
}

func (a *SPI) Apply(_ context.Context, color models.Color) error {
	_, err := a.dev.Write(Frame(color, a.length))
	if err != nil {
		return fmt.Errorf("spi write to %s failed. Err: %w", a.path, err)
	}
	return nil
}

func (a *SPI) Close() error {
	return a.dev.Close()
}

// Frame encodes the color for every LED of the strip
// The strip expects green and blue swapped
func Frame(color models.Color, length int) []byte {
	frame := make([]byte, 0, length*bytesPerLED)
	for range length {
		frame = appendByte(frame, color.R)
		frame = appendByte(frame, color.B)
		frame = appendByte(frame, color.G)
	}
	return frame
}

func appendByte(frame []byte, v byte) []byte {
	for i := 7; i >= 0; i-- {
		if v&(1<<i) != 0 {
			frame = append(frame, bitOne)
		} else {
			frame = append(frame, bitZero)
		}
	}
	return frame
}
