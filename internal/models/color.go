package models

import (
	"fmt"
	"math"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
)

// Largest value representable by a 24-bit packed color
const MaxSpectrumRGB = 0xFFFFFF

var (
	Black = Color{R: 0, G: 0, B: 0}
	White = Color{R: 255, G: 255, B: 255}
)

// Logical color of the light, stored independently of the power state
type Color struct {
	R uint8
	G uint8
	B uint8
}

// True if all channels are zero
func (c Color) IsOff() bool {
	return c.R == 0 && c.G == 0 && c.B == 0
}

// Brightness is the HSV value channel as percentage (0-100), rounded down
func (c Color) Brightness() uint8 {
	_, _, v := c.hsv()
	return uint8(math.Floor(v * 100))
}

// WithBrightness returns the color with HSV value replaced by brightness percent
// Hue and saturation are kept, channels are rounded down
// Above 100 each channel saturates at 255 on its own, so hue drifts towards white
func (c Color) WithBrightness(brightness uint8) Color {
	h, s, _ := c.hsv()
	v := float64(brightness) / 100

	rgb := colorful.Hsv(h, s, v)
	return Color{
		R: floorChannel(rgb.R),
		G: floorChannel(rgb.G),
		B: floorChannel(rgb.B),
	}
}

// SpectrumRGB packs the color as (R<<16)|(G<<8)|B
func (c Color) SpectrumRGB() int32 {
	return int32(c.R)<<16 | int32(c.G)<<8 | int32(c.B)
}

func (c Color) String() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

func (c Color) hsv() (h, s, v float64) {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.Hsv()
}

// ColorFromSpectrumRGB decodes a 24-bit packed color
// The value is rendered as zero padded 6 hex digits and split in three bytes
func ColorFromSpectrumRGB(value int32) (Color, error) {
	if value < 0 || value > MaxSpectrumRGB {
		return Color{}, fmt.Errorf("spectrum rgb %d out of range [0, %d]", value, MaxSpectrumRGB)
	}

	hex := fmt.Sprintf("%06x", value)
	channels := [3]uint8{}
	for i := range channels {
		n, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("invalid spectrum rgb %d. Err: %w", value, err)
		}
		channels[i] = uint8(n)
	}

	return Color{R: channels[0], G: channels[1], B: channels[2]}, nil
}

func floorChannel(v float64) uint8 {
	// Guard against float noise like 1.0000000002 or -0.0
	return uint8(math.Floor(math.Max(0, math.Min(v*255, 255))))
}
