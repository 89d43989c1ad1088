// Package format negotiates concrete surface and depth/stencil formats from
// what a surface and device support and what a window requested.
package format

import (
	"errors"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/present/driver"
)

// Errors.
var (
	// ErrNoDepthFormat is returned when depth or stencil was requested but
	// the device supports none of the candidate formats.
	ErrNoDepthFormat = errors.New("format: no renderable depth format available")

	// ErrNoColorFormat is returned when the surface advertises no formats.
	ErrNoColorFormat = errors.New("format: surface advertises no color formats")
)

// Request holds the requested framebuffer properties.
type Request struct {
	SRGB        bool
	DepthBits   int
	StencilBits int
	FloatDepth  bool
}

// Result holds the negotiated formats and the properties they provide.
type Result struct {
	Color driver.SurfaceFormat

	// Depth is gputypes.TextureFormatUndefined when no depth/stencil
	// attachment was requested.
	Depth gputypes.TextureFormat

	SRGB        bool
	ColorBits   int
	AlphaBits   int
	DepthBits   int
	StencilBits int
	FloatDepth  bool
}

// Supporter reports depth/stencil attachment support. driver.Device
// implements it.
type Supporter interface {
	SupportsDepthStencil(format gputypes.TextureFormat) bool
}

// Negotiate picks the color and depth/stencil formats for req.
func Negotiate(formats []driver.SurfaceFormat, dev Supporter, req Request) (Result, error) {
	color, err := Color(formats, req.SRGB)
	if err != nil {
		return Result{}, err
	}
	depth, err := Depth(dev, req)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Color: color,
		Depth: depth,
		SRGB:  color.Format.IsSrgb(),
	}
	if is8Bit(color.Format) {
		res.ColorBits = 24
		res.AlphaBits = 8
	}
	switch depth {
	case gputypes.TextureFormatDepth32FloatStencil8, gputypes.TextureFormatDepth32Float:
		res.DepthBits = 32
		res.FloatDepth = true
	case gputypes.TextureFormatDepth24PlusStencil8, gputypes.TextureFormatDepth24Plus:
		res.DepthBits = 24
	}
	if depth.HasStencil() {
		res.StencilBits = 8
	}
	return res, nil
}

// Color picks the surface format.
//
// A single undefined entry means the surface takes any format, and the 8-bit
// BGRA format of the requested sRGB-ness is used. Otherwise the first 8-bit
// BGRA or RGBA format matching the request wins, falling back to the first
// advertised format.
func Color(formats []driver.SurfaceFormat, srgb bool) (driver.SurfaceFormat, error) {
	if len(formats) == 0 {
		return driver.SurfaceFormat{}, ErrNoColorFormat
	}

	if len(formats) == 1 && formats[0].Format == gputypes.TextureFormatUndefined {
		f := gputypes.TextureFormatBGRA8Unorm
		if srgb {
			f = gputypes.TextureFormatBGRA8UnormSrgb
		}
		return driver.SurfaceFormat{Format: f, ColorSpace: driver.ColorSpaceSRGBNonlinear}, nil
	}

	for _, sf := range formats {
		if is8Bit(sf.Format) && sf.Format.IsSrgb() == srgb {
			return sf, nil
		}
	}
	return formats[0], nil
}

// Depth picks the depth/stencil format.
//
// With stencil requested the candidates are Depth32FloatStencil8 and
// Depth24PlusStencil8; depth-only requests use Depth32Float and Depth24Plus.
// The 32-bit candidate is chosen when it is supported and either more than
// 24 bits or floating-point depth was requested, or when the 24-bit
// candidate is unsupported.
func Depth(dev Supporter, req Request) (gputypes.TextureFormat, error) {
	if req.DepthBits <= 0 && req.StencilBits <= 0 {
		return gputypes.TextureFormatUndefined, nil
	}

	hi, lo := gputypes.TextureFormatDepth32Float, gputypes.TextureFormatDepth24Plus
	if req.StencilBits > 0 {
		hi, lo = gputypes.TextureFormatDepth32FloatStencil8, gputypes.TextureFormatDepth24PlusStencil8
	}

	hiOK := dev.SupportsDepthStencil(hi)
	loOK := dev.SupportsDepthStencil(lo)
	switch {
	case hiOK && (req.DepthBits > 24 || req.FloatDepth || !loOK):
		return hi, nil
	case loOK:
		return lo, nil
	default:
		return gputypes.TextureFormatUndefined, ErrNoDepthFormat
	}
}

func is8Bit(f gputypes.TextureFormat) bool {
	switch f {
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb,
		gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb:
		return true
	}
	return false
}
