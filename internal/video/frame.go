package video

// Channel indexes inside a packed BGR24 pixel
const (
	ChannelBlue  = 0
	ChannelGreen = 1
	ChannelRed   = 2
)

// Fixed-point BGR->gray weights (Rec.601, 14-bit), matching OpenCV's
// integer path so motion readings line up with footage analysed there.
const (
	grayShift = 14
	grayB     = 1868
	grayG     = 9617
	grayR     = 4899
	grayRound = 1 << (grayShift - 1)
)

// Frame is a single decoded image stored as packed BGR24, row-major
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// NewFrame allocates a black frame
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*3),
	}
}

// NewSolidFrame allocates a frame filled with one colour
func NewSolidFrame(width, height int, b, g, r uint8) *Frame {
	f := NewFrame(width, height)
	f.Fill(b, g, r)
	return f
}

// Valid reports whether the pixel buffer matches the dimensions
func (f *Frame) Valid() bool {
	return f != nil && f.Width > 0 && f.Height > 0 && len(f.Pix) == f.Width*f.Height*3
}

// Pixels returns the number of pixels in the frame
func (f *Frame) Pixels() int {
	return f.Width * f.Height
}

// Fill paints every pixel with the given colour
func (f *Frame) Fill(b, g, r uint8) {
	for i := 0; i+2 < len(f.Pix); i += 3 {
		f.Pix[i+ChannelBlue] = b
		f.Pix[i+ChannelGreen] = g
		f.Pix[i+ChannelRed] = r
	}
}

// Set paints a single pixel
func (f *Frame) Set(x, y int, b, g, r uint8) {
	i := (y*f.Width + x) * 3
	f.Pix[i+ChannelBlue] = b
	f.Pix[i+ChannelGreen] = g
	f.Pix[i+ChannelRed] = r
}

// Gray converts the frame to an 8-bit luminance plane. dst is reused when
// it has the right length.
func (f *Frame) Gray(dst []uint8) []uint8 {
	n := f.Pixels()
	if len(dst) != n {
		dst = make([]uint8, n)
	}
	for p, i := 0, 0; p < n; p, i = p+1, i+3 {
		y := int(f.Pix[i+ChannelBlue])*grayB +
			int(f.Pix[i+ChannelGreen])*grayG +
			int(f.Pix[i+ChannelRed])*grayR
		dst[p] = uint8((y + grayRound) >> grayShift)
	}
	return dst
}
