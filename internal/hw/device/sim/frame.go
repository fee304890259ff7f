package sim

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"sync"

	"github.com/cjeanneret/BracketGo/internal/hw/device"
)

var errReleased = errors.New("frame already released")

// Frame is a simulated RGGB bayer frame.
type Frame struct {
	cam        *Camera
	incomplete bool
	status     int

	width, height int
	pixels        []byte

	mu       sync.Mutex
	released int
}

// Released returns how many times Release was called.
func (f *Frame) Released() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

func (f *Frame) Incomplete() bool { return f.incomplete }

func (f *Frame) Status() int { return f.status }

func (f *Frame) Release() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cam.rec.record(Call{Serial: f.cam.serial, Op: OpRelease})
	f.released++
	if f.released > 1 {
		return errReleased
	}
	return nil
}

func (f *Frame) Convert(format device.Format) (device.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cam.rec.record(Call{Serial: f.cam.serial, Op: OpConvert, Value: format})
	if err := f.cam.injected(OpConvert, ""); err != nil {
		return nil, err
	}
	if f.released > 0 {
		return nil, errReleased
	}

	switch format {
	case device.BayerRG8:
		return &rawImage{cam: f.cam, data: append([]byte(nil), f.pixels...)}, nil
	case device.RGB8:
		return &rgbImage{cam: f.cam, img: demosaic(f.pixels, f.width, f.height)}, nil
	default:
		return nil, fmt.Errorf("unsupported conversion to %s", format)
	}
}

type rawImage struct {
	cam  *Camera
	data []byte
}

func (r *rawImage) Save(path string) error {
	r.cam.rec.record(Call{Serial: r.cam.serial, Op: OpSave, Value: path})
	if err := r.cam.injected(OpSave, ""); err != nil {
		return err
	}
	return os.WriteFile(path, r.data, 0o644)
}

type rgbImage struct {
	cam *Camera
	img *image.RGBA
}

func (r *rgbImage) Save(path string) error {
	r.cam.rec.record(Call{Serial: r.cam.serial, Op: OpSave, Value: path})
	if err := r.cam.injected(OpSave, ""); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(out, r.img); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// synthesize builds a diagonal gradient whose brightness scales with exposure.
func synthesize(w, h int, exposureUs float64) []byte {
	gain := exposureUs / 100_000
	if gain <= 0 {
		gain = 1
	}
	px := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := float64((x+y)*255) / float64(w+h) * gain
			if v > 255 {
				v = 255
			}
			px[y*w+x] = byte(v)
		}
	}
	return px
}

// demosaic does a 2x2 block RGGB reconstruction; good enough for a simulator.
func demosaic(px []byte, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	at := func(x, y int) byte {
		if x >= w {
			x = w - 1
		}
		if y >= h {
			y = h - 1
		}
		return px[y*w+x]
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			bx, by := x&^1, y&^1
			g := (uint16(at(bx+1, by)) + uint16(at(bx, by+1))) / 2
			img.SetRGBA(x, y, color.RGBA{R: at(bx, by), G: byte(g), B: at(bx+1, by+1), A: 0xff})
		}
	}
	return img
}
