package viz

import (
	"image"
	"image/color"
	"image/gif"
	"os"
)

const dotSize = 4

// captureFrame rasterises the canvas, one dotSize square per braille dot.
func captureFrame(c *Canvas) *image.Paletted {
	w, h := c.Width*2, c.Height*4
	img := image.NewPaletted(image.Rect(0, 0, w*dotSize, h*dotSize), color.Palette{color.Black, color.White})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !c.Lit(x, y) {
				continue
			}
			for py := 0; py < dotSize; py++ {
				for px := 0; px < dotSize; px++ {
					img.SetColorIndex(x*dotSize+px, y*dotSize+py, 1)
				}
			}
		}
	}
	return img
}

func saveGIF(path string, frames []*image.Paletted) error {
	if len(frames) == 0 {
		return nil
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 3)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gif.EncodeAll(f, &anim)
}
