package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
)

// FitWithin downscales img so both dimensions fit within maxW x maxH while
// preserving aspect ratio. Images already within bounds pass through
// unchanged. The integer math keeps the result deterministic for identical
// inputs.
func FitWithin(img image.Image, maxW, maxH int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxW && h <= maxH {
		return img
	}
	var newW, newH int
	if w*maxH >= h*maxW {
		// 宽度是限制维度
		newW = maxW
		newH = h * maxW / w
	} else {
		newH = maxH
		newW = w * maxH / h
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}
	return resizeImage(img, newW, newH)
}

// resizeImage resizes an image to the given width and height using nearest neighbor.
func resizeImage(img image.Image, newW, newH int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	srcBounds := img.Bounds()
	for y := 0; y < newH; y++ {
		for x := 0; x < newW; x++ {
			srcX := srcBounds.Min.X + x*srcBounds.Dx()/newW
			srcY := srcBounds.Min.Y + y*srcBounds.Dy()/newH
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}
	return dst
}

// FlattenRGB drops any alpha channel, the engine only accepts opaque RGB.
func FlattenRGB(img image.Image) image.Image {
	if _, ok := img.(*image.RGBA); ok && img.ColorModel() == color.RGBAModel {
		return img
	}
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			dst.Set(x-bounds.Min.X, y-bounds.Min.Y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 255})
		}
	}
	return dst
}

// EncodeJPEG 按引擎交接格式编码
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, FlattenRGB(img), &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
