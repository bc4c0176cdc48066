package openai

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	_ "image/jpeg"
)

// normalizeMask resizes the mask to the source image's dimensions when they
// differ. Alpha is preserved: opaque pixels keep the original image,
// transparent pixels mark the editable region. Nearest-neighbor sampling is
// enough for a binary-ish alpha mask.
func normalizeMask(source, mask SourceImage) (*SourceImage, error) {
	srcCfg, _, err := image.DecodeConfig(bytes.NewReader(source.Data))
	if err != nil {
		return nil, fmt.Errorf("decode source dimensions: %w", err)
	}
	maskCfg, _, err := image.DecodeConfig(bytes.NewReader(mask.Data))
	if err != nil {
		return nil, fmt.Errorf("decode mask dimensions: %w", err)
	}
	if srcCfg.Width == maskCfg.Width && srcCfg.Height == maskCfg.Height {
		return &mask, nil
	}

	img, _, err := image.Decode(bytes.NewReader(mask.Data))
	if err != nil {
		return nil, fmt.Errorf("decode mask: %w", err)
	}
	scaled := scaleNearest(img, srcCfg.Width, srcCfg.Height)

	buf := &bytes.Buffer{}
	if err := png.Encode(buf, scaled); err != nil {
		return nil, fmt.Errorf("encode mask: %w", err)
	}
	return &SourceImage{
		Filename: "mask.png",
		MIME:     "image/png",
		Data:     buf.Bytes(),
	}, nil
}

func scaleNearest(src image.Image, width, height int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	bounds := src.Bounds()
	for y := 0; y < height; y++ {
		sy := bounds.Min.Y + y*bounds.Dy()/height
		for x := 0; x < width; x++ {
			sx := bounds.Min.X + x*bounds.Dx()/width
			dst.Set(x, y, color.NRGBAModel.Convert(src.At(sx, sy)))
		}
	}
	return dst
}
