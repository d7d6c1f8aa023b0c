package scanner

import (
	"errors"
	"fmt"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ZXingDecoder decodes QR codes with gozxing.
type ZXingDecoder struct {
	hints map[gozxing.DecodeHintType]interface{}
}

// NewZXingDecoder returns a QR decoder. tryHarder trades speed for accuracy on
// noisy frames.
func NewZXingDecoder(tryHarder bool) *ZXingDecoder {
	hints := map[gozxing.DecodeHintType]interface{}{}
	if tryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}
	return &ZXingDecoder{hints: hints}
}

// Decode implements Decoder.
func (d *ZXingDecoder) Decode(frame Frame) (string, error) {
	if frame.Image == nil {
		return "", ErrNoCode
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(frame.Image)
	if err != nil {
		return "", fmt.Errorf("scanner: binarize frame: %w", err)
	}

	result, err := qrcode.NewQRCodeReader().Decode(bmp, d.hints)
	if err != nil {
		return "", classifyDecode(err)
	}
	return result.GetText(), nil
}

func classifyDecode(err error) error {
	var (
		notFound gozxing.NotFoundException
		format   gozxing.FormatException
		checksum gozxing.ChecksumException
	)
	switch {
	case errors.As(err, &notFound):
		return ErrNoCode
	case errors.As(err, &format), errors.As(err, &checksum):
		return fmt.Errorf("%w: %v", ErrMalformedCode, err)
	default:
		return fmt.Errorf("scanner: decode: %w", err)
	}
}
