package vision

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func testImageBytes(t *testing.T, encode func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T) []byte {
	return testImageBytes(t, func(buf *bytes.Buffer, img image.Image) error {
		return jpeg.Encode(buf, img, nil)
	})
}

func pngBytes(t *testing.T) []byte {
	return testImageBytes(t, func(buf *bytes.Buffer, img image.Image) error {
		return png.Encode(buf, img)
	})
}

func TestStdCodecDecodeFormats(t *testing.T) {
	codec := StdCodec{}

	for name, data := range map[string][]byte{
		"jpeg": jpegBytes(t),
		"png":  pngBytes(t),
	} {
		img, err := codec.Decode(data)
		if err != nil {
			t.Errorf("Decode(%s): %v", name, err)
			continue
		}
		if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 4 {
			t.Errorf("Decode(%s) bounds = %v; want 4x4", name, img.Bounds())
		}
	}
}

func TestStdCodecDataURI(t *testing.T) {
	codec := StdCodec{}

	payload := base64.StdEncoding.EncodeToString(jpegBytes(t))
	data := []byte("data:image/jpeg;base64," + payload)

	img, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("Decode(data URI): %v", err)
	}
	if img.Bounds().Dx() != 4 {
		t.Errorf("bounds = %v; want 4x4", img.Bounds())
	}
}

func TestStdCodecErrors(t *testing.T) {
	codec := StdCodec{}

	cases := map[string][]byte{
		"garbage":           []byte("definitely not an image"),
		"empty":             {},
		"data uri no comma": []byte("data:image/jpeg;base64"),
		"data uri not b64":  []byte("data:image/jpeg,rawpayload"),
		"bad b64 payload":   []byte("data:image/png;base64,!!!not-base64!!!"),
	}

	for name, data := range cases {
		if _, err := codec.Decode(data); err == nil {
			t.Errorf("Decode(%s): expected error", name)
		}
	}
}
