package vision

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// ImageCodec turns an encoded byte buffer into a pixel image. It is
// injected into the Adapter so the matching and orchestration layers never
// depend on a particular decoder.
type ImageCodec interface {
	Decode(data []byte) (image.Image, error)
}

// StdCodec decodes JPEG, PNG, GIF and WEBP buffers. A buffer may carry a
// data-URI prefix ("data:image/jpeg;base64,...") as produced by browser
// clients; the prefix is stripped and the payload base64-decoded first.
type StdCodec struct{}

func (StdCodec) Decode(data []byte) (image.Image, error) {
	raw, err := stripDataURI(data)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

var dataURIPrefix = []byte("data:")

func stripDataURI(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, dataURIPrefix) {
		return data, nil
	}

	comma := bytes.IndexByte(data, ',')
	if comma < 0 {
		return nil, fmt.Errorf("malformed data URI: no payload separator")
	}

	header := data[:comma]
	payload := data[comma+1:]

	if !bytes.Contains(header, []byte(";base64")) {
		return nil, fmt.Errorf("unsupported data URI encoding: %s", header)
	}

	decoded := make([]byte, base64.StdEncoding.DecodedLen(len(payload)))
	n, err := base64.StdEncoding.Decode(decoded, payload)
	if err != nil {
		return nil, fmt.Errorf("decode base64 payload: %w", err)
	}
	return decoded[:n], nil
}
