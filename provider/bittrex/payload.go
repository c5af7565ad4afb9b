package bittrex

import (
	"bytes"
	"encoding/base64"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
)

// decodePayload reverses the hub encoding: raw deflate, then base64.
func decodePayload(encoded string) ([]byte, error) {
	compressed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "decode base64 payload")
	}

	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "inflate payload")
	}
	return payload, nil
}
