package client

import (
	"bytes"
	"encoding/gob"
)

// gobEncodeFrom serializes v for storage inside an encrypted column.
func gobEncodeFrom(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// gobDecodeInto deserializes data, decrypted from an encrypted column, into v.
func gobDecodeInto(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
