// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// Codec decodes structured answers and re-encodes them as text.
type Codec interface {
	Encode(v interface{}) ([]byte, error)
	Decode(data []byte, v interface{}) error
}

// JSONCodec decodes numbers as json.Number so 64-bit addresses survive a
// decode/encode round trip.
type JSONCodec struct{}

func (JSONCodec) Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Decode(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after json value")
	}
	return nil
}

// defaultCodec is used when no codec is specified
var defaultCodec Codec = JSONCodec{}
