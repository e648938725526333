// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

import (
	"bufio"
	"errors"
	"io"
	"unicode/utf8"
)

// terminator ends every answer on framed transports.
const terminator byte = 0x00

func writeFrame(w io.Writer, cmd string) error {
	if _, err := io.WriteString(w, cmd+"\n"); err != nil {
		return ioError("write", err)
	}
	return nil
}

func readFrame(r *bufio.Reader) (string, error) {
	res, err := r.ReadBytes(terminator)
	if err != nil {
		if errors.Is(err, io.EOF) && len(res) == 0 {
			return "", ErrEmptyResponse
		}
		return "", ioError("read", err)
	}
	return processResult(res)
}

// processResult strips the trailing terminator from res.
func processResult(res []byte) (string, error) {
	if len(res) == 0 {
		return "", ErrEmptyResponse
	}
	payload := res[:len(res)-1]
	if !utf8.Valid(payload) {
		return "", ErrMalformedUTF8
	}
	return string(payload), nil
}
