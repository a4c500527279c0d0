package revocation

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/multiformats/go-multibase"
)

// maxListBytes bounds decompression of untrusted encoded lists.
const maxListBytes = 1 << 20

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return nil, fmt.Errorf("gzip status list: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("gzip status list: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gunzip status list: %w", err)
	}
	defer gz.Close()
	out, err := io.ReadAll(io.LimitReader(gz, maxListBytes))
	if err != nil {
		return nil, fmt.Errorf("gunzip status list: %w", err)
	}
	return out, nil
}

// encodeMultibase renders the StatusList2021 form: "u" followed by unpadded
// base64url of the gzipped list.
func encodeMultibase(bits []byte) (string, error) {
	compressed, err := compress(bits)
	if err != nil {
		return "", err
	}
	return multibase.Encode(multibase.Base64url, compressed)
}

// encodeBase64 renders the BitstringStatusList form: padded standard base64
// of the gzipped list.
func encodeBase64(bits []byte) (string, error) {
	compressed, err := compress(bits)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(compressed), nil
}

// DecodeEncodedList reverses either encoding. Standard base64 of a gzip
// stream always starts with "H", so a leading "u" identifies the multibase
// form.
func DecodeEncodedList(encoded string) ([]byte, error) {
	var compressed []byte
	var err error
	if strings.HasPrefix(encoded, "u") {
		_, compressed, err = multibase.Decode(encoded)
	} else {
		compressed, err = base64.StdEncoding.DecodeString(encoded)
	}
	if err != nil {
		return nil, fmt.Errorf("decode encodedList: %w", err)
	}
	return decompress(compressed)
}
