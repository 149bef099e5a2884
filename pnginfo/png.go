// Package pnginfo reads the text chunks image generators use to embed their
// settings in PNG files.
package pnginfo

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
)

var pngSignature = []byte{137, 80, 78, 71, 13, 10, 26, 10}

var (
	ErrNotPNG           = errors.New("not a valid PNG file")
	errMalformedTextChk = errors.New("malformed text chunk")
)

// IsPNG reports whether data starts with the PNG signature.
func IsPNG(data []byte) bool {
	return bytes.HasPrefix(data, pngSignature)
}

// ReadTextChunks returns the keyword/text pairs of every tEXt chunk and every
// uncompressed iTXt chunk.  Reading stops at IEND.
func ReadTextChunks(r io.Reader) (map[string]string, error) {
	header := make([]byte, 8)
	_, err := io.ReadFull(r, header)
	if err != nil {
		return nil, err
	}

	if !bytes.Equal(header, pngSignature) {
		return nil, ErrNotPNG
	}

	txtChunks := make(map[string]string)

	for {
		var length uint32
		err = binary.Read(r, binary.BigEndian, &length)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		chunkType := make([]byte, 4)
		_, err = io.ReadFull(r, chunkType)
		if err != nil {
			return nil, err
		}

		switch string(chunkType) {
		case "tEXt", "iTXt":
			// the declared length is untrusted, only buffer what is really there
			chunkData, err := io.ReadAll(io.LimitReader(r, int64(length)))
			if err != nil {
				return nil, err
			}
			if len(chunkData) != int(length) {
				return nil, io.ErrUnexpectedEOF
			}

			keyword, text, ok, err := decodeTextChunk(string(chunkType), chunkData)
			if err != nil {
				return nil, err
			}
			if ok {
				txtChunks[keyword] = text
			}
		case "IEND":
			return txtChunks, nil
		default:
			// Skip the chunk data if it's not text
			_, err = io.CopyN(io.Discard, r, int64(length))
			if err != nil {
				return nil, err
			}
		}

		// Skip the CRC
		_, err = io.CopyN(io.Discard, r, 4)
		if err != nil {
			return nil, err
		}
	}

	return txtChunks, nil
}

func ReadTextChunksFromFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadTextChunks(file)
}

// decodeTextChunk splits a chunk body into keyword and text.  Compressed
// iTXt chunks are reported as not ok and skipped.
func decodeTextChunk(chunkType string, data []byte) (string, string, bool, error) {
	keywordEnd := bytes.IndexByte(data, 0)
	if keywordEnd == -1 {
		return "", "", false, errMalformedTextChk
	}
	keyword := string(data[:keywordEnd])
	rest := data[keywordEnd+1:]

	if chunkType == "tEXt" {
		return keyword, string(rest), true, nil
	}

	// iTXt: compression flag, compression method, language tag\0, translated keyword\0, text
	if len(rest) < 2 {
		return "", "", false, errMalformedTextChk
	}
	if rest[0] != 0 {
		return keyword, "", false, nil
	}
	rest = rest[2:]
	for i := 0; i < 2; i++ {
		end := bytes.IndexByte(rest, 0)
		if end == -1 {
			return "", "", false, errMalformedTextChk
		}
		rest = rest[end+1:]
	}
	return keyword, string(rest), true, nil
}
