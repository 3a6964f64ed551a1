package request

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrInvalidChunkSize     = errors.New("invalid chunk size")
	ErrChunkTooLarge        = errors.New("chunk size too large")
	ErrChunkSizeLineTooLong = errors.New("chunk size line too long")
	ErrInvalidChunkFormat   = errors.New("invalid chunk format")
	ErrTrailerTooLarge      = errors.New("trailer section too large")
)

const (
	maxChunkSize     = 10 << 20
	maxChunkSizeLine = 1024
)

type chunkState int

const (
	chunkStateSize chunkState = iota
	chunkStateData
	chunkStateDataCRLF
	chunkStateTrailer
	chunkStateDone
)

// chunkDecoder decodes a chunked body incrementally. Its state survives
// across calls so data may arrive in arbitrary pieces.
type chunkDecoder struct {
	state     chunkState
	chunkSize int
	chunkRead int
	total     int64
	maxBody   int64 // <= 0 means unlimited
}

// decode appends decoded bytes from data to body and reports how much of
// data it consumed and whether the terminating chunk was seen.
func (d *chunkDecoder) decode(data []byte, body *[]byte) (int, bool, error) {
	consumed := 0

	for consumed < len(data) {
		rest := data[consumed:]

		switch d.state {
		case chunkStateSize:
			n, err := d.readSize(rest)
			if err != nil || n == 0 {
				return consumed, false, err
			}
			consumed += n
			if d.chunkSize == 0 {
				d.state = chunkStateTrailer
			} else {
				d.state = chunkStateData
				d.chunkRead = 0
			}

		case chunkStateData:
			toRead := min(d.chunkSize-d.chunkRead, len(rest))
			if d.maxBody > 0 && d.total+int64(toRead) > d.maxBody {
				return consumed, false, ErrBodyTooLarge
			}
			*body = append(*body, rest[:toRead]...)
			consumed += toRead
			d.chunkRead += toRead
			d.total += int64(toRead)
			if d.chunkRead < d.chunkSize {
				return consumed, false, nil
			}
			d.state = chunkStateDataCRLF

		case chunkStateDataCRLF:
			if len(rest) < 2 {
				return consumed, false, nil
			}
			if !bytes.HasPrefix(rest, crlf) {
				return consumed, false, ErrInvalidChunkFormat
			}
			consumed += 2
			d.state = chunkStateSize

		case chunkStateTrailer:
			n, done, err := d.skipTrailer(rest)
			consumed += n
			if done {
				d.state = chunkStateDone
			}
			return consumed, done, err

		case chunkStateDone:
			return consumed, true, nil
		}
	}

	return consumed, d.state == chunkStateDone, nil
}

// readSize parses "SIZE[;ext]\r\n". Extensions are validated and ignored.
func (d *chunkDecoder) readSize(data []byte) (int, error) {
	limit := min(len(data), maxChunkSizeLine)
	idx := bytes.Index(data[:limit], crlf)
	if idx == -1 {
		if len(data) >= maxChunkSizeLine {
			return 0, ErrChunkSizeLineTooLong
		}
		return 0, nil
	}

	sizeField, ext, hasExt := bytes.Cut(data[:idx], []byte(";"))
	if hasExt && bytes.ContainsAny(ext, "\r\n\x00") {
		return 0, fmt.Errorf("%w: bad extension", ErrInvalidChunkFormat)
	}

	size, err := strconv.ParseInt(string(bytes.TrimSpace(sizeField)), 16, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidChunkSize, sizeField)
	}
	if size > maxChunkSize {
		return 0, ErrChunkTooLarge
	}

	d.chunkSize = int(size)
	return idx + 2, nil
}

// skipTrailer consumes the trailer section up to and including the final
// empty line. Trailer fields are discarded.
func (d *chunkDecoder) skipTrailer(data []byte) (int, bool, error) {
	if len(data) < 2 {
		return 0, false, nil
	}
	if bytes.HasPrefix(data, crlf) {
		return 2, true, nil
	}

	idx := bytes.Index(data, []byte("\r\n\r\n"))
	if idx == -1 {
		if len(data) > maxChunkSizeLine {
			return 0, false, ErrTrailerTooLarge
		}
		return 0, false, nil
	}
	if bytes.IndexByte(data[:idx], 0) >= 0 {
		return 0, false, fmt.Errorf("%w: null byte in trailer", ErrInvalidChunkFormat)
	}
	return idx + 4, true, nil
}
