package value

import (
	"errors"
	"io"

	"github.com/austream/au/bytesource"
	"github.com/austream/au/errs"
	"github.com/austream/au/internal/endian"
)

// Parser reads one value payload at a time from a bytesource.Source,
// dispatching to a Handler as it goes. A Parser is not safe for concurrent
// use; each goroutine decoding a stream needs its own.
type Parser struct {
	src      bytesource.Source
	handler  Handler
	maxDepth int
}

// Option configures a Parser at construction time.
type Option func(*Parser)

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(p *Parser) { p.maxDepth = n }
}

// New creates a Parser reading src and dispatching to handler.
func New(src bytesource.Source, handler Handler, opts ...Option) *Parser {
	p := &Parser{src: src, handler: handler, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Value parses exactly one value payload, recursively descending into
// arrays and objects, and dispatching its events to the Handler.
func (p *Parser) Value() error {
	return p.value(0)
}

func (p *Parser) value(depth int) error {
	pos := p.src.Pos()
	tag, err := p.src.Next()
	if err != nil {
		return err
	}

	switch tag {
	case TagNull:
		p.handler.OnNull(pos)

		return nil
	case TagTrue:
		p.handler.OnBool(pos, true)

		return nil
	case TagFalse:
		p.handler.OnBool(pos, false)

		return nil
	case TagInt:
		v, err := p.readVarint()
		if err != nil {
			return err
		}
		p.handler.OnInt(pos, v)

		return nil
	case TagUint:
		v, err := p.readUvarint()
		if err != nil {
			return err
		}
		p.handler.OnUint(pos, v)

		return nil
	case TagDouble:
		f, err := p.readDouble()
		if err != nil {
			return err
		}
		p.handler.OnDouble(pos, f)

		return nil
	case TagTime:
		v, err := p.readVarint()
		if err != nil {
			return err
		}
		p.handler.OnTime(pos, v)

		return nil
	case TagDictRef:
		idx, err := p.readUvarint()
		if err != nil {
			return err
		}
		p.handler.OnDictRef(pos, int(idx))

		return nil
	case TagString:
		return p.readString(pos)
	case TagArrayStart:
		return p.array(depth)
	case TagObjectStart:
		return p.object(depth)
	default:
		return errs.ErrMalformedRecord
	}
}

func (p *Parser) array(depth int) error {
	if depth >= p.maxDepth {
		return errs.ErrNestingExceeded
	}
	p.handler.OnArrayStart()

	for {
		b, err := p.src.Peek()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return errs.ErrUnexpectedEOF
			}

			return err
		}
		if b == TagArrayEnd {
			if _, err := p.src.Next(); err != nil {
				return err
			}
			p.handler.OnArrayEnd()

			return nil
		}
		if err := p.value(depth + 1); err != nil {
			return err
		}
	}
}

func (p *Parser) object(depth int) error {
	if depth >= p.maxDepth {
		return errs.ErrNestingExceeded
	}
	p.handler.OnObjectStart()

	for {
		b, err := p.src.Peek()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return errs.ErrUnexpectedEOF
			}

			return err
		}
		if b == TagObjectEnd {
			if _, err := p.src.Next(); err != nil {
				return err
			}
			p.handler.OnObjectEnd()

			return nil
		}
		if err := p.objectKey(); err != nil {
			return err
		}
		if err := p.value(depth + 1); err != nil {
			return err
		}
	}
}

// objectKey parses a map key, which the wire format requires to always be a
// dictionary reference.
func (p *Parser) objectKey() error {
	pos := p.src.Pos()
	tag, err := p.src.Next()
	if err != nil {
		return err
	}
	if tag != TagDictRef {
		return errs.ErrMalformedRecord
	}
	idx, err := p.readUvarint()
	if err != nil {
		return err
	}
	p.handler.OnDictRef(pos, int(idx))

	return nil
}

func (p *Parser) readString(pos int64) error {
	length, err := p.readUvarint()
	if err != nil {
		return err
	}
	p.handler.OnStringStart(pos, int(length))

	if err := p.src.ReadExact(int(length), func(frag []byte) {
		p.handler.OnStringFragment(frag)
	}); err != nil {
		return err
	}
	p.handler.OnStringEnd()

	return nil
}

func (p *Parser) readDouble() (float64, error) {
	var buf [endian.DoubleSize]byte
	offset := 0
	if err := p.src.ReadExact(endian.DoubleSize, func(frag []byte) {
		copy(buf[offset:], frag)
		offset += len(frag)
	}); err != nil {
		return 0, err
	}

	return endian.Double(buf[:]), nil
}

func (p *Parser) readUvarint() (uint64, error) {
	return ReadUvarint(p.src)
}

func (p *Parser) readVarint() (int64, error) {
	return ReadVarint(p.src)
}

// ReadUvarint decodes an unsigned base-128 varint one byte at a time from
// src, since the value may straddle a buffer refill boundary. It is
// exported so package record can decode the same varint-framed fields
// (back-offsets, counts, lengths) that introduce record framing, ahead of
// handing the payload to a Parser.
func ReadUvarint(src bytesource.Source) (uint64, error) {
	var result uint64
	var shift uint
	for i := 0; i < 10; i++ {
		b, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, errs.ErrUnexpectedEOF
			}

			return 0, err
		}
		if b < 0x80 {
			result |= uint64(b) << shift

			return result, nil
		}
		result |= uint64(b&0x7f) << shift
		shift += 7
	}

	return 0, errs.ErrOverflow
}

// ReadVarint decodes a ZigZag-encoded signed varint from src.
func ReadVarint(src bytesource.Source) (int64, error) {
	u, err := ReadUvarint(src)
	if err != nil {
		return 0, err
	}

	return int64(u>>1) ^ -int64(u&1), nil
}

// ReadString decodes a varuint-length-prefixed UTF-8 string from src in
// full, for contexts (record framing, dictionary entries) that need the
// whole string rather than a fragment stream.
func ReadString(src bytesource.Source) (string, error) {
	length, err := ReadUvarint(src)
	if err != nil {
		return "", err
	}

	buf := make([]byte, 0, length)
	if err := src.ReadExact(int(length), func(frag []byte) {
		buf = append(buf, frag...)
	}); err != nil {
		return "", err
	}

	return string(buf), nil
}
