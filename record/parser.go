package record

import (
	"errors"
	"io"

	"github.com/austream/au/bytesource"
	"github.com/austream/au/dict"
	"github.com/austream/au/errs"
	"github.com/austream/au/value"
)

// Parser drives value.Parser over record framing: it demultiplexes header,
// dict-clear, dict-add, and value records, maintaining dictionary as it
// goes and validating every dict-add/value record's back-offset against the
// dictionary's last recorded event position.
type Parser struct {
	src     bytesource.Source
	dict    *dict.Dictionary
	handler Handler
	vp      *value.Parser

	bootstrapBackOffset bool
	resumable           bool
}

// New creates a Parser. dictionary is shared with the caller so it can be
// inspected between calls (e.g. grep dereferencing a dict-ref by hand).
func New(src bytesource.Source, dictionary *dict.Dictionary, handler Handler, opts ...value.Option) *Parser {
	return &Parser{
		src:     src,
		dict:    dictionary,
		handler: handler,
		vp:      value.New(src, handler, opts...),
	}
}

// ParseStream iterates records until EOF, dispatching each to handler.
func (p *Parser) ParseStream() error {
	for {
		_, err := p.parseOne()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return err
		}
	}
}

// ParseUntilValue parses records until the first value record (inclusive),
// returning true if a value record was parsed or false if the stream ended
// first. Used by grep and tail, which only want one record of progress at a
// time.
func (p *Parser) ParseUntilValue() (bool, error) {
	for {
		isValue, err := p.parseOne()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, nil
			}

			return false, err
		}
		if isValue {
			return true, nil
		}
	}
}

// parseOne parses exactly one record, reporting whether it was a value
// record.
func (p *Parser) parseOne() (bool, error) {
	recPos := p.src.Pos()
	tag, err := p.src.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, io.EOF
		}

		return false, wrapAt(recPos, err)
	}

	switch tag {
	case TagHeader:
		return false, wrapAt(recPos, p.parseHeader(recPos))
	case TagDictClear:
		return false, wrapAt(recPos, p.parseDictClear(recPos))
	case TagDictAdd:
		return false, wrapAt(recPos, p.parseDictAdd(recPos))
	case TagValue:
		return true, wrapAt(recPos, p.parseValueRecord(recPos))
	default:
		return false, wrapAt(recPos, errs.ErrMalformedRecord)
	}
}

func (p *Parser) parseHeader(recPos int64) error {
	version, err := value.ReadUvarint(p.src)
	if err != nil {
		return err
	}
	if version != Version {
		return errs.ErrUnsupportedVersion
	}
	metadata, err := value.ReadString(p.src)
	if err != nil {
		return err
	}

	p.dict.SetLastEventPos(recPos)
	p.handler.OnHeader(recPos, int(version), metadata)

	return nil
}

func (p *Parser) parseDictClear(recPos int64) error {
	p.dict.Clear(recPos)
	p.handler.OnDictClear(recPos)

	return nil
}

func (p *Parser) parseDictAdd(recPos int64) error {
	if err := p.checkBackOffset(recPos); err != nil {
		return err
	}

	count, err := value.ReadUvarint(p.src)
	if err != nil {
		return err
	}

	added := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		s, err := value.ReadString(p.src)
		if err != nil {
			return err
		}
		added = append(added, s)
	}

	// All strings in one dict-add record share the record's position as
	// their dict event; only the last Append call's pos needs to be
	// recPos since that's what subsequent back-offsets will reference.
	for _, s := range added {
		p.dict.Append(s, recPos)
	}
	p.handler.OnDictAdd(recPos, added)

	return nil
}

func (p *Parser) parseValueRecord(recPos int64) error {
	if err := p.checkBackOffset(recPos); err != nil {
		return err
	}

	if _, err := value.ReadUvarint(p.src); err != nil { // total payload length, used only for skip
		return err
	}

	return p.vp.Value()
}

// AdvancePastDictEvents consumes header/dict-clear/dict-add records
// starting at the current position until the next value record's tag is
// reached, stopping with the cursor positioned at that tag rather than
// consuming it. It reports true once a value record's tag is next, or
// false on clean EOF before one is found. Used by tail's seek_sync to
// replay dictionary state up to (but not including) the value record a
// resync attempt is trying to confirm.
func (p *Parser) AdvancePastDictEvents() (bool, error) {
	for {
		tag, err := p.src.Peek()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, nil
			}

			return false, err
		}
		if tag == TagValue {
			return true, nil
		}

		if _, err := p.parseOne(); err != nil {
			return false, err
		}
	}
}

func (p *Parser) checkBackOffset(recPos int64) error {
	backOffset, err := value.ReadUvarint(p.src)
	if err != nil {
		return err
	}

	if p.bootstrapBackOffset {
		p.bootstrapBackOffset = false
		p.dict.SetLastEventPos(recPos - int64(backOffset))

		return nil
	}

	if recPos-int64(backOffset) != p.dict.LastEventPos() {
		return errs.ErrDictInconsistent
	}

	return nil
}

// SetResumable marks this parser as driving a resync trial rather than a
// normal forward scan: its caller (tail) treats any error, including
// errs.ErrDictInconsistent, as "this candidate boundary was wrong, try the
// next byte" rather than a fatal stream error. Resumable itself reports
// the flag back, for a caller further up (cmd/au's tail subcommand) to
// decide whether a dict inconsistency hit during normal scanning should be
// logged and aborted on, or silently trigger a fresh resync.
func (p *Parser) SetResumable(v bool) { p.resumable = v }

// Resumable reports whether SetResumable(true) was called.
func (p *Parser) Resumable() bool { return p.resumable }

// BootstrapPending reports whether a back-offset bootstrap requested via
// BootstrapBackOffset is still waiting for its first dict-add or value
// record; it returns false once that record has been seen and consumed.
func (p *Parser) BootstrapPending() bool {
	return p.bootstrapBackOffset
}

// BootstrapBackOffset tells the parser to seed dictionary's last event
// position from the next dict-add or value record's own back-offset field,
// instead of validating that back-offset against previously known state.
// tail's seek_sync uses this once per resync attempt: landing mid-stream at
// an unvalidated candidate boundary, there is no prior state to check the
// first back-offset-bearing record against, only a claim to trust and
// verify structurally. Every record after that first one is checked
// normally against the position it establishes.
func (p *Parser) BootstrapBackOffset() {
	p.bootstrapBackOffset = true
}
