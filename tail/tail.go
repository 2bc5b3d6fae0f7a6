// Package tail implements seek_sync resynchronization and follow mode over
// a seekable Au file: given an arbitrary byte offset (from bisect's binary
// search, or the end of a growing file), it scans forward for the next
// valid record boundary and replays dictionary state up to it.
package tail

import (
	"context"
	"os"

	"github.com/austream/au/bytesource"
	"github.com/austream/au/dict"
	"github.com/austream/au/errs"
	"github.com/austream/au/record"
	"github.com/austream/au/value"
)

// DefaultResyncWindow bounds how far seek_sync scans past its starting
// point before giving up and reporting errs.ErrResyncFailed.
const DefaultResyncWindow = 64 * 1024

func isRecordTag(b byte) bool {
	switch b {
	case record.TagHeader, record.TagDictClear, record.TagDictAdd, record.TagValue:
		return true
	default:
		return false
	}
}

// Follower wraps a bytesource.FileSource and adds seek_sync
// resynchronization on top of its Seek. By default it behaves like a
// one-shot reader that reports a normal EOF at the end of file, suitable
// for a one-shot bisect search; WithFollow switches it into
// wait_for_data mode for the `au tail` subcommand, where reads past EOF
// sleep and retry instead.
type Follower struct {
	src          *bytesource.FileSource
	resyncWindow int64
}

// config collects Option settings before the underlying bytesource.Source
// is constructed, since follow mode has to be known at construction time.
type config struct {
	resyncWindow int64
	follow       bool
	ctx          context.Context
}

// Option configures a Follower at construction time.
type Option func(*config)

// WithResyncWindow overrides DefaultResyncWindow.
func WithResyncWindow(n int64) Option {
	return func(c *config) { c.resyncWindow = n }
}

// WithFollow puts the Follower in wait_for_data mode: reads past the
// current end of file block and retry instead of returning io.EOF. ctx
// cancels a blocked wait.
func WithFollow(ctx context.Context) Option {
	return func(c *config) {
		c.follow = true
		c.ctx = ctx
	}
}

// Open opens fname. By default reads past EOF return io.EOF normally; pass
// WithFollow to block and retry instead.
func Open(fname string, opts ...Option) (*Follower, error) {
	cfg := &config{resyncWindow: DefaultResyncWindow, ctx: context.Background()}
	for _, opt := range opts {
		opt(cfg)
	}

	file, err := os.Open(fname)
	if err != nil {
		return nil, errs.ErrIO
	}

	var srcOpts []bytesource.Option
	if cfg.follow {
		srcOpts = append(srcOpts, bytesource.WithWaitForData(), bytesource.WithContext(cfg.ctx))
	}

	src := bytesource.NewFileSource(file, fname, srcOpts...)

	return &Follower{src: src, resyncWindow: cfg.resyncWindow}, nil
}

// Source returns the underlying bytesource.Source, for drivers (grep,
// bisect) that need to hand it to a record.Parser directly.
func (f *Follower) Source() bytesource.Source { return f.src }

// Pos returns the follower's current cursor position.
func (f *Follower) Pos() int64 { return f.src.Pos() }

// IsSeekable reports whether the underlying file supports arbitrary seeks.
func (f *Follower) IsSeekable() bool { return f.src.IsSeekable() }

// EndPos reports the current size of the underlying file.
func (f *Follower) EndPos() (int64, error) { return f.src.EndPos() }

// RecordParser builds a record.Parser reading this Follower's source,
// sharing dictionary with the caller.
func (f *Follower) RecordParser(dictionary *dict.Dictionary, handler record.Handler) *record.Parser {
	return record.New(f.src, dictionary, handler)
}

// SeekSync seeks to pos and scans forward for the next record boundary:
// scan for a record-tag byte, try to replay header/dict events from there
// through to a value record, and on failure advance one
// byte and retry, bounded by resyncWindow. On success the cursor is left
// at the start of the next value record, and dictionary has been advanced
// through every dict-clear/add record along the way.
//
// H/C/A/V are common ASCII bytes that occur naturally inside string
// payloads, so a candidate tag byte committing one or more well-formed
// dict-add records before failing on a later record in the same trial is
// expected, not exceptional; tryResync snapshots dictionary before each
// trial and restores it on failure so a losing candidate leaves no trace.
func (f *Follower) SeekSync(pos int64, dictionary *dict.Dictionary) error {
	if err := f.src.Seek(pos); err != nil {
		return err
	}

	limit := pos + f.resyncWindow
	for {
		if f.src.Pos() > limit {
			return errs.ErrResyncFailed
		}

		b, err := f.src.Peek()
		if err != nil {
			return errs.ErrResyncFailed
		}

		if isRecordTag(b) {
			candidate := f.src.Pos()
			if f.tryResync(candidate, dictionary) {
				return nil
			}
			if err := f.src.Seek(candidate); err != nil {
				return err
			}
		}

		if err := f.src.Skip(1); err != nil {
			return err
		}
	}
}

// tryResync attempts to replay from candidate through to a value record's
// tag, reporting whether it succeeded. On failure the cursor may be left
// anywhere the trial gave up; the caller reseeks to candidate before
// continuing the scan. dictionary is snapshotted before the trial and
// restored if it fails, since the trial's own dict-add/header replay
// mutates dictionary directly as it goes and has no other way to know,
// until the trial concludes, whether those mutations were ever valid.
func (f *Follower) tryResync(candidate int64, dictionary *dict.Dictionary) bool {
	snapshot := dictionary.Snapshot()

	f.src.SetPin(candidate)
	defer f.src.ClearPin()

	parser := f.RecordParser(dictionary, &replayHandler{})
	parser.SetResumable(true)
	parser.BootstrapBackOffset()
	ok, err := parser.AdvancePastDictEvents()
	if err != nil || !ok {
		dictionary.Restore(snapshot)

		return false
	}

	if parser.BootstrapPending() {
		if err := f.bootstrapFromValueTag(dictionary); err != nil {
			dictionary.Restore(snapshot)

			return false
		}
	}

	return true
}

// bootstrapFromValueTag reads the value record currently under the cursor's
// tag and back-offset field to seed dictionary's last event position, then
// rewinds to that record's own start so it's left unconsumed for the
// caller to parse normally. Called when AdvancePastDictEvents stopped
// right at a value tag without ever handing a dict-add/value record to
// checkBackOffset (no dict-clear/add preceded it at this candidate), so
// the pending bootstrap never got to run.
func (f *Follower) bootstrapFromValueTag(dictionary *dict.Dictionary) error {
	recPos := f.src.Pos()
	if _, err := f.src.Next(); err != nil { // tag byte, already confirmed to be TagValue
		return err
	}

	backOffset, err := value.ReadUvarint(f.src)
	if err != nil {
		return err
	}

	dictionary.SetLastEventPos(recPos - int64(backOffset))

	return f.src.Seek(recPos)
}

// replayHandler discards every event; SeekSync only needs AdvancePastDictEvents's
// side effect on the dictionary argument, not any of the events themselves.
type replayHandler struct {
	record.NoopEvents
}

func (*replayHandler) OnNull(int64)             {}
func (*replayHandler) OnBool(int64, bool)       {}
func (*replayHandler) OnInt(int64, int64)       {}
func (*replayHandler) OnUint(int64, uint64)     {}
func (*replayHandler) OnDouble(int64, float64)  {}
func (*replayHandler) OnTime(int64, int64)      {}
func (*replayHandler) OnDictRef(int64, int)     {}
func (*replayHandler) OnStringStart(int64, int) {}
func (*replayHandler) OnStringFragment([]byte)  {}
func (*replayHandler) OnStringEnd()             {}
func (*replayHandler) OnObjectStart()           {}
func (*replayHandler) OnObjectEnd()             {}
func (*replayHandler) OnArrayStart()            {}
func (*replayHandler) OnArrayEnd()              {}
