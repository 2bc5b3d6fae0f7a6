package bytesource

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/austream/au/errs"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, data []byte) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "bytesource-*")
	require.NoError(t, err)
	_, err = f.Write(data)
	require.NoError(t, err)
	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	return f
}

func TestFileSource_NextAndPeek(t *testing.T) {
	f := writeTempFile(t, []byte("abc"))
	src := NewFileSource(f, f.Name())

	b, err := src.Peek()
	require.NoError(t, err)
	require.Equal(t, byte('a'), b)

	b, err = src.Next()
	require.NoError(t, err)
	require.Equal(t, byte('a'), b)
	require.Equal(t, int64(1), src.Pos())

	b, err = src.Next()
	require.NoError(t, err)
	require.Equal(t, byte('b'), b)

	b, err = src.Next()
	require.NoError(t, err)
	require.Equal(t, byte('c'), b)

	_, err = src.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestFileSource_ReadExact(t *testing.T) {
	f := writeTempFile(t, []byte("hello world"))
	src := NewFileSource(f, f.Name())

	var got []byte
	err := src.ReadExact(5, func(b []byte) { got = append(got, b...) })
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
	require.Equal(t, int64(5), src.Pos())
}

func TestFileSource_ReadExact_UnexpectedEOF(t *testing.T) {
	f := writeTempFile(t, []byte("ab"))
	src := NewFileSource(f, f.Name())

	err := src.ReadExact(10, func([]byte) {})
	require.ErrorIs(t, err, errs.ErrUnexpectedEOF)
}

func TestFileSource_SeekWithinHistory(t *testing.T) {
	f := writeTempFile(t, []byte("0123456789"))
	src := NewFileSource(f, f.Name())

	for i := 0; i < 5; i++ {
		_, err := src.Next()
		require.NoError(t, err)
	}
	require.Equal(t, int64(5), src.Pos())

	require.NoError(t, src.Seek(2))
	require.Equal(t, int64(2), src.Pos())

	b, err := src.Next()
	require.NoError(t, err)
	require.Equal(t, byte('2'), b)
}

func TestFileSource_SeekPastBuffer(t *testing.T) {
	f := writeTempFile(t, []byte("0123456789"))
	src := NewFileSource(f, f.Name())

	require.NoError(t, src.Seek(7))
	b, err := src.Next()
	require.NoError(t, err)
	require.Equal(t, byte('7'), b)
}

func TestFileSource_PinProtectsHistoryAcrossRefill(t *testing.T) {
	data := bytes.Repeat([]byte("x"), RefillChunk*2)
	data[0] = 'A'
	f := writeTempFile(t, data)
	src := NewFileSource(f, f.Name())

	src.SetPin(0)

	buf := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		b, err := src.Next()
		require.NoError(t, err)
		buf = append(buf, b)
	}

	require.NoError(t, src.Seek(0))
	b, err := src.Next()
	require.NoError(t, err)
	require.Equal(t, byte('A'), b, "pinned history must survive buffer refills")
}

func TestFileSource_ScanTo(t *testing.T) {
	f := writeTempFile(t, []byte("prefix--NEEDLE--suffix"))
	src := NewFileSource(f, f.Name())

	found, err := src.ScanTo([]byte("NEEDLE"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(8), src.Pos())
}

func TestFileSource_ScanTo_NotFound(t *testing.T) {
	f := writeTempFile(t, []byte("no needle here"))
	src := NewFileSource(f, f.Name())

	found, err := src.ScanTo([]byte("NEEDLE"))
	require.NoError(t, err)
	require.False(t, found)
}

func TestFileSource_EndPosAndSeekable(t *testing.T) {
	f := writeTempFile(t, []byte("0123456789"))
	src := NewFileSource(f, f.Name())

	require.True(t, src.IsSeekable())
	end, err := src.EndPos()
	require.NoError(t, err)
	require.Equal(t, int64(10), end)
}

func TestReaderSource_NotSeekable(t *testing.T) {
	r := bytes.NewReader([]byte("abc"))
	src := NewReaderSource(r, "<mem>")

	require.False(t, src.IsSeekable())
	_, err := src.EndPos()
	require.Error(t, err)
}
