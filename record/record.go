// Package record frames the byte stream into the four record kinds —
// header, dict-clear, dict-add, and value — validating each record's
// back-offset against the dictionary's last recorded event before handing
// value records to package value for decoding.
package record

// Tag bytes introduce a record.
const (
	TagHeader    = 'H'
	TagDictClear = 'C'
	TagDictAdd   = 'A'
	TagValue     = 'V'
)

// Version is the only header version this decoder understands; it also
// matches what the encoder emits.
const Version = 1
