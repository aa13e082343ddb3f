package charset

import (
	"errors"
	"testing"

	"github.com/lambertxiao/go-dynfile/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeNonePassthrough(t *testing.T) {
	in := []byte{0xff, 0x00, 'a'}
	out, err := Encode(in, "none")
	assert.Nil(t, err)
	assert.Equal(t, in, out)

	out, err = Encode(in, "")
	assert.Nil(t, err)
	assert.Equal(t, in, out)
}

func TestEncodeUTF8(t *testing.T) {
	out, err := Encode([]byte("héllo"), "utf8")
	assert.Nil(t, err)
	assert.Equal(t, []byte("héllo"), out)
}

func TestEncodeLatin1(t *testing.T) {
	out, err := Encode([]byte("é"), "latin1")
	assert.Nil(t, err)
	assert.Equal(t, []byte{0xe9}, out)
}

func TestEncodeUTF16LE(t *testing.T) {
	out, err := Encode([]byte("AB"), "utf16le")
	assert.Nil(t, err)
	assert.Equal(t, []byte{'A', 0x00, 'B', 0x00}, out)
}

func TestEncodeWindowsCodePageAlias(t *testing.T) {
	out, err := Encode([]byte("€"), "win1252")
	require.Nil(t, err)
	assert.Equal(t, []byte{0x80}, out)

	out, err = Encode([]byte("€"), "Windows-1252")
	require.Nil(t, err)
	assert.Equal(t, []byte{0x80}, out)
}

func TestEncodeUnknown(t *testing.T) {
	_, err := Encode([]byte("x"), "klingon")
	assert.True(t, errors.Is(err, types.ErrUnknownEncoding))
}
