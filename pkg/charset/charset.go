// Package charset converts UTF-8 text into the byte encoding a node is configured with.
// Names follow the iconv spelling Node-RED flows use ("utf8", "latin1", "utf16le",
// "win1252", ...) and fall back to the WHATWG and IANA registries.
package charset

import (
	"fmt"
	"strings"
	"sync"

	"github.com/lambertxiao/go-dynfile/pkg/types"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

type Encoder interface {
	Encode(data []byte, name string) ([]byte, error)
}

type DefaultEncoder struct{}

func (DefaultEncoder) Encode(data []byte, name string) ([]byte, error) {
	return Encode(data, name)
}

var aliases = map[string]encoding.Encoding{
	"utf8":       unicode.UTF8,
	"utf-8":      unicode.UTF8,
	"ucs2":       unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"ucs-2":      unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf16le":    unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf-16le":   unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf16be":    unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"utf-16be":   unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"utf16":      unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"utf-16":     unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"latin1":     charmap.ISO8859_1,
	"binary":     charmap.ISO8859_1,
	"iso88591":   charmap.ISO8859_1,
	"iso-8859-1": charmap.ISO8859_1,
}

var cache sync.Map // normalized name -> encoding.Encoding

// Encode returns data unchanged for "none" or an empty name.
func Encode(data []byte, name string) ([]byte, error) {
	if name == "" || name == types.EncodingNone {
		return data, nil
	}

	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if enc == unicode.UTF8 {
		return data, nil
	}

	out, err := encoding.ReplaceUnsupported(enc.NewEncoder()).Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return out, nil
}

func Lookup(name string) (encoding.Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if v, ok := cache.Load(key); ok {
		return v.(encoding.Encoding), nil
	}

	enc := lookup(key)
	if enc == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownEncoding, name)
	}
	cache.Store(key, enc)
	return enc, nil
}

func lookup(key string) encoding.Encoding {
	if enc, ok := aliases[key]; ok {
		return enc
	}

	// iconv writes windows code pages as "win1252" / "cp1252"
	candidates := []string{key}
	for _, prefix := range []string{"win", "cp"} {
		if strings.HasPrefix(key, prefix) && !strings.HasPrefix(key, "windows") {
			candidates = append(candidates, "windows-"+strings.TrimPrefix(key, prefix))
		}
	}

	for _, c := range candidates {
		if enc, err := htmlindex.Get(c); err == nil && enc != nil {
			return enc
		}
		if enc, err := ianaindex.IANA.Encoding(c); err == nil && enc != nil {
			return enc
		}
	}
	return nil
}
