// Package image loads executable binary images for exec. Images use a flat
// format: a fixed header carrying a magic number, a format version, and the
// program entry point, followed by the program body which is mapped into the
// new address space page by page.
package image

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/url"

	"kernos/pkg/mem"
)

// Image format constants.
const (
	// Magic identifies a loadable executable image.
	Magic = "KEXE"
	// Version is the only format version this loader accepts.
	Version = 1
	// HeaderSize is the fixed size of the image header:
	// 4 bytes magic, 2 bytes version, 2 bytes reserved, 8 bytes entry.
	HeaderSize = 16
)

// Loader errors.
var (
	ErrNotFound  = errors.New("no such file")
	ErrBadFormat = errors.New("exec format error")
)

// Image is a parsed executable: the entry point plus the program body split
// into pages ready to be mapped.
type Image struct {
	// Path is the location the image was loaded from.
	Path string
	// Entry is the program entry point.
	Entry uint64
	// Pages is the program body, one slice per page.
	Pages [][]byte
}

// Loader reads and parses executable images from abstract file storage. Any
// scheme supported by afs works; tests use mem:// and the demo file://.
type Loader struct {
	fs   afs.Service
	root string
}

// NewLoader creates a loader rooted at the given base URL. Paths passed to
// Load that do not carry a scheme are resolved relative to the root.
func NewLoader(root string) *Loader {
	return &Loader{fs: afs.New(), root: root}
}

// Load fetches and parses the image at path. It returns ErrNotFound when the
// object does not exist and ErrBadFormat when the header is invalid.
func (l *Loader) Load(ctx context.Context, path string) (*Image, error) {
	location := path
	if l.root != "" && !strings.Contains(path, "://") {
		location = url.Join(l.root, path)
	}

	exists, err := l.fs.Exists(ctx, location)
	if err != nil || !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	data, err := l.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	img, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, path)
	}
	img.Path = path
	return img, nil
}

// Parse validates the header and splits the body into pages.
func Parse(data []byte) (*Image, error) {
	if len(data) < HeaderSize {
		return nil, ErrBadFormat
	}
	if string(data[:4]) != Magic {
		return nil, ErrBadFormat
	}
	if binary.BigEndian.Uint16(data[4:6]) != Version {
		return nil, ErrBadFormat
	}
	entry := binary.BigEndian.Uint64(data[8:16])

	body := data[HeaderSize:]
	var pages [][]byte
	for off := 0; off < len(body); off += mem.PageSize {
		end := off + mem.PageSize
		if end > len(body) {
			end = len(body)
		}
		pages = append(pages, body[off:end])
	}
	return &Image{Entry: entry, Pages: pages}, nil
}

// Encode builds an image file from an entry point and a program body. It is
// the inverse of Parse and is used by the demo and tests to stage images.
func Encode(entry uint64, body []byte) []byte {
	out := make([]byte, HeaderSize, HeaderSize+len(body))
	copy(out[:4], Magic)
	binary.BigEndian.PutUint16(out[4:6], Version)
	binary.BigEndian.PutUint64(out[8:16], entry)
	return append(out, body...)
}
