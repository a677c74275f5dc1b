package image

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"

	"kernos/pkg/mem"
)

func TestParseRoundTrip(t *testing.T) {
	body := bytes.Repeat([]byte{0xCC}, mem.PageSize+10)
	img, err := Parse(Encode(0x400000, body))
	require.NoError(t, err)

	assert.Equal(t, uint64(0x400000), img.Entry)
	require.Len(t, img.Pages, 2, "body spills into a second page")
	assert.Len(t, img.Pages[0], mem.PageSize)
	assert.Len(t, img.Pages[1], 10)
}

func TestParseEmptyBody(t *testing.T) {
	img, err := Parse(Encode(0x1000, nil))
	require.NoError(t, err)
	assert.Empty(t, img.Pages)
}

func TestParseRejectsGarbage(t *testing.T) {
	cases := map[string][]byte{
		"short":       []byte("KEX"),
		"bad magic":   append([]byte("ELF\x7f"), make([]byte, 12)...),
		"bad version": append([]byte("KEXE\x00\x09"), make([]byte, 10)...),
	}
	for name, data := range cases {
		_, err := Parse(data)
		assert.ErrorIs(t, err, ErrBadFormat, name)
	}
}

func TestLoaderResolvesAgainstRoot(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	err := fs.Upload(ctx, "mem://localhost/images/sh", 0755, bytes.NewReader(Encode(0x8000, []byte("prog"))))
	require.NoError(t, err)

	l := NewLoader("mem://localhost/images")
	img, err := l.Load(ctx, "sh")
	require.NoError(t, err)
	assert.Equal(t, "sh", img.Path)
	assert.Equal(t, uint64(0x8000), img.Entry)
}

func TestLoaderAcceptsAbsoluteURL(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	err := fs.Upload(ctx, "mem://localhost/elsewhere/tool", 0755, bytes.NewReader(Encode(0x9000, nil)))
	require.NoError(t, err)

	l := NewLoader("mem://localhost/images")
	img, err := l.Load(ctx, "mem://localhost/elsewhere/tool")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x9000), img.Entry)
}

func TestLoaderMissingImage(t *testing.T) {
	l := NewLoader("mem://localhost/images")
	_, err := l.Load(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoaderBadImage(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	err := fs.Upload(ctx, "mem://localhost/images/broken", 0755, bytes.NewReader([]byte("#!/bin/sh\n")))
	require.NoError(t, err)

	l := NewLoader("mem://localhost/images")
	_, err = l.Load(ctx, "broken")
	assert.ErrorIs(t, err, ErrBadFormat)
}
