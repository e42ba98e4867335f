package uploads

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"clip.mp4", "clip.mp4"},
		{"My Holiday.MP4", "my-holiday.mp4"},
		{"../../etc/passwd", "passwd"},
		{`C:\clips\cat.avi`, "cat.avi"},
		{"/abs/path/to/video.mkv", "video.mkv"},
		{"weird name (1).m p4", "weird-name-1.mp4"},
		{"no_extension", "no_extension"},
		{"archive.tar.gz", "archive-tar.gz"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := SanitizeFilename(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeFilename_Empty(t *testing.T) {
	for _, in := range []string{"", "..", "../..", "/", "...", ".mp4", "???"} {
		_, err := SanitizeFilename(in)
		assert.ErrorIs(t, err, ErrEmptyName, in)
	}
}

func FuzzSanitizeFilename(f *testing.F) {
	for _, seed := range []string{"a.mp4", "../x", `..\..\x`, "/etc/passwd", "a/../../b", "\x00.mp4", "....//....//x"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, name string) {
		got, err := SanitizeFilename(name)
		if err != nil {
			return
		}
		if got == "" || got == "." || got == ".." {
			t.Fatalf("unsafe result %q for %q", got, name)
		}
		if strings.ContainsAny(got, `/\`) || strings.ContainsRune(got, 0) {
			t.Fatalf("result %q for %q contains a separator", got, name)
		}
	})
}

func TestSaver_NeverEscapesDir(t *testing.T) {
	dir := t.TempDir()
	s := NewSaver(filepath.Join(dir, "uploads"))

	names := []string{
		"../escape.mp4",
		"../../escape.mp4",
		`..\..\escape.mp4`,
		"/tmp/escape.mp4",
		"sub/dir/escape.mp4",
		"..",
		"....",
	}

	for _, name := range names {
		p, err := s.SaveFile(name, strings.NewReader("data"))
		require.NoError(t, err, name)

		rel, err := filepath.Rel(s.Dir, p)
		require.NoError(t, err)
		assert.False(t, strings.HasPrefix(rel, ".."), "%q saved outside: %s", name, p)
		assert.Equal(t, filepath.Base(p), rel, "%q saved in a subdirectory: %s", name, p)
	}

	_, err := os.Stat(filepath.Join(dir, "escape.mp4"))
	assert.True(t, os.IsNotExist(err))
}

func TestSaver_OverwritesOnCollision(t *testing.T) {
	s := NewSaver(t.TempDir())

	p1, err := s.SaveFile("Clip.mp4", strings.NewReader("first"))
	require.NoError(t, err)
	p2, err := s.SaveFile("clip.MP4", strings.NewReader("second"))
	require.NoError(t, err)

	assert.Equal(t, p1, p2)
	data, err := os.ReadFile(p2)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(s.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestSaver_GeneratesNameForUnusableInput(t *testing.T) {
	s := NewSaver(t.TempDir())

	p, err := s.SaveFile("???.mp4", strings.NewReader("x"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(p), "upload-"))
	assert.Equal(t, ".mp4", filepath.Ext(p))
}

func TestSaver_MissingFile(t *testing.T) {
	s := NewSaver(t.TempDir())

	_, err := s.Save(nil)
	assert.ErrorIs(t, err, ErrMissingFile)

	_, err = s.SaveFile("  ", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrMissingFile)
}

func TestSaver_SaveMultipart(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "../Road Trip.mp4")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("video-bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/FrontPage", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))

	_, fh, err := req.FormFile("file")
	require.NoError(t, err)

	s := NewSaver(t.TempDir())
	p, err := s.Save(fh)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir, "road-trip.mp4"), p)

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))
}
