package uploads

import (
	"errors"
	"path"
	"strings"

	"github.com/gosimple/slug"
)

var ErrEmptyName = errors.New("filename is empty after sanitizing")

const maxExtLen = 16

// SanitizeFilename turns a client supplied filename into a single safe path
// element: directories are dropped, the stem is slugged and the extension is
// reduced to lowercase ASCII letters and digits.
//
//	"../../etc/passwd"   -> "passwd"
//	"My Holiday.MP4"     -> "my-holiday.mp4"
//	"C:\\clips\\cat.avi" -> "cat.avi"
func SanitizeFilename(name string) (string, error) {
	base := baseName(name)
	ext := sanitizeExt(path.Ext(base))
	stem := slug.Make(strings.TrimSuffix(base, path.Ext(base)))

	if stem == "" || stem == "." || stem == ".." {
		return "", ErrEmptyName
	}
	if ext == "" {
		return stem, nil
	}
	return stem + "." + ext, nil
}

func baseName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimRight(name, "/")
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSpace(name)
}

func sanitizeExt(ext string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimPrefix(ext, ".")) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == maxExtLen {
			break
		}
	}
	return b.String()
}
