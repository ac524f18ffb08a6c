package daemon

import (
	"fmt"
	"path/filepath"
	"strings"
)

// CaptureSeparator splits the item ID from the attachment filename in a
// capture drop: "tok-7f3a2b__label_collar.jpg" attaches label_collar.jpg to
// item tok-7f3a2b.
const CaptureSeparator = "__"

// captureExtensions maps recognized capture extensions to their MIME types.
// Anything else in the folder (sidecar files, editor temp files) is ignored.
var captureExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
	".pdf":  "application/pdf",
}

// ParseCaptureName splits a capture filename into the owning item ID and the
// attachment filename.
func ParseCaptureName(name string) (itemID, filename string, err error) {
	idx := strings.Index(name, CaptureSeparator)
	if idx <= 0 || idx+len(CaptureSeparator) >= len(name) {
		return "", "", fmt.Errorf("capture %q is not named <itemID>%s<filename>", name, CaptureSeparator)
	}
	return name[:idx], name[idx+len(CaptureSeparator):], nil
}

// isCaptureFile reports whether path looks like a dropped capture: a known
// extension and not a hidden file.
func isCaptureFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	_, ok := captureExtensions[strings.ToLower(filepath.Ext(base))]
	return ok
}

// captureMimeType returns the MIME type for a capture filename.
func captureMimeType(name string) string {
	if mt, ok := captureExtensions[strings.ToLower(filepath.Ext(name))]; ok {
		return mt
	}
	return "application/octet-stream"
}
