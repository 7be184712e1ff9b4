// Package assetpath derives meaning from object store keys of the asset
// library. Keys are always slash separated, independent of the host OS.
package assetpath

import (
	"path"
	"regexp"
	"strings"
)

const (
	// Root is the object store prefix that holds one folder per overlay pack.
	Root = "assets/overlays"

	// PreviewMarker marks the lower resolution preview rendition of a file.
	PreviewMarker = "_720p"

	LegacyExt = ".mov"
	WebExt    = ".mp4"

	FileTypeMOV = "mov"
	FileTypeMP4 = "mp4"
)

// videoExts is the closed list of recognised video containers
var videoExts = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".m4v":  true,
	".webm": true,
}

var (
	previewSuffix = regexp.MustCompile(`(?i)_720p(\.(?:mp4|mov|m4v|webm))$`)
	previewMP4    = regexp.MustCompile(`(?i)_720p\.mp4$`)
)

// FileName returns the final segment of key.
func FileName(key string) string {
	return path.Base(key)
}

// BaseName groups related renditions of the same deliverable.
// The preview marker is stripped before the container extension, so
// "Flare.mp4", "Flare_720p.mp4" and "Flare.mov" all yield "Flare".
func BaseName(key string) string {
	name := FileName(key)
	name = previewSuffix.ReplaceAllString(name, "$1")
	ext := path.Ext(name)
	if videoExts[strings.ToLower(ext)] {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

// FolderName returns the pack folder of a key under Root.
func FolderName(key string) (string, bool) {
	parts := strings.Split(key, "/")
	if len(parts) < 3 {
		return "", false
	}
	if parts[0]+"/"+parts[1] != Root || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}

// FolderPrefix is the listing prefix for every key of a pack folder.
func FolderPrefix(folder string) string {
	return Root + "/" + folder + "/"
}

// IsPreview reports whether key is an mp4 preview rendition.
func IsPreview(key string) bool {
	return previewMP4.MatchString(FileName(key))
}

// Ext returns the lower-cased extension of key, including the dot.
func Ext(key string) string {
	return strings.ToLower(path.Ext(key))
}

// FileType is the extension without its dot, e.g. "mp4".
func FileType(key string) string {
	return strings.TrimPrefix(Ext(key), ".")
}

func IsVideo(key string) bool {
	return videoExts[Ext(key)]
}

// IsLegacy reports whether key points at the legacy container.
func IsLegacy(key string) bool {
	return Ext(key) == LegacyExt
}

// ConvertedKey returns the sibling key the legacy file converts to.
// Keys that are not legacy are returned unchanged.
func ConvertedKey(key string) string {
	if !IsLegacy(key) {
		return key
	}
	return strings.TrimSuffix(key, path.Ext(key)) + WebExt
}

// ContentType guesses the MIME type of an object from its key.
func ContentType(key string) string {
	switch Ext(key) {
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".cube":
		return "application/octet-stream"
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".zip":
		return "application/zip"
	default:
		return ""
	}
}
