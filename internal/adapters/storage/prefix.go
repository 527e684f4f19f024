package storage

import (
	"strings"

	"github.com/jobrunner/geodraw/internal/ports/output"
)

// geoJSONContentType is the media type of uploaded documents.
const geoJSONContentType = "application/geo+json"

// objectName maps a library key to the bucket or container object name.
func objectName(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + strings.TrimPrefix(key, "/")
}

// libraryKey maps an object name back to its library key. ok is false for
// objects outside the prefix and for non-GeoJSON names.
func libraryKey(prefix, name string) (string, bool) {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		rest, found := strings.CutPrefix(name, prefix+"/")
		if !found {
			return "", false
		}
		name = rest
	}
	if name == "" || !output.IsGeoJSONKey(name) {
		return "", false
	}
	return name, true
}
