package storage

import (
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/atelier/internal/domain/model"
)

const maxNameLength = 120

// ObjectKey builds a unique key for an upload: {folder}/{unixMillis}-{8 hex}-{name}.
// Two calls with the same name never collide, so retries produce new objects.
func ObjectKey(folder model.Folder, fileName string, now time.Time) string {
	short := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return folder.String() + "/" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + short + "-" + SanitizeName(fileName)
}

// SanitizeName reduces a client file name to a safe key segment.
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}

	out := strings.Trim(b.String(), "-.")
	if len(out) > maxNameLength {
		out = out[len(out)-maxNameLength:]
	}
	if out == "" {
		return "file"
	}
	return out
}
