package storage

import "strings"

// NormalizeSourceKey converts a source name into the object-key-safe token
// used as the file segment of a storage key: lowercase, runs of
// non-alphanumeric characters collapsed to a single underscore, leading
// and trailing underscores trimmed. The transformation is idempotent, so
// sources differing only in case or spacing map to the same key.
func NormalizeSourceKey(source string) string {
	var b strings.Builder
	b.Grow(len(source))

	lastUnderscore := false
	for _, r := range strings.ToLower(source) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if isAlnum {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	return strings.Trim(b.String(), "_")
}

// ObjectKey derives the storage key for a (company, source) pair. The
// company name is preserved verbatim as the folder segment; the source
// name is normalized for the file segment.
func ObjectKey(company, source string) string {
	return company + "/" + NormalizeSourceKey(source) + ".json"
}

// DisplaySourceName reverses normalization cosmetically for listings:
// underscores become spaces and each word is title-cased. The original
// casing is not recoverable, so this is presentation only.
func DisplaySourceName(stem string) string {
	words := strings.Split(stem, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
