package store

import "strings"

// Key layout, per entity prefix P (e.g. "book:"):
//
//	P{id}                          -> JSON record
//	P idx:{name}:{value}           -> id              (unique index)
//	P idx:{name}:{value}:{id}      -> empty           (membership index)
//
// Index values are escaped so a value containing ':' can never shadow the
// key range of another value.
const indexSegment = "idx:"

var indexValueEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

func escapeIndexValue(v string) string {
	return indexValueEscaper.Replace(v)
}

func entityKey(prefix, id string) []byte {
	return []byte(prefix + id)
}

func uniqueIndexKey(prefix, name, value string) []byte {
	return []byte(prefix + indexSegment + name + ":" + escapeIndexValue(value))
}

// memberIndexPrefix is the key range holding every id indexed under value.
func memberIndexPrefix(prefix, name, value string) []byte {
	return []byte(prefix + indexSegment + name + ":" + escapeIndexValue(value) + ":")
}

func memberIndexKey(prefix, name, value, id string) []byte {
	return append(memberIndexPrefix(prefix, name, value), id...)
}

// isIndexKey reports whether key, which starts with prefix, belongs to an index.
func isIndexKey(prefix string, key []byte) bool {
	return strings.HasPrefix(string(key[len(prefix):]), indexSegment)
}
