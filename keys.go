package lfas

import "encoding/binary"

// Key-space prefixes for the inverted index and metadata store. Keys are
// built as prefix + field_tag_byte + '/' + suffix_bytes, giving a
// lexicographic ordering that groups all terms of a field together
// under one ScanPrefix call.
var (
	idxPrefix  = []byte("idx/")
	metaPrefix = []byte("meta/")
)

func postingKey(field FieldTag, token string) []byte {
	key := make([]byte, 0, len(idxPrefix)+1+1+len(token))
	key = append(key, idxPrefix...)
	key = append(key, byte(field))
	key = append(key, '/')
	key = append(key, token...)
	return key
}

func fieldScanPrefix(field FieldTag) []byte {
	key := make([]byte, 0, len(idxPrefix)+2)
	key = append(key, idxPrefix...)
	key = append(key, byte(field))
	key = append(key, '/')
	return key
}

func metaKey(field FieldTag, subfield string) []byte {
	key := make([]byte, 0, len(metaPrefix)+1+1+len(subfield))
	key = append(key, metaPrefix...)
	key = append(key, byte(field))
	key = append(key, '/')
	key = append(key, subfield...)
	return key
}

// metaStatsKey addresses a field's doc_count/total_length mirror.
func metaStatsKey(field FieldTag) []byte {
	return metaKey(field, "stats")
}

// metaLengthKey addresses one document's length mirror for field.
func metaLengthKey(field FieldTag, docID DocID) []byte {
	var id [4]byte
	binary.BigEndian.PutUint32(id[:], uint32(docID))
	return metaKey(field, "len/"+string(id[:]))
}
