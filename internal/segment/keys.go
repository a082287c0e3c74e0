package segment

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedKey        = errors.New("malformed segment key")
	ErrMalformedFilename   = errors.New("malformed segment filename")
	ErrMalformedTimestamp  = errors.New("malformed segment timestamp")
	ErrInvalidSeek         = errors.New("invalid seek position")
	ErrReaderClosed        = errors.New("segment reader closed")
	ErrDuplicateTimestamp  = errors.New("duplicate segment start timestamp")
	errEmptyTopicOrSegment = errors.New("empty topic or filename")
)

// Key layout:
//   - {topic}/{from}_{count}_{lastBlockOffset}_{position}.avro   (segment)
//   - {topic}/metadata/{escaped-key}                              (metadata)
//
// A topic may itself contain '/', so the topic/filename split always uses the
// last separator.

const (
	sep            = "/"
	metadataDir    = "metadata"
	metadataSuffix = sep + metadataDir + sep
)

// EncodeKey joins topic and filename into an object key. Neither part is escaped.
func EncodeKey(topic, filename string) string {
	return topic + sep + filename
}

// TopicPrefix is the listing prefix for every object of a topic.
func TopicPrefix(topic string) string {
	return topic + sep
}

// MetadataPrefix is the listing prefix of the topic's metadata namespace.
func MetadataPrefix(topic string) string {
	return topic + metadataSuffix
}

// MetadataDir is the reserved path element holding metadata entries.
func MetadataDir() string { return metadataDir }

func splitKey(key string) (string, string, error) {
	i := strings.LastIndex(key, sep)
	if i < 0 {
		return "", "", fmt.Errorf("%w: %q has no %q", ErrMalformedKey, key, sep)
	}
	topic, filename := key[:i], key[i+1:]
	if topic == "" || filename == "" {
		return "", "", fmt.Errorf("%w: %q: %w", ErrMalformedKey, key, errEmptyTopicOrSegment)
	}
	return topic, filename, nil
}

// DecodeTopic returns everything before the last '/'.
func DecodeTopic(key string) (string, error) {
	topic, _, err := splitKey(key)
	return topic, err
}

// DecodeFilename returns everything after the last '/'.
func DecodeFilename(key string) (string, error) {
	_, filename, err := splitKey(key)
	return filename, err
}

// ParseKey splits key and decodes the segment filename.
func ParseKey(key string) (string, Name, error) {
	topic, filename, err := splitKey(key)
	if err != nil {
		return "", Name{}, err
	}
	n, err := ParseName(filename)
	if err != nil {
		return "", Name{}, err
	}
	return topic, n, nil
}
