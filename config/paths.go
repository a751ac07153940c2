package config

import (
	"fmt"
	"path"
	"strings"
)

const (
	// InputData is the root of the raw song and log records.
	InputData = "s3a://udacity-dend/"
	// OutputData is the root the star schema tables are written under.
	OutputData = "s3a://udacity-dend/ash_rahman/"

	DefaultRegion = "us-west-2"
)

// Location is a bucket plus a key prefix. Prefix is either empty or ends in "/".
type Location struct {
	Bucket string
	Prefix string
}

// ParseLocation accepts s3://, s3a:// and s3n:// URLs.
func ParseLocation(raw string) (Location, error) {
	rest := ""
	for _, scheme := range []string{"s3a://", "s3n://", "s3://"} {
		if strings.HasPrefix(raw, scheme) {
			rest = strings.TrimPrefix(raw, scheme)
			break
		}
	}
	if rest == "" {
		return Location{}, fmt.Errorf("unsupported location %q", raw)
	}

	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("location %q has no bucket", raw)
	}
	return Location{Bucket: bucket, Prefix: normalizePrefix(prefix)}, nil
}

// Join returns the key prefix of a directory below the location.
func (l Location) Join(elem ...string) string {
	parts := append([]string{l.Prefix}, elem...)
	return normalizePrefix(path.Join(parts...))
}

func (l Location) String() string {
	return "s3a://" + l.Bucket + "/" + l.Prefix
}

func normalizePrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" || p == "." {
		return ""
	}
	return p + "/"
}
