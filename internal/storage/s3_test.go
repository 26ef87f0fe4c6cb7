package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	at := time.Date(2024, time.March, 5, 23, 30, 0, 0, time.FixedZone("UTC-3", -3*3600))

	tests := []struct {
		name   string
		prefix string
		ext    string
		want   string
	}{
		{name: "with prefix", prefix: "capacity", ext: ".json", want: "capacity/2024/03/06/abc.json"},
		{name: "slashes trimmed", prefix: "/capacity/", ext: ".json", want: "capacity/2024/03/06/abc.json"},
		{name: "no prefix", prefix: "", ext: "", want: "2024/03/06/abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectKey(tt.prefix, at, "abc", tt.ext))
		})
	}
}

func TestNewS3Storage(t *testing.T) {
	_, err := NewS3Storage(S3Config{Endpoint: "http://localhost:9000"})
	assert.Error(t, err)

	s, err := NewS3Storage(S3Config{
		Endpoint:  "http://localhost:9000",
		Bucket:    "snapshots",
		Region:    "us-east-1",
		PublicURL: "http://localhost:9000/snapshots/",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/snapshots/capacity/2024/03/06/abc.json", s.PublicURL("capacity/2024/03/06/abc.json"))
	assert.Equal(t, ".json", extensionFor("application/json"))
}
