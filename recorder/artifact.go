package recorder

import (
	"time"

	"github.com/google/uuid"
)

// Artifact is the finished clip of one recording pass. It is never modified
// after creation.
type Artifact struct {
	ID        string
	MediaType string
	Data      []byte
	CreatedAt time.Time
}

// NewArtifact concatenates chunks, in order, into one artifact.
func NewArtifact(mediaType string, chunks [][]byte) *Artifact {
	size := 0
	for _, c := range chunks {
		size += len(c)
	}

	data := make([]byte, 0, size)
	for _, c := range chunks {
		data = append(data, c...)
	}

	return &Artifact{
		ID:        uuid.New().String(),
		MediaType: mediaType,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
}

func (a *Artifact) Size() int {
	return len(a.Data)
}

// ArtifactStore turns an artifact into a handle the renderer can dereference.
type ArtifactStore interface {
	Put(a *Artifact) (string, error)
}
