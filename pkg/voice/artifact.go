package voice

import (
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// OutcomeStatus tells how a stop request ended.
type OutcomeStatus int

const (
	// OutcomeNone means there was no recording session to stop.
	OutcomeNone OutcomeStatus = iota
	OutcomeDiscarded
	OutcomeRecorded
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeRecorded:
		return "recorded"
	case OutcomeDiscarded:
		return "discarded"
	default:
		return "none"
	}
}

// Outcome is the result of stopping a session.
type Outcome struct {
	Status OutcomeStatus
	// Reason is ErrSilenceDiscarded or ErrNoAudioCaptured for discarded
	// outcomes.
	Reason   error
	Artifact *Artifact
	Peak     float64
}

// Artifact is a finished recording. Base64 is the standard encoding of Data
// and URL resolves to the same bytes while the artifact store keeps them.
type Artifact struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Data     []byte `json:"-"`
	Base64   string `json:"base64"`
	URL      string `json:"url"`
	Size     int    `json:"size"`
}

type storedArtifact struct {
	mimeType string
	data     []byte
}

// MemoryArtifactStore keeps artifacts in process memory for ttl and serves
// them under urlPrefix + id.
type MemoryArtifactStore struct {
	urlPrefix string
	cache     *gocache.Cache
}

func NewMemoryArtifactStore(urlPrefix string, ttl time.Duration) *MemoryArtifactStore {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &MemoryArtifactStore{
		urlPrefix: urlPrefix,
		cache:     gocache.New(ttl, 10*time.Minute),
	}
}

func (s *MemoryArtifactStore) Put(mimeType string, data []byte) (string, string, error) {
	id := uuid.NewString()
	s.cache.SetDefault(id, storedArtifact{mimeType: mimeType, data: data})
	return id, s.urlPrefix + id, nil
}

// Get returns the bytes for id. ok is false once the artifact expired or was
// released.
func (s *MemoryArtifactStore) Get(id string) (mimeType string, data []byte, ok bool) {
	v, found := s.cache.Get(id)
	if !found {
		return "", nil, false
	}
	a := v.(storedArtifact)
	return a.mimeType, a.data, true
}

// Release drops the artifact so its URL no longer resolves.
func (s *MemoryArtifactStore) Release(id string) {
	s.cache.Delete(id)
}
