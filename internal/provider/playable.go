package provider

import "sync"

// PlayableKind distinguishes the concrete representation of a playable
// reference.
type PlayableKind string

const (
	// PlayableURL is a remote handle the player can stream directly.
	PlayableURL PlayableKind = "url"
	// PlayableInline is a self-contained in-memory byte buffer.
	PlayableInline PlayableKind = "inline"
)

// Playable is a locally consumable representation of a completed clip's
// media, used for rendering or download. It is a leaf artifact: never
// valid as input to an extension call, which requires the clip's durable
// source reference instead.
//
// Release drops any held buffer and is idempotent; the registry's cleanup
// path calls it for every representation, so inline buffers cannot
// outlive their registry entry.
type Playable struct {
	mu       sync.Mutex
	kind     PlayableKind
	url      string
	data     []byte
	mimeType string
	released bool
}

// NewURLPlayable creates a playable backed by a remote URL.
func NewURLPlayable(url, mimeType string) *Playable {
	return &Playable{kind: PlayableURL, url: url, mimeType: mimeType}
}

// NewInlinePlayable creates a playable backed by in-memory bytes.
func NewInlinePlayable(data []byte, mimeType string) *Playable {
	return &Playable{kind: PlayableInline, data: data, mimeType: mimeType}
}

// Kind returns the concrete representation.
func (p *Playable) Kind() PlayableKind {
	return p.kind
}

// MIMEType returns the media MIME type (e.g. "video/mp4").
func (p *Playable) MIMEType() string {
	return p.mimeType
}

// URL returns the remote handle for URL-backed playables.
func (p *Playable) URL() string {
	return p.url
}

// Bytes returns the buffer for inline playables, or nil after Release.
func (p *Playable) Bytes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data
}

// Released reports whether Release has been called.
func (p *Playable) Released() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

// Release frees any held buffer. Safe to call more than once.
func (p *Playable) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = nil
	p.released = true
}
