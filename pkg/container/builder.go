package container

import "github.com/kcenon/messaging-fabric/pkg/result"

// Builder fluently assembles a Container, accumulating headers and typed
// values before invariant checks run once in Build.
type Builder struct {
	source, target, topic, traceID string
	headers                        map[string]string
	values                         map[string]TypedValue
	payload                        []byte
}

// NewBuilder starts a Builder for a container addressed from source to
// target on topic.
func NewBuilder(source, target, topic string) *Builder {
	return &Builder{
		source:  source,
		target:  target,
		topic:   topic,
		headers: make(map[string]string),
		values:  make(map[string]TypedValue),
	}
}

// WithTraceID overrides the auto-generated trace id, for propagating a
// trace already in flight rather than starting a new one.
func (b *Builder) WithTraceID(id string) *Builder {
	b.traceID = id
	return b
}

// WithHeader sets a header entry.
func (b *Builder) WithHeader(key, value string) *Builder {
	b.headers[key] = value
	return b
}

// WithValue sets a typed value entry.
func (b *Builder) WithValue(key string, value TypedValue) *Builder {
	b.values[key] = value
	return b
}

// WithPayload sets the opaque payload section.
func (b *Builder) WithPayload(p []byte) *Builder {
	b.payload = p
	return b
}

// Build validates the accumulated state and returns the finished
// Container, failing with InvalidMessage if topic is empty.
func (b *Builder) Build() result.Result[*Container] {
	created := Create(b.source, b.target, b.topic)
	if created.IsErr() {
		return created
	}
	c, _ := created.Value()
	if b.traceID != "" {
		c.TraceID = b.traceID
	}
	c.Headers = b.headers
	c.Values = b.values
	c.Payload = b.payload
	return result.Ok(c)
}
