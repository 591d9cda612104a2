// Package container implements MessagingContainer: the self-describing
// typed key/value envelope every message travels in across the fabric,
// with a length-prefixed TLV wire format.
package container

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kcenon/messaging-fabric/pkg/pool"
	"github.com/kcenon/messaging-fabric/pkg/result"
)

// Container carries addressing headers, a typed value table, and an
// opaque payload. Topic must always be non-empty; Create and Deserialize
// both enforce this.
type Container struct {
	Source  string
	Target  string
	Topic   string
	TraceID string

	Headers map[string]string
	Values  map[string]TypedValue
	Payload []byte
}

// Create builds a Container, validating that topic is non-empty and
// generating a sortable ULID-based trace id when none is configured by
// the caller (use Builder.WithTraceID to supply one explicitly, e.g. to
// propagate a trace already in flight).
func Create(source, target, topic string) result.Result[*Container] {
	if topic == "" {
		return result.Err[*Container](result.New(result.KindInvalidMessage, "topic must not be empty"))
	}
	return result.Ok(&Container{
		Source:  source,
		Target:  target,
		Topic:   topic,
		TraceID: generateTraceID(),
		Headers: make(map[string]string),
		Values:  make(map[string]TypedValue),
	})
}

// generateTraceID mints a sortable ULID, reusing crypto/rand.Reader
// directly as entropy — it is safe for concurrent use, so no per-call
// construction or shared monotonic wrapper is needed.
func generateTraceID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// Serialize produces a self-describing byte sequence embedding the four
// required header fields, the typed value table, and the opaque payload.
// The intermediate buffer is drawn from pool.DefaultSizedBufferPool to
// absorb the growth reallocations a fresh bytes.Buffer would otherwise
// incur on this hot path; only the final fixed-size result is returned
// to the caller.
func (c *Container) Serialize() ([]byte, error) {
	scratch := pool.GetSizedBuffer(pool.MediumBufferSize)
	buf := bytes.NewBuffer(scratch)
	defer pool.PutSizedBuffer(buf.Bytes()[:0])

	if err := writeString(buf, c.Source); err != nil {
		return nil, err
	}
	if err := writeString(buf, c.Target); err != nil {
		return nil, err
	}
	if err := writeString(buf, c.Topic); err != nil {
		return nil, err
	}
	if err := writeString(buf, c.TraceID); err != nil {
		return nil, err
	}

	if err := binary.Write(buf, binary.BigEndian, uint32(len(c.Headers))); err != nil {
		return nil, err
	}
	for k, v := range c.Headers {
		if err := writeString(buf, k); err != nil {
			return nil, err
		}
		if err := writeString(buf, v); err != nil {
			return nil, err
		}
	}

	if err := binary.Write(buf, binary.BigEndian, uint32(len(c.Values))); err != nil {
		return nil, err
	}
	for k, v := range c.Values {
		if err := writeString(buf, k); err != nil {
			return nil, err
		}
		if err := writeValue(buf, v); err != nil {
			return nil, err
		}
	}

	if err := binary.Write(buf, binary.BigEndian, uint32(len(c.Payload))); err != nil {
		return nil, err
	}
	buf.Write(c.Payload)

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// Deserialize reconstructs a Container from Serialize's wire format and
// revalidates the topic invariant, failing with InvalidMessage if the
// stream is malformed or topic is empty.
func Deserialize(data []byte) result.Result[*Container] {
	r := bytes.NewReader(data)
	c := &Container{Headers: make(map[string]string), Values: make(map[string]TypedValue)}

	var err error
	if c.Source, err = readString(r); err != nil {
		return invalidMessage(err)
	}
	if c.Target, err = readString(r); err != nil {
		return invalidMessage(err)
	}
	if c.Topic, err = readString(r); err != nil {
		return invalidMessage(err)
	}
	if c.TraceID, err = readString(r); err != nil {
		return invalidMessage(err)
	}
	if c.Topic == "" {
		return result.Err[*Container](result.New(result.KindInvalidMessage, "deserialized container missing topic"))
	}

	var headerCount uint32
	if err := binary.Read(r, binary.BigEndian, &headerCount); err != nil {
		return invalidMessage(err)
	}
	for i := uint32(0); i < headerCount; i++ {
		k, err := readString(r)
		if err != nil {
			return invalidMessage(err)
		}
		v, err := readString(r)
		if err != nil {
			return invalidMessage(err)
		}
		c.Headers[k] = v
	}

	var valueCount uint32
	if err := binary.Read(r, binary.BigEndian, &valueCount); err != nil {
		return invalidMessage(err)
	}
	for i := uint32(0); i < valueCount; i++ {
		k, err := readString(r)
		if err != nil {
			return invalidMessage(err)
		}
		v, err := readValue(r)
		if err != nil {
			return invalidMessage(err)
		}
		c.Values[k] = v
	}

	var payloadLen uint32
	if err := binary.Read(r, binary.BigEndian, &payloadLen); err != nil {
		return invalidMessage(err)
	}
	c.Payload = make([]byte, payloadLen)
	if _, err := io.ReadFull(r, c.Payload); err != nil {
		return invalidMessage(err)
	}

	return result.Ok(c)
}

func invalidMessage(cause error) result.Result[*Container] {
	return result.Err[*Container](result.Wrap(cause, result.KindInvalidMessage, "malformed container stream"))
}

// Base64 returns the container's serialized form, base64-encoded for
// transport over text-only channels.
func (c *Container) Base64() (string, error) {
	b, err := c.Serialize()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// FromBase64 decodes and deserializes a container previously produced by
// Base64.
func FromBase64(s string) result.Result[*Container] {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return result.Err[*Container](result.Wrap(err, result.KindInvalidMessage, "invalid base64 container"))
	}
	return Deserialize(b)
}

func writeString(buf *bytes.Buffer, s string) error {
	if err := binary.Write(buf, binary.BigEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := buf.WriteString(s)
	return err
}

func readString(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func writeValue(buf *bytes.Buffer, v TypedValue) error {
	if err := buf.WriteByte(byte(v.Kind)); err != nil {
		return err
	}
	switch v.Kind {
	case KindString:
		return writeString(buf, v.str)
	case KindInt:
		return binary.Write(buf, binary.BigEndian, v.i64)
	case KindDouble:
		return binary.Write(buf, binary.BigEndian, v.f64)
	case KindBool:
		var b byte
		if v.b {
			b = 1
		}
		return buf.WriteByte(b)
	case KindContainer:
		nested, err := v.inner.Serialize()
		if err != nil {
			return err
		}
		if err := binary.Write(buf, binary.BigEndian, uint32(len(nested))); err != nil {
			return err
		}
		_, err = buf.Write(nested)
		return err
	default:
		return fmt.Errorf("container: unknown value kind %d", v.Kind)
	}
}

func readValue(r *bytes.Reader) (TypedValue, error) {
	kindByte, err := r.ReadByte()
	if err != nil {
		return TypedValue{}, err
	}
	kind := ValueKind(kindByte)
	switch kind {
	case KindString:
		s, err := readString(r)
		return TypedValue{Kind: KindString, str: s}, err
	case KindInt:
		var i int64
		err := binary.Read(r, binary.BigEndian, &i)
		return TypedValue{Kind: KindInt, i64: i}, err
	case KindDouble:
		var f float64
		err := binary.Read(r, binary.BigEndian, &f)
		return TypedValue{Kind: KindDouble, f64: f}, err
	case KindBool:
		b, err := r.ReadByte()
		return TypedValue{Kind: KindBool, b: b != 0}, err
	case KindContainer:
		var n uint32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return TypedValue{}, err
		}
		nested := make([]byte, n)
		if _, err := io.ReadFull(r, nested); err != nil {
			return TypedValue{}, err
		}
		inner := Deserialize(nested)
		if inner.IsErr() {
			return TypedValue{}, inner.Error()
		}
		c, _ := inner.Value()
		return TypedValue{Kind: KindContainer, inner: c}, nil
	default:
		return TypedValue{}, fmt.Errorf("container: unknown value kind byte %d", kindByte)
	}
}
