package container

// ValueKind tags which variant a TypedValue carries.
type ValueKind uint8

const (
	KindString ValueKind = iota
	KindInt
	KindDouble
	KindBool
	KindContainer
)

// TypedValue is a small tagged union rather than an interface, so the
// common scalar cases serialize without an allocation-heavy type switch
// over arbitrary Go values.
type TypedValue struct {
	Kind ValueKind

	str   string
	i64   int64
	f64   float64
	b     bool
	inner *Container
}

// String wraps a string value.
func String(v string) TypedValue { return TypedValue{Kind: KindString, str: v} }

// Int wraps a signed 64-bit integer value.
func Int(v int64) TypedValue { return TypedValue{Kind: KindInt, i64: v} }

// Double wraps a float64 value.
func Double(v float64) TypedValue { return TypedValue{Kind: KindDouble, f64: v} }

// Bool wraps a boolean value.
func Bool(v bool) TypedValue { return TypedValue{Kind: KindBool, b: v} }

// Nested wraps another Container, allowing values to carry structured
// sub-messages.
func Nested(c *Container) TypedValue { return TypedValue{Kind: KindContainer, inner: c} }

// AsString returns the string payload and whether Kind is KindString.
func (v TypedValue) AsString() (string, bool) { return v.str, v.Kind == KindString }

// AsInt returns the integer payload and whether Kind is KindInt.
func (v TypedValue) AsInt() (int64, bool) { return v.i64, v.Kind == KindInt }

// AsDouble returns the float payload and whether Kind is KindDouble.
func (v TypedValue) AsDouble() (float64, bool) { return v.f64, v.Kind == KindDouble }

// AsBool returns the bool payload and whether Kind is KindBool.
func (v TypedValue) AsBool() (bool, bool) { return v.b, v.Kind == KindBool }

// AsContainer returns the nested container and whether Kind is
// KindContainer.
func (v TypedValue) AsContainer() (*Container, bool) { return v.inner, v.Kind == KindContainer }
