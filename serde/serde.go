//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package serde converts application state values to and from JSON-compatible
// mappings. A Registry resolves codecs through an ordered chain: field-level
// registration, type-level registration, then a structural fallback covering
// JSON-native values and named struct models. Registries are explicit objects
// rather than process-wide state so tests and concurrent applications can use
// isolated registrations.
package serde

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
)

// MarkerKey is the reserved key embedded in every type-serialized mapping to
// record which deserializer reconstructs it.
const MarkerKey = "__serde__"

// ModelMarker is the marker identifying the structural struct fallback.
const ModelMarker = "__model__"

// Payload keys used by the structural model fallback.
const (
	modelNameKey = "model"
	modelDataKey = "data"
	modelPtrKey  = "ptr"
)

// Serializer converts a value into a JSON-compatible mapping. The registry
// stamps MarkerKey into the result; the serializer itself only emits payload
// fields.
type Serializer func(v any) (map[string]any, error)

// Deserializer reconstructs a value from a serialized payload. The payload
// never contains MarkerKey.
type Deserializer func(m map[string]any) (any, error)

type typeCodec struct {
	typ    reflect.Type
	marker string
	ser    Serializer
}

type fieldCodec struct {
	ser Serializer
	de  Deserializer
}

// Registry holds type-keyed and field-keyed codec registrations.
// Registration is additive and safe for concurrent use, though the expected
// lifecycle is a registration phase before execution begins.
type Registry struct {
	mu      sync.RWMutex
	types   map[reflect.Type]*typeCodec
	ordered []*typeCodec // registration order, for interface matching
	markers map[string]Deserializer
	fields  map[string]fieldCodec
	models  map[string]reflect.Type
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		types:   make(map[reflect.Type]*typeCodec),
		markers: make(map[string]Deserializer),
		fields:  make(map[string]fieldCodec),
		models:  make(map[string]reflect.Type),
	}
}

// Default creates a registry pre-populated with codecs for common value
// types that are not JSON-native, currently time.Time.
func Default() *Registry {
	r := New()
	r.RegisterType(time.Time{}, "time.Time",
		func(v any) (map[string]any, error) {
			t, ok := v.(time.Time)
			if !ok {
				return nil, fmt.Errorf("serde: expected time.Time, got %T", v)
			}
			return map[string]any{"value": t.Format(time.RFC3339Nano)}, nil
		},
		func(m map[string]any) (any, error) {
			s, ok := m["value"].(string)
			if !ok {
				return nil, fmt.Errorf("serde: time payload missing value")
			}
			return time.Parse(time.RFC3339Nano, s)
		},
	)
	return r
}

// Option configures a registration call.
type Option func(*registerOptions)

type registerOptions struct {
	override bool
}

// WithOverride allows a registration to replace an existing one instead of
// failing with DuplicateRegistrationError.
func WithOverride() Option {
	return func(o *registerOptions) { o.override = true }
}

// RegisterType registers a serializer/deserializer pair for the runtime type
// of sample under the given marker identifier. Values of that exact type, and
// values implementing it when sample is an interface type, serialize through
// it. A more specific (exact type) registration beats an interface match.
func (r *Registry) RegisterType(sample any, marker string, ser Serializer, de Deserializer, opts ...Option) error {
	if err := r.RegisterTypeSerializer(sample, marker, ser, opts...); err != nil {
		return err
	}
	return r.RegisterTypeDeserializer(marker, de, opts...)
}

// RegisterTypeSerializer registers only the serializer half of a type codec.
// sample may be a value (its runtime type is registered) or a
// reflect.Type, which additionally permits registering interface types.
func (r *Registry) RegisterTypeSerializer(sample any, marker string, ser Serializer, opts ...Option) error {
	if marker == "" || marker == ModelMarker {
		return fmt.Errorf("serde: invalid marker %q", marker)
	}
	if ser == nil {
		return fmt.Errorf("serde: serializer for marker %q is nil", marker)
	}
	t, ok := sample.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(sample)
	}
	if t == nil {
		return fmt.Errorf("serde: cannot register codec for untyped nil")
	}
	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, exists := r.types[t]; exists && !o.override {
		return &DuplicateRegistrationError{Kind: RegistrationKindType, Name: existing.typ.String()}
	}
	codec := &typeCodec{typ: t, marker: marker, ser: ser}
	r.types[t] = codec
	r.ordered = append(r.ordered, codec)
	return nil
}

// RegisterTypeDeserializer registers the deserializer dispatched for the
// given marker identifier.
func (r *Registry) RegisterTypeDeserializer(marker string, de Deserializer, opts ...Option) error {
	if marker == "" || marker == ModelMarker {
		return fmt.Errorf("serde: invalid marker %q", marker)
	}
	if de == nil {
		return fmt.Errorf("serde: deserializer for marker %q is nil", marker)
	}
	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.markers[marker]; exists && !o.override {
		return &DuplicateRegistrationError{Kind: RegistrationKindMarker, Name: marker}
	}
	r.markers[marker] = de
	return nil
}

// RegisterField registers a codec keyed by state field name. Field-level
// registration is global across all actions sharing the field name, and takes
// precedence over any type-level codec for values stored under that field.
func (r *Registry) RegisterField(name string, ser Serializer, de Deserializer, opts ...Option) error {
	if name == "" {
		return fmt.Errorf("serde: field name cannot be empty")
	}
	if ser == nil || de == nil {
		return fmt.Errorf("serde: field %q requires both serializer and deserializer", name)
	}
	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.fields[name]; exists && !o.override {
		return &DuplicateRegistrationError{Kind: RegistrationKindField, Name: name}
	}
	r.fields[name] = fieldCodec{ser: ser, de: de}
	return nil
}

// RegisterModel records a named struct type for the structural fallback so
// snapshots taken in an earlier process can be deserialized before the type
// is first serialized in this one. Serialization records models automatically.
func (r *Registry) RegisterModel(sample any) error {
	t := reflect.TypeOf(sample)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct || t.Name() == "" {
		return fmt.Errorf("serde: model must be a named struct, got %T", sample)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[modelName(t)] = t
	return nil
}

// SerializeEntry serializes one state entry. The key selects a field-level
// codec when one is registered; otherwise dispatch falls through to the
// type-level and structural chain.
func (r *Registry) SerializeEntry(key string, v any) (any, error) {
	r.mu.RLock()
	fc, ok := r.fields[key]
	r.mu.RUnlock()
	if ok {
		m, err := fc.ser(v)
		if err != nil {
			return nil, fmt.Errorf("serde: field serializer for %q: %w", key, err)
		}
		return m, nil
	}
	return r.serializeValue(key, v)
}

// DeserializeEntry reverses SerializeEntry for one state entry.
func (r *Registry) DeserializeEntry(key string, raw any) (any, error) {
	r.mu.RLock()
	fc, ok := r.fields[key]
	r.mu.RUnlock()
	if ok {
		m, isMap := raw.(map[string]any)
		if !isMap {
			return nil, fmt.Errorf("serde: field %q expects a mapping, got %T", key, raw)
		}
		v, err := fc.de(m)
		if err != nil {
			return nil, fmt.Errorf("serde: field deserializer for %q: %w", key, err)
		}
		return v, nil
	}
	return r.deserializeValue(raw)
}

func (r *Registry) serializeValue(key string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	t := reflect.TypeOf(v)
	if codec := r.lookupType(t); codec != nil {
		return r.serializeWithCodec(codec, v)
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return v, nil
	case reflect.Slice, reflect.Array:
		rv := reflect.ValueOf(v)
		if t.Kind() == reflect.Slice && rv.IsNil() {
			return nil, nil
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			sv, err := r.serializeValue(key, rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = sv
		}
		return out, nil
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, &UnserializableTypeError{Key: key, Type: t}
		}
		rv := reflect.ValueOf(v)
		if rv.IsNil() {
			return nil, nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			sv, err := r.serializeValue(key, iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			out[iter.Key().String()] = sv
		}
		return out, nil
	case reflect.Pointer:
		rv := reflect.ValueOf(v)
		if rv.IsNil() {
			return nil, nil
		}
		if codec := r.lookupType(t.Elem()); codec != nil {
			return r.serializeWithCodec(codec, rv.Elem().Interface())
		}
		if t.Elem().Kind() == reflect.Struct {
			return r.serializeModel(key, rv.Elem(), true)
		}
		return r.serializeValue(key, rv.Elem().Interface())
	case reflect.Struct:
		return r.serializeModel(key, reflect.ValueOf(v), false)
	default:
		return nil, &UnserializableTypeError{Key: key, Type: t}
	}
}

// serializeWithCodec applies a type codec and stamps the marker. A serializer
// emitting a different marker than it was registered under is rejected.
func (r *Registry) serializeWithCodec(codec *typeCodec, v any) (map[string]any, error) {
	payload, err := codec.ser(v)
	if err != nil {
		return nil, fmt.Errorf("serde: serializer for marker %q: %w", codec.marker, err)
	}
	out := make(map[string]any, len(payload)+1)
	for k, pv := range payload {
		out[k] = pv
	}
	if existing, has := out[MarkerKey]; has && existing != codec.marker {
		return nil, fmt.Errorf("serde: serializer for marker %q emitted conflicting marker %v", codec.marker, existing)
	}
	out[MarkerKey] = codec.marker
	return out, nil
}

// serializeModel handles named struct values. Each exported field routes
// through serializeValue so type and interface codecs apply to fields the
// same way they apply to top-level entries. The concrete type is recorded so
// the same registry can reconstruct the value on deserialization.
func (r *Registry) serializeModel(key string, rv reflect.Value, wasPtr bool) (any, error) {
	t := rv.Type()
	if t.Name() == "" {
		return nil, &UnserializableTypeError{Key: key, Type: t}
	}
	name := modelName(t)
	r.mu.Lock()
	r.models[name] = t
	r.mu.Unlock()

	data := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		fieldName := f.Name
		if tag, ok := f.Tag.Lookup("mapstructure"); ok {
			tagName := strings.Split(tag, ",")[0]
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				fieldName = tagName
			}
		}
		sv, err := r.serializeValue(key, rv.Field(i).Interface())
		if err != nil {
			return nil, err
		}
		data[fieldName] = sv
	}
	return map[string]any{
		MarkerKey:    ModelMarker,
		modelNameKey: name,
		modelDataKey: data,
		modelPtrKey:  wasPtr,
	}, nil
}

func (r *Registry) deserializeValue(raw any) (any, error) {
	switch val := raw.(type) {
	case map[string]any:
		markerRaw, hasMarker := val[MarkerKey]
		if !hasMarker {
			out := make(map[string]any, len(val))
			for k, v := range val {
				dv, err := r.deserializeValue(v)
				if err != nil {
					return nil, err
				}
				out[k] = dv
			}
			return out, nil
		}
		marker, ok := markerRaw.(string)
		if !ok {
			return nil, fmt.Errorf("serde: marker must be a string, got %T", markerRaw)
		}
		if marker == ModelMarker {
			return r.deserializeModel(val)
		}
		r.mu.RLock()
		de, registered := r.markers[marker]
		r.mu.RUnlock()
		if !registered {
			return nil, &UnknownMarkerError{Marker: marker}
		}
		payload := make(map[string]any, len(val)-1)
		for k, v := range val {
			if k != MarkerKey {
				payload[k] = v
			}
		}
		return de(payload)
	case []any:
		out := make([]any, len(val))
		for i, v := range val {
			dv, err := r.deserializeValue(v)
			if err != nil {
				return nil, err
			}
			out[i] = dv
		}
		return out, nil
	default:
		return raw, nil
	}
}

func (r *Registry) deserializeModel(val map[string]any) (any, error) {
	name, _ := val[modelNameKey].(string)
	r.mu.RLock()
	t, known := r.models[name]
	r.mu.RUnlock()
	if !known {
		return nil, &UnknownMarkerError{Marker: ModelMarker + ":" + name}
	}
	rawData, _ := val[modelDataKey].(map[string]any)
	data := make(map[string]any, len(rawData))
	for k, v := range rawData {
		// nil marks a field that was nil at serialization time; leaving it
		// out keeps the reconstructed field at its zero value.
		if v == nil {
			continue
		}
		dv, err := r.deserializeValue(v)
		if err != nil {
			return nil, err
		}
		data[k] = dv
	}
	pv := reflect.New(t)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           pv.Interface(),
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("serde: building decoder for %s: %w", name, err)
	}
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("serde: reconstructing %s: %w", name, err)
	}
	if wasPtr, _ := val[modelPtrKey].(bool); wasPtr {
		return pv.Interface(), nil
	}
	return pv.Elem().Interface(), nil
}

// lookupType resolves the codec for t: exact type first, then registered
// interface types the value implements, in registration order.
func (r *Registry) lookupType(t reflect.Type) *typeCodec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if codec, ok := r.types[t]; ok {
		return codec
	}
	for _, codec := range r.ordered {
		if codec.typ.Kind() == reflect.Interface && t.Implements(codec.typ) {
			return codec
		}
	}
	return nil
}

// TypeOf returns the reflect.Type for T. It is the way to hand an interface
// type to RegisterType, since reflect.TypeOf on an interface value reports
// the dynamic type instead.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func modelName(t reflect.Type) string {
	if pkg := t.PkgPath(); pkg != "" {
		return pkg + "." + t.Name()
	}
	return t.Name()
}
