//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package serde

import (
	"fmt"
	"reflect"
)

// Registration kinds reported by DuplicateRegistrationError.
const (
	RegistrationKindType   = "type"
	RegistrationKindMarker = "marker"
	RegistrationKindField  = "field"
)

// UnserializableTypeError reports a value for which no serializer could be
// resolved through the field, type, or structural fallback chain.
type UnserializableTypeError struct {
	// Key is the state key the value was stored under.
	Key string
	// Type is the runtime type of the offending value.
	Type reflect.Type
}

// Error implements the error interface.
func (e *UnserializableTypeError) Error() string {
	return fmt.Sprintf("serde: no serializer for type %v under key %q", e.Type, e.Key)
}

// UnknownMarkerError reports a serialized mapping whose marker has no
// registered deserializer.
type UnknownMarkerError struct {
	// Marker is the unresolvable marker identifier.
	Marker string
}

// Error implements the error interface.
func (e *UnknownMarkerError) Error() string {
	return fmt.Sprintf("serde: no deserializer registered for marker %q", e.Marker)
}

// DuplicateRegistrationError reports a conflicting registration made without
// the override option.
type DuplicateRegistrationError struct {
	// Kind is one of RegistrationKindType, RegistrationKindMarker,
	// RegistrationKindField.
	Kind string
	// Name identifies the conflicting registration: a type string, a marker
	// identifier, or a field name.
	Name string
}

// Error implements the error interface.
func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("serde: %s %q is already registered (use WithOverride to replace)", e.Kind, e.Name)
}
