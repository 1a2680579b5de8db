package slotx

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-playground/validator/v10"
)

// Codec translates a slot value to and from its stored byte form.
//
// Decode receives a destination pre-populated with the node's declared
// default, so fields absent from the stored bytes keep their defaults. This
// is the additive-only evolution contract: every field carries a stable
// numeric tag, new fields must be optional, and stored bytes written under
// an older schema decode cleanly under a newer one.
type Codec[T any] interface {
	// Encode serializes v deterministically.
	Encode(v T) ([]byte, error)

	// Decode deserializes data into *into, leaving untagged fields alone.
	// A returned error means the stored bytes are structurally incompatible;
	// the registry then falls back to the declared default.
	Decode(data []byte, into *T) error
}

// CBOR encode/dec modes are fixed for the package; the option sets are
// constant, so mode construction cannot fail at runtime.
var (
	cborEnc = mustEncMode()
	cborDec = mustDecMode()
)

func mustEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("slotx: cbor encode mode: %v", err))
	}
	return em
}

func mustDecMode() cbor.DecMode {
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("slotx: cbor decode mode: %v", err))
	}
	return dm
}

// CBORCodec encodes values as deterministic CBOR maps keyed by the integer
// field tags declared via `cbor:"N,keyasint"` struct tags. Unknown tags in
// stored bytes are ignored on decode.
type CBORCodec[T any] struct {
	validate *validator.Validate
}

// CodecOption configures a CBORCodec.
type CodecOption func(*codecOptions)

type codecOptions struct {
	validate *validator.Validate
}

// WithValidation enables post-decode struct validation using `validate`
// struct tags. A value that decodes but fails validation is treated exactly
// like undecodable bytes: the node falls back to its declared default.
func WithValidation() CodecOption {
	return WithValidator(validator.New())
}

// WithValidator enables post-decode validation with a caller-supplied
// validator instance, for custom registered rules.
func WithValidator(v *validator.Validate) CodecOption {
	return func(o *codecOptions) { o.validate = v }
}

// NewCBORCodec creates the default codec for slot values of type T.
func NewCBORCodec[T any](opts ...CodecOption) *CBORCodec[T] {
	var o codecOptions
	for _, fn := range opts {
		fn(&o)
	}
	return &CBORCodec[T]{validate: o.validate}
}

// Encode serializes v as deterministic CBOR.
func (c *CBORCodec[T]) Encode(v T) ([]byte, error) {
	data, err := cborEnc.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cbor encode: %w", err)
	}
	return data, nil
}

// Decode deserializes data into *into. Fields present in data overwrite the
// corresponding fields of *into; fields absent from data are left untouched.
func (c *CBORCodec[T]) Decode(data []byte, into *T) error {
	if err := cborDec.Unmarshal(data, into); err != nil {
		return fmt.Errorf("cbor decode: %w", err)
	}
	if c.validate != nil {
		if err := c.validate.Struct(into); err != nil {
			return fmt.Errorf("decoded value failed validation: %w", err)
		}
	}
	return nil
}
