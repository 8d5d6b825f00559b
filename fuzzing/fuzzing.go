// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package fuzzing

import (
	"bytes"
	"testing"
)

//go:generate mockgen -source fuzzing.go -destination fuzzing_mocks.go -package fuzzing

// Operation represents one step applied to the system under a fuzzing
// campaign. Each operation must be serialisable to a byte array, which
// allows for carrying the operation code and data. This serialised form
// is used for passing the operation into the fuzzer.
type Operation[C any] interface {
	// Apply is executed by the fuzzer for each operation to perform a
	// required action to the system under test. The context passed to
	// this method carries the system under test and its state. It is
	// state-full to move from one step to another.
	Apply(t TestingT, context *C)

	// Serialize converts this operation to a byte array to be passed to
	// the fuzzer. The first byte carries the operation code, followed by
	// the operation payload in the next bytes.
	Serialize() []byte
}

// OperationSequence is a chain of operations.
type OperationSequence[C any] []Operation[C]

// Campaign maintains one fuzzing campaign. It contains methods to
// initialise and finalise data of the campaign. It is passed to the
// fuzzer as a factory to create operations to seed the fuzzer, to
// create the context passed through each step of the fuzzing campaign,
// and finally allows for cleaning-up at the end of the campaign.
type Campaign[C any] interface {
	// Init is called once before the campaign starts and returns the
	// operation sequences seeding the fuzzer.
	Init() []OperationSequence[C]

	// CreateContext creates a state-full object that holds the system
	// under fuzzing plus any state that must be carried between the
	// steps of the campaign. It is called once per campaign loop.
	CreateContext(t TestingT) *C

	// Deserialize interprets a byte array generated by the fuzzer out
	// of the initial seeds and converts it back into operations, which
	// the fuzzer then applies one by one.
	Deserialize(rawData []byte) []Operation[C]

	// Cleanup gets the context passed through this campaign loop and
	// allows for closing and checking it. It is called once per loop.
	Cleanup(t TestingT, context *C)
}

// TestingT is an interface covering some of the methods of testing.T.
// It is provided for easy mocking.
type TestingT interface {
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// TestingF is an interface covering some of the methods of testing.F.
// It is provided for easy mocking.
type TestingF interface {
	Add(args ...any)
	Fuzz(ff any)
}

// Fuzz performs a fuzzing campaign. It initialises the campaign using
// the input interface Campaign and forwards to the built-in testing.F
// behind the TestingF interface. The campaign is seeded with the
// operation chains returned from Campaign.Init. Each campaign loop
// deserializes one fuzzer-derived byte array into operations, applies
// them to a fresh context from Campaign.CreateContext, and finalises
// the loop with Campaign.Cleanup.
func Fuzz[C any](f TestingF, campaign Campaign[C]) {
	for _, opSet := range campaign.Init() {
		var raw []byte
		for _, op := range opSet {
			raw = append(raw, op.Serialize()...)
		}
		f.Add(raw)
	}

	f.Fuzz(func(t *testing.T, rawData []byte) {
		ctx := campaign.CreateContext(t)
		for _, op := range campaign.Deserialize(rawData) {
			op.Apply(t, ctx)
		}
		campaign.Cleanup(t, ctx)
	})
}

// OpsFactoryRegistry maintains factories of operations addressed by
// operation codes. It converts between the serialised form used by the
// fuzzer and the Operation values applied to the system under test.
type OpsFactoryRegistry[O ~byte, C any] map[O]*opRegistration[C]

type opRegistration[C any] struct {
	create func(data any) Operation[C]
	read   func(raw *[]byte) Operation[C]
}

// NewRegistry creates an empty operation registry.
func NewRegistry[O ~byte, C any]() OpsFactoryRegistry[O, C] {
	return OpsFactoryRegistry[O, C]{}
}

// RegisterDataOp registers an operation that carries a data payload.
// The serialise and deserialise functions convert the payload to and
// from its byte representation; deserialise must tolerate truncated
// input by returning a default payload. The apply function executes the
// operation against the campaign context.
func RegisterDataOp[O ~byte, C any, D any](
	registry OpsFactoryRegistry[O, C],
	opType O,
	serialise func(data D) []byte,
	deserialise func(raw *[]byte) D,
	apply func(opType O, data D, t TestingT, context *C),
) {
	registry[opType] = &opRegistration[C]{
		create: func(data any) Operation[C] {
			return &op[O, C, D]{opType, data.(D), serialise, apply}
		},
		read: func(raw *[]byte) Operation[C] {
			return &op[O, C, D]{opType, deserialise(raw), serialise, apply}
		},
	}
}

// RegisterNoDataOp registers an operation without payload.
func RegisterNoDataOp[O ~byte, C any](
	registry OpsFactoryRegistry[O, C],
	opType O,
	apply func(opType O, t TestingT, context *C),
) {
	serialise := func(noData) []byte { return nil }
	deserialise := func(*[]byte) noData { return noData{} }
	RegisterDataOp(registry, opType, serialise, deserialise,
		func(opType O, _ noData, t TestingT, context *C) {
			apply(opType, t, context)
		})
}

type noData struct{}

// CreateDataOp instantiates a registered data-carrying operation. The
// data must have the type the operation was registered with.
func (r OpsFactoryRegistry[O, C]) CreateDataOp(opType O, data any) Operation[C] {
	return r[opType].create(data)
}

// CreateNoDataOp instantiates a registered operation without payload.
func (r OpsFactoryRegistry[O, C]) CreateNoDataOp(opType O) Operation[C] {
	return r[opType].create(noData{})
}

// ReadNextOp consumes the next operation from the given raw data. It
// returns the operation code and the parsed operation, which is nil
// when the code is not registered or the data is exhausted.
func (r OpsFactoryRegistry[O, C]) ReadNextOp(raw *[]byte) (O, Operation[C]) {
	var opType O
	if len(*raw) == 0 {
		return opType, nil
	}
	opType = O((*raw)[0])
	*raw = (*raw)[1:]
	registration, exists := r[opType]
	if !exists {
		return opType, nil
	}
	return opType, registration.read(raw)
}

// ReadAllOps parses all operations from the given raw data, skipping
// unregistered operation codes.
func (r OpsFactoryRegistry[O, C]) ReadAllOps(rawData []byte) []Operation[C] {
	var ops []Operation[C]
	for len(rawData) > 0 {
		if _, op := r.ReadNextOp(&rawData); op != nil {
			ops = append(ops, op)
		}
	}
	return ops
}

// ReadAllUniqueOps parses all operations from the given raw data and
// collapses runs of repeated identical operations into a single one.
// Fuzzers tend to generate long runs of the same operation, which
// rarely exercise new behaviour but inflate the campaign time.
func (r OpsFactoryRegistry[O, C]) ReadAllUniqueOps(rawData []byte) []Operation[C] {
	ops := r.ReadAllOps(rawData)
	var unique []Operation[C]
	var previous []byte
	for _, op := range ops {
		current := op.Serialize()
		if previous == nil || !bytes.Equal(previous, current) {
			unique = append(unique, op)
		}
		previous = current
	}
	return unique
}

type op[O ~byte, C any, D any] struct {
	opType    O
	data      D
	serialise func(D) []byte
	apply     func(O, D, TestingT, *C)
}

func (o *op[O, C, D]) Apply(t TestingT, context *C) {
	o.apply(o.opType, o.data, t, context)
}

func (o *op[O, C, D]) Serialize() []byte {
	return append([]byte{byte(o.opType)}, o.serialise(o.data)...)
}
