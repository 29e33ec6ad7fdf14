// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nscrawler

import (
	"reflect"
)

// Materializer is implemented by lazy results that know how to turn
// themselves into concrete, fully in-memory values.
type Materializer interface {
	Materialize() (any, error)
}

// Pair is an element of a materialized iter.Seq2 sequence.
type Pair struct {
	Key   any `cbor:"key" json:"key" yaml:"key"`
	Value any `cbor:"value" json:"value" yaml:"value"`
}

// materialize drains lazy results into concrete values while still inside
// the target namespaces: iter.Seq[E] becomes []E, iter.Seq2[K, V] becomes
// []Pair, a receive channel of E becomes []E, and a Materializer becomes
// whatever it materializes into, which in turn gets drained if it is an
// iterator or channel. All other values are returned as they are.
func materialize(v any) (any, error) {
	if m, ok := v.(Materializer); ok {
		mv, err := m.Materialize()
		if err != nil {
			return nil, err
		}
		return drain(mv), nil
	}
	return drain(v), nil
}

// drain iter.Seq, iter.Seq2 and receive channel values into slices, passing
// all other values through unchanged.
func drain(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		if rv.IsNil() {
			return nil
		}
		typ := rv.Type()
		switch {
		case typ.CanSeq2():
			pairs := []Pair{}
			for key, val := range rv.Seq2() {
				pairs = append(pairs, Pair{Key: key.Interface(), Value: val.Interface()})
			}
			return pairs
		case typ.CanSeq():
			elems := reflect.MakeSlice(reflect.SliceOf(typ.In(0).In(0)), 0, 0)
			for e := range rv.Seq() {
				elems = reflect.Append(elems, e)
			}
			return elems.Interface()
		}
	case reflect.Chan:
		if rv.IsNil() || rv.Type().ChanDir()&reflect.RecvDir == 0 {
			break
		}
		elems := reflect.MakeSlice(reflect.SliceOf(rv.Type().Elem()), 0, 0)
		for {
			e, ok := rv.Recv()
			if !ok {
				break
			}
			elems = reflect.Append(elems, e)
		}
		return elems.Interface()
	}
	return v
}
