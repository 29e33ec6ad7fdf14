// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nscrawler

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// All data crossing process boundaries between the supervisor, worker and
// executor processes is CBOR in "core deterministic" encoding. Values decoded
// into "any" use string-keyed maps so that results can be passed on to JSON
// and YAML encoders as-is.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	if encMode, err = encOptions.EncMode(); err != nil {
		panic("nscrawler: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("nscrawler: CBOR decoder initialization failed: " + err.Error())
	}
}

func marshal(v any) ([]byte, error) { return encMode.Marshal(v) }

func unmarshal(data []byte, v any) error { return decMode.Unmarshal(data, v) }

func newEncoder(w io.Writer) *cbor.Encoder { return encMode.NewEncoder(w) }

func newDecoder(r io.Reader) *cbor.Decoder { return decMode.NewDecoder(r) }
