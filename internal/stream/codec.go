package stream

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ErrInvalidPayload is returned when a stream frame is not decodable CBOR.
var ErrInvalidPayload = errors.New("invalid CBOR payload")

// DecodeEvent decodes one CBOR-encoded change event and validates it.
func DecodeEvent(data []byte) (*ChangeEvent, error) {
	if len(data) == 0 {
		return nil, ErrInvalidPayload
	}
	var ev ChangeEvent
	if err := cbor.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}

// EncodeEvent encodes a change event to CBOR. Used by the local producer in
// tests and by the write path when it mirrors mutations onto the stream.
func EncodeEvent(ev *ChangeEvent) ([]byte, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return cbor.Marshal(ev)
}
