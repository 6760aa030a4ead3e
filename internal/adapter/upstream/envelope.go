package upstream

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"
)

// successCode is the data.go.kr header code for a normal response.
const successCode = "00"

// Value is an upstream scalar that may arrive as a JSON string, number or
// null, or as XML character data. It holds the textual form.
type Value string

func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*v = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Value(strings.TrimSpace(s))
	default:
		*v = Value(b)
	}
	return nil
}

func (v Value) String() string { return string(v) }

// Header is the data.go.kr response header.
type Header struct {
	ResultCode string `json:"resultCode" xml:"resultCode"`
	ResultMsg  string `json:"resultMsg" xml:"resultMsg"`
}

// Err returns ErrResultCode wrapped with the code and message when the
// header reports a failure. An absent header is treated as success.
func (h Header) Err() error {
	if h.ResultCode == "" || h.ResultCode == successCode {
		return nil
	}
	return fmt.Errorf("%w: [%s] %s", ErrResultCode, h.ResultCode, h.ResultMsg)
}

type jsonPayload struct {
	Header Header `json:"header"`
	Body   struct {
		Items json.RawMessage `json:"items"`
	} `json:"body"`
}

// Most services wrap the payload in "response"; some KHOA services do not.
type jsonEnvelope struct {
	Response *jsonPayload `json:"response"`
	jsonPayload
}

type xmlEnvelope[T any] struct {
	XMLName xml.Name
	Header  Header `xml:"header"`
	Items   []T    `xml:"body>items>item"`

	// Gateway errors use a different root with cmmMsgHeader.
	ReasonCode string `xml:"cmmMsgHeader>returnReasonCode"`
	AuthMsg    string `xml:"cmmMsgHeader>returnAuthMsg"`
	ErrMsg     string `xml:"cmmMsgHeader>errMsg"`
}

// DecodeItems extracts response.body.items.item from a data.go.kr envelope in
// either encoding. A single item object is returned as a one-element slice.
// No items yields ErrEmptyPayload.
func DecodeItems[T any](resp Response) ([]T, error) {
	var (
		items []T
		err   error
	)
	if resp.Format == FormatXML {
		items, err = decodeXMLItems[T](resp.Body)
	} else {
		items, err = decodeJSONItems[T](resp.Body)
	}
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyPayload
	}
	return items, nil
}

func decodeJSONItems[T any](body []byte) ([]T, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode json envelope: %w", err)
	}
	payload := env.Response
	if payload == nil {
		payload = &env.jsonPayload
	}
	if payload.Header.ResultCode == "" && len(payload.Body.Items) == 0 {
		return nil, fmt.Errorf("decode json envelope: missing header and body")
	}
	if err := payload.Header.Err(); err != nil {
		return nil, err
	}

	// "items" is an empty string when there is nothing to report.
	raw := bytes.TrimSpace(payload.Body.Items)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, nil
	}
	var wrapper struct {
		Item json.RawMessage `json:"item"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return DecodeOneOrMany[T](wrapper.Item)
}

// DecodeOneOrMany decodes a JSON value that is either an array of T or a
// single T.
func DecodeOneOrMany[T any](raw json.RawMessage) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] == '[' {
		var many []T
		if err := json.Unmarshal(raw, &many); err != nil {
			return nil, fmt.Errorf("decode item list: %w", err)
		}
		return many, nil
	}
	var one T
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	return []T{one}, nil
}

func decodeXMLItems[T any](body []byte) ([]T, error) {
	var env xmlEnvelope[T]
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode xml envelope: %w", err)
	}
	if env.ReasonCode != "" {
		msg := env.AuthMsg
		if msg == "" {
			msg = env.ErrMsg
		}
		return nil, fmt.Errorf("%w: [%s] %s", ErrResultCode, env.ReasonCode, msg)
	}
	if err := env.Header.Err(); err != nil {
		return nil, err
	}
	return env.Items, nil
}
