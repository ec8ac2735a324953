package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var schemas = mustLoadSchemas()

func mustLoadSchemas() map[string]*gojsonschema.Schema {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		panic(fmt.Sprintf("protocol: reading schemas: %v", err))
	}
	out := make(map[string]*gojsonschema.Schema, len(entries))
	for _, e := range entries {
		b, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			panic(fmt.Sprintf("protocol: reading %s: %v", e.Name(), err))
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(b))
		if err != nil {
			panic(fmt.Sprintf("protocol: compiling %s: %v", e.Name(), err))
		}
		out[strings.TrimSuffix(e.Name(), ".json")] = s
	}
	return out
}

// DecodeError describes a rejected inbound record.
type DecodeError struct {
	Type   string
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Type == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid '%s' message: %s", e.Type, e.Reason)
}

// IsDecodeError reports whether err is a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Decode validates data against the schema of its type and returns the
// typed record. Unknown types and enum values are rejected.
func Decode(data []byte) (Inbound, error) {
	var head struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, &DecodeError{Reason: "message is not a JSON object"}
	}
	if head.Type == nil {
		return nil, &DecodeError{Reason: "'type' is required"}
	}
	typ := *head.Type
	schema, ok := schemas[typ]
	if !ok {
		return nil, &DecodeError{Reason: fmt.Sprintf("unknown message type '%s'", typ)}
	}
	res, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, &DecodeError{Type: typ, Reason: err.Error()}
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, re := range res.Errors() {
			msgs = append(msgs, re.String())
		}
		return nil, &DecodeError{Type: typ, Reason: strings.Join(msgs, "; ")}
	}

	var in Inbound
	switch typ {
	case TypeInit:
		in, err = decodeAs[Init](data)
	case TypeInitModel:
		in, err = decodeAs[InitModel](data)
	case TypeUserMessage:
		in, err = decodeAs[UserMessage](data)
	case TypeInvokeCommand:
		in, err = decodeAs[InvokeCommand](data)
	case TypeSessionSave:
		in, err = decodeAs[SessionSave](data)
	case TypeSessionLoad:
		in, err = decodeAs[SessionLoad](data)
	case TypeSessionDelete:
		in, err = decodeAs[SessionDelete](data)
	case TypeSessionList:
		in = SessionList{}
	case TypeFileManager:
		in, err = decodeAs[FileManager](data)
	default:
		return nil, &DecodeError{Reason: fmt.Sprintf("unknown message type '%s'", typ)}
	}
	if err != nil {
		return nil, &DecodeError{Type: typ, Reason: err.Error()}
	}
	return in, nil
}

func decodeAs[T Inbound](data []byte) (Inbound, error) {
	var v T
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// VersionSupported reports whether v is an accepted protocol version.
func VersionSupported(v string) bool {
	for _, s := range SupportedVersions {
		if s == v {
			return true
		}
	}
	return false
}
