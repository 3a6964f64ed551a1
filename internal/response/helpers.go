package response

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

const (
	placeholderFilename = "{FILENAME}"
	placeholderMethod   = "{METHOD}"
)

// Messages holds the error texts a Manager writes. Empty fields fall back
// to the defaults. NotFoundFile and MethodNotAllowedMethod are templates
// in which {FILENAME} and {METHOD} are replaced verbatim.
type Messages struct {
	BadRequest             string
	Unauthorized           string
	Forbidden              string
	NotFound               string
	NotFoundFile           string
	MethodNotAllowed       string
	MethodNotAllowedMethod string
	InternalServerError    string
}

func DefaultMessages() Messages {
	return Messages{
		BadRequest:             "Bad request",
		Unauthorized:           "Authorization Required",
		Forbidden:              "Forbidden",
		NotFound:               "File not found",
		NotFoundFile:           `File "{FILENAME}" not found`,
		MethodNotAllowed:       "Method not allowed",
		MethodNotAllowedMethod: "Method not allowed: {METHOD}",
		InternalServerError:    "Internal Server Error",
	}
}

// merge overlays the non-empty fields of o onto m.
func (m Messages) merge(o Messages) Messages {
	pick := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	pick(&m.BadRequest, o.BadRequest)
	pick(&m.Unauthorized, o.Unauthorized)
	pick(&m.Forbidden, o.Forbidden)
	pick(&m.NotFound, o.NotFound)
	pick(&m.NotFoundFile, o.NotFoundFile)
	pick(&m.MethodNotAllowed, o.MethodNotAllowed)
	pick(&m.MethodNotAllowedMethod, o.MethodNotAllowedMethod)
	pick(&m.InternalServerError, o.InternalServerError)
	return m
}

func (m Messages) notFound(filename string) string {
	if filename == "" {
		return m.NotFound
	}
	return strings.ReplaceAll(m.NotFoundFile, placeholderFilename, filename)
}

func (m Messages) methodNotAllowed(method string) string {
	if method == "" {
		return m.MethodNotAllowed
	}
	return strings.ReplaceAll(m.MethodNotAllowedMethod, placeholderMethod, method)
}

// codec turns payloads and error messages into bodies for one content type.
type codec interface {
	encode(payload any) ([]byte, error)
	wrapError(message string) ([]byte, error)
}

type plainCodec struct{}

func (plainCodec) encode(payload any) ([]byte, error) {
	return textBytes(payload), nil
}

func (plainCodec) wrapError(message string) ([]byte, error) {
	return []byte(message), nil
}

type htmlCodec struct{}

func (htmlCodec) encode(payload any) ([]byte, error) {
	return textBytes(payload), nil
}

func (htmlCodec) wrapError(message string) ([]byte, error) {
	m := html.EscapeString(message)
	return []byte("<html><head><title>" + m + "</title></head><body><h1>" + m + "</h1></body></html>"), nil
}

type jsonCodec struct{}

func (jsonCodec) encode(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, fmt.Errorf("invalid raw json payload")
		}
		return v, nil
	default:
		return json.Marshal(payload)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (jsonCodec) wrapError(message string) ([]byte, error) {
	return json.Marshal(errorBody{Error: message})
}

func textBytes(payload any) []byte {
	switch v := payload.(type) {
	case nil:
		return nil
	case string:
		return []byte(v)
	case []byte:
		return v
	case fmt.Stringer:
		return []byte(v.String())
	case error:
		return []byte(v.Error())
	default:
		return []byte(fmt.Sprint(v))
	}
}
