// Package envelope classifies backend responses of the shape
// {code, msg|message, data} into data or an *apierror.Error.
package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"admin-console/pkg/apierror"
)

// Codes holds the two reserved envelope codes. They are configuration, not
// literals scattered through call sites.
type Codes struct {
	Success      int
	Unauthorized int
}

var DefaultCodes = Codes{Success: 0, Unauthorized: -2}

func (c Codes) Validate() error {
	if c.Success == c.Unauthorized {
		return fmt.Errorf("success code and unauthorized code must differ (both %d)", c.Success)
	}
	return nil
}

// Envelope is the wire wrapper around every response body.
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"msg"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Envelope) UnmarshalJSON(b []byte) error {
	var wire struct {
		Code    *int            `json:"code"`
		Msg     string          `json:"msg"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	if wire.Code == nil {
		return errors.New("envelope: missing code")
	}

	e.Code = *wire.Code
	e.Message = wire.Msg
	if e.Message == "" {
		e.Message = wire.Message
	}
	e.Data = wire.Data
	return nil
}

// Transport is what the HTTP layer produced for one call.
type Transport struct {
	Status int
	Body   []byte
	Err    error
}

// Decode classifies a transport result. On success it returns the raw data,
// which is nil when the envelope carried none. A 401 is Unauthorized even
// when its body could not be read.
func (c Codes) Decode(t Transport) (json.RawMessage, error) {
	if t.Status == http.StatusUnauthorized {
		msg := ""
		var env Envelope
		if err := json.Unmarshal(t.Body, &env); err == nil {
			msg = env.Message
		}
		return nil, apierror.Unauthorized(msg, t.Status)
	}

	if t.Err != nil {
		return nil, apierror.Network(t.Err)
	}

	body := bytes.TrimSpace(t.Body)
	if len(body) == 0 {
		return nil, &apierror.Error{Kind: apierror.KindNetwork, HTTPStatus: t.Status, Message: "empty response"}
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &apierror.Error{Kind: apierror.KindNetwork, HTTPStatus: t.Status, Message: "invalid response", Err: err}
	}

	switch env.Code {
	case c.Unauthorized:
		return nil, apierror.Unauthorized(env.Message, t.Status)
	case c.Success:
		if isNull(env.Data) {
			return nil, nil
		}
		return env.Data, nil
	default:
		apiErr := apierror.Business(env.Code, env.Message)
		apiErr.HTTPStatus = t.Status
		return nil, apiErr
	}
}

// Into decodes successful data into T. Absent data yields the zero value.
func Into[T any](raw json.RawMessage) (T, error) {
	var out T
	if isNull(raw) {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &apierror.Error{Kind: apierror.KindNetwork, Message: "invalid response data", Err: err}
	}
	return out, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Write sends one envelope. Servers speaking this contract answer HTTP 200
// for business outcomes and reserve other statuses for transport concerns.
func Write(w http.ResponseWriter, status, code int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Code    int    `json:"code"`
		Message string `json:"msg"`
		Data    any    `json:"data"`
	}{Code: code, Message: message, Data: data})
}
