package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Response is the invocation result every handler returns. Body is always a
// JSON document.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// respond encodes v as the response body.
func respond(status int, v any) Response {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return Response{
			StatusCode: http.StatusInternalServerError,
			Body:       fmt.Sprintf("%q", "encode response: "+err.Error()),
		}
	}
	return Response{StatusCode: status, Body: string(body)}
}

// respondText wraps a bare message as a JSON string body.
func respondText(status int, msg string) Response {
	body, _ := json.Marshal(msg)
	return Response{StatusCode: status, Body: string(body)}
}

// errorBody is the failure shape shared by the handlers: the error plus
// whatever partial results were accumulated before it.
type errorBody struct {
	Error   string `json:"error"`
	Results any    `json:"results"`
}

func respondError(status int, msg string, results any) Response {
	return respond(status, errorBody{Error: msg, Results: results})
}
