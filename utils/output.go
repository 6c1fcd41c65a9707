// Package utils holds small helpers for the CLI layer.
package utils

import (
	"encoding/json"
	"fmt"
	"os"
)

// Response is the envelope for --json output, so scripts can check
// status without sniffing for an error field.
type Response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// WriteJSON prints data or err as a JSON envelope on stdout.
func WriteJSON(data any, err error) {
	resp := Response{Status: "ok", Data: data}
	if err != nil {
		resp = Response{Status: "error", Error: err.Error()}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(resp); encErr != nil {
		fmt.Fprintf(os.Stderr, "encoding output: %v\n", encErr)
	}
}
