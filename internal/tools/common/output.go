package common

import (
	"encoding/json"
	"fmt"
	"os"
)

// CIResult is the machine-readable summary a tool prints in --ci mode.
type CIResult struct {
	OK      bool     `json:"ok"`
	Title   string   `json:"title"`
	Details []string `json:"details,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func PrintCIResult(ok bool, title string, details []string, err error) {
	res := CIResult{OK: ok, Title: title, Details: details}
	if err != nil {
		res.Error = err.Error()
	}
	data, marshalErr := json.Marshal(res)
	if marshalErr != nil {
		fmt.Fprintf(os.Stderr, "ci result encode: %v\n", marshalErr)
		return
	}
	fmt.Fprintln(os.Stdout, string(data))
}
