package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"teamhub/internal/gateway/apierror"
)

// Exit codes. Normalized gateway failures map to distinct codes so scripts can
// tell "sign in again" apart from "try again later".
const (
	ExitError           = 1
	ExitUnauthenticated = 3
	ExitForbidden       = 4
	ExitUnavailable     = 5
)

func (a *app) render(w io.Writer, v any) error {
	if a.output == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// FormatError renders err for a terminal.
func FormatError(err error) string {
	if e, ok := apierror.As(err); ok {
		return fmt.Sprintf("%s %s: %s", e.Kind, e.Code, e.Message)
	}
	return "error: " + err.Error()
}

// ExitCode maps err to a process exit status.
func ExitCode(err error) int {
	switch apierror.KindOf(err) {
	case apierror.KindUnauthenticated:
		return ExitUnauthenticated
	case apierror.KindForbidden:
		return ExitForbidden
	case apierror.KindUpstreamUnavailable:
		return ExitUnavailable
	default:
		return ExitError
	}
}
