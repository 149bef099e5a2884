package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
)

// writeValue renders v in the configured output format.  YAML is produced
// from the JSON form so that custom JSON marshalers and field names apply
// to both formats.
func writeValue(w io.Writer, format string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	if format == "yaml" {
		data, err = yaml.JSONToYAML(data)
		if err != nil {
			return fmt.Errorf("failed to convert output to yaml: %w", err)
		}
		_, err = w.Write(data)
		return err
	}

	_, err = fmt.Fprintln(w, string(data))
	return err
}
