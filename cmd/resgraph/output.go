package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"gopkg.in/yaml.v3"

	"resourcegraph/internal/seed"
)

// printOutput writes v in the selected output format
func printOutput(w io.Writer, format string, v interface{}) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
}

// graphParams reads graph parameters from flag values the same way the
// HTTP API reads them from a query string
func graphParams(kind string, resources []string, expanded string) (seed.GraphParams, error) {
	q := url.Values{}
	if kind != "" {
		q.Set(seed.ParamKind, kind)
	}
	for _, r := range resources {
		q.Add(seed.ParamResource, r)
	}
	if expanded != "" {
		q.Set(seed.ParamExpanded, expanded)
	}
	return seed.ParseGraphParams(q)
}
