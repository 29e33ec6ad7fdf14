// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/siemens/nscrawler/crawler"
	"gopkg.in/yaml.v3"
)

// writeFrames writes the frames in the specified format, either "json" or
// "yaml".
func writeFrames(w io.Writer, format string, frames []crawler.Frame) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(frames)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(frames); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
