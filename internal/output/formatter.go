package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"soft404Go/internal/core"
	"soft404Go/internal/core/logger"
	"soft404Go/internal/modules/discovery"
)

// Formats lists the values accepted by FormatFindings.
var Formats = []string{"console", "json", "txt", "csv"}

// FormatFindings formats the resources found on target into the specified
// format.
func FormatFindings(findings []discovery.Finding, target string, outputFormat string) (string, error) {
	log := logger.GetLogger()
	switch outputFormat {
	case "json":
		data := map[string]interface{}{
			"target":   target,
			"findings": findings,
		}
		if findings == nil {
			data["findings"] = []discovery.Finding{}
		}
		jsonData, err := json.MarshalIndent(data, "", "    ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return string(jsonData), nil
	case "txt":
		urls := make([]string, len(findings))
		for i, f := range findings {
			urls[i] = f.URL
		}
		return strings.Join(urls, "\r\n"), nil
	case "csv":
		var b strings.Builder
		writer := csv.NewWriter(&b)
		if err := writer.Write([]string{"url", "status", "length", "title"}); err != nil {
			return "", fmt.Errorf("failed to write CSV header: %w", err)
		}
		for _, f := range findings {
			row := []string{f.URL, strconv.Itoa(f.Status), strconv.Itoa(f.Length), f.Title}
			if err := writer.Write(row); err != nil {
				return "", fmt.Errorf("failed to write finding to CSV: %w", err)
			}
		}
		writer.Flush()
		return b.String(), writer.Error()
	case "console":
		if len(findings) == 0 {
			return fmt.Sprintf("No resources found for %s.", target), nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "\n--- Found Resources for %s ---\n", target)
		for _, f := range findings {
			fmt.Fprintf(&b, "%s %s", statusColor(f.Status).Sprintf("[%d]", f.Status), f.URL)
			if f.Title != "" {
				fmt.Fprintf(&b, " (%s)", f.Title)
			}
			b.WriteString("\r\n")
		}
		b.WriteString("------------------------------------")
		return b.String(), nil
	default:
		log.Errorf("Unsupported output format: %s", outputFormat)
		return "", fmt.Errorf("%w: %s", core.ErrOutputFormat, outputFormat)
	}
}

func statusColor(status int) *color.Color {
	switch {
	case status >= 500:
		return color.New(color.FgRed)
	case status >= 400:
		return color.New(color.FgYellow)
	case status >= 300:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgGreen)
	}
}

// WriteOutput writes content to a specified file.
func WriteOutput(filepath string, content string) error {
	log := logger.GetLogger()
	if err := os.WriteFile(filepath, []byte(content), 0644); err != nil {
		log.Errorf("Failed to write output to %s: %v", filepath, err)
		return fmt.Errorf("%w: %v", core.ErrFileWrite, err)
	}
	return nil
}
