package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/devboard/devboard-api/internal/models"
	"github.com/devboard/devboard-api/internal/services/classifier"
	"gopkg.in/yaml.v3"
)

func TestValidateOrigins(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{name: "single", raw: "https://app.devboard.dev", want: 1},
		{name: "list with port", raw: "http://localhost:3000, https://app.devboard.dev", want: 2},
		{name: "duplicates collapse", raw: "https://a.dev,https://a.dev/", want: 1},
		{name: "wildcard", raw: "*", want: 1},
		{name: "empty", raw: "", wantErr: true},
		{name: "no scheme", raw: "app.devboard.dev", wantErr: true},
		{name: "with path", raw: "https://app.devboard.dev/login", wantErr: true},
		{name: "with query", raw: "https://app.devboard.dev?x=1", wantErr: true},
		{name: "ftp", raw: "ftp://files.devboard.dev", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := validateOrigins(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if len(got) != tt.want {
				t.Errorf("Expected %d origins, got %v", tt.want, got)
			}
		})
	}
}

func TestWriteSettings(t *testing.T) {
	t.Parallel()

	s := runtimeSettings{
		CORS:      &models.CORSSettings{AllowedOrigins: []string{"https://app.devboard.dev"}, AllowCredentials: true, MaxAge: 600},
		RateLimit: &models.RateLimitSettings{Rate: "20-S"},
	}

	var text bytes.Buffer
	if err := writeSettings(&text, "text", s); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	for _, want := range []string{"origin      https://app.devboard.dev", "max-age     600s", "20-S per user"} {
		if !strings.Contains(text.String(), want) {
			t.Errorf("Expected text output to contain %q, got:\n%s", want, text.String())
		}
	}

	var doc bytes.Buffer
	if err := writeSettings(&doc, "yaml", s); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	var back runtimeSettings
	if err := yaml.Unmarshal(doc.Bytes(), &back); err != nil {
		t.Fatalf("Expected valid YAML, got %v", err)
	}
	if back.RateLimit == nil || back.RateLimit.Rate != "20-S" || back.CORS == nil || back.CORS.MaxAge != 600 {
		t.Errorf("Unexpected YAML round trip: %s", doc.String())
	}

	var empty bytes.Buffer
	if err := writeSettings(&empty, "text", runtimeSettings{}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(empty.String(), "not set") {
		t.Errorf("Expected unset notice, got %q", empty.String())
	}
}

func TestParseRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw      string
		expected string
		wantErr  bool
	}{
		{raw: "5-S", expected: "5-S"},
		{raw: " 100-m ", expected: "100-M"},
		{raw: "1000-H", expected: "1000-H"},
		{raw: "", wantErr: true},
		{raw: "fast", wantErr: true},
		{raw: "10-W", wantErr: true},
		{raw: "0-S", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			got, err := parseRate(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseRate(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestClassifyCmd(t *testing.T) {
	t.Parallel()

	cmd := NewClassifyCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"Fix", "the", "login", "bug", "-o", "json"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var analysis classifier.Analysis
	if err := json.Unmarshal(out.Bytes(), &analysis); err != nil {
		t.Fatalf("Failed to decode output: %v", err)
	}
	if analysis.Classification.Category == "" {
		t.Error("Expected a category")
	}

	yamlCmd := NewClassifyCmd()
	out.Reset()
	yamlCmd.SetOut(&out)
	yamlCmd.SetArgs([]string{"Write quarterly report"})
	if err := yamlCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "classification:") {
		t.Errorf("Expected YAML output, got %s", out.String())
	}

	bad := NewClassifyCmd()
	bad.SetOut(&out)
	bad.SetErr(&out)
	bad.SetArgs([]string{"x", "--due", "tomorrow"})
	if err := bad.Execute(); err == nil {
		t.Error("Expected error for malformed due date")
	}
}
