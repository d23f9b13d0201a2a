package deployments

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type ruleFile struct {
	Groups []struct {
		Name  string `yaml:"name"`
		Rules []struct {
			Record string            `yaml:"record"`
			Alert  string            `yaml:"alert"`
			Expr   string            `yaml:"expr"`
			Labels map[string]string `yaml:"labels"`
		} `yaml:"rules"`
	} `yaml:"groups"`
}

// exportedMetrics mirrors the collectors registered by internal/observability.
var exportedMetrics = []string{
	"sqlchat_turns_total",
	"sqlchat_llm_call_duration_seconds",
	"sqlchat_query_duration_seconds",
	"sqlchat_presentation_total",
	"sqlchat_archive_writes_total",
	"sqlchat_http_requests_total",
	"sqlchat_http_request_duration_seconds",
}

var metricReference = regexp.MustCompile(`\bsqlchat_[a-z_]+`)

func TestGrafanaDashboardJSONIsValid(t *testing.T) {
	content := readAsset(t, "grafana", "sqlchat_slo_dashboard.json")

	var decoded map[string]any
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("dashboard JSON parse error: %v", err)
	}
	title, _ := decoded["title"].(string)
	if strings.TrimSpace(title) == "" {
		t.Fatal("dashboard title is required")
	}
	panels, ok := decoded["panels"].([]any)
	if !ok || len(panels) == 0 {
		t.Fatal("dashboard must include at least one panel")
	}
}

func TestRecordingRulesReferenceExportedMetrics(t *testing.T) {
	rules := loadRules(t, "sqlchat_recording_rules.yaml")

	records := map[string]bool{}
	for _, group := range rules.Groups {
		for _, rule := range group.Rules {
			if rule.Record == "" {
				t.Fatalf("group %s contains a non-recording rule", group.Name)
			}
			records[rule.Record] = true
			for _, name := range metricReference.FindAllString(rule.Expr, -1) {
				if !isExported(name) {
					t.Fatalf("record %s references unknown metric %q", rule.Record, name)
				}
			}
		}
	}
	for _, want := range []string{
		"sqlchat:slo_turn_failure_ratio_15m",
		"sqlchat:slo_llm_latency_seconds_p95",
		"sqlchat:slo_query_latency_seconds_p95",
		"sqlchat:slo_archive_write_errors_15m",
		"sqlchat:slo_http_error_rate_5m",
	} {
		if !records[want] {
			t.Fatalf("recording rules missing record %q", want)
		}
	}
}

func TestAlertRulesUseRecordedSeries(t *testing.T) {
	recorded := map[string]bool{}
	for _, group := range loadRules(t, "sqlchat_recording_rules.yaml").Groups {
		for _, rule := range group.Rules {
			recorded[rule.Record] = true
		}
	}

	alerts := 0
	for _, group := range loadRules(t, "sqlchat_rules.yaml").Groups {
		for _, rule := range group.Rules {
			alerts++
			severity := rule.Labels["severity"]
			if severity != "critical" && severity != "warning" {
				t.Fatalf("alert %s severity = %q", rule.Alert, severity)
			}
			series := strings.Fields(rule.Expr)[0]
			if !recorded[series] {
				t.Fatalf("alert %s uses unrecorded series %q", rule.Alert, series)
			}
		}
	}
	if alerts == 0 {
		t.Fatal("expected at least one alert")
	}
}

func TestPrometheusScrapeExampleContainsMetricsPathAndRules(t *testing.T) {
	text := string(readAsset(t, "prometheus", "prometheus-scrape.example.yaml"))
	for _, token := range []string{
		"metrics_path: /v1/metrics",
		"sqlchat_rules.yaml",
		"sqlchat_recording_rules.yaml",
		"job_name: sqlchat-api",
	} {
		if !strings.Contains(text, token) {
			t.Fatalf("scrape example missing %q", token)
		}
	}
}

func loadRules(t *testing.T, name string) ruleFile {
	t.Helper()
	var rules ruleFile
	if err := yaml.Unmarshal(readAsset(t, "prometheus", name), &rules); err != nil {
		t.Fatalf("parse %s: %v", name, err)
	}
	return rules
}

func isExported(name string) bool {
	for _, metric := range exportedMetrics {
		if name == metric || strings.HasPrefix(name, metric+"_") {
			return true
		}
	}
	return false
}

func readAsset(t *testing.T, parts ...string) []byte {
	t.Helper()
	path := filepath.Join(append([]string{repoRoot(t), "deployments", "observability"}, parts...)...)
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return content
}

func repoRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), ".."))
}
