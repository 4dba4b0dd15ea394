package graph

import (
	"fmt"
	"regexp"
	"strings"

	"resourcegraph/internal/domain"
)

var (
	httpURLPattern = regexp.MustCompile(`https?://[^\s'"]+`)
	dataExtensions = []string{".parquet", ".csv", ".json", ".ndjson", ".jsonl", ".xlsx", ".xls", ".tsv"}
	readFunctions  = []string{"read_parquet(", "read_csv(", "read_json(", "read_ndjson("}
)

// ExtractMetadata derives display metadata from a resource's payload.
// Alert and API counts need the whole snapshot and are filled in by Build.
func ExtractMetadata(r *domain.Resource) domain.NodeMetadata {
	var meta domain.NodeMetadata

	if m := r.Model; m != nil {
		meta.Connector = resolveConnector(m.InputConnector, m.InputProperties)
		meta.Incremental = m.Incremental
		meta.Partitioned = m.PartitionsResolver != ""
		meta.HasSchedule = hasSchedule(m.RefreshSchedule)
		meta.ScheduleDescription = DescribeSchedule(m.RefreshSchedule)
		meta.RetryAttempts = m.RetryAttempts
		for _, fp := range r.FilePaths {
			if strings.HasSuffix(fp, ".sql") {
				meta.IsSQLModel = true
				break
			}
		}
	}

	if s := r.Source; s != nil {
		meta.Connector = resolveConnector(s.SourceConnector, s.Properties)
		meta.HasSchedule = hasSchedule(s.RefreshSchedule)
		meta.ScheduleDescription = DescribeSchedule(s.RefreshSchedule)
	}

	if d := r.Explore; d != nil && d.Theme != "" && !d.EmbeddedTheme {
		meta.Theme = d.Theme
	}
	if d := r.Canvas; d != nil && d.Theme != "" && !d.EmbeddedTheme {
		meta.Theme = d.Theme
	}

	return meta
}

// resolveConnector replaces the generic duckdb connector with the storage it reads from
func resolveConnector(connector string, props map[string]any) string {
	if !strings.EqualFold(connector, "duckdb") {
		return connector
	}
	content, _ := props["path"].(string)
	if content == "" {
		content, _ = props["sql"].(string)
	}
	return InferDuckDBSource(content)
}

// InferDuckDBSource guesses the underlying storage from a DuckDB path or SQL
// query. It returns "" when nothing external is referenced.
func InferDuckDBSource(content string) string {
	if content == "" {
		return ""
	}
	s := strings.ToLower(content)

	switch {
	case containsAny(s, "s3://", "s3a://"):
		return "s3"
	case containsAny(s, "gs://", "gcs://"):
		return "gcs"
	case containsAny(s, "azure://", "az://", "abfs://", "abfss://"):
		return "azure"
	}

	// Plain links are not data; require a data file extension
	for _, u := range httpURLPattern.FindAllString(s, -1) {
		if containsAny(u, dataExtensions...) {
			return "https"
		}
	}

	if containsAny(s, readFunctions...) {
		return "local_file"
	}
	return ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasSchedule(s *domain.Schedule) bool {
	return s != nil && (s.Cron != "" || s.TickerSeconds > 0)
}

// DescribeSchedule renders a refresh schedule, e.g. "cron: 0 * * * * (UTC)" or "every 2h"
func DescribeSchedule(s *domain.Schedule) string {
	switch {
	case s == nil:
		return ""
	case s.Cron != "":
		if s.TimeZone != "" {
			return fmt.Sprintf("cron: %s (%s)", s.Cron, s.TimeZone)
		}
		return "cron: " + s.Cron
	case s.TickerSeconds <= 0:
		return ""
	case s.TickerSeconds%3600 == 0:
		return fmt.Sprintf("every %dh", s.TickerSeconds/3600)
	case s.TickerSeconds%60 == 0:
		return fmt.Sprintf("every %dm", s.TickerSeconds/60)
	default:
		return fmt.Sprintf("every %ds", s.TickerSeconds)
	}
}

type consumerCount struct {
	alerts int
	apis   int
}

// countConsumers counts the alerts and APIs referencing each resource id
func countConsumers(resources []*domain.Resource) map[string]consumerCount {
	counts := make(map[string]consumerCount)
	for _, r := range resources {
		if r == nil || (r.Name.Kind != domain.KindAlert && r.Name.Kind != domain.KindAPI) {
			continue
		}
		seen := make(map[string]bool, len(r.Refs))
		for _, ref := range r.Refs {
			id, ok := domain.CreateResourceID(ref)
			if !ok || seen[id] {
				continue
			}
			seen[id] = true
			c := counts[id]
			if r.Name.Kind == domain.KindAlert {
				c.alerts++
			} else {
				c.apis++
			}
			counts[id] = c
		}
	}
	return counts
}
