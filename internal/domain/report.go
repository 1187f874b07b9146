package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusWritten = "written"
	StatusSkipped = "skipped"
	StatusInvalid = "invalid"
	StatusFailed  = "failed"
)

const (
	ErrCodeFetchFailed       = "fetch_failed"
	ErrCodeParseFailed       = "parse_failed"
	ErrCodeInvalidRecord     = "invalid_record"
	ErrCodeIOFailed          = "io_failed"
	ErrCodeConfigNotFound    = "config_not_found"
	ErrCodeConfigInvalid     = "config_invalid"
	ErrCodeConfigMissingPath = "config_missing_path"
)

// RunReport 是对外稳定输出（report.json / stdout JSON）的结构。
type RunReport struct {
	Path   string `json:"path"`
	Member string `json:"member"`
	DryRun bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// 发现阶段的统计：单页失败只计数，不中断（见 PageErrors）。
	PagesFetched int `json:"pages_fetched"`
	PageErrors   int `json:"page_errors"`
	IDsFound     int `json:"ids_found"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Written int `json:"written"`
	Skipped int `json:"skipped"`
	Invalid int `json:"invalid"`
	Failed  int `json:"failed"`
}

type ItemResult struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	SourceURL string `json:"source_url"`
	Tracks    int    `json:"tracks"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 id 数值序（先短后长，再字典序）；id=="" 的条目排在最后
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a := r.Items[i].ID
		b := r.Items[j].ID
		if a == "" && b == "" {
			return false
		}
		if a == "" {
			return false
		}
		if b == "" {
			return true
		}
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusWritten:
			s.Written++
		case StatusSkipped:
			s.Skipped++
		case StatusInvalid:
			s.Invalid++
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
