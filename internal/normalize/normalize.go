package normalize

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/MixDex/internal/infra/fsx"
)

// Result 是一次目录规范化的统计。
type Result struct {
	Rewritten int
	Skipped   []SkippedFile
}

// SkippedFile 记录被跳过的文件与原因（坏 JSON 只跳过该文件，不中断整体）。
type SkippedFile struct {
	Name string
	Err  error
}

// Dir 对 dir 下全部 *.json 内容文件做文本清理后原子重写。
//
// 清理对象：title，以及 tracks/sideA/sideB 里每条曲目的 title/artist。
// 清理规则：剔除 HTML 实体残留（&nbsp; 与其解码形态）+ 压空白 + 去首尾空白。
//
// 约束：幂等 —— 跑两遍的输出必须与跑一遍 byte 级一致。
// 为了保留手工补充的可选字段（coverImage/spotifyUrl/published 等），
// 文件按通用 JSON 对象处理（键按字典序输出，作为规范形态）。
func Dir(dir string) (Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}

		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedFile{Name: e.Name(), Err: err})
			continue
		}

		var doc map[string]any
		if err := json.Unmarshal(b, &doc); err != nil {
			res.Skipped = append(res.Skipped, SkippedFile{Name: e.Name(), Err: err})
			continue
		}

		cleanDoc(doc)

		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedFile{Name: e.Name(), Err: err})
			continue
		}
		out = append(out, '\n')

		if err := fsx.WriteFileAtomicReplace(dir, e.Name(), out); err != nil {
			res.Skipped = append(res.Skipped, SkippedFile{Name: e.Name(), Err: err})
			continue
		}
		res.Rewritten++
	}
	return res, nil
}

func cleanDoc(doc map[string]any) {
	if t, ok := doc["title"].(string); ok {
		doc["title"] = CleanText(t)
	}
	for _, key := range []string{"tracks", "sideA", "sideB"} {
		arr, ok := doc[key].([]any)
		if !ok {
			continue
		}
		for _, item := range arr {
			tr, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if v, ok := tr["title"].(string); ok {
				tr["title"] = CleanText(v)
			}
			if v, ok := tr["artist"].(string); ok {
				tr["artist"] = CleanText(v)
			}
		}
	}
}

// CleanText 剔除 &nbsp; 残留（原样与解码后的 U+00A0 都算）并压空白。
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}
