package content

import (
	"encoding/json"
	"errors"

	"github.com/John-Robertt/MixDex/internal/domain"
	"github.com/John-Robertt/MixDex/internal/infra/fsx"
)

// ErrInvalidRecord 表示记录未通过校验门（title 为空或零曲目）。
// 这是被检查的条件，不是抓取/解析链路上的异常。
var ErrInvalidRecord = errors.New("record 未通过校验：title 非空且至少一条 track")

// Encode 把 MixRecord 转成站点内容 schema 消费的 JSON。
//
// 规则：
// - 只输出 §schema 认识的字段；date 缺失省略，sideA/sideB 仅 cassette 且两面齐全时输出
// - pretty-print（两空格缩进）+ 末尾换行，保证 normalizer 重写后 byte 级稳定
func Encode(rec domain.MixRecord) ([]byte, error) {
	if !rec.Valid() {
		return nil, ErrInvalidRecord
	}

	out := rec
	// 两面不齐：退回单列表输出（sideA/sideB 是派生视图，不独立权威）。
	if out.Format != domain.FormatCassette || len(out.SideA) == 0 || len(out.SideB) == 0 {
		out.SideA = nil
		out.SideB = nil
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Write 把记录写到 <dir>/<slug>.json（原子覆盖写；同 slug 后写者胜）。
func Write(dir, slug string, rec domain.MixRecord) error {
	if slug == "" {
		return errors.New("slug 不能为空")
	}
	b, err := Encode(rec)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomicReplace(dir, slug+".json", b)
}
