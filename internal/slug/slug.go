package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLen 是 slug 的长度上限（文件名安全余量，不对外暴露配置）。
const MaxLen = 80

// asciiFold 去掉变音符号：NFD 分解后剔除 Mn（组合记号），再 NFC 合回。
// 这样 "Café del Mar" 会落到 "cafe-del-mar" 而不是丢字。
var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Derive 把自由文本标题转成文件名安全的 slug。
//
// 规则（纯函数，同一标题必得同一 slug）：
// 1) 小写 + 变音折叠
// 2) 删除撇号/引号类字符（don't -> dont，而不是 don-t）
// 3) 每段连续的非 ASCII 字母数字替换为单个 '-'
// 4) 去掉首尾 '-'，截断到 MaxLen 后再去尾 '-'
func Derive(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	if s == "" {
		return ""
	}

	if folded, _, err := transform.String(asciiFold, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	for _, r := range s {
		switch {
		case isQuote(r):
			// 撇号直接吞掉，不产生分隔。
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}

	out := b.String()
	if len(out) > MaxLen {
		out = out[:MaxLen]
		out = strings.TrimRight(out, "-")
	}
	return out
}

func isQuote(r rune) bool {
	switch r {
	case '\'', '"', '`', '’', '‘', '“', '”':
		return true
	}
	return false
}
