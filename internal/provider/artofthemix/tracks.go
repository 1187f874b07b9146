package artofthemix

import (
	stdhtml "html"
	"regexp"
	"strings"

	"github.com/John-Robertt/MixDex/internal/domain"
)

var (
	cellPairRE = regexp.MustCompile(`(?is)<td[^>]*>(.*?)</td>\s*<td[^>]*>(.*?)</td>`)
	listItemRE = regexp.MustCompile(`(?is)<li[^>]*>(.*?)</li>`)
	tagRE      = regexp.MustCompile(`(?s)<[^>]*>`)

	// 破折号家族：hyphen / en-dash / em-dash。
	dashSplitRE = regexp.MustCompile(`\s*[-–—]\s*`)
)

// extractTracks 把一段页面文本解析为有序曲目列表。
//
// 主策略：相邻两列单元格成对出现 —— 第一格 artist，第二格 song title。
// 兜底策略（主策略零行时）：列表项 "<artist> - <title>"，按破折号切一刀；
// 没有分隔符的行直接跳过（不产生曲目）。
//
// 源文本中的行序就是播放顺序，禁止重排。
func extractTracks(segment string) []domain.Track {
	out := make([]domain.Track, 0, 16)

	for _, m := range cellPairRE.FindAllStringSubmatch(segment, -1) {
		artist := cleanCell(m[1])
		title := cleanCell(m[2])
		if artist == "" || title == "" {
			continue
		}
		// 表头行："Artist" / "Song"（大小写不敏感）。
		if isHeaderLabel(artist) || isHeaderLabel(title) {
			continue
		}
		out = append(out, domain.Track{
			Title:  strings.ToLower(title),
			Artist: strings.ToLower(artist),
		})
	}
	if len(out) > 0 {
		return out
	}

	for _, m := range listItemRE.FindAllStringSubmatch(segment, -1) {
		line := cleanCell(m[1])
		if line == "" {
			continue
		}
		parts := dashSplitRE.Split(line, 2)
		if len(parts) != 2 {
			continue
		}
		artist := strings.TrimSpace(parts[0])
		title := trimQuotes(strings.TrimSpace(parts[1]))
		if artist == "" || title == "" {
			continue
		}
		out = append(out, domain.Track{
			Title:  strings.ToLower(title),
			Artist: strings.ToLower(artist),
		})
	}
	return out
}

// cleanCell 去掉内嵌标签、解码实体、压空白。
func cleanCell(s string) string {
	s = tagRE.ReplaceAllString(s, " ")
	s = stdhtml.UnescapeString(s)
	return normSpace(s)
}

func isHeaderLabel(s string) bool {
	return strings.EqualFold(s, "artist") || strings.EqualFold(s, "song")
}

func trimQuotes(s string) string {
	return strings.Trim(s, `"'“”‘’`)
}
