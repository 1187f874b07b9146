package artofthemix

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/MixDex/internal/domain"
	providerx "github.com/John-Robertt/MixDex/internal/provider"
)

// DefaultBaseURL 是源站的默认域名；站点迁移/镜像时可在配置里覆盖。
const DefaultBaseURL = "http://www.artofthemix.org"

// Provider 实现 Art of the Mix 的页面抓取与 HTML 解析。
//
// 约束：
// - Fetch* 不做缓存/重试/限速（由上层统一控制）
// - Parse* 必须是纯函数（依赖输入 html + pageURL）
// - 站点是上世纪风格的表格排版，结构极不一致：解析按“逐字段 best-effort”，
//   单个字段缺失不算错误（校验门在持久化前统一把关）
type Provider struct {
	BaseURL string
}

func (Provider) Name() string { return "artofthemix" }

func (p Provider) base() string {
	b := strings.TrimSpace(p.BaseURL)
	if b == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(b, "/")
}

// FetchListing 抓取列表页：<base>/members/<member>/mixes/<page>
func (p Provider) FetchListing(ctx context.Context, member string, page int, c *http.Client) ([]byte, string, error) {
	if strings.TrimSpace(member) == "" {
		return nil, "", errors.New("member 不能为空")
	}
	if page < 1 {
		return nil, "", fmt.Errorf("page 必须 >= 1，实际是 %d", page)
	}
	pageURL := p.base() + "/members/" + url.PathEscape(member) + "/mixes/" + strconv.Itoa(page)
	b, err := providerx.FetchURL(ctx, c, pageURL)
	return b, pageURL, err
}

var mixHrefRE = regexp.MustCompile(`/mix/([0-9]{1,10})`)

// ParseListing 提取列表页里引用到的全部 mix ID。
// 去重：同一页（以及跨页，由上层的集合保证）只保留首次出现。
func (Provider) ParseListing(html []byte) ([]domain.MixID, error) {
	if len(html) == 0 {
		return nil, errors.New("html 为空")
	}

	seen := make(map[domain.MixID]struct{}, 32)
	out := make([]domain.MixID, 0, 32)
	for _, m := range mixHrefRE.FindAllSubmatch(html, -1) {
		id, ok := domain.ParseMixID(string(m[1]))
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// FetchMix 抓取详情页：<base>/mix/<id>
func (p Provider) FetchMix(ctx context.Context, id domain.MixID, c *http.Client) ([]byte, string, error) {
	if id == "" {
		return nil, "", errors.New("id 不能为空")
	}
	pageURL := p.base() + "/mix/" + string(id)
	b, err := providerx.FetchURL(ctx, c, pageURL)
	return b, pageURL, err
}

var (
	// 标签字段依赖原始间距，在 raw 文本上匹配。
	dateRE   = regexp.MustCompile(`(?i)submit(?:ted)?(?:\s*date)?\D{0,40}?([0-9]{1,2})/([0-9]{1,2})/([0-9]{4})`)
	formatRE = regexp.MustCompile(`(?i)format\W{0,20}(cd|cassette|playlist)`)

	notesForRE       = regexp.MustCompile(`(?i);\s*for\s+([^.<]+)`)
	notesDedicatedRE = regexp.MustCompile(`(?i)dedicated\s+to\s+([^.<]+)`)

	sideARE = regexp.MustCompile(`(?i)side\s*a\b`)
	sideBRE = regexp.MustCompile(`(?i)side\s*b\b`)

	wsRE       = regexp.MustCompile(`\s+`)
	byAuthorRE = regexp.MustCompile(`(?i)\s+by\s+\S.*$`)
)

// ParseMix 把详情页 HTML 解析为候选 MixRecord。
//
// 逐字段 best-effort，每步独立：
// - 标题：h1 -> <title> -> class 含 "title" 的元素，取第一个命中
// - 日期：raw 文本里的 "Submit Date"/"Submitted" + M/D/YYYY，重排为 YYYY-MM-DD
// - 格式：raw 文本里的 Format 标签（cd|cassette|playlist），缺省 cd
// - 备注：'; for <name>' 或 'dedicated to <name>'，统一存成 "for <name>"
// - 曲目：cassette 且两面标记齐全时按 "Side B" 首次出现切两段分别提取；否则整页一次
//
// 空白折叠只作用于工作副本（结构性匹配用）；标签类字段仍在 raw 文本上搜。
func (Provider) ParseMix(id domain.MixID, html []byte, pageURL string) (domain.MixRecord, error) {
	if id == "" {
		return domain.MixRecord{}, errors.New("id 不能为空")
	}
	if len(html) == 0 {
		return domain.MixRecord{}, errors.New("html 为空")
	}
	if strings.TrimSpace(pageURL) == "" {
		return domain.MixRecord{}, errors.New("pageURL 不能为空")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return domain.MixRecord{}, err
	}

	raw := string(html)
	normalized := wsRE.ReplaceAllString(raw, " ")

	rec := domain.MixRecord{
		ID:        id,
		Title:     extractTitle(doc),
		Date:      extractDate(raw),
		Format:    extractFormat(raw),
		Notes:     extractNotes(raw),
		SourceURL: strings.TrimSpace(pageURL),
	}

	hasSideA := sideARE.MatchString(normalized)
	sideBLoc := sideBRE.FindStringIndex(normalized)

	// Side A/B 标记齐全也视为 cassette（有些页面漏标 Format）。
	if hasSideA && sideBLoc != nil {
		rec.Format = domain.FormatCassette
	}

	if rec.Format == domain.FormatCassette && hasSideA && sideBLoc != nil {
		// 在首个 "Side B" 标记处切开：头段是 A 面，尾段（含标记）是 B 面。
		head := normalized[:sideBLoc[0]]
		tail := normalized[sideBLoc[0]:]
		rec.SideA = extractTracks(head)
		rec.SideB = extractTracks(tail)
		rec.Tracks = append(append([]domain.Track{}, rec.SideA...), rec.SideB...)
	} else {
		rec.Tracks = extractTracks(normalized)
	}

	return rec, nil
}

// extractTitle 依优先级尝试三种定位方式，取第一个非空命中。
// 统一做：压空白、去掉尾部 "by <author>"、小写。
func extractTitle(doc *goquery.Document) string {
	candidates := []func() string{
		func() string { return doc.Find("h1").First().Text() },
		func() string { return doc.Find("title").First().Text() },
		func() string { return doc.Find("[class*='title']").First().Text() },
	}
	for _, get := range candidates {
		t := normSpace(get())
		if t == "" {
			continue
		}
		t = byAuthorRE.ReplaceAllString(t, "")
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		return strings.ToLower(t)
	}
	return ""
}

func extractDate(raw string) string {
	m := dateRE.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return ""
	}
	return fmt.Sprintf("%s-%02d-%02d", m[3], month, day)
}

func extractFormat(raw string) string {
	m := formatRE.FindStringSubmatch(raw)
	if m == nil {
		return domain.FormatCD
	}
	return strings.ToLower(m[1])
}

func extractNotes(raw string) string {
	m := notesForRE.FindStringSubmatch(raw)
	if m == nil {
		m = notesDedicatedRE.FindStringSubmatch(raw)
	}
	if m == nil {
		return ""
	}
	name := strings.ToLower(normSpace(m[1]))
	if name == "" {
		return ""
	}
	return "for " + name
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
