package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/John-Robertt/MixDex/internal/domain"
)

// Error 是 provider 阶段的可追溯错误。
// 上层可以据此把失败归类为 fetch_failed / parse_failed，并写入 report。
type Error struct {
	Provider string // provider name（小写）
	Stage    string // "fetch" 或 "parse"
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider=%s stage=%s: %v", e.Provider, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// FetchParseListing 抓取并解析一张列表页，把失败包成带 stage 的 *Error。
func FetchParseListing(ctx context.Context, p Provider, member string, page int, c *http.Client) ([]domain.MixID, string, error) {
	if p == nil {
		return nil, "", fmt.Errorf("provider 不能为空")
	}
	if strings.TrimSpace(member) == "" {
		return nil, "", fmt.Errorf("member 不能为空")
	}
	if page < 1 {
		return nil, "", fmt.Errorf("page 必须 >= 1，实际是 %d", page)
	}

	html, pageURL, err := p.FetchListing(ctx, member, page, c)
	if err != nil {
		return nil, pageURL, &Error{Provider: p.Name(), Stage: "fetch", Err: err}
	}
	ids, err := p.ParseListing(html)
	if err != nil {
		return nil, pageURL, &Error{Provider: p.Name(), Stage: "parse", Err: err}
	}
	return ids, pageURL, nil
}

// FetchParseMix 抓取并解析一张详情页，把失败包成带 stage 的 *Error。
//
// 返回值：
// - rec：候选记录（校验门由调用方把关）
// - pageURL：详情页 URL（写入 sourceUrl）
// - html：抓取到的原始 HTML（用于 cache）
func FetchParseMix(ctx context.Context, p Provider, id domain.MixID, c *http.Client) (rec domain.MixRecord, pageURL string, html []byte, err error) {
	if p == nil {
		return domain.MixRecord{}, "", nil, fmt.Errorf("provider 不能为空")
	}
	if id == "" {
		return domain.MixRecord{}, "", nil, fmt.Errorf("id 不能为空")
	}

	html, pageURL, ferr := p.FetchMix(ctx, id, c)
	if ferr != nil {
		return domain.MixRecord{}, pageURL, nil, &Error{Provider: p.Name(), Stage: "fetch", Err: ferr}
	}
	rec, perr := p.ParseMix(id, html, pageURL)
	if perr != nil {
		return domain.MixRecord{}, pageURL, nil, &Error{Provider: p.Name(), Stage: "parse", Err: perr}
	}
	return rec, pageURL, html, nil
}

// FetchURL 执行一次 GET 并返回 body。
// 非 2xx 状态返回 *HTTPStatusError（带 URL 与 Location，便于上层解释）。
func FetchURL(ctx context.Context, c *http.Client, u string) ([]byte, error) {
	if c == nil {
		return nil, errors.New("http client 不能为空")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		loc := strings.TrimSpace(resp.Header.Get("Location"))
		return nil, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: loc}
	}
	if len(b) == 0 {
		return nil, errors.New("empty response body")
	}
	return b, nil
}
