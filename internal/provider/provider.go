package provider

import (
	"context"
	"net/http"

	"github.com/John-Robertt/MixDex/internal/domain"
)

// Provider 把“站点变化”限制在 provider 包内部；核心流程只依赖统一接口与稳定的 MixRecord。
//
// 约束：
// - Fetch* 不做缓存、不做重试、不做限速（这些由核心 cache/pace 层统一实现）
// - Parse* 必须是纯函数：相同输入 => 相同输出
// - pageURL 必须是真实请求到的页面 URL（用于 sourceUrl 与 report 追溯）
type Provider interface {
	Name() string

	// FetchListing 抓取某成员的第 page 页列表页（page 从 1 开始）。
	FetchListing(ctx context.Context, member string, page int, c *http.Client) (html []byte, pageURL string, err error)
	// ParseListing 从列表页文本中提取全部不同的 mix ID（首次出现顺序）。
	ParseListing(html []byte) ([]domain.MixID, error)

	// FetchMix 抓取单个 mix 的详情页。
	FetchMix(ctx context.Context, id domain.MixID, c *http.Client) (html []byte, pageURL string, err error)
	// ParseMix 把详情页 HTML 解析为候选 MixRecord（可能不满足校验门；由调用方检查）。
	ParseMix(id domain.MixID, html []byte, pageURL string) (domain.MixRecord, error)
}
