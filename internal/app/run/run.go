package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/MixDex/internal/config"
	"github.com/John-Robertt/MixDex/internal/content"
	"github.com/John-Robertt/MixDex/internal/domain"
	"github.com/John-Robertt/MixDex/internal/infra/cache"
	"github.com/John-Robertt/MixDex/internal/infra/httpx"
	"github.com/John-Robertt/MixDex/internal/infra/pace"
	"github.com/John-Robertt/MixDex/internal/provider"
	"github.com/John-Robertt/MixDex/internal/slug"
)

// Execute 执行一次 run（dry-run/apply），并返回对外稳定的 RunReport。
// 该函数尽量把错误“降级”为 item 级失败（单条失败不影响其他）。
func Execute(ctx context.Context, eff config.EffectiveConfig, p provider.Provider) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, p, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息（由上层决定是否启用）。
//
// 两个阶段，严格串行（刻意不并发，保护第三方源站）：
// 1) discover：逐页抓列表页，汇总去重后的 mix ID 集合（首次出现顺序）
// 2) import：逐个抓详情页，提取 -> 校验 -> 落盘；每次出站请求后固定停顿
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, p provider.Provider, obs Observer) domain.RunReport {
	started := time.Now().UTC()

	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.RunReport{
		Path:      eff.Path,
		Member:    eff.Member,
		DryRun:    !eff.Apply,
		StartedAt: started,
		Items:     make([]domain.ItemResult, 0, 64),
	}

	if strings.TrimSpace(eff.Member) == "" {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeConfigInvalid, "member 未配置：通过 --member 或 mixdex.json 的 member 字段指定"))
		return finish(rr)
	}
	if p == nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeConfigInvalid, "provider 不能为空"))
		return finish(rr)
	}

	client, err := httpx.NewClient(eff.ProxyURL)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeConfigInvalid, fmt.Sprintf("proxy.url 无效：%v", err)))
		return finish(rr)
	}

	// 输出目录创建失败是本次 run 唯一的“致命”失败（每个条目都会写不进去）。
	if eff.Apply {
		if err := os.MkdirAll(eff.Path, 0o755); err != nil {
			rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeIOFailed, fmt.Sprintf("创建输出目录失败：%v", err)))
			return finish(rr)
		}
	}

	store := cache.New(eff.Path, !eff.Apply)
	limiter := pace.New(eff.Delay)

	// Phase 1：discover。单页失败只计数（fetch_failed 级别），不中断。
	discoverStarted := time.Now()
	seen := make(map[domain.MixID]struct{}, 64)
	ids := make([]domain.MixID, 0, 64)
	for page := 1; page <= eff.Pages; page++ {
		pageIDs, _, err := provider.FetchParseListing(ctx, p, eff.Member, page, client)
		if err != nil {
			rr.PageErrors++
		} else {
			rr.PagesFetched++
			for _, id := range pageIDs {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
		if err := limiter.Wait(ctx); err != nil {
			break
		}
	}
	rr.IDsFound = len(ids)

	if obs != nil {
		obs.OnPhaseDone("discover", map[string]any{
			"pages":       rr.PagesFetched,
			"page_errors": rr.PageErrors,
			"ids":         rr.IDsFound,
		}, time.Since(discoverStarted))
		obs.OnPhaseDone("import", map[string]any{
			"total": len(ids),
		}, 0)
	}

	// Phase 2：import。条目间严格串行；每次真实出站请求后固定停顿。
	for i, id := range ids {
		oneStarted := time.Now()
		res, fetched := execOne(ctx, eff, id, p, client, store)
		rr.Items = append(rr.Items, res)
		if obs != nil {
			obs.OnItemDone(i+1, len(ids), id, res, time.Since(oneStarted))
		}
		if fetched {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		}
	}

	return finish(rr)
}

func finish(rr domain.RunReport) domain.RunReport {
	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

func syntheticFailed(code, msg string) domain.ItemResult {
	return domain.ItemResult{
		ID:        "",
		Status:    domain.StatusFailed,
		ErrorCode: code,
		ErrorMsg:  msg,
	}
}

// execOne 处理一个 mix：cache -> fetch+parse -> 校验门 -> 落盘。
// 返回值 fetched 表示是否真的发出了网络请求（决定要不要停顿）。
func execOne(ctx context.Context, eff config.EffectiveConfig, id domain.MixID, p provider.Provider, client *http.Client, store cache.Store) (domain.ItemResult, bool) {
	item := domain.ItemResult{ID: string(id)}

	rec, fromCache := cachedRecord(store, id)

	fetched := false
	if !fromCache {
		m, _, html, err := provider.FetchParseMix(ctx, p, id, client)
		if err != nil {
			fillProviderError(&item, err)
			return item, true
		}
		fetched = true
		rec = m

		// apply：写缓存（HTML + JSON）。失败不致命（缓存只是加速，不是产物）。
		if !store.ReadOnly {
			_ = store.WriteMixHTML(id, html)
			if b, e := json.Marshal(rec); e == nil {
				_ = store.WriteMixJSON(id, b)
			}
		}
	}

	item.Title = rec.Title
	item.SourceURL = rec.SourceURL
	item.Tracks = len(rec.Tracks)

	// 校验门：title 非空且至少一条 track，否则只计数、不落盘。
	if !rec.Valid() {
		item.Status = domain.StatusInvalid
		item.ErrorCode = domain.ErrCodeInvalidRecord
		item.ErrorMsg = "记录未通过校验（title 为空或零曲目），不落盘"
		return item, fetched
	}

	s := slug.Derive(rec.Title)
	if s == "" {
		item.Status = domain.StatusInvalid
		item.ErrorCode = domain.ErrCodeInvalidRecord
		item.ErrorMsg = fmt.Sprintf("标题 %q 推导不出合法 slug", rec.Title)
		return item, fetched
	}
	item.Slug = s

	// 缓存命中且同 slug 内容文件已存在：无需重写。
	// 重写会覆盖 normalizer 的后处理结果（记录只允许 normalizer 改写）。
	if fromCache {
		if _, err := os.Stat(filepath.Join(eff.Path, s+".json")); err == nil {
			item.Status = domain.StatusSkipped
			return item, fetched
		}
	}

	// dry-run：到校验为止；不写内容文件、不写缓存。
	if !eff.Apply {
		item.Status = domain.StatusWritten
		return item, fetched
	}

	if err := content.Write(eff.Path, s, rec); err != nil {
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeIOFailed
		item.ErrorMsg = fmt.Sprintf("写入内容文件失败：%v", err)
		return item, fetched
	}

	item.Status = domain.StatusWritten
	return item, fetched
}

// cachedRecord 尝试从缓存恢复解析结果（只读路径；坏缓存一律当未命中）。
func cachedRecord(store cache.Store, id domain.MixID) (domain.MixRecord, bool) {
	b, ok, err := store.ReadMixJSON(id)
	if err != nil || !ok {
		return domain.MixRecord{}, false
	}
	var rec domain.MixRecord
	if e := json.Unmarshal(b, &rec); e != nil {
		return domain.MixRecord{}, false
	}
	if rec.ID != id {
		return domain.MixRecord{}, false
	}
	return rec, true
}

func fillProviderError(item *domain.ItemResult, err error) {
	item.Status = domain.StatusFailed

	var pe *provider.Error
	if errors.As(err, &pe) {
		switch pe.Stage {
		case "fetch":
			item.ErrorCode = domain.ErrCodeFetchFailed
			item.ErrorMsg = humanizeFetchError(pe.Err)
		case "parse":
			item.ErrorCode = domain.ErrCodeParseFailed
			item.ErrorMsg = humanizeParseError(pe.Err)
		default:
			item.ErrorCode = domain.ErrCodeFetchFailed
			item.ErrorMsg = pe.Err.Error()
		}
		return
	}

	item.ErrorCode = domain.ErrCodeFetchFailed
	item.ErrorMsg = err.Error()
}

func humanizeFetchError(err error) string {
	if err == nil {
		return "抓取失败"
	}

	// HTTP 非 2xx：尽量给出可操作提示（限流/下架是最常见问题）。
	var hs *provider.HTTPStatusError
	if errors.As(err, &hs) {
		switch hs.StatusCode {
		case 403, 429:
			return fmt.Sprintf("源站返回 HTTP %d（可能触发限流）。建议调大 delay_ms 或配置 proxy.url。", hs.StatusCode)
		case 404:
			return "源站返回 HTTP 404（该 mix 可能不存在/已删除）。"
		default:
			return fmt.Sprintf("源站返回 HTTP %d。", hs.StatusCode)
		}
	}

	low := strings.ToLower(err.Error())
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(low, "timeout") {
		return "抓取超时。建议检查网络/代理后重试。"
	}
	return fmt.Sprintf("抓取失败：%v", err)
}

func humanizeParseError(err error) string {
	if err == nil {
		return "解析失败"
	}
	// 解析失败通常意味着站点结构漂移或被返回了非预期页面（例如空内容）。
	return fmt.Sprintf("解析失败（站点结构可能变化或返回了非详情页内容）：%v", err)
}
