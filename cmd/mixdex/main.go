package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/John-Robertt/MixDex/internal/app/run"
	"github.com/John-Robertt/MixDex/internal/config"
	"github.com/John-Robertt/MixDex/internal/domain"
	"github.com/John-Robertt/MixDex/internal/infra/fsx"
	"github.com/John-Robertt/MixDex/internal/normalize"
	"github.com/John-Robertt/MixDex/internal/provider/artofthemix"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	switch args[0] {
	case "run":
		if code := runCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	case "normalize":
		if code := normalizeCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func runCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printRunUsage()
			return 0
		}
	}

	ra, err := parseRunArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printRunUsage()
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}
	cwdAbs, _ := filepath.Abs(cwd)

	eff, err := config.LoadEffective(cwd, config.CLIArgs{
		Path:      ra.Path,
		Member:    ra.Member,
		MemberSet: ra.MemberSet,
		Pages:     ra.Pages,
		PagesSet:  ra.PagesSet,
		Apply:     ra.Apply,
		ApplySet:  ra.ApplySet,
	})
	if err != nil {
		rr := reportForConfigError(cwdAbs, ra, err)
		emitReport(rr)
		return 1
	}

	p := artofthemix.Provider{BaseURL: eff.BaseURL}

	progressW, interactive := pickProgressWriter()
	var obs run.Observer
	if interactive {
		obs = newProgressUI(progressW)
	}

	rr := run.ExecuteWithObserver(context.Background(), eff, p, obs)

	// apply：必须写入 <path>/cache/report.json；dry-run 禁止落盘。
	if eff.Apply {
		if err := writeReportFile(eff.Path, rr); err != nil {
			fmt.Fprintf(os.Stderr, "写入 report.json 失败：%v\n", err)
			emitReport(rr)
			return 1
		}
	}

	emitReport(rr)
	if interactive {
		emitLocations(progressW, eff)
	}

	// 退出码约定：单条抓取/解析/校验失败不算进程失败（便于 cron/脚本串联）。
	// 只有“顶层失败”（配置错误、输出目录不可写等合成条目）才返回非零。
	for _, it := range rr.Items {
		if it.ID == "" && it.Status == domain.StatusFailed {
			return 1
		}
	}
	return 0
}

func normalizeCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printNormalizeUsage()
			return 0
		}
	}

	dir := ""
	for _, a := range args {
		if strings.HasPrefix(a, "-") {
			fmt.Fprintf(os.Stderr, "参数错误：未知参数 %q\n\n", a)
			printNormalizeUsage()
			return 2
		}
		if dir != "" {
			fmt.Fprintf(os.Stderr, "参数错误：重复的 path：%q 与 %q\n\n", dir, a)
			printNormalizeUsage()
			return 2
		}
		dir = a
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	// 目录发现与 run 相同：CLI path 优先，否则读 <cwd>/mixdex.json 的 path。
	eff, err := config.LoadEffective(cwd, config.CLIArgs{Path: dir})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	res, err := normalize.Dir(eff.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "normalize 失败：%v\n", err)
		return 1
	}

	// 单个文件跳过不算进程失败（坏文件留在原地，由人排查）。
	for _, s := range res.Skipped {
		fmt.Fprintf(os.Stderr, "跳过 %s: %v\n", s.Name, s.Err)
	}
	fmt.Fprintf(os.Stdout, "normalize 完成：rewritten=%d skipped=%d\n", res.Rewritten, len(res.Skipped))
	return 0
}

type runArgs struct {
	Path string

	Member    string
	MemberSet bool

	Pages    int
	PagesSet bool

	Apply    bool
	ApplySet bool
}

func parseRunArgs(args []string) (runArgs, error) {
	ra := runArgs{}

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--member":
			if i+1 >= len(args) {
				return runArgs{}, fmt.Errorf("--member 需要一个值")
			}
			i++
			ra.Member = args[i]
			ra.MemberSet = true
		case strings.HasPrefix(a, "--member="):
			ra.Member = strings.TrimPrefix(a, "--member=")
			ra.MemberSet = true
		case a == "--pages":
			if i+1 >= len(args) {
				return runArgs{}, fmt.Errorf("--pages 需要一个值")
			}
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil {
				return runArgs{}, fmt.Errorf("--pages 必须是整数，实际是 %q", args[i])
			}
			ra.Pages = n
			ra.PagesSet = true
		case strings.HasPrefix(a, "--pages="):
			v := strings.TrimPrefix(a, "--pages=")
			n, err := strconv.Atoi(v)
			if err != nil {
				return runArgs{}, fmt.Errorf("--pages 必须是整数，实际是 %q", v)
			}
			ra.Pages = n
			ra.PagesSet = true
		case a == "--apply":
			ra.Apply = true
			ra.ApplySet = true
		case strings.HasPrefix(a, "--apply="):
			v := strings.TrimPrefix(a, "--apply=")
			switch v {
			case "true":
				ra.Apply = true
			case "false":
				ra.Apply = false
			default:
				return runArgs{}, fmt.Errorf("--apply 只能是 true 或 false，实际是 %q", v)
			}
			ra.ApplySet = true
		case strings.HasPrefix(a, "-"):
			return runArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			if ra.Path != "" {
				return runArgs{}, fmt.Errorf("重复的 path：%q 与 %q", ra.Path, a)
			}
			ra.Path = a
		}
	}

	return ra, nil
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  mixdex run [path] [--member ID] [--pages N] [--apply[=true|false]]
  mixdex normalize [path]

命令：
  run        抓取成员的 mix 列表并逐条落盘（默认 dry-run）
  normalize  清洗目录下已有的 *.json 记录（去 &nbsp;、折叠空白）

使用 "mixdex <命令> --help" 查看详细说明。
`)
}

func printRunUsage() {
	fmt.Fprint(os.Stdout, `用法：
  mixdex run [path] [--member ID] [--pages N] [--apply[=true|false]]

参数：
  --member    成员 ID（未指定则读配置文件的 member 字段）
  --pages     抓取的列表页数（默认 1，上限 100）
  --apply     执行落盘（默认 dry-run）；支持 --apply=false 覆盖配置中的 apply=true
  -h, --help  显示帮助
`)
}

func printNormalizeUsage() {
	fmt.Fprint(os.Stdout, `用法：
  mixdex normalize [path]

对 <path> 下的每个 *.json 记录做清洗（去 &nbsp;、折叠空白），原地原子改写。
幂等：清洗过的文件再跑一遍不会变化。单个文件损坏只跳过并提示，不中断。
`)
}

func emitReport(rr domain.RunReport) {
	if isTTY(os.Stdout) {
		fmt.Fprintf(os.Stdout, "完成：written=%d skipped=%d invalid=%d failed=%d\n",
			rr.Summary.Written, rr.Summary.Skipped, rr.Summary.Invalid, rr.Summary.Failed,
		)
		if rr.Summary.Failed > 0 || rr.Summary.Invalid > 0 {
			for _, it := range rr.Items {
				if it.Status != domain.StatusFailed && it.Status != domain.StatusInvalid {
					continue
				}
				key := it.ID
				if key == "" {
					key = "<config>"
				}
				fmt.Fprintf(os.Stderr, "%s %s: %s\n", key, it.ErrorCode, it.ErrorMsg)
			}
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(rr)
	fmt.Fprintf(os.Stderr, "完成：written=%d skipped=%d invalid=%d failed=%d\n",
		rr.Summary.Written, rr.Summary.Skipped, rr.Summary.Invalid, rr.Summary.Failed,
	)
}

func reportForConfigError(cwdAbs string, ra runArgs, err error) domain.RunReport {
	now := time.Now().UTC()
	rr := domain.RunReport{
		Path:       cwdAbs,
		Member:     ra.Member,
		DryRun:     !(ra.ApplySet && ra.Apply),
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.ItemResult{{
			ID:        "",
			Status:    domain.StatusFailed,
			ErrorCode: config.Code(err),
			ErrorMsg:  err.Error(),
		}},
	}
	rr.Finalize()
	return rr
}

func writeReportFile(root string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomicReplace(filepath.Join(root, "cache"), "report.json", b)
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}

func emitLocations(w io.Writer, eff config.EffectiveConfig) {
	// 这两行用于降低“完成后不知道产物在哪”的摩擦，且不影响 stdout JSON 契约。
	if w == nil {
		return
	}
	if eff.Apply {
		fmt.Fprintf(w, "report: %s\n", filepath.Join(eff.Path, "cache", "report.json"))
	}
	fmt.Fprintf(w, "out: %s\n", eff.Path)
}
