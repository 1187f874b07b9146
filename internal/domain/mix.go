package domain

import (
	"regexp"
	"strings"
)

// MixID 是一盘 mix 在源站上的唯一主键（纯数字字符串，例如 "8421"）。
//
// 约束：要么得到合法 ID，要么失败；宁可跳过，也不允许写错来源。
type MixID string

var mixIDRE = regexp.MustCompile(`^[0-9]{1,10}$`)

// ParseMixID 校验并解析 MixID 字符串（必须是纯数字）。
func ParseMixID(s string) (MixID, bool) {
	s = strings.TrimSpace(s)
	if !mixIDRE.MatchString(s) {
		return "", false
	}
	return MixID(s), true
}

const (
	FormatCD       = "cd"
	FormatCassette = "cassette"
	FormatPlaylist = "playlist"
)

// Track 是一条曲目（title/artist 均为小写、非空；顺序即播放顺序）。
type Track struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// MixRecord 是从详情页提取并规范化后的结构化记录。
//
// 约束：
// - ID / SourceURL 是来源标记，写入后不可变
// - Tracks 顺序必须与页面顺序一致（不允许重排）
// - SideA/SideB 仅在 format=cassette 且两面都解析出来时存在；
//   此时 Tracks 必须等于 SideA ++ SideB（派生字段，不独立权威）
type MixRecord struct {
	ID     MixID  `json:"id"`
	Title  string `json:"title"`
	Date   string `json:"date,omitempty"` // ISO date, e.g. "1999-07-04"
	Format string `json:"format"`
	Notes  string `json:"notes"`

	Tracks []Track `json:"tracks"`
	SideA  []Track `json:"sideA,omitempty"`
	SideB  []Track `json:"sideB,omitempty"`

	SourceURL string `json:"sourceUrl"`
}

// Valid 是持久化前的校验门：title 非空且至少一条 track。
// 不满足的记录只计数、不落盘（invalid_record），不视为抛错。
func (m MixRecord) Valid() bool {
	if strings.TrimSpace(m.Title) == "" {
		return false
	}
	return len(m.Tracks) > 0
}
