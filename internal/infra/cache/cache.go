package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/MixDex/internal/domain"
	"github.com/John-Robertt/MixDex/internal/infra/fsx"
)

// Store 提供 <path>/cache/mixes/ 下的抓取缓存读写（原始 HTML + 解析后的 JSON）。
//
// 约束：
// - dry-run：只允许读（ReadOnly=true）
// - apply：允许写（ReadOnly=false）
type Store struct {
	Root     string // <path>（内容根目录）
	ReadOnly bool
}

var ErrReadOnly = errors.New("cache: read-only")

func New(root string, readOnly bool) Store {
	return Store{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
	}
}

// MixHTMLPath 返回某个 mix 原始 HTML 缓存的绝对路径。
func (s Store) MixHTMLPath(id domain.MixID) (string, error) {
	if id == "" {
		return "", fmt.Errorf("id 不能为空")
	}
	return filepath.Join(s.Root, "cache", "mixes", string(id)+".html"), nil
}

// MixJSONPath 返回某个 mix 解析结果缓存的绝对路径。
func (s Store) MixJSONPath(id domain.MixID) (string, error) {
	if id == "" {
		return "", fmt.Errorf("id 不能为空")
	}
	return filepath.Join(s.Root, "cache", "mixes", string(id)+".json"), nil
}

func (s Store) ReadMixHTML(id domain.MixID) ([]byte, bool, error) {
	path, err := s.MixHTMLPath(id)
	if err != nil {
		return nil, false, err
	}
	return readIfExists(path)
}

func (s Store) ReadMixJSON(id domain.MixID) ([]byte, bool, error) {
	path, err := s.MixJSONPath(id)
	if err != nil {
		return nil, false, err
	}
	return readIfExists(path)
}

func (s Store) WriteMixHTML(id domain.MixID, html []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	if id == "" {
		return fmt.Errorf("id 不能为空")
	}
	dir := filepath.Join(s.Root, "cache", "mixes")
	return fsx.WriteFileAtomicReplace(dir, string(id)+".html", html)
}

func (s Store) WriteMixJSON(id domain.MixID, json []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	if id == "" {
		return fmt.Errorf("id 不能为空")
	}
	dir := filepath.Join(s.Root, "cache", "mixes")
	return fsx.WriteFileAtomicReplace(dir, string(id)+".json", json)
}

func readIfExists(path string) ([]byte, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}
