package fsx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomicReplace_CreatesAndOverwrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "content")

	if err := WriteFileAtomicReplace(dir, "a.json", []byte("v1\n")); err != nil {
		t.Fatalf("首次写入失败：%v", err)
	}
	if err := WriteFileAtomicReplace(dir, "a.json", []byte("v2\n")); err != nil {
		t.Fatalf("覆盖写入失败：%v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "a.json"))
	if err != nil {
		t.Fatalf("读取失败：%v", err)
	}
	if string(b) != "v2\n" {
		t.Fatalf("期望 v2，实际 %q", b)
	}
}

func TestWriteFileAtomicReplace_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	if err := WriteFileAtomicReplace(dir, "x.json", []byte("{}\n")); err != nil {
		t.Fatalf("写入失败：%v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("读取目录失败：%v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			t.Fatalf("不应残留临时文件：%s", e.Name())
		}
	}
}
