package normalize

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("写 fixture 失败：%v", err)
	}
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("读文件失败：%v", err)
	}
	return string(b)
}

func TestCleanText(t *testing.T) {
	cases := []struct{ in, want string }{
		{"glory&nbsp;box", "glory box"},
		{"  glory   box  ", "glory box"},
		{"glory box", "glory box"},
		{"&nbsp; glory &nbsp;", "glory"},
		{"already clean", "already clean"},
	}
	for _, c := range cases {
		if got := CleanText(c.in); got != c.want {
			t.Fatalf("CleanText(%q)：期望 %q，实际 %q", c.in, c.want, got)
		}
	}
}

func TestDir_CleansTitleAndTracks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{
  "id": "7",
  "title": "glory&nbsp;mix ",
  "format": "cassette",
  "notes": "",
  "tracks": [
    {"title": "glory&nbsp;box", "artist": " portishead "}
  ],
  "sideA": [
    {"title": "glory&nbsp;box", "artist": " portishead "}
  ],
  "sideB": [
    {"title": "b1", "artist": "y"}
  ],
  "sourceUrl": "http://x/mix/7",
  "spotifyUrl": "https://open.spotify.com/playlist/x"
}
`)

	res, err := Dir(dir)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if res.Rewritten != 1 || len(res.Skipped) != 0 {
		t.Fatalf("统计不符合预期：%+v", res)
	}

	out := readFile(t, dir, "a.json")
	for _, want := range []string{`"glory mix"`, `"glory box"`, `"portishead"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("期望包含 %s：%s", want, out)
		}
	}
	if strings.Contains(out, "&nbsp;") {
		t.Fatalf("实体残留未清除：%s", out)
	}
	// 手工补充的可选字段必须保留。
	if !strings.Contains(out, "spotifyUrl") {
		t.Fatalf("可选字段被丢弃：%s", out)
	}
}

func TestDir_Idempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"id":"1","title":"x&nbsp;y","tracks":[{"title":"a","artist":"b"}],"format":"cd","notes":"","sourceUrl":"u"}`)

	if _, err := Dir(dir); err != nil {
		t.Fatalf("第一遍失败：%v", err)
	}
	first := readFile(t, dir, "a.json")

	if _, err := Dir(dir); err != nil {
		t.Fatalf("第二遍失败：%v", err)
	}
	second := readFile(t, dir, "a.json")

	if first != second {
		t.Fatalf("幂等性被破坏：\n第一遍：%s\n第二遍：%s", first, second)
	}
}

func TestDir_BadJSONSkippedOthersProceed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.json", `{not json`)
	writeFile(t, dir, "ok.json", `{"title":"t&nbsp;"}`)
	writeFile(t, dir, "not-json.txt", `ignore me`)

	res, err := Dir(dir)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if res.Rewritten != 1 {
		t.Fatalf("期望重写 1 个，实际 %d", res.Rewritten)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Name != "bad.json" {
		t.Fatalf("期望跳过 bad.json：%+v", res.Skipped)
	}
}
