package content

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/John-Robertt/MixDex/internal/domain"
)

func validRecord() domain.MixRecord {
	return domain.MixRecord{
		ID:     "7",
		Title:  "glory mix",
		Date:   "1999-07-04",
		Format: domain.FormatCD,
		Tracks: []domain.Track{
			{Title: "glory box", Artist: "portishead"},
		},
		SourceURL: "http://www.artofthemix.org/mix/7",
	}
}

func TestEncode_RejectsInvalid(t *testing.T) {
	rec := validRecord()
	rec.Title = ""
	if _, err := Encode(rec); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("期望 ErrInvalidRecord，实际 %v", err)
	}

	rec = validRecord()
	rec.Tracks = nil
	if _, err := Encode(rec); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("期望 ErrInvalidRecord，实际 %v", err)
	}
}

func TestEncode_Shape(t *testing.T) {
	b, err := Encode(validRecord())
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !strings.HasSuffix(string(b), "\n") {
		t.Fatalf("输出必须以换行结尾")
	}

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("输出不是合法 JSON：%v", err)
	}
	for _, k := range []string{"id", "title", "date", "format", "notes", "tracks", "sourceUrl"} {
		if _, ok := m[k]; !ok {
			t.Fatalf("缺少字段 %q：%s", k, b)
		}
	}
	if _, ok := m["sideA"]; ok {
		t.Fatalf("非 cassette 不应输出 sideA：%s", b)
	}
}

func TestEncode_OmitsDateWhenAbsent(t *testing.T) {
	rec := validRecord()
	rec.Date = ""
	b, err := Encode(rec)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("输出不是合法 JSON：%v", err)
	}
	if _, ok := m["date"]; ok {
		t.Fatalf("date 缺失时应省略：%s", b)
	}
}

func TestEncode_CassetteSides(t *testing.T) {
	rec := validRecord()
	rec.Format = domain.FormatCassette
	rec.SideA = []domain.Track{{Title: "a1", Artist: "x"}}
	rec.SideB = []domain.Track{{Title: "b1", Artist: "y"}}
	rec.Tracks = append(append([]domain.Track{}, rec.SideA...), rec.SideB...)

	b, err := Encode(rec)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("输出不是合法 JSON：%v", err)
	}
	if _, ok := m["sideA"]; !ok {
		t.Fatalf("cassette 两面齐全时应输出 sideA：%s", b)
	}
	if _, ok := m["sideB"]; !ok {
		t.Fatalf("cassette 两面齐全时应输出 sideB：%s", b)
	}
}

func TestEncode_DropsLoneSide(t *testing.T) {
	rec := validRecord()
	rec.Format = domain.FormatCassette
	rec.SideA = []domain.Track{{Title: "a1", Artist: "x"}}

	b, err := Encode(rec)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if strings.Contains(string(b), "sideA") {
		t.Fatalf("只有一面时不应输出 side：%s", b)
	}
}

func TestWrite_Overwrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mixes")

	if err := Write(dir, "glory-mix", validRecord()); err != nil {
		t.Fatalf("写入失败：%v", err)
	}
	rec := validRecord()
	rec.Notes = "for sarah"
	if err := Write(dir, "glory-mix", rec); err != nil {
		t.Fatalf("覆盖写入失败：%v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "glory-mix.json"))
	if err != nil {
		t.Fatalf("读取失败：%v", err)
	}
	if !strings.Contains(string(b), "for sarah") {
		t.Fatalf("期望后写者胜：%s", b)
	}
}
