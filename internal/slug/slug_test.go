package slug

import (
	"strings"
	"testing"
)

func TestDerive_Basic(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Midnight in a Perfect World!! ", "midnight-in-a-perfect-world"},
		{"Don't Stop", "dont-stop"},
		{"  Side   A / Side B  ", "side-a-side-b"},
		{"Café del Mar", "cafe-del-mar"},
		{"---", ""},
		{"", ""},
		{"mix #42 (summer '99)", "mix-42-summer-99"},
	}
	for _, c := range cases {
		if got := Derive(c.in); got != c.want {
			t.Fatalf("Derive(%q)：期望 %q，实际 %q", c.in, c.want, got)
		}
	}
}

func TestDerive_Deterministic(t *testing.T) {
	in := "The Same Title — twice"
	if Derive(in) != Derive(in) {
		t.Fatalf("同一标题必须得到同一 slug")
	}
}

func TestDerive_SafeForArbitraryInput(t *testing.T) {
	inputs := []string{
		strings.Repeat("a!", 200),
		"……！！？？",
		"mix\t\nwith\x00control",
		"ÀÉÎÕÜ ñ ç",
	}
	for _, in := range inputs {
		got := Derive(in)
		if len(got) > MaxLen {
			t.Fatalf("超长：%q -> %d", in, len(got))
		}
		if strings.HasPrefix(got, "-") || strings.HasSuffix(got, "-") {
			t.Fatalf("首尾不允许 '-'：%q -> %q", in, got)
		}
		for _, r := range got {
			if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
				t.Fatalf("非法字符 %q：%q -> %q", r, in, got)
			}
		}
	}
}
