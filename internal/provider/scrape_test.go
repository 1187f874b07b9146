package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/John-Robertt/MixDex/internal/domain"
)

type stubProvider struct {
	name string

	fetchErr error
	parseErr error

	html []byte
	url  string
	ids  []domain.MixID
	rec  domain.MixRecord
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) FetchListing(ctx context.Context, member string, page int, c *http.Client) ([]byte, string, error) {
	if p.fetchErr != nil {
		return nil, "", p.fetchErr
	}
	return p.html, p.url, nil
}

func (p *stubProvider) ParseListing(html []byte) ([]domain.MixID, error) {
	if p.parseErr != nil {
		return nil, p.parseErr
	}
	return p.ids, nil
}

func (p *stubProvider) FetchMix(ctx context.Context, id domain.MixID, c *http.Client) ([]byte, string, error) {
	if p.fetchErr != nil {
		return nil, "", p.fetchErr
	}
	return p.html, p.url, nil
}

func (p *stubProvider) ParseMix(id domain.MixID, html []byte, pageURL string) (domain.MixRecord, error) {
	if p.parseErr != nil {
		return domain.MixRecord{}, p.parseErr
	}
	r := p.rec
	r.ID = id
	r.SourceURL = pageURL
	return r, nil
}

func TestFetchParseMix_StagesErrors(t *testing.T) {
	id, _ := domain.ParseMixID("7")

	fetchFail := &stubProvider{name: "aom", fetchErr: errors.New("nope")}
	_, _, _, err := FetchParseMix(context.Background(), fetchFail, id, nil)
	var pe *Error
	if !errors.As(err, &pe) || pe.Stage != "fetch" {
		t.Fatalf("期望 stage=fetch，实际 err=%v", err)
	}

	parseFail := &stubProvider{name: "aom", html: []byte("<bad/>"), url: "https://example.test/mix/7", parseErr: errors.New("parse fail")}
	_, _, _, err = FetchParseMix(context.Background(), parseFail, id, nil)
	if !errors.As(err, &pe) || pe.Stage != "parse" {
		t.Fatalf("期望 stage=parse，实际 err=%v", err)
	}
}

func TestFetchParseMix_OK(t *testing.T) {
	id, _ := domain.ParseMixID("7")
	p := &stubProvider{
		name: "aom",
		html: []byte("<html/>"),
		url:  "https://example.test/mix/7",
		rec:  domain.MixRecord{Title: "t", Tracks: []domain.Track{{Title: "a", Artist: "b"}}},
	}

	rec, pageURL, html, err := FetchParseMix(context.Background(), p, id, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if rec.ID != id || rec.SourceURL != p.url {
		t.Fatalf("记录来源不符合预期：%+v", rec)
	}
	if pageURL != p.url || string(html) != "<html/>" {
		t.Fatalf("pageURL/html 不符合预期：%q %q", pageURL, html)
	}
}

func TestFetchParseListing_EmptyMember(t *testing.T) {
	p := &stubProvider{name: "aom"}
	if _, _, err := FetchParseListing(context.Background(), p, "  ", 1, nil); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
}

func TestFetchURL_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := FetchURL(context.Background(), srv.Client(), srv.URL+"/mix/404")
	var hs *HTTPStatusError
	if !errors.As(err, &hs) || hs.StatusCode != http.StatusNotFound {
		t.Fatalf("期望 HTTPStatusError(404)，实际 %v", err)
	}
}

func TestFetchURL_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	b, err := FetchURL(context.Background(), srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if string(b) != "<html>ok</html>" {
		t.Fatalf("body 不符合预期：%q", b)
	}
}
