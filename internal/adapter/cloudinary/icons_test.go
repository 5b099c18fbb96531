package cloudinary

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type fakeUploader struct {
	params uploader.UploadParams
	body   string
	res    *uploader.UploadResult
	err    error
}

func (f *fakeUploader) Upload(_ context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
	f.params = params
	if r, ok := file.(io.Reader); ok {
		b, _ := io.ReadAll(r)
		f.body = string(b)
	}
	return f.res, f.err
}

func TestUploadPrefersEagerURL(t *testing.T) {
	api := &fakeUploader{res: &uploader.UploadResult{
		SecureURL: "https://res.cloudinary.com/x/image/upload/icons/u1.png",
		Eager:     []uploader.Eager{{SecureURL: "https://res.cloudinary.com/x/image/upload/q_auto/icons/u1.png"}},
	}}
	s := &IconStore{folder: "icons", api: api}

	url, err := s.Upload(context.Background(), "u1_abcd", strings.NewReader("png"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(url, "q_auto") {
		t.Fatalf("expected transformed url, got %s", url)
	}
	if api.params.Folder != "icons" || api.params.PublicID != "u1_abcd" {
		t.Fatalf("unexpected params %+v", api.params)
	}
	if api.params.Overwrite == nil || !*api.params.Overwrite {
		t.Fatalf("uploads must overwrite the previous icon")
	}
	if api.body != "png" {
		t.Fatalf("file content not forwarded")
	}
}

func TestUploadFallsBackToSecureURL(t *testing.T) {
	s := &IconStore{api: &fakeUploader{res: &uploader.UploadResult{SecureURL: "https://a/b.png"}}}

	url, err := s.Upload(context.Background(), "id", strings.NewReader("x"))
	if err != nil || url != "https://a/b.png" {
		t.Fatalf("unexpected result %q %v", url, err)
	}
}

func TestUploadErrors(t *testing.T) {
	s := &IconStore{api: &fakeUploader{err: errors.New("network")}}
	if _, err := s.Upload(context.Background(), "id", strings.NewReader("x")); err == nil {
		t.Fatalf("expected transport error")
	}

	s = &IconStore{api: &fakeUploader{res: &uploader.UploadResult{}}}
	if _, err := s.Upload(context.Background(), "id", strings.NewReader("x")); !errors.Is(err, ErrEmptyURL) {
		t.Fatalf("expected ErrEmptyURL, got %v", err)
	}
}
